package api

import (
    "sync"
)

// FeedEvent is one message on the per-location delivery feed.
type FeedEvent struct {
    Type string         `json:"type"`
    Data map[string]any `json:"data"`
}

// Broker fans FeedEvents out to in-process subscribers (SSE and WS
// handlers). Slow consumers drop events rather than block publishers.
type Broker struct {
    mu   sync.Mutex
    subs map[string]map[chan FeedEvent]struct{} // locationId -> set of channels
}

func NewBroker() *Broker {
    return &Broker{subs: map[string]map[chan FeedEvent]struct{}{}}
}

func (b *Broker) Subscribe(locationID string) chan FeedEvent {
    ch := make(chan FeedEvent, 8)
    b.mu.Lock()
    if b.subs[locationID] == nil { b.subs[locationID] = map[chan FeedEvent]struct{}{} }
    b.subs[locationID][ch] = struct{}{}
    b.mu.Unlock()
    return ch
}

func (b *Broker) Unsubscribe(locationID string, ch chan FeedEvent) {
    b.mu.Lock()
    if m := b.subs[locationID]; m != nil {
        delete(m, ch)
        if len(m) == 0 { delete(b.subs, locationID) }
    }
    b.mu.Unlock()
    close(ch)
}

func (b *Broker) Publish(locationID string, evt FeedEvent) {
    b.mu.Lock()
    m := b.subs[locationID]
    for ch := range m {
        select { case ch <- evt: default: }
    }
    b.mu.Unlock()
}
