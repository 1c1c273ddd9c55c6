package api

import (
    "context"
    "encoding/json"
    "os"
    "time"

    redis "github.com/redis/go-redis/v9"
)

// EventBroker carries the per-location delivery feed.
type EventBroker interface {
    Subscribe(locationID string) chan FeedEvent
    Unsubscribe(locationID string, ch chan FeedEvent)
    Publish(locationID string, evt FeedEvent)
}

// In-memory broker in broker.go satisfies EventBroker.

// RedisBroker implements EventBroker over Redis Pub/Sub so feeds work
// when several relay instances sit behind one load balancer.
type RedisBroker struct {
    rdb *redis.Client
}

func NewRedisBroker() (*RedisBroker, error) {
    opt, err := redis.ParseURL(os.Getenv("REDIS_URL"))
    if err != nil { return nil, err }
    return &RedisBroker{rdb: redis.NewClient(opt)}, nil
}

func (b *RedisBroker) Subscribe(locationID string) chan FeedEvent {
    ch := make(chan FeedEvent, 16)
    ctx := context.Background()
    ps := b.rdb.Subscribe(ctx, b.chanName(locationID))
    // initial consume to ensure subscription
    _, _ = ps.Receive(ctx)
    go func() {
        defer close(ch)
        for msg := range ps.Channel() {
            var evt FeedEvent
            if err := json.Unmarshal([]byte(msg.Payload), &evt); err == nil {
                select { case ch <- evt: default: }
            }
        }
    }()
    return ch
}

func (b *RedisBroker) Unsubscribe(locationID string, ch chan FeedEvent) {
    // the consuming goroutine exits when the PubSub channel closes
    close(ch)
}

func (b *RedisBroker) Publish(locationID string, evt FeedEvent) {
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    data, _ := json.Marshal(evt)
    _ = b.rdb.Publish(ctx, b.chanName(locationID), data).Err()
}

func (b *RedisBroker) chanName(locationID string) string { return "feed:" + locationID }
