package api

import (
	"sync"
	"time"
)

// LastEvent is the most recent accepted event payload for a location,
// kept as a debugging aid while wiring app-specific transforms.
type LastEvent struct {
	LocationID string         `json:"locationId"`
	Payload    map[string]any `json:"payload"`
	ReceivedAt string         `json:"receivedAt"`
}

// LastEventCache stores the latest event per location.
type LastEventCache struct {
	mu sync.Mutex
	m  map[string]LastEvent
}

func NewLastEventCache() *LastEventCache { return &LastEventCache{m: map[string]LastEvent{}} }

// Put records payload as the latest event for the location.
func (c *LastEventCache) Put(locationID string, payload map[string]any) {
	if locationID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[locationID] = LastEvent{
		LocationID: locationID,
		Payload:    payload,
		ReceivedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Get returns the latest event for a location, if any.
func (c *LastEventCache) Get(locationID string) (LastEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	le, ok := c.m[locationID]
	return le, ok
}

// List returns all cached last events.
func (c *LastEventCache) List() []LastEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LastEvent, 0, len(c.m))
	for _, le := range c.m {
		out = append(out, le)
	}
	return out
}
