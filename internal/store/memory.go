package store

import (
    "context"
    "sort"
    "sync"

    "eventrelay/internal/model"
)

// Memory is the in-memory store used when no DATABASE_URL is set.
// Subscriptions are kept per location behind a per-location mutex so
// lifecycle writes for one tenant never block dispatch reads for
// another; the outer lock only guards the location map itself.
type Memory struct {
    mu       sync.RWMutex
    locs     map[string]*locationSubs
    installs map[string]model.Install
    instMu   sync.Mutex

    logMu      sync.Mutex
    deliveries []model.DeliveryRecord
}

type locationSubs struct {
    mu   sync.RWMutex
    subs map[string]model.Subscription // subscription id -> record
}

func NewMemory() *Memory {
    return &Memory{
        locs:     map[string]*locationSubs{},
        installs: map[string]model.Install{},
    }
}

func (m *Memory) loc(locationID string, create bool) *locationSubs {
    m.mu.RLock()
    ls := m.locs[locationID]
    m.mu.RUnlock()
    if ls != nil || !create { return ls }
    m.mu.Lock()
    defer m.mu.Unlock()
    if ls = m.locs[locationID]; ls == nil {
        ls = &locationSubs{subs: map[string]model.Subscription{}}
        m.locs[locationID] = ls
    }
    return ls
}

func (m *Memory) UpsertSubscription(ctx context.Context, locationID string, sub model.Subscription) error {
    ls := m.loc(locationID, true)
    ls.mu.Lock()
    sub.LocationID = locationID
    ls.subs[sub.ID] = sub
    ls.mu.Unlock()
    return nil
}

// RemoveSubscription deletes by id; removing an absent id is a no-op.
func (m *Memory) RemoveSubscription(ctx context.Context, locationID, id string) error {
    ls := m.loc(locationID, false)
    if ls == nil { return nil }
    ls.mu.Lock()
    delete(ls.subs, id)
    ls.mu.Unlock()
    return nil
}

// ListSubscriptions returns a snapshot sorted by subscription id so
// dispatch order is deterministic. An unknown location yields an empty
// slice.
func (m *Memory) ListSubscriptions(ctx context.Context, locationID string) ([]model.Subscription, error) {
    ls := m.loc(locationID, false)
    if ls == nil { return []model.Subscription{}, nil }
    ls.mu.RLock()
    out := make([]model.Subscription, 0, len(ls.subs))
    for _, s := range ls.subs {
        out = append(out, s)
    }
    ls.mu.RUnlock()
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

func (m *Memory) SaveInstall(ctx context.Context, inst model.Install) error {
    m.instMu.Lock()
    m.installs[inst.LocationID] = inst
    m.instMu.Unlock()
    return nil
}

func (m *Memory) GetInstall(ctx context.Context, locationID string) (model.Install, error) {
    m.instMu.Lock()
    defer m.instMu.Unlock()
    inst, ok := m.installs[locationID]
    if !ok { return model.Install{}, ErrNotFound }
    return inst, nil
}

func (m *Memory) RecordDelivery(ctx context.Context, rec model.DeliveryRecord) error {
    m.logMu.Lock()
    m.deliveries = append(m.deliveries, rec)
    m.logMu.Unlock()
    return nil
}

func (m *Memory) ListDeliveries(ctx context.Context, locationID, status, cursor string, limit int) ([]model.DeliveryRecord, string, error) {
    m.logMu.Lock()
    defer m.logMu.Unlock()
    if limit <= 0 { limit = 100 }
    start := 0
    if cursor != "" {
        for i := range m.deliveries {
            if m.deliveries[i].ID == cursor { start = i + 1; break }
        }
    }
    out := []model.DeliveryRecord{}
    var next string
    for i := start; i < len(m.deliveries) && len(out) < limit; i++ {
        d := m.deliveries[i]
        if locationID != "" && d.LocationID != locationID { continue }
        if status != "" && d.Status != status { continue }
        out = append(out, d)
        next = d.ID
    }
    if len(out) < limit { next = "" }
    return out, next, nil
}
