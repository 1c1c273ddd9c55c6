package store

import (
    "context"
    "errors"

    "eventrelay/internal/model"
)

// Store is the persistence interface shared by the lifecycle handlers
// and the dispatcher. Registry reads return snapshots; callers never
// observe mutations made after the snapshot was taken.
type Store interface {
    // Subscription registry
    UpsertSubscription(ctx context.Context, locationID string, sub model.Subscription) error
    RemoveSubscription(ctx context.Context, locationID, id string) error
    ListSubscriptions(ctx context.Context, locationID string) ([]model.Subscription, error)

    // OAuth installs
    SaveInstall(ctx context.Context, inst model.Install) error
    GetInstall(ctx context.Context, locationID string) (model.Install, error)

    // Delivery log
    RecordDelivery(ctx context.Context, rec model.DeliveryRecord) error
    ListDeliveries(ctx context.Context, locationID, status, cursor string, limit int) ([]model.DeliveryRecord, string, error)
}

var ErrNotFound = errors.New("not found")
