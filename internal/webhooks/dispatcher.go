package webhooks

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"eventrelay/internal/metrics"
	"eventrelay/internal/model"
	"eventrelay/internal/store"
)

// Deliverer posts an event to one subscriber endpoint. Implemented by
// platform.Client; swapped for fakes in tests.
type Deliverer interface {
	Deliver(ctx context.Context, targetURL, locationID string, eventData map[string]any) (code int, err error)
}

// TransformFunc maps a raw verified payload to the eventData delivered
// to subscribers. App-specific; the default exposes only locationId.
type TransformFunc func(locationID string, payload map[string]any) map[string]any

// OutcomeSink receives settled outcomes, e.g. for the live feed.
type OutcomeSink func(locationID string, out model.DeliveryOutcome)

// Dispatcher fans one verified event out to every subscription of a
// location. Attempts run concurrently and settle independently; the
// aggregate result waits for all of them.
type Dispatcher struct {
	Store     store.Store
	Client    Deliverer
	Transform TransformFunc
	Timeout   time.Duration
	Sink      OutcomeSink
}

func NewDispatcher(s store.Store, client Deliverer) *Dispatcher {
	timeout := 5 * time.Second
	if v := os.Getenv("DELIVERY_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 { timeout = time.Duration(n) * time.Millisecond }
	}
	return &Dispatcher{
		Store:     s,
		Client:    client,
		Transform: defaultTransform,
		Timeout:   timeout,
	}
}

func defaultTransform(locationID string, payload map[string]any) map[string]any {
	return map[string]any{"locationId": locationID}
}

// Process handles one verified inbound payload end to end: extract the
// location, apply the transform, dispatch. A payload without locationId
// is dropped here with a log line; it is never an error to the sender.
func (d *Dispatcher) Process(ctx context.Context, payload map[string]any) error {
	locationID, _ := payload["locationId"].(string)
	if locationID == "" {
		log.Printf("dispatch: event missing locationId, dropped")
		metrics.EventsReceived.WithLabelValues("dropped").Inc()
		return nil
	}
	_, err := d.Dispatch(ctx, locationID, d.Transform(locationID, payload))
	return err
}

// Dispatch delivers eventData to every subscriber of the location and
// returns one outcome per subscriber. Only subscriber resolution can
// fail the call; individual delivery failures are absorbed into their
// outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, locationID string, eventData map[string]any) ([]model.DeliveryOutcome, error) {
	subs, err := d.Store.ListSubscriptions(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("resolve subscribers for %s: %w", locationID, err)
	}
	if len(subs) == 0 {
		return []model.DeliveryOutcome{}, nil
	}
	eventID := "evt_" + uuid.New().String()
	log.Printf("dispatch: event %s for location %s, %d subscriber(s)", eventID, locationID, len(subs))

	outcomes := make([]model.DeliveryOutcome, len(subs))
	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub model.Subscription) {
			defer wg.Done()
			outcomes[i] = d.attempt(ctx, eventID, locationID, sub, eventData)
		}(i, sub)
	}
	wg.Wait()
	return outcomes, nil
}

func (d *Dispatcher) attempt(ctx context.Context, eventID, locationID string, sub model.Subscription, eventData map[string]any) model.DeliveryOutcome {
	actx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	start := time.Now()
	code, err := d.Client.Deliver(actx, sub.TargetURL, locationID, eventData)
	latency := int(time.Since(start).Milliseconds())

	out := model.DeliveryOutcome{
		SubscriptionID: sub.ID,
		TargetURL:      sub.TargetURL,
		Succeeded:      err == nil,
		ResponseCode:   code,
		LatencyMs:      latency,
	}
	status := "delivered"
	if err != nil {
		out.Error = err.Error()
		status = "failed"
		log.Printf("dispatch: trigger %s for location %s failed: %v", sub.ID, locationID, err)
	}
	metrics.Deliveries.WithLabelValues(status).Inc()
	metrics.DeliveryLatency.WithLabelValues(status).Observe(float64(latency))

	rec := model.DeliveryRecord{
		ID:             uuid.New().String(),
		LocationID:     locationID,
		SubscriptionID: sub.ID,
		TargetURL:      sub.TargetURL,
		EventID:        eventID,
		Status:         status,
		ResponseCode:   code,
		LatencyMs:      latency,
		Error:          out.Error,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	// Log with a fresh context so a timed-out attempt still gets recorded.
	rctx, rcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer rcancel()
	if err := d.Store.RecordDelivery(rctx, rec); err != nil {
		log.Printf("dispatch: record delivery %s: %v", rec.ID, err)
	}
	if d.Sink != nil {
		d.Sink(locationID, out)
	}
	return out
}
