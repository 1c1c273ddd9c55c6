package api

import (
    "os"
    "strings"

    "eventrelay/internal/auth"
    "eventrelay/internal/model"
    "eventrelay/internal/platform"
    "eventrelay/internal/store"
    "eventrelay/internal/webhooks"
)

type Server struct {
    Store      store.Store
    Verifier   *webhooks.SignatureVerifier
    Dispatcher *webhooks.Dispatcher
    Platform   *platform.Client
    Auth       *auth.Verifier
    Broker     EventBroker
    LastEvents *LastEventCache

    // RequireSignature rejects events that arrive without a signature
    // header. Default is the platform's permissive behavior (absent
    // header accepted); set REQUIRE_SIGNATURE=true to close the gap.
    RequireSignature bool
}

// NewServer wires the relay. If DATABASE_URL is unset, uses the
// in-memory store; if REDIS_URL is unset, uses the in-process broker.
func NewServer() (*Server, error) {
    var s store.Store
    if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn == "" {
        s = store.NewMemory()
    } else {
        sp, err := store.NewPostgres(dsn)
        if err != nil {
            return nil, err
        }
        // Run migrations (dev helper)
        if os.Getenv("DB_MIGRATE") != "false" {
            _ = sp.MigrateDir("db/migrations")
        }
        s = sp
    }

    var broker EventBroker
    if os.Getenv("REDIS_URL") != "" {
        if rb, err := NewRedisBroker(); err == nil { broker = rb } else { broker = NewBroker() }
    } else {
        broker = NewBroker()
    }

    pc := platform.NewClient(platform.ConfigFromEnv())
    srv := &Server{
        Store:            s,
        Verifier:         webhooks.NewSignatureVerifierFromEnv(),
        Platform:         pc,
        Auth:             auth.NewVerifierFromEnv(),
        Broker:           broker,
        LastEvents:       NewLastEventCache(),
        RequireSignature: boolEnv("REQUIRE_SIGNATURE"),
    }
    d := webhooks.NewDispatcher(s, pc)
    d.Sink = srv.publishOutcome
    srv.Dispatcher = d
    return srv, nil
}

func (s *Server) publishOutcome(locationID string, out model.DeliveryOutcome) {
    data := map[string]any{
        "subscriptionId": out.SubscriptionID,
        "targetUrl":      out.TargetURL,
        "succeeded":      out.Succeeded,
        "latencyMs":      out.LatencyMs,
    }
    if out.Error != "" { data["error"] = out.Error }
    typ := "delivery.succeeded"
    if !out.Succeeded { typ = "delivery.failed" }
    s.Broker.Publish(locationID, FeedEvent{Type: typ, Data: data})
}

func boolEnv(k string) bool {
    v := strings.ToLower(strings.TrimSpace(os.Getenv(k)))
    return v == "1" || v == "true" || v == "yes"
}
