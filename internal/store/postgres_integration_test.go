//go:build integration

package store

import (
    "context"
    "os"
    "testing"

    "eventrelay/internal/model"
)

// Run with: go test -tags integration ./internal/store -run Postgres
// Requires a reachable DATABASE_URL with the migrations applied.
func newIntegrationStore(t *testing.T) *Postgres {
    t.Helper()
    dsn := os.Getenv("DATABASE_URL")
    if dsn == "" { t.Skip("DATABASE_URL not set") }
    p, err := NewPostgres(dsn)
    if err != nil { t.Fatalf("NewPostgres: %v", err) }
    if err := p.MigrateDir("../../db/migrations"); err != nil { t.Fatalf("migrate: %v", err) }
    return p
}

func TestPostgresSubscriptionLifecycle(t *testing.T) {
    p := newIntegrationStore(t)
    ctx := context.Background()
    loc := "it_loc1"

    _ = p.RemoveSubscription(ctx, loc, "it_t1")
    sub := model.Subscription{
        ID:        "it_t1",
        TargetURL: "https://sub.example/a",
        Filters:   []map[string]any{{"field": "type", "eq": "CALL"}},
        CreatedAt: "2026-01-01T00:00:00Z",
    }
    if err := p.UpsertSubscription(ctx, loc, sub); err != nil { t.Fatalf("upsert: %v", err) }

    sub.TargetURL = "https://sub.example/b"
    if err := p.UpsertSubscription(ctx, loc, sub); err != nil { t.Fatalf("upsert again: %v", err) }

    subs, err := p.ListSubscriptions(ctx, loc)
    if err != nil { t.Fatalf("list: %v", err) }
    if len(subs) != 1 { t.Fatalf("got %d subs, want 1", len(subs)) }
    if subs[0].TargetURL != "https://sub.example/b" { t.Fatalf("upsert did not replace: %+v", subs[0]) }
    if len(subs[0].Filters) != 1 { t.Fatalf("filters lost: %+v", subs[0]) }

    if err := p.RemoveSubscription(ctx, loc, "it_t1"); err != nil { t.Fatalf("remove: %v", err) }
    subs, _ = p.ListSubscriptions(ctx, loc)
    if len(subs) != 0 { t.Fatalf("remove left %d rows", len(subs)) }
}

func TestPostgresInstallRoundTrip(t *testing.T) {
    p := newIntegrationStore(t)
    ctx := context.Background()

    inst := model.Install{
        LocationID:  "it_loc2",
        AccessToken: "at",
        TokenType:   "Bearer",
        ExpiresIn:   86400,
        InstalledAt: "2026-01-01T00:00:00Z",
    }
    if err := p.SaveInstall(ctx, inst); err != nil { t.Fatalf("save: %v", err) }
    got, err := p.GetInstall(ctx, "it_loc2")
    if err != nil { t.Fatalf("get: %v", err) }
    if got.AccessToken != "at" || got.TokenType != "Bearer" { t.Fatalf("got %+v", got) }

    if _, err := p.GetInstall(ctx, "it_missing"); err != ErrNotFound {
        t.Fatalf("want ErrNotFound, got %v", err)
    }
}
