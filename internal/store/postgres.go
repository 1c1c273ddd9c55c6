package store

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "time"

    _ "github.com/jackc/pgx/v5/stdlib"

    "eventrelay/internal/model"
)

// Postgres persists subscriptions, installs and the delivery log.
// Selected when DATABASE_URL is set; see NewServer.
type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        return nil, err
    }
    return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// MigrateDir applies *.sql files from dir in lexical order (dev helper;
// no version table, files must stay idempotent).
func (p *Postgres) MigrateDir(dir string) error {
    entries, err := os.ReadDir(dir)
    if err != nil { return err }
    names := []string{}
    for _, e := range entries {
        if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") { names = append(names, e.Name()) }
    }
    sort.Strings(names)
    for _, n := range names {
        b, err := os.ReadFile(filepath.Join(dir, n))
        if err != nil { return err }
        if _, err := p.db.Exec(string(b)); err != nil { return err }
    }
    return nil
}

func (p *Postgres) UpsertSubscription(ctx context.Context, locationID string, sub model.Subscription) error {
    _, err := p.db.ExecContext(ctx, `
        INSERT INTO subscriptions (id, location_id, target_url, filters, workflow_id, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (location_id, id) DO UPDATE SET
            target_url = EXCLUDED.target_url,
            filters = EXCLUDED.filters,
            workflow_id = EXCLUDED.workflow_id,
            created_at = EXCLUDED.created_at`,
        sub.ID, locationID, sub.TargetURL, filtersJSON(sub.Filters), nullIfEmpty(sub.WorkflowID), sub.CreatedAt)
    return err
}

func (p *Postgres) RemoveSubscription(ctx context.Context, locationID, id string) error {
    _, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE location_id=$1 AND id=$2`, locationID, id)
    return err
}

func (p *Postgres) ListSubscriptions(ctx context.Context, locationID string) ([]model.Subscription, error) {
    rows, err := p.db.QueryContext(ctx, `
        SELECT id, target_url, filters, workflow_id, created_at
        FROM subscriptions WHERE location_id=$1 ORDER BY id`, locationID)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.Subscription{}
    for rows.Next() {
        var s model.Subscription
        var filters []byte
        var wf sql.NullString
        if err := rows.Scan(&s.ID, &s.TargetURL, &filters, &wf, &s.CreatedAt); err != nil { return nil, err }
        s.LocationID = locationID
        s.WorkflowID = wf.String
        if len(filters) > 0 { _ = json.Unmarshal(filters, &s.Filters) }
        out = append(out, s)
    }
    return out, rows.Err()
}

func (p *Postgres) SaveInstall(ctx context.Context, inst model.Install) error {
    _, err := p.db.ExecContext(ctx, `
        INSERT INTO installs (location_id, company_id, access_token, refresh_token, token_type, expires_in, scope, user_type, installed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (location_id) DO UPDATE SET
            company_id = EXCLUDED.company_id,
            access_token = EXCLUDED.access_token,
            refresh_token = EXCLUDED.refresh_token,
            token_type = EXCLUDED.token_type,
            expires_in = EXCLUDED.expires_in,
            scope = EXCLUDED.scope,
            user_type = EXCLUDED.user_type,
            installed_at = EXCLUDED.installed_at`,
        inst.LocationID, nullIfEmpty(inst.CompanyID), inst.AccessToken, nullIfEmpty(inst.RefreshToken),
        nullIfEmpty(inst.TokenType), inst.ExpiresIn, nullIfEmpty(inst.Scope), nullIfEmpty(inst.UserType), inst.InstalledAt)
    return err
}

func (p *Postgres) GetInstall(ctx context.Context, locationID string) (model.Install, error) {
    var inst model.Install
    var company, refresh, tokenType, scope, userType sql.NullString
    err := p.db.QueryRowContext(ctx, `
        SELECT location_id, company_id, access_token, refresh_token, token_type, expires_in, scope, user_type, installed_at
        FROM installs WHERE location_id=$1`, locationID).
        Scan(&inst.LocationID, &company, &inst.AccessToken, &refresh, &tokenType, &inst.ExpiresIn, &scope, &userType, &inst.InstalledAt)
    if errors.Is(err, sql.ErrNoRows) { return model.Install{}, ErrNotFound }
    if err != nil { return model.Install{}, err }
    inst.CompanyID = company.String
    inst.RefreshToken = refresh.String
    inst.TokenType = tokenType.String
    inst.Scope = scope.String
    inst.UserType = userType.String
    return inst, nil
}

func (p *Postgres) RecordDelivery(ctx context.Context, rec model.DeliveryRecord) error {
    if rec.CreatedAt == "" { rec.CreatedAt = time.Now().UTC().Format(time.RFC3339) }
    _, err := p.db.ExecContext(ctx, `
        INSERT INTO deliveries (id, location_id, subscription_id, target_url, event_id, status, response_code, latency_ms, last_error, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
        rec.ID, rec.LocationID, rec.SubscriptionID, rec.TargetURL, rec.EventID, rec.Status,
        rec.ResponseCode, rec.LatencyMs, nullIfEmpty(rec.Error), rec.CreatedAt)
    return err
}

func (p *Postgres) ListDeliveries(ctx context.Context, locationID, status, cursor string, limit int) ([]model.DeliveryRecord, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    // Cursor is the last row id (uuid text); ids are generated time-ordered enough for paging.
    q := `SELECT id, location_id, subscription_id, target_url, event_id, status, response_code, latency_ms, COALESCE(last_error,''), created_at
          FROM deliveries WHERE 1=1`
    args := []any{}
    add := func(cond string, v any) {
        args = append(args, v)
        q += cond + fmt.Sprintf("$%d", len(args))
    }
    if locationID != "" { add(` AND location_id=`, locationID) }
    if status != "" { add(` AND status=`, status) }
    if cursor != "" { add(` AND id > `, cursor) }
    add(` ORDER BY id LIMIT `, limit)
    rows, err := p.db.QueryContext(ctx, q, args...)
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []model.DeliveryRecord{}
    var last string
    for rows.Next() {
        var d model.DeliveryRecord
        if err := rows.Scan(&d.ID, &d.LocationID, &d.SubscriptionID, &d.TargetURL, &d.EventID, &d.Status, &d.ResponseCode, &d.LatencyMs, &d.Error, &d.CreatedAt); err != nil {
            return nil, "", err
        }
        out = append(out, d)
        last = d.ID
    }
    next := ""
    if len(out) == limit { next = last }
    return out, next, rows.Err()
}

func nullIfEmpty(s string) any { if s == "" { return nil }; return s }

func filtersJSON(f []map[string]any) any {
    if len(f) == 0 { return []byte("[]") }
    b, err := json.Marshal(f)
    if err != nil { return []byte("[]") }
    return b
}
