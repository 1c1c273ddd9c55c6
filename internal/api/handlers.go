package api

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "net/http"
    "time"
)

// RootHandler handles GET / (basic liveness + app identity).
func (s *Server) RootHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/" { writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path); return }
    writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "app": "eventrelay"})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    // Check DB connectivity when using Postgres store
    type pinger interface{ Ping(ctx context.Context) error }
    if pg, ok := s.Store.(pinger); ok {
        ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
        defer cancel()
        if err := pg.Ping(ctx); err != nil { writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path); return }
    }
    writeJSON(w, 200, map[string]string{"status": "ready"})
}

// OAuthAuthorizeHandler redirects the installer to the marketplace
// choose-location page.
func (s *Server) OAuthAuthorizeHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(405); return }
    http.Redirect(w, r, s.Platform.AuthorizeURL(), http.StatusFound)
}

// OAuthCallbackHandler exchanges the authorization code, persists the
// install, and renders a human-facing result page.
func (s *Server) OAuthCallbackHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(405); return }
    code := r.URL.Query().Get("code")
    if code == "" {
        writeProblem(w, http.StatusBadRequest, "Missing authorization code", "", r.URL.Path)
        return
    }
    inst, err := s.Platform.ExchangeCode(r.Context(), code)
    if err != nil {
        log.Printf("oauth: callback exchange failed: %v", err)
        renderInstallPage(w, http.StatusInternalServerError, "Installation Failed",
            "Something went wrong while installing the app. Please try again or contact support.", "")
        return
    }
    if err := s.Store.SaveInstall(r.Context(), inst); err != nil {
        log.Printf("oauth: save install failed: %v", err)
        renderInstallPage(w, http.StatusInternalServerError, "Installation Failed",
            "The install could not be saved. Please try again.", "")
        return
    }
    renderInstallPage(w, http.StatusOK, "App Installed",
        "Your app has been successfully installed on this account.", inst.LocationID)
}

func renderInstallPage(w http.ResponseWriter, status int, title, message, locationID string) {
    loc := ""
    if locationID != "" {
        loc = fmt.Sprintf(`<div class="location">Location: %s</div>`, locationID)
    }
    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    w.WriteHeader(status)
    fmt.Fprintf(w, `<!DOCTYPE html>
<html><head><meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1">
<title>%s</title>
<style>
  body{font-family:system-ui,-apple-system,sans-serif;background:#f0f2f5;display:flex;align-items:center;justify-content:center;min-height:100vh;margin:0}
  .card{background:#fff;border-radius:16px;padding:48px;max-width:480px;text-align:center;box-shadow:0 4px 24px rgba(0,0,0,0.08)}
  h1{font-size:24px;color:#1a1a1a;margin:0 0 8px}
  p{font-size:16px;color:#666;line-height:1.5;margin:0}
  .location{margin-top:16px;padding:12px 16px;background:#f5f5f5;border-radius:8px;font-size:14px;color:#888;font-family:monospace}
</style></head><body>
<div class="card"><h1>%s</h1><p>%s</p>%s</div>
</body></html>`, title, title, message, loc)
}

// SSOHandler handles POST /sso: decrypts the embedded-page session key.
func (s *Server) SSOHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost { w.WriteHeader(405); return }
    var body struct{ Key string `json:"key"` }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Key == "" {
        writeProblem(w, http.StatusBadRequest, "Missing SSO key", "", r.URL.Path)
        return
    }
    session, err := s.Platform.DecryptSSO(body.Key)
    if err != nil {
        log.Printf("sso: decryption failed: %v", err)
        writeProblem(w, http.StatusBadRequest, "Invalid SSO key", "", r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, session)
}

// SubscriptionsHandler handles GET /v1/subscriptions?locationId= (admin).
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    locationID := r.URL.Query().Get("locationId")
    if locationID == "" { writeProblem(w, 400, "Missing locationId", "", r.URL.Path); return }
    items, err := s.Store.ListSubscriptions(r.Context(), locationID)
    if err != nil { writeProblem(w, 500, "List subscriptions failed", err.Error(), r.URL.Path); return }
    writeJSON(w, 200, map[string]any{"items": items})
}

// DeliveriesHandler handles GET /v1/deliveries (admin delivery log).
func (s *Server) DeliveriesHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    locationID := r.URL.Query().Get("locationId")
    status := r.URL.Query().Get("status")
    cursor := r.URL.Query().Get("cursor")
    limit := 100
    if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
    items, next, err := s.Store.ListDeliveries(r.Context(), locationID, status, cursor, limit)
    if err != nil { writeProblem(w, 500, "List deliveries failed", err.Error(), r.URL.Path); return }
    writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
}

// LastEventsHandler handles GET /v1/admin/last-events.
func (s *Server) LastEventsHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    if loc := r.URL.Query().Get("locationId"); loc != "" {
        le, ok := s.LastEvents.Get(loc)
        if !ok { writeProblem(w, 404, "Not Found", "no event seen for location", r.URL.Path); return }
        writeJSON(w, 200, le)
        return
    }
    writeJSON(w, 200, map[string]any{"items": s.LastEvents.List()})
}

// FeedStreamHandler streams per-location delivery outcomes over SSE at
// GET /v1/deliveries/stream?locationId=.
func (s *Server) FeedStreamHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    locationID := r.URL.Query().Get("locationId")
    if locationID == "" {
        writeProblem(w, http.StatusBadRequest, "Missing locationId", "", r.URL.Path)
        return
    }
    flusher, ok := w.(http.Flusher)
    if !ok { writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path); return }
    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.Header().Set("Connection", "keep-alive")

    ch := s.Broker.Subscribe(locationID)
    defer s.Broker.Unsubscribe(locationID, ch)

    heartbeat := func() {
        fmt.Fprintf(w, "event: heartbeat\n")
        fmt.Fprintf(w, "data: {\"locationId\":\"%s\",\"ts\":\"%s\"}\n\n", locationID, time.Now().Format(time.RFC3339))
        flusher.Flush()
    }
    heartbeat()

    notify := r.Context().Done()
    for {
        select {
        case <-notify:
            return
        case evt := <-ch:
            b, _ := json.Marshal(evt.Data)
            fmt.Fprintf(w, "event: %s\n", evt.Type)
            fmt.Fprintf(w, "data: %s\n\n", string(b))
            flusher.Flush()
        case <-time.After(15 * time.Second):
            heartbeat()
        }
    }
}
