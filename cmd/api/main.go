package main

import (
    "bufio"
    "log"
    "net"
    "net/http"
    "os"
    "strconv"
    "time"

    "github.com/prometheus/client_golang/prometheus/promhttp"

    "eventrelay/internal/api"
    "eventrelay/internal/metrics"
)

func main() {
    srvDeps, err := api.NewServer()
    if err != nil {
        log.Fatalf("failed to init server: %v", err)
    }
    metrics.RegisterDefault()

    mux := http.NewServeMux()

    // Platform ingress (signed events + trigger lifecycle), rate-limited
    ingress := http.NewServeMux()
    ingress.HandleFunc("/webhooks/event", srvDeps.EventIngressHandler)
    ingress.HandleFunc("/webhooks/trigger", srvDeps.TriggerLifecycleHandler)
    mux.Handle("/webhooks/", api.RateLimitMiddleware(ingress))

    // OAuth install flow + embedded-page SSO
    mux.HandleFunc("/oauth/authorize", srvDeps.OAuthAuthorizeHandler)
    mux.HandleFunc("/oauth/callback", srvDeps.OAuthCallbackHandler)
    mux.HandleFunc("/sso", srvDeps.SSOHandler)

    // Admin
    mux.HandleFunc("/v1/subscriptions", srvDeps.SubscriptionsHandler)
    mux.HandleFunc("/v1/deliveries", srvDeps.DeliveriesHandler)
    mux.HandleFunc("/v1/admin/last-events", srvDeps.LastEventsHandler)

    // Delivery feed (SSE + WebSocket)
    mux.HandleFunc("/v1/deliveries/stream", srvDeps.FeedStreamHandler)
    mux.HandleFunc("/v1/deliveries/ws", srvDeps.FeedWSHandler)

    // Health + observability
    mux.HandleFunc("/healthz", srvDeps.HealthHandler)
    mux.HandleFunc("/readyz", srvDeps.ReadyHandler)
    mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
    mux.HandleFunc("/debug", srvDeps.DebugJSON)

    // Docs
    mux.HandleFunc("/openapi.yaml", srvDeps.OpenAPIHandler)
    mux.HandleFunc("/openapi.json", srvDeps.OpenAPIJSONHandler)
    mux.HandleFunc("/docs", srvDeps.DocsHandler)

    mux.HandleFunc("/", srvDeps.RootHandler)

    addr := ":8080"
    if v := os.Getenv("PORT"); v != "" {
        addr = ":" + v
    }

    srv := &http.Server{
        Addr:              addr,
        Handler:           logMiddleware(mux),
        ReadHeaderTimeout: 5 * time.Second,
    }

    log.Printf("relay listening on %s", addr)
    if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
        log.Fatalf("server error: %v", err)
    }
}

type statusRecorder struct {
    http.ResponseWriter
    status int
}

func (sr *statusRecorder) WriteHeader(code int) {
    sr.status = code
    sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
    if f, ok := sr.ResponseWriter.(http.Flusher); ok {
        f.Flush()
    }
}

// Hijack lets the WebSocket upgrade through the wrapper.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
    h, ok := sr.ResponseWriter.(http.Hijacker)
    if !ok {
        return nil, nil, http.ErrNotSupported
    }
    return h.Hijack()
}

func logMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
        next.ServeHTTP(rec, r)
        dur := time.Since(start)
        status := strconv.Itoa(rec.status)
        metrics.HTTPRequests.WithLabelValues(r.Method, r.URL.Path, status).Inc()
        metrics.HTTPDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(dur.Seconds())
        log.Printf("%s %s %s %d %v", r.RemoteAddr, r.Method, r.URL.Path, rec.status, dur)
    })
}
