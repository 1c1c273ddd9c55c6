package api

import (
    "net"
    "net/http"
    "os"
    "strconv"
    "sync"

    "golang.org/x/time/rate"
)

// RateLimitMiddleware applies a per-client-IP token bucket in front of
// the public ingress routes. Tuned via RATE_RPS and RATE_BURST; zero or
// unset RATE_RPS disables limiting.
func RateLimitMiddleware(next http.Handler) http.Handler {
    rps := 0.0
    if v := os.Getenv("RATE_RPS"); v != "" {
        if f, err := strconv.ParseFloat(v, 64); err == nil { rps = f }
    }
    if rps <= 0 { return next }
    burst := 10
    if v := os.Getenv("RATE_BURST"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 { burst = n }
    }

    var mu sync.Mutex
    limiters := map[string]*rate.Limiter{}
    limiterFor := func(ip string) *rate.Limiter {
        mu.Lock()
        defer mu.Unlock()
        l := limiters[ip]
        if l == nil {
            l = rate.NewLimiter(rate.Limit(rps), burst)
            limiters[ip] = l
        }
        return l
    }

    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        ip, _, err := net.SplitHostPort(r.RemoteAddr)
        if err != nil { ip = r.RemoteAddr }
        if !limiterFor(ip).Allow() {
            writeProblem(w, http.StatusTooManyRequests, "Rate limit exceeded", "", r.URL.Path)
            return
        }
        next.ServeHTTP(w, r)
    })
}
