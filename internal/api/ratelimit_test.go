package api

import (
    "net/http"
    "net/http/httptest"
    "testing"
)

func TestRateLimitMiddleware(t *testing.T) {
    t.Setenv("RATE_RPS", "1")
    t.Setenv("RATE_BURST", "2")
    h := RateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(200)
    }))

    codes := []int{}
    for i := 0; i < 4; i++ {
        rr := httptest.NewRecorder()
        req := httptest.NewRequest(http.MethodPost, "/webhooks/event", nil)
        req.RemoteAddr = "10.0.0.1:1234"
        h.ServeHTTP(rr, req)
        codes = append(codes, rr.Code)
    }
    if codes[0] != 200 || codes[1] != 200 {
        t.Fatalf("burst requests should pass: %v", codes)
    }
    if codes[2] != 429 && codes[3] != 429 {
        t.Fatalf("over-limit requests should get 429: %v", codes)
    }

    // a different client IP gets its own bucket
    rr := httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodPost, "/webhooks/event", nil)
    req.RemoteAddr = "10.0.0.2:1234"
    h.ServeHTTP(rr, req)
    if rr.Code != 200 { t.Fatalf("fresh client limited: %d", rr.Code) }
}

func TestRateLimitDisabledByDefault(t *testing.T) {
    t.Setenv("RATE_RPS", "")
    h := RateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(200)
    }))
    for i := 0; i < 50; i++ {
        rr := httptest.NewRecorder()
        h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhooks/event", nil))
        if rr.Code != 200 { t.Fatalf("request %d limited with no RATE_RPS: %d", i, rr.Code) }
    }
}
