package api

import (
    "encoding/json"
    "net/http"
    "os"
    "time"

    "eventrelay/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
    info := map[string]any{
        "build": buildinfo.Info(),
        "time":  time.Now().UTC().Format(time.RFC3339),
        "config": map[string]any{
            "PORT":                os.Getenv("PORT"),
            "AUTH_MODE":           os.Getenv("AUTH_MODE"),
            "APP_URL":             os.Getenv("APP_URL"),
            "RATE_RPS":            os.Getenv("RATE_RPS"),
            "RATE_BURST":          os.Getenv("RATE_BURST"),
            "REQUIRE_SIGNATURE":   s.RequireSignature,
            "DELIVERY_TIMEOUT_MS": os.Getenv("DELIVERY_TIMEOUT_MS"),
            "HAS_DATABASE_URL":    os.Getenv("DATABASE_URL") != "",
            "HAS_REDIS_URL":       os.Getenv("REDIS_URL") != "",
            "HAS_SSO_KEY":         os.Getenv("PLATFORM_SSO_KEY") != "",
        },
    }
    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(info)
}
