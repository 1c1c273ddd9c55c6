package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the relay
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, path, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )

    // EventsReceived counts inbound platform events by ingress result
    EventsReceived = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "relay_events_total", Help: "Inbound events by result (accepted, rejected, dropped)."},
        []string{"result"},
    )
    // Deliveries counts fan-out delivery outcomes by status
    Deliveries = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "relay_deliveries_total", Help: "Subscriber deliveries by status."},
        []string{"status"},
    )
    // DeliveryLatency tracks delivery latencies in milliseconds
    DeliveryLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "relay_delivery_latency_ms", Help: "Subscriber delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
        []string{"status"},
    )
)

// RegisterDefault registers collectors on the relay registry.
func RegisterDefault() {
    regOnce.Do(func() {
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(EventsReceived)
        Registry.MustRegister(Deliveries)
        Registry.MustRegister(DeliveryLatency)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once
