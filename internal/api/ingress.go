package api

import (
    "context"
    "encoding/json"
    "io"
    "log"
    "net/http"
    "time"

    "eventrelay/internal/metrics"
    "eventrelay/internal/model"
)

// maxEventBody bounds how much of an inbound event we will buffer for
// signature verification.
const maxEventBody = 1 << 20

// EventIngressHandler handles POST /webhooks/event.
//
// Verification runs over the exact raw bytes of the request; the body
// is never re-serialized before checking. The sender is acknowledged as
// soon as the signature decision is made; dispatch runs detached so a
// slow subscriber cannot trigger upstream retries.
func (s *Server) EventIngressHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    raw, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
    if err != nil {
        writeProblem(w, http.StatusBadRequest, "Unreadable body", err.Error(), r.URL.Path)
        return
    }

    signature := r.Header.Get("x-wh-signature")
    if signature != "" && !s.Verifier.Verify(raw, signature) {
        log.Printf("ingress: signature verification failed")
        metrics.EventsReceived.WithLabelValues("rejected").Inc()
        writeProblem(w, http.StatusUnauthorized, "Invalid signature", "", r.URL.Path)
        return
    }
    if signature == "" && s.RequireSignature {
        metrics.EventsReceived.WithLabelValues("rejected").Inc()
        writeProblem(w, http.StatusUnauthorized, "Signature required", "", r.URL.Path)
        return
    }

    var payload map[string]any
    if err := json.Unmarshal(raw, &payload); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }

    // Acknowledge first; the platform treats anything but 429 as
    // terminal, so delivery results must never hold up this response.
    metrics.EventsReceived.WithLabelValues("accepted").Inc()
    writeJSON(w, http.StatusOK, map[string]bool{"received": true})

    if loc, _ := payload["locationId"].(string); loc != "" {
        s.LastEvents.Put(loc, payload)
    }

    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
        defer cancel()
        if err := s.Dispatcher.Process(ctx, payload); err != nil {
            log.Printf("ingress: async dispatch failed: %v", err)
        }
    }()
}

// TriggerLifecycleHandler handles POST /webhooks/trigger, the platform's
// subscription management callbacks.
func (s *Server) TriggerLifecycleHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var evt model.TriggerLifecycleEvent
    if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if evt.TriggerData == nil || evt.Extras == nil || evt.Extras.LocationID == "" {
        writeProblem(w, http.StatusBadRequest, "Invalid trigger payload", "triggerData and extras.locationId are required", r.URL.Path)
        return
    }

    // eventType may be at the top level or inside triggerData depending
    // on the platform version.
    eventType := evt.EventType
    if eventType == "" { eventType = evt.TriggerData.EventType }
    locationID := evt.Extras.LocationID

    log.Printf("trigger %s: id=%s, location=%s, workflow=%s", eventType, evt.TriggerData.ID, locationID, evt.Extras.WorkflowID)

    switch eventType {
    case model.TriggerCreated, model.TriggerUpdated:
        filters := evt.TriggerData.Filters
        if filters == nil { filters = []map[string]any{} }
        sub := model.Subscription{
            ID:         evt.TriggerData.ID,
            TargetURL:  evt.TriggerData.TargetURL,
            Filters:    filters,
            WorkflowID: evt.Extras.WorkflowID,
            CreatedAt:  time.Now().UTC().Format(time.RFC3339),
        }
        if err := s.Store.UpsertSubscription(r.Context(), locationID, sub); err != nil {
            writeProblem(w, http.StatusInternalServerError, "Save subscription failed", err.Error(), r.URL.Path)
            return
        }
    case model.TriggerDeleted:
        if err := s.Store.RemoveSubscription(r.Context(), locationID, evt.TriggerData.ID); err != nil {
            writeProblem(w, http.StatusInternalServerError, "Remove subscription failed", err.Error(), r.URL.Path)
            return
        }
    default:
        // Unknown lifecycle types are acknowledged without mutating the
        // registry, matching the platform's retry-averse contract.
        log.Printf("trigger: ignoring unknown eventType %q", eventType)
    }
    writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
