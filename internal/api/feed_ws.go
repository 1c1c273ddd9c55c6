package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket variant of the delivery feed for dashboards that want a
// bidirectional channel instead of SSE.

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type wsSubscribePayload struct {
	LocationID string `json:"locationId"`
}

// FeedWSHandler handles /v1/deliveries/ws. Protocol: client sends
// connection_init, then subscribe messages carrying {locationId}; the
// server answers each delivery outcome as a "next" message tagged with
// the subscribe id, and "complete" unsubscribes.
func (s *Server) FeedWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	type sub struct {
		locationID string
		ch         chan FeedEvent
		done       chan struct{}
	}
	subs := map[string]sub{}
	defer func() {
		for _, sb := range subs {
			close(sb.done)
			s.Broker.Unsubscribe(sb.locationID, sb.ch)
		}
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	// WriteJSON is not safe for concurrent use; the forwarding
	// goroutines and the read loop share one writer.
	var writeMu sync.Mutex
	write := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		switch msg.Type {
		case "connection_init":
			_ = write(wsMessage{Type: "connection_ack"})
		case "ping":
			_ = write(wsMessage{Type: "pong"})
		case "subscribe":
			var pl wsSubscribePayload
			_ = json.Unmarshal(msg.Payload, &pl)
			if pl.LocationID == "" || msg.ID == "" {
				continue
			}
			if _, exists := subs[msg.ID]; exists {
				continue
			}
			ch := s.Broker.Subscribe(pl.LocationID)
			done := make(chan struct{})
			subs[msg.ID] = sub{locationID: pl.LocationID, ch: ch, done: done}
			go func(id string) {
				for {
					select {
					case <-done:
						return
					case evt, ok := <-ch:
						if !ok {
							return
						}
						b, _ := json.Marshal(map[string]any{"event": evt.Type, "data": evt.Data})
						_ = write(wsMessage{Type: "next", ID: id, Payload: b})
					}
				}
			}(msg.ID)
		case "complete":
			if sb, ok := subs[msg.ID]; ok {
				close(sb.done)
				s.Broker.Unsubscribe(sb.locationID, sb.ch)
				delete(subs, msg.ID)
			}
		}
	}
}
