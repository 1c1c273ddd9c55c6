// Package main runs a demo WebSocket client for the delivery feed.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)
	location := os.Getenv("DEMO_LOCATION")
	if location == "" {
		location = "loc_demo"
	}

	// Register a demo trigger subscription
	trig := map[string]any{
		"eventType": "CREATED",
		"triggerData": map[string]any{
			"id":        "trig_demo",
			"targetUrl": base + "/healthz",
			"filters":   []any{},
		},
		"extras": map[string]any{"locationId": location, "workflowId": "wf_demo"},
	}
	tb, _ := json.Marshal(trig)
	resp, err := http.Post(base+"/webhooks/trigger", "application/json", bytes.NewReader(tb))
	if err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("trigger registered: %s", resp.Status)

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/deliveries/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	pl, _ := json.Marshal(map[string]any{"locationId": location})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
		}
	}()

	// Fire an event and watch delivery outcomes arrive on the feed
	time.Sleep(500 * time.Millisecond)
	evt := map[string]any{"locationId": location, "type": "ContactCreate", "id": "ct_1"}
	eb, _ := json.Marshal(evt)
	evResp, err := http.Post(base+"/webhooks/event", "application/json", bytes.NewReader(eb))
	if err != nil {
		log.Fatal(err)
	}
	_ = evResp.Body.Close()
	log.Printf("event posted: %s", evResp.Status)

	select {
	case <-time.After(5 * time.Second):
	case <-done:
	}
}
