package api

import (
    "bytes"
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "testing"

    "eventrelay/internal/model"
    "eventrelay/internal/platform"
)

func TestRootAndHealth(t *testing.T) {
    s := newTestServer(t)
    rr := httptest.NewRecorder()
    s.RootHandler(rr, httptest.NewRequest(http.MethodGet, "/", nil))
    if rr.Code != 200 { t.Fatalf("root: got %d", rr.Code) }

    rr = httptest.NewRecorder()
    s.RootHandler(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
    if rr.Code != 404 { t.Fatalf("unknown path: got %d", rr.Code) }

    rr = httptest.NewRecorder()
    s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
    if rr.Code != 200 { t.Fatalf("health: got %d", rr.Code) }

    rr = httptest.NewRecorder()
    s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
    if rr.Code != 200 { t.Fatalf("ready: got %d", rr.Code) }
}

func TestSubscriptionsList(t *testing.T) {
    s := newTestServer(t)
    postTrigger(t, s, triggerBody("CREATED", "t1", "https://x/a", "loc1"))
    postTrigger(t, s, triggerBody("CREATED", "t2", "https://x/b", "loc1"))

    rr := httptest.NewRecorder()
    s.SubscriptionsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/subscriptions?locationId=loc1", nil))
    if rr.Code != 200 { t.Fatalf("list: got %d", rr.Code) }
    var res struct{ Items []model.Subscription `json:"items"` }
    if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil { t.Fatalf("decode: %v", err) }
    if len(res.Items) != 2 { t.Fatalf("got %d items, want 2", len(res.Items)) }
    if res.Items[0].ID != "t1" || res.Items[1].ID != "t2" { t.Fatalf("not sorted: %+v", res.Items) }

    // locationId is required
    rr = httptest.NewRecorder()
    s.SubscriptionsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/subscriptions", nil))
    if rr.Code != 400 { t.Fatalf("missing locationId: got %d", rr.Code) }

    // non-admin role is rejected
    rr = httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodGet, "/v1/subscriptions?locationId=loc1", nil)
    req.Header.Set("X-Role", "viewer")
    s.SubscriptionsHandler(rr, req)
    if rr.Code != 403 { t.Fatalf("viewer role: got %d", rr.Code) }
}

func TestDeliveriesList(t *testing.T) {
    s := newTestServer(t)
    _ = s.Store.RecordDelivery(context.Background(), model.DeliveryRecord{ID: "d1", LocationID: "loc1", Status: "delivered"})
    _ = s.Store.RecordDelivery(context.Background(), model.DeliveryRecord{ID: "d2", LocationID: "loc1", Status: "failed"})

    rr := httptest.NewRecorder()
    s.DeliveriesHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/deliveries?locationId=loc1&status=failed", nil))
    if rr.Code != 200 { t.Fatalf("list: got %d", rr.Code) }
    var res struct{ Items []model.DeliveryRecord `json:"items"` }
    _ = json.Unmarshal(rr.Body.Bytes(), &res)
    if len(res.Items) != 1 || res.Items[0].ID != "d2" { t.Fatalf("filter: %+v", res.Items) }
}

func TestLastEvents(t *testing.T) {
    s := newTestServer(t)
    postEvent(t, s, map[string]any{"locationId": "loc1", "type": "ContactCreate"}, "")

    rr := httptest.NewRecorder()
    s.LastEventsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/admin/last-events?locationId=loc1", nil))
    if rr.Code != 200 { t.Fatalf("last event: got %d", rr.Code) }
    var le LastEvent
    _ = json.Unmarshal(rr.Body.Bytes(), &le)
    if le.Payload["type"] != "ContactCreate" { t.Fatalf("payload: %+v", le.Payload) }

    rr = httptest.NewRecorder()
    s.LastEventsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/admin/last-events?locationId=ghost", nil))
    if rr.Code != 404 { t.Fatalf("unknown location: got %d", rr.Code) }
}

func TestFeedStreamRequiresLocation(t *testing.T) {
    s := newTestServer(t)
    rr := httptest.NewRecorder()
    s.FeedStreamHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/deliveries/stream", nil))
    if rr.Code != 400 { t.Fatalf("missing locationId: got %d", rr.Code) }
}

func TestOAuthCallback(t *testing.T) {
    s := newTestServer(t)
    tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.URL.Path != "/oauth/token" { t.Errorf("token path: %s", r.URL.Path) }
        if r.FormValue("grant_type") != "authorization_code" { t.Errorf("grant_type: %s", r.FormValue("grant_type")) }
        _ = json.NewEncoder(w).Encode(map[string]any{
            "access_token": "at", "refresh_token": "rt", "locationId": "loc1", "expires_in": 3600,
        })
    }))
    defer tokenSrv.Close()
    s.Platform = platform.NewClient(platform.Config{APIURL: tokenSrv.URL, ClientID: "cid", ClientSecret: "sec"})

    rr := httptest.NewRecorder()
    s.OAuthCallbackHandler(rr, httptest.NewRequest(http.MethodGet, "/oauth/callback?code=abc", nil))
    if rr.Code != 200 { t.Fatalf("callback: got %d, body %s", rr.Code, rr.Body.String()) }
    inst, err := s.Store.GetInstall(context.Background(), "loc1")
    if err != nil { t.Fatalf("install not saved: %v", err) }
    if inst.AccessToken != "at" { t.Fatalf("install: %+v", inst) }

    rr = httptest.NewRecorder()
    s.OAuthCallbackHandler(rr, httptest.NewRequest(http.MethodGet, "/oauth/callback", nil))
    if rr.Code != 400 { t.Fatalf("missing code: got %d", rr.Code) }
}

func TestSSOHandlerValidation(t *testing.T) {
    s := newTestServer(t)
    rr := httptest.NewRecorder()
    s.SSOHandler(rr, httptest.NewRequest(http.MethodPost, "/sso", bytes.NewReader([]byte(`{}`))))
    if rr.Code != 400 { t.Fatalf("missing key: got %d", rr.Code) }

    rr = httptest.NewRecorder()
    s.SSOHandler(rr, httptest.NewRequest(http.MethodPost, "/sso", bytes.NewReader([]byte(`{"key":"garbage"}`))))
    if rr.Code != 400 { t.Fatalf("bad key: got %d", rr.Code) }
}

func TestOpenAPIJSON(t *testing.T) {
    s := newTestServer(t)
    t.Setenv("OPENAPI_PATH", "../../openapi/openapi.yaml")
    rr := httptest.NewRecorder()
    s.OpenAPIJSONHandler(rr, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
    if rr.Code != 200 { t.Fatalf("openapi.json: got %d, body %s", rr.Code, rr.Body.String()) }
    var doc map[string]any
    if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil { t.Fatalf("decode: %v", err) }
    if doc["openapi"] != "3.0.3" { t.Fatalf("version: %v", doc["openapi"]) }
}
