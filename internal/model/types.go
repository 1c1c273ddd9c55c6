package model

// Core domain types for the relay.

// Subscription is one location's registered interest in receiving
// forwarded events at a callback URL. The record is replaced wholesale
// on lifecycle UPDATED events; there is no field-level merge.
type Subscription struct {
	ID         string           `json:"id"`
	LocationID string           `json:"locationId"`
	TargetURL  string           `json:"targetUrl"`
	Filters    []map[string]any `json:"filters"`
	WorkflowID string           `json:"workflowId,omitempty"`
	CreatedAt  string           `json:"createdAt"`
}

// TriggerLifecycleEvent is the management payload that mutates the
// subscription registry. eventType may arrive at the top level or
// nested in triggerData depending on the platform version.
type TriggerLifecycleEvent struct {
	EventType   string         `json:"eventType,omitempty"`
	TriggerData *TriggerData   `json:"triggerData"`
	Extras      *TriggerExtras `json:"extras"`
}

type TriggerData struct {
	ID        string           `json:"id"`
	TargetURL string           `json:"targetUrl"`
	Filters   []map[string]any `json:"filters,omitempty"`
	EventType string           `json:"eventType,omitempty"`
}

type TriggerExtras struct {
	LocationID string `json:"locationId"`
	WorkflowID string `json:"workflowId,omitempty"`
	CompanyID  string `json:"companyId,omitempty"`
}

// Lifecycle event types accepted on the trigger endpoint.
const (
	TriggerCreated = "CREATED"
	TriggerUpdated = "UPDATED"
	TriggerDeleted = "DELETED"
)

// DeliveryOutcome is the per-subscriber result of one dispatch call.
// Owned by the dispatch call; the persisted form is DeliveryRecord.
type DeliveryOutcome struct {
	SubscriptionID string `json:"subscriptionId"`
	TargetURL      string `json:"targetUrl"`
	Succeeded      bool   `json:"succeeded"`
	Error          string `json:"error,omitempty"`
	ResponseCode   int    `json:"responseCode,omitempty"`
	LatencyMs      int    `json:"latencyMs,omitempty"`
}

// DeliveryRecord is the delivery-log row for one attempt.
type DeliveryRecord struct {
	ID             string `json:"id"`
	LocationID     string `json:"locationId"`
	SubscriptionID string `json:"subscriptionId"`
	TargetURL      string `json:"targetUrl"`
	EventID        string `json:"eventId"`
	Status         string `json:"status"` // delivered, failed
	ResponseCode   int    `json:"responseCode,omitempty"`
	LatencyMs      int    `json:"latencyMs,omitempty"`
	Error          string `json:"error,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

// Install holds the OAuth tokens stored after a marketplace install.
// Refresh scheduling is out of scope; the raw grant is kept as issued.
type Install struct {
	LocationID   string `json:"locationId"`
	CompanyID    string `json:"companyId,omitempty"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TokenType    string `json:"tokenType,omitempty"`
	ExpiresIn    int    `json:"expiresIn,omitempty"`
	Scope        string `json:"scope,omitempty"`
	UserType     string `json:"userType,omitempty"`
	InstalledAt  string `json:"installedAt"`
}
