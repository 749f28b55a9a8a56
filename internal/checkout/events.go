package checkout

import (
	"encoding/json"
	"time"
)

const (
	TopicCheckoutFinalized = "checkout.finalized"
	EventCheckoutFinalized = "CheckoutFinalized"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type FinalizedPayload struct {
	OrderID      string `json:"order_id"`
	OwnerID      string `json:"owner_id"`
	Status       string `json:"status"` // PAID | FAILED
	TotalCents   int64  `json:"total_cents"`
	ProcessingMs int64  `json:"processing_ms"`
}

// Partition key = order_id so all events for one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
