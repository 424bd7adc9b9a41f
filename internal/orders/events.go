package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated     = "OrderCreated"
	EventOrderShipped     = "OrderShipped"
	EventBookingRequested = "BookingRequested"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID       string        `json:"order_id"`
	ProductID     string        `json:"product_id"`
	Quantity      int           `json:"quantity"`
	AmountCents   int           `json:"amount_cents"`
	PaymentMethod PaymentMethod `json:"payment_method"`
}

type OrderShippedPayload struct {
	OrderID        string `json:"order_id"`
	TrackingNumber string `json:"tracking_number"`
}

type BookingRequestedPayload struct {
	OrderIDs    []string `json:"order_ids"`
	RequestedBy string   `json:"requested_by,omitempty"`
}
