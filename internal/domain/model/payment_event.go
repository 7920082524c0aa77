package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// GatewayStatus is the authoritative payment state reported by the gateway
// lookup API. The inbound notification body is untrusted and never carries
// status into the pipeline.
type GatewayStatus string

const (
	GatewayStatusApproved GatewayStatus = "approved"
	GatewayStatusPending  GatewayStatus = "pending"
	GatewayStatusRejected GatewayStatus = "rejected"
	GatewayStatusOther    GatewayStatus = "other"
)

// GatewayPayment is the result of looking a payment up by id at the gateway.
type GatewayPayment struct {
	ID                   string
	Status               GatewayStatus
	ExternalReferenceRaw string
	PayerEmail           string
	AmountBRL            int64 // centavos
}

// EventType values seen on inbound notifications. Only payment is actionable.
const EventTypePayment = "payment"

// PaymentNotification is one inbound delivery attempt. It is transient:
// the reconciler persists a PaymentEvent, not the notification.
type PaymentNotification struct {
	EventType        string
	GatewayPaymentID string
}

type PaymentEventStatus string

const (
	// EventProcessing is the durable claim taken just before the account
	// mutation. A crash leaves the row here; the redrive worker finishes it.
	EventProcessing PaymentEventStatus = "processing"
	EventProcessed  PaymentEventStatus = "processed"
)

// PaymentEvent is the idempotency record for one logical gateway payment.
// The unique key is the gateway payment id: a second delivery of the same
// payment hits the uniqueness constraint and is acknowledged as already
// handled instead of extending the account twice.
type PaymentEvent struct {
	ID               string // ULID, sortable by claim time
	GatewayPaymentID string // unique
	OrderID          string
	AccountID        string
	Plan             string
	Status           PaymentEventStatus
	Outcome          string // set when processed
	CreatedAt        time.Time
	ProcessedAt      *time.Time
}

func NewPaymentEvent(gatewayPaymentID, orderID, accountID, plan string) *PaymentEvent {
	return &PaymentEvent{
		ID:               ulid.Make().String(),
		GatewayPaymentID: gatewayPaymentID,
		OrderID:          orderID,
		AccountID:        accountID,
		Plan:             plan,
		Status:           EventProcessing,
		CreatedAt:        time.Now(),
	}
}
