// Package events publishes transaction lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TransactionCreated       = "TransactionCreated"
	TransactionStatusChanged = "TransactionStatusChanged"
	TransactionCancelled     = "TransactionCancelled"
)

// Envelope wraps every event on the wire.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// TransactionPayload is the body of every transaction event.
type TransactionPayload struct {
	TransactionID string  `json:"transaction_id"`
	FarmerID      string  `json:"farmer_id"`
	BuyerID       string  `json:"buyer_id"`
	CropType      string  `json:"crop_type"`
	Quantity      float64 `json:"quantity"`
	UnitOfMeasure string  `json:"unit_of_measure"`
	TotalAmount   float64 `json:"total_amount"`
	FromStatus    string  `json:"from_status,omitempty"`
	Status        string  `json:"status"`
}

// Publisher emits an event keyed by key. Implementations must not block on
// broker availability for longer than ctx allows.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, any) error { return nil }

// NewEnvelope builds a version 1 envelope around payload.
func NewEnvelope(producer, eventType, correlationID string, payload any, at time.Time) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    at.UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// DecodePayload unmarshals an envelope payload into T.
func DecodePayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
