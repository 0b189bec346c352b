package model

import "time"

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusProcessed  OutboxStatus = "PROCESSED"
	OutboxStatusFailed     OutboxStatus = "FAILED"
)

// Domain event types recorded alongside the mutation that caused them.
const (
	EventProviderCreated    = "provider.created"
	EventClientCreated      = "client.created"
	EventBookingCreated     = "booking.created"
	EventBookingRescheduled = "booking.rescheduled"
	EventBookingConfirmed   = "booking.confirmed"
	EventBookingCanceled    = "booking.canceled"
	EventReviewAdded        = "review.added"
)

type OutboxEvent struct {
	ID           uint64       `json:"id"`
	EventType    string       `json:"event_type"`
	Payload      []byte       `json:"-"`
	Status       OutboxStatus `json:"status"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	RetryCount   int          `json:"retry_count"`
	CreatedAt    time.Time    `json:"created_at"`
	ProcessedAt  *time.Time   `json:"processed_at,omitempty"`
}
