package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket_created"
	EventTicketUpdated EventType = "ticket_updated"
	EventTicketDeleted EventType = "ticket_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps a fresh event for a ticket.
func NewEvent(eventType EventType, ticketID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title           string                `json:"title"`
	Priority        domain.TicketPriority `json:"priority"`
	Category        string                `json:"category,omitempty"`
	AttachmentCount int                   `json:"attachment_count"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
	Category    string                `json:"category,omitempty"`
}

// TicketDeletedPayload lists the blobs that belonged to the ticket.
type TicketDeletedPayload struct {
	StorageReferences []string `json:"storage_references"`
}
