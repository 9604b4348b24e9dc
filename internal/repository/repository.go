package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// TicketFilter narrows ticket listings.
type TicketFilter struct {
	Category *string
	Limit    int
	Offset   int
}

// TicketRepository persists tickets together with their attachments.
// Create, Update and Delete each run as a single transaction.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) error
	// Delete removes the ticket and returns the attachments that went with it.
	Delete(ctx context.Context, id string) ([]domain.Attachment, error)
}

// AttachmentRepository reads attachment records.
type AttachmentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Attachment, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error)
}

// CategoryRepository stores deduplicated category names.
type CategoryRepository interface {
	GetOrCreate(ctx context.Context, name string) (*domain.Category, error)
	GetByName(ctx context.Context, name string) (*domain.Category, error)
}
