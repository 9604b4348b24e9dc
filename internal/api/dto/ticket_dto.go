package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateTicketRequest carries the text fields of a submission. Files arrive
// as multipart parts and are handled separately.
type CreateTicketRequest struct {
	Title               string  `json:"title" form:"title"`
	Description         string  `json:"description" form:"description"`
	Priority            string  `json:"priority" form:"priority"`
	Email               string  `json:"email" form:"email"`
	StepsToReproduce    string  `json:"stepsToReproduce" form:"stepsToReproduce"`
	Category            string  `json:"category" form:"category"`
	AISuggestedTitle    *string `json:"aiSuggestedTitle,omitempty" form:"aiSuggestedTitle"`
	AISuggestedPriority *string `json:"aiSuggestedPriority,omitempty" form:"aiSuggestedPriority"`
	AISuggestedSteps    *string `json:"aiSuggestedSteps,omitempty" form:"aiSuggestedSteps"`
}

// UpdateTicketRequest overwrites the mutable ticket fields.
type UpdateTicketRequest = CreateTicketRequest

// TicketResponse is the outbound ticket representation.
type TicketResponse struct {
	ID                  string               `json:"id"`
	Title               string               `json:"title"`
	Description         string               `json:"description"`
	Priority            string               `json:"priority"`
	Email               string               `json:"email"`
	StepsToReproduce    string               `json:"stepsToReproduce"`
	AISuggestedTitle    *string              `json:"aiSuggestedTitle,omitempty"`
	AISuggestedPriority *string              `json:"aiSuggestedPriority,omitempty"`
	AISuggestedSteps    *string              `json:"aiSuggestedSteps,omitempty"`
	Category            *string              `json:"category,omitempty"`
	CreatedAt           time.Time            `json:"createdAt"`
	Attachments         []AttachmentResponse `json:"attachments"`
}

// AttachmentResponse is attachment metadata. StorageReference stays
// server-side.
type AttachmentResponse struct {
	ID               string    `json:"id"`
	FileName         string    `json:"fileName"`
	FileSize         int64     `json:"fileSize"`
	ContentType      string    `json:"contentType,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	StorageReference string    `json:"-"`
}

// NewTicketResponse maps a ticket aggregate to its outbound shape.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:                  t.ID,
		Title:               t.Title,
		Description:         t.Description,
		Priority:            string(t.Priority),
		Email:               t.Email,
		StepsToReproduce:    t.StepsToReproduce,
		AISuggestedTitle:    t.AISuggestedTitle,
		AISuggestedPriority: t.AISuggestedPriority,
		AISuggestedSteps:    t.AISuggestedSteps,
		CreatedAt:           t.CreatedAt,
		Attachments:         make([]AttachmentResponse, 0, len(t.Attachments)),
	}
	if t.Category != nil {
		name := t.Category.Name
		resp.Category = &name
	}
	for _, a := range t.Attachments {
		resp.Attachments = append(resp.Attachments, NewAttachmentResponse(a))
	}
	return resp
}

// NewAttachmentResponse maps a single attachment.
func NewAttachmentResponse(a domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:               a.ID,
		FileName:         a.FileName,
		FileSize:         a.FileSize,
		ContentType:      a.ContentType,
		CreatedAt:        a.CreatedAt,
		StorageReference: a.StorageReference,
	}
}

// NewTicketResponses maps a slice of tickets, never returning nil.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// SuggestionRequest asks for AI suggestions for a description.
type SuggestionRequest struct {
	Description string `json:"description"`
}

// SuggestionResponse holds AI suggestions. Category is omitted when the
// provider could not suggest one.
type SuggestionResponse struct {
	Title            string  `json:"title"`
	Priority         string  `json:"priority"`
	StepsToReproduce string  `json:"stepsToReproduce"`
	Category         *string `json:"category,omitempty"`
}
