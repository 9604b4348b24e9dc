package domain

import (
	"strings"
	"time"
)

// TicketPriority enumerates support urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "Low"
	TicketPriorityMedium   TicketPriority = "Medium"
	TicketPriorityHigh     TicketPriority = "High"
	TicketPriorityCritical TicketPriority = "Critical"
)

// TicketPriorities lists the closed priority set in ascending urgency.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityCritical,
}

// ParsePriority matches s against the closed priority set, ignoring case,
// surrounding whitespace and trailing punctuation.
func ParsePriority(s string) (TicketPriority, bool) {
	s = strings.Trim(strings.TrimSpace(s), ".!\"'`*")
	for _, p := range TicketPriorities {
		if strings.EqualFold(s, string(p)) {
			return p, true
		}
	}
	return "", false
}

// Ticket is the aggregate for support requests. Attachments are owned by
// the ticket and removed with it.
type Ticket struct {
	ID                  string
	Title               string
	Description         string
	Priority            TicketPriority
	Email               string
	StepsToReproduce    string
	Category            *Category
	AISuggestedTitle    *string
	AISuggestedPriority *string
	AISuggestedSteps    *string
	CreatedAt           time.Time
	Attachments         []Attachment
}

// CategoryName returns the category name or "" when unset.
func (t *Ticket) CategoryName() string {
	if t.Category == nil {
		return ""
	}
	return t.Category.Name
}
