package notification

import (
	"fmt"
	"math"
	"strings"

	"github.com/spec-kit/support-desk/internal/api/dto"
)

var sizeSuffixes = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatFileSize renders bytes with binary-prefix units and one decimal,
// dividing by 1024 while the quotient still rounds to at least 1.
func FormatFileSize(bytes int64) string {
	number := float64(bytes)
	counter := 0
	for counter < len(sizeSuffixes)-1 && math.RoundToEven(number/1024) >= 1 {
		number /= 1024
		counter++
	}
	return fmt.Sprintf("%.1f%s", number, sizeSuffixes[counter])
}

// Subject returns the email subject for a created ticket.
func Subject(ticket dto.TicketResponse) string {
	title := ticket.Title
	if strings.TrimSpace(title) == "" {
		title = ticket.ID
	}
	return "New Ticket Created: " + title
}

// ComposeBody renders the plain-text summary of a created ticket.
func ComposeBody(ticket dto.TicketResponse) string {
	var b strings.Builder
	b.WriteString("A new ticket has been created:\n\n")
	fmt.Fprintf(&b, "ID: %s\n", ticket.ID)
	fmt.Fprintf(&b, "Title: %s\n", ticket.Title)
	fmt.Fprintf(&b, "Description: %s\n", ticket.Description)
	fmt.Fprintf(&b, "Priority: %s\n", ticket.Priority)
	fmt.Fprintf(&b, "Email: %s\n", ticket.Email)
	if ticket.Category != nil {
		fmt.Fprintf(&b, "Category: %s\n", *ticket.Category)
	}

	if strings.TrimSpace(ticket.StepsToReproduce) != "" {
		fmt.Fprintf(&b, "Steps to Reproduce: %s\n\n", ticket.StepsToReproduce)
	} else {
		b.WriteString("Steps to Reproduce: No steps were provided.\n\n")
	}

	if len(ticket.Attachments) == 0 {
		b.WriteString("No attachments were included with this ticket.\n")
		return b.String()
	}
	b.WriteString("Attachments:\n")
	for _, att := range ticket.Attachments {
		fmt.Fprintf(&b, "- %s (%s)\n", att.FileName, FormatFileSize(att.FileSize))
	}
	return b.String()
}
