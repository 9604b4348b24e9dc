package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want TicketPriority
		ok   bool
	}{
		{in: "Low", want: TicketPriorityLow, ok: true},
		{in: "  high ", want: TicketPriorityHigh, ok: true},
		{in: "CRITICAL.", want: TicketPriorityCritical, ok: true},
		{in: "\"Medium\"", want: TicketPriorityMedium, ok: true},
		{in: "Urgent", ok: false},
		{in: "High priority", ok: false},
		{in: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParsePriority(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTicketCategoryName(t *testing.T) {
	tk := &Ticket{}
	assert.Equal(t, "", tk.CategoryName())
	tk.Category = &Category{Name: "Billing"}
	assert.Equal(t, "Billing", tk.CategoryName())
}
