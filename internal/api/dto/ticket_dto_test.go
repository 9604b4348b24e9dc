package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
)

func TestNewTicketResponse_EmptyAttachmentsSerializeAsArray(t *testing.T) {
	resp := NewTicketResponse(&domain.Ticket{ID: "t1", Priority: domain.TicketPriorityLow})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	assert.Contains(t, string(raw), `"attachments":[]`)
	assert.NotContains(t, string(raw), `"category"`)
	assert.NotContains(t, string(raw), `"aiSuggestedTitle"`)
}

func TestNewTicketResponse_HidesStorageReference(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	resp := NewTicketResponse(&domain.Ticket{
		ID:       "t1",
		Category: &domain.Category{ID: "c1", Name: "Billing"},
		Attachments: []domain.Attachment{
			{ID: "a1", FileName: "log.txt", StorageReference: "abc.txt", FileSize: 12, CreatedAt: now},
		},
	})

	require.Len(t, resp.Attachments, 1)
	assert.Equal(t, "abc.txt", resp.Attachments[0].StorageReference)
	require.NotNil(t, resp.Category)
	assert.Equal(t, "Billing", *resp.Category)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "abc.txt")
	assert.Contains(t, string(raw), `"fileName":"log.txt"`)
	assert.Contains(t, string(raw), `"fileSize":12`)
}
