package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
)

type repositorySet struct {
	tickets     TicketRepository
	attachments AttachmentRepository
	categories  CategoryRepository
}

func newTestTicket(createdAt time.Time, attachments ...string) *domain.Ticket {
	id := uuid.NewString()
	ticket := &domain.Ticket{
		ID:               id,
		Title:            "Login broken",
		Description:      "Cannot log in after reset",
		Priority:         domain.TicketPriorityHigh,
		Email:            "jane@example.com",
		StepsToReproduce: "1. reset password\n2. log in",
		CreatedAt:        createdAt,
	}
	for _, name := range attachments {
		ticket.Attachments = append(ticket.Attachments, domain.Attachment{
			ID:               uuid.NewString(),
			TicketID:         id,
			FileName:         name,
			StorageReference: uuid.NewString() + ".txt",
			ContentType:      "text/plain; charset=utf-8",
			FileSize:         int64(len(name)),
			CreatedAt:        createdAt,
		})
	}
	return ticket
}

func runRepositoryContract(t *testing.T, repos repositorySet) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("create and get round trip with ordered attachments", func(t *testing.T) {
		suggested := "Login fails after password reset"
		ticket := newTestTicket(now, "b.log", "a.png", "c.txt")
		ticket.AISuggestedTitle = &suggested

		require.NoError(t, repos.tickets.Create(ctx, ticket))

		found, err := repos.tickets.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, ticket.Title, found.Title)
		assert.Equal(t, ticket.Priority, found.Priority)
		assert.True(t, ticket.CreatedAt.Equal(found.CreatedAt))
		require.NotNil(t, found.AISuggestedTitle)
		assert.Equal(t, suggested, *found.AISuggestedTitle)
		assert.Nil(t, found.AISuggestedPriority)
		require.Len(t, found.Attachments, 3)
		assert.Equal(t, []string{"b.log", "a.png", "c.txt"}, []string{
			found.Attachments[0].FileName, found.Attachments[1].FileName, found.Attachments[2].FileName,
		})
		assert.Equal(t, int64(len("b.log")), found.Attachments[0].FileSize)
	})

	t.Run("missing ticket is not found", func(t *testing.T) {
		_, err := repos.tickets.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("category get or create is deduplicated", func(t *testing.T) {
		name := "Auth-" + uuid.NewString()[:8]
		first, err := repos.categories.GetOrCreate(ctx, name)
		require.NoError(t, err)
		second, err := repos.categories.GetOrCreate(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		byName, err := repos.categories.GetByName(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, first.ID, byName.ID)

		_, err = repos.categories.GetByName(ctx, "missing-"+uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list filters by category", func(t *testing.T) {
		name := "Billing-" + uuid.NewString()[:8]
		category, err := repos.categories.GetOrCreate(ctx, name)
		require.NoError(t, err)

		older := newTestTicket(now.Add(-time.Minute))
		older.Category = category
		newer := newTestTicket(now, "invoice.pdf")
		newer.Category = category
		other := newTestTicket(now)
		require.NoError(t, repos.tickets.Create(ctx, older))
		require.NoError(t, repos.tickets.Create(ctx, newer))
		require.NoError(t, repos.tickets.Create(ctx, other))

		listed, err := repos.tickets.List(ctx, TicketFilter{Category: &name})
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, newer.ID, listed[0].ID)
		assert.Equal(t, older.ID, listed[1].ID)
		assert.Len(t, listed[0].Attachments, 1)
		assert.Equal(t, name, listed[0].CategoryName())

		all, err := repos.tickets.List(ctx, TicketFilter{})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(all), 3)
	})

	t.Run("update overwrites mutable fields only", func(t *testing.T) {
		ticket := newTestTicket(now, "trace.txt")
		require.NoError(t, repos.tickets.Create(ctx, ticket))

		changed := *ticket
		changed.Title = "Updated"
		changed.Priority = domain.TicketPriorityLow
		changed.Attachments = nil
		require.NoError(t, repos.tickets.Update(ctx, &changed))

		found, err := repos.tickets.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, "Updated", found.Title)
		assert.Equal(t, domain.TicketPriorityLow, found.Priority)
		assert.True(t, ticket.CreatedAt.Equal(found.CreatedAt))
		assert.Len(t, found.Attachments, 1)

		missing := newTestTicket(now)
		assert.ErrorIs(t, repos.tickets.Update(ctx, missing), ErrNotFound)
	})

	t.Run("delete cascades to attachments", func(t *testing.T) {
		ticket := newTestTicket(now, "one.txt", "two.txt")
		require.NoError(t, repos.tickets.Create(ctx, ticket))

		att, err := repos.attachments.GetByID(ctx, ticket.Attachments[0].ID)
		require.NoError(t, err)
		assert.Equal(t, ticket.ID, att.TicketID)

		removed, err := repos.tickets.Delete(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Len(t, removed, 2)

		_, err = repos.tickets.GetByID(ctx, ticket.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		for _, a := range ticket.Attachments {
			_, err := repos.attachments.GetByID(ctx, a.ID)
			assert.ErrorIs(t, err, ErrNotFound)
		}

		_, err = repos.tickets.Delete(ctx, ticket.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
