package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const ticketColumns = `
        t.id, t.title, t.description, t.priority, t.email, t.steps_to_reproduce,
        c.id, c.name, c.created_at,
        t.ai_suggested_title, t.ai_suggested_priority, t.ai_suggested_steps, t.created_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the postgres repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
        INSERT INTO tickets (id, title, description, priority, email, steps_to_reproduce, category_id,
            ai_suggested_title, ai_suggested_priority, ai_suggested_steps, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
		if _, err := tx.Exec(ctx, query,
			ticket.ID,
			ticket.Title,
			ticket.Description,
			ticket.Priority,
			ticket.Email,
			ticket.StepsToReproduce,
			categoryID(ticket),
			ticket.AISuggestedTitle,
			ticket.AISuggestedPriority,
			ticket.AISuggestedSteps,
			ticket.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}
		for i := range ticket.Attachments {
			if err := insertAttachment(ctx, tx, i, &ticket.Attachments[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}, func(tx pgx.Tx) error {
		query := `SELECT` + ticketColumns + `
        FROM tickets t LEFT JOIN categories c ON c.id = t.category_id
        WHERE t.id=$1`
		found, err := scanTicket(tx.QueryRow(ctx, query, id))
		if err != nil {
			return err
		}
		attachments, err := listAttachments(ctx, tx, []string{found.ID})
		if err != nil {
			return err
		}
		found.Attachments = attachments[found.ID]
		ticket = found
		return nil
	})
	if err != nil {
		return nil, mapNoRows(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query := `SELECT` + ticketColumns + `
        FROM tickets t LEFT JOIN categories c ON c.id = t.category_id`
	args := []any{}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		query += " WHERE c.name=$1"
	}
	query += " ORDER BY t.created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := []domain.Ticket{}
	ids := []string{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
		ids = append(ids, ticket.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return tickets, nil
	}

	attachments, err := listAttachments(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range tickets {
		tickets[i].Attachments = attachments[tickets[i].ID]
	}
	return tickets, nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, priority=$3, email=$4, steps_to_reproduce=$5,
            category_id=$6, ai_suggested_title=$7, ai_suggested_priority=$8, ai_suggested_steps=$9
        WHERE id=$10`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Email,
		ticket.StepsToReproduce,
		categoryID(ticket),
		ticket.AISuggestedTitle,
		ticket.AISuggestedPriority,
		ticket.AISuggestedSteps,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) ([]domain.Attachment, error) {
	var removed []domain.Attachment
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		attachments, err := listAttachments(ctx, tx, []string{id})
		if err != nil {
			return err
		}
		cmd, err := tx.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrNotFound
		}
		removed = attachments[id]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket       domain.Ticket
		catID        *string
		catName      *string
		catCreatedAt *time.Time
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Email,
		&ticket.StepsToReproduce,
		&catID,
		&catName,
		&catCreatedAt,
		&ticket.AISuggestedTitle,
		&ticket.AISuggestedPriority,
		&ticket.AISuggestedSteps,
		&ticket.CreatedAt,
	); err != nil {
		return nil, err
	}
	if catID != nil && catName != nil {
		ticket.Category = &domain.Category{ID: *catID, Name: *catName}
		if catCreatedAt != nil {
			ticket.Category.CreatedAt = catCreatedAt.UTC()
		}
	}
	ticket.CreatedAt = ticket.CreatedAt.UTC()
	return &ticket, nil
}

func categoryID(ticket *domain.Ticket) *string {
	if ticket.Category == nil {
		return nil
	}
	return &ticket.Category.ID
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
