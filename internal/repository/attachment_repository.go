package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository constructs the postgres repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) GetByID(ctx context.Context, id string) (*domain.Attachment, error) {
	const query = `
        SELECT id, ticket_id, file_name, storage_reference, content_type, file_size, created_at
        FROM attachments WHERE id=$1`
	attachment, err := scanAttachment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return attachment, nil
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	byTicket, err := listAttachments(ctx, r.pool, []string{ticketID})
	if err != nil {
		return nil, err
	}
	return byTicket[ticketID], nil
}

func insertAttachment(ctx context.Context, db dbtx, position int, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO attachments (id, ticket_id, position, file_name, storage_reference, content_type, file_size, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	if _, err := db.Exec(ctx, query,
		attachment.ID,
		attachment.TicketID,
		position,
		attachment.FileName,
		attachment.StorageReference,
		attachment.ContentType,
		attachment.FileSize,
		attachment.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert attachment %s: %w", attachment.FileName, err)
	}
	return nil
}

// listAttachments loads attachments for the given tickets keyed by ticket id,
// each slice in upload order.
func listAttachments(ctx context.Context, db dbtx, ticketIDs []string) (map[string][]domain.Attachment, error) {
	const query = `
        SELECT id, ticket_id, file_name, storage_reference, content_type, file_size, created_at
        FROM attachments WHERE ticket_id = ANY($1::uuid[]) ORDER BY ticket_id, position`
	rows, err := db.Query(ctx, query, ticketIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]domain.Attachment, len(ticketIDs))
	for rows.Next() {
		attachment, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		result[attachment.TicketID] = append(result[attachment.TicketID], *attachment)
	}
	return result, rows.Err()
}

func scanAttachment(row pgx.Row) (*domain.Attachment, error) {
	var attachment domain.Attachment
	if err := row.Scan(
		&attachment.ID,
		&attachment.TicketID,
		&attachment.FileName,
		&attachment.StorageReference,
		&attachment.ContentType,
		&attachment.FileSize,
		&attachment.CreatedAt,
	); err != nil {
		return nil, err
	}
	attachment.CreatedAt = attachment.CreatedAt.UTC()
	return &attachment, nil
}
