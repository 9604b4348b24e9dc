package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/spec-kit/support-desk/internal/domain"
)

const (
	ticketsBucket     = "tickets"
	attachmentsBucket = "attachments"
	categoriesBucket  = "categories"
)

type ticketRecord struct {
	ID                  string             `json:"id"`
	Title               string             `json:"title"`
	Description         string             `json:"description"`
	Priority            string             `json:"priority"`
	Email               string             `json:"email"`
	StepsToReproduce    string             `json:"steps_to_reproduce"`
	Category            *categoryRecord    `json:"category,omitempty"`
	AISuggestedTitle    *string            `json:"ai_suggested_title,omitempty"`
	AISuggestedPriority *string            `json:"ai_suggested_priority,omitempty"`
	AISuggestedSteps    *string            `json:"ai_suggested_steps,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	Attachments         []attachmentRecord `json:"attachments"`
}

type attachmentRecord struct {
	ID               string    `json:"id"`
	FileName         string    `json:"file_name"`
	StorageReference string    `json:"storage_reference"`
	ContentType      string    `json:"content_type"`
	FileSize         int64     `json:"file_size"`
	CreatedAt        time.Time `json:"created_at"`
}

type categoryRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// InitBoltBuckets creates the buckets used by the bolt repositories.
func InitBoltBuckets(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{ticketsBucket, attachmentsBucket, categoriesBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

type boltTicketRepository struct {
	db *bolt.DB
}

// NewBoltTicketRepository stores each ticket with its attachments as one
// JSON value, so every write is a single bolt transaction.
func NewBoltTicketRepository(db *bolt.DB) TicketRepository {
	return &boltTicketRepository{db: db}
}

func (r *boltTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(toTicketRecord(ticket))
	if err != nil {
		return fmt.Errorf("marshal ticket %s: %w", ticket.ID, err)
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		tickets := tx.Bucket([]byte(ticketsBucket))
		if tickets.Get([]byte(ticket.ID)) != nil {
			return fmt.Errorf("ticket %s already exists", ticket.ID)
		}
		if err := tickets.Put([]byte(ticket.ID), data); err != nil {
			return fmt.Errorf("save ticket %s: %w", ticket.ID, err)
		}
		index := tx.Bucket([]byte(attachmentsBucket))
		for _, att := range ticket.Attachments {
			if err := index.Put([]byte(att.ID), []byte(ticket.ID)); err != nil {
				return fmt.Errorf("index attachment %s: %w", att.ID, err)
			}
		}
		return nil
	})
}

func (r *boltTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ticket *domain.Ticket
	err := r.db.View(func(tx *bolt.Tx) error {
		found, err := loadTicket(tx, id)
		ticket = found
		return err
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *boltTicketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tickets := []domain.Ticket{}
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(ticketsBucket)).ForEach(func(_, v []byte) error {
			var rec ticketRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshal ticket: %w", err)
			}
			if filter.Category != nil && (rec.Category == nil || rec.Category.Name != *filter.Category) {
				return nil
			}
			tickets = append(tickets, *rec.toDomain())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].ID < tickets[j].ID
		}
		return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(tickets) {
			return []domain.Ticket{}, nil
		}
		tickets = tickets[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(tickets) {
		tickets = tickets[:filter.Limit]
	}
	return tickets, nil
}

// Update replaces the mutable fields; attachments and created_at are kept
// from the stored record.
func (r *boltTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		stored, err := loadTicket(tx, ticket.ID)
		if err != nil {
			return err
		}
		updated := *ticket
		updated.CreatedAt = stored.CreatedAt
		updated.Attachments = stored.Attachments
		data, err := json.Marshal(toTicketRecord(&updated))
		if err != nil {
			return fmt.Errorf("marshal ticket %s: %w", ticket.ID, err)
		}
		return tx.Bucket([]byte(ticketsBucket)).Put([]byte(ticket.ID), data)
	})
}

func (r *boltTicketRepository) Delete(ctx context.Context, id string) ([]domain.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var removed []domain.Attachment
	err := r.db.Update(func(tx *bolt.Tx) error {
		stored, err := loadTicket(tx, id)
		if err != nil {
			return err
		}
		index := tx.Bucket([]byte(attachmentsBucket))
		for _, att := range stored.Attachments {
			if err := index.Delete([]byte(att.ID)); err != nil {
				return fmt.Errorf("unindex attachment %s: %w", att.ID, err)
			}
		}
		removed = stored.Attachments
		return tx.Bucket([]byte(ticketsBucket)).Delete([]byte(id))
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

type boltAttachmentRepository struct {
	db *bolt.DB
}

// NewBoltAttachmentRepository resolves attachments through the id index.
func NewBoltAttachmentRepository(db *bolt.DB) AttachmentRepository {
	return &boltAttachmentRepository{db: db}
}

func (r *boltAttachmentRepository) GetByID(ctx context.Context, id string) (*domain.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var attachment *domain.Attachment
	err := r.db.View(func(tx *bolt.Tx) error {
		ticketID := tx.Bucket([]byte(attachmentsBucket)).Get([]byte(id))
		if ticketID == nil {
			return ErrNotFound
		}
		ticket, err := loadTicket(tx, string(ticketID))
		if err != nil {
			return err
		}
		for i := range ticket.Attachments {
			if ticket.Attachments[i].ID == id {
				attachment = &ticket.Attachments[i]
				return nil
			}
		}
		return ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return attachment, nil
}

func (r *boltAttachmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var attachments []domain.Attachment
	err := r.db.View(func(tx *bolt.Tx) error {
		ticket, err := loadTicket(tx, ticketID)
		if err != nil {
			return err
		}
		attachments = ticket.Attachments
		return nil
	})
	return attachments, err
}

type boltCategoryRepository struct {
	db *bolt.DB
}

// NewBoltCategoryRepository keys categories by name.
func NewBoltCategoryRepository(db *bolt.DB) CategoryRepository {
	return &boltCategoryRepository{db: db}
}

func (r *boltCategoryRepository) GetOrCreate(ctx context.Context, name string) (*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var category *domain.Category
	err := r.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(categoriesBucket))
		if existing := bucket.Get([]byte(name)); existing != nil {
			var rec categoryRecord
			if err := json.Unmarshal(existing, &rec); err != nil {
				return fmt.Errorf("unmarshal category: %w", err)
			}
			category = rec.toDomain()
			return nil
		}
		rec := categoryRecord{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		category = rec.toDomain()
		return bucket.Put([]byte(name), data)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (r *boltCategoryRepository) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var category *domain.Category
	err := r.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(categoriesBucket)).Get([]byte(name))
		if data == nil {
			return ErrNotFound
		}
		var rec categoryRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("unmarshal category: %w", err)
		}
		category = rec.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func loadTicket(tx *bolt.Tx, id string) (*domain.Ticket, error) {
	data := tx.Bucket([]byte(ticketsBucket)).Get([]byte(id))
	if data == nil {
		return nil, ErrNotFound
	}
	var rec ticketRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal ticket %s: %w", id, err)
	}
	return rec.toDomain(), nil
}

func toTicketRecord(t *domain.Ticket) ticketRecord {
	rec := ticketRecord{
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
		Attachments:         make([]attachmentRecord, 0, len(t.Attachments)),
	}
	if t.Category != nil {
		rec.Category = &categoryRecord{ID: t.Category.ID, Name: t.Category.Name, CreatedAt: t.Category.CreatedAt}
	}
	for _, att := range t.Attachments {
		rec.Attachments = append(rec.Attachments, attachmentRecord{
			ID:               att.ID,
			FileName:         att.FileName,
			StorageReference: att.StorageReference,
			ContentType:      att.ContentType,
			FileSize:         att.FileSize,
			CreatedAt:        att.CreatedAt,
		})
	}
	return rec
}

func (rec ticketRecord) toDomain() *domain.Ticket {
	ticket := &domain.Ticket{
		ID:                  rec.ID,
		Title:               rec.Title,
		Description:         rec.Description,
		Priority:            domain.TicketPriority(rec.Priority),
		Email:               rec.Email,
		StepsToReproduce:    rec.StepsToReproduce,
		AISuggestedTitle:    rec.AISuggestedTitle,
		AISuggestedPriority: rec.AISuggestedPriority,
		AISuggestedSteps:    rec.AISuggestedSteps,
		CreatedAt:           rec.CreatedAt.UTC(),
	}
	if rec.Category != nil {
		ticket.Category = rec.Category.toDomain()
	}
	for _, att := range rec.Attachments {
		ticket.Attachments = append(ticket.Attachments, domain.Attachment{
			ID:               att.ID,
			TicketID:         rec.ID,
			FileName:         att.FileName,
			StorageReference: att.StorageReference,
			ContentType:      att.ContentType,
			FileSize:         att.FileSize,
			CreatedAt:        att.CreatedAt.UTC(),
		})
	}
	return ticket
}

func (rec categoryRecord) toDomain() *domain.Category {
	return &domain.Category{ID: rec.ID, Name: rec.Name, CreatedAt: rec.CreatedAt.UTC()}
}
