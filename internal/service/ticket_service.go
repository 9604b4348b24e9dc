package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/storage"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	attachments repository.AttachmentRepository
	categories  *CategoryService
	store       storage.AttachmentStore
	notifier    *NotificationService
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
	cfg         config.TicketsConfig
	now         func() time.Time
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	AttachmentRepo repository.AttachmentRepository
	CategoryRepo   repository.CategoryRepository
	Store          storage.AttachmentStore
	Notifier       *NotificationService
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	Config         config.TicketsConfig
}

// FileUpload is one uploaded file. Open is called at most once, after
// validation succeeds.
type FileUpload struct {
	FileName string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// TicketCreateInput describes a ticket submission.
type TicketCreateInput struct {
	Title               string
	Description         string
	Priority            string
	Email               string
	StepsToReproduce    string
	Category            string
	AISuggestedTitle    *string
	AISuggestedPriority *string
	AISuggestedSteps    *string
	Attachments         []FileUpload
}

// TicketUpdateInput carries the overwritable ticket fields.
type TicketUpdateInput struct {
	Title               string
	Description         string
	Priority            string
	Email               string
	StepsToReproduce    string
	Category            string
	AISuggestedTitle    *string
	AISuggestedPriority *string
	AISuggestedSteps    *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		attachments: deps.AttachmentRepo,
		categories:  NewCategoryService(deps.CategoryRepo),
		store:       deps.Store,
		notifier:    deps.Notifier,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		metrics:     deps.Metrics,
		cfg:         deps.Config,
		now:         func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// CreateTicket validates and persists a submission together with its
// attachments, then sends the ticket-created notification. Storage and
// persistence failures abort the call; notification failures do not.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	fields := ticketFields{
		Title:            input.Title,
		Description:      input.Description,
		Priority:         input.Priority,
		Email:            input.Email,
		StepsToReproduce: input.StepsToReproduce,
		Category:         input.Category,
	}
	if err := validateTicketFields(&fields, s.cfg.Strict()); err != nil {
		return nil, err
	}
	uploads, err := s.acceptedUploads(input.Attachments)
	if err != nil {
		return nil, err
	}

	ticketID := uuid.NewString()
	createdAt := s.now()

	attachments, err := s.storeAttachments(ctx, ticketID, createdAt, uploads)
	if err != nil {
		return nil, err
	}

	category, err := s.categories.GetOrCreateCategory(ctx, fields.Category)
	if err != nil {
		s.discardBlobs(attachments)
		return nil, err
	}

	ticket := &domain.Ticket{
		ID:                  ticketID,
		Title:               fields.Title,
		Description:         fields.Description,
		Priority:            domain.TicketPriority(fields.Priority),
		Email:               fields.Email,
		StepsToReproduce:    fields.StepsToReproduce,
		Category:            category,
		AISuggestedTitle:    trimmedOrNil(input.AISuggestedTitle),
		AISuggestedPriority: trimmedOrNil(input.AISuggestedPriority),
		AISuggestedSteps:    trimmedOrNil(input.AISuggestedSteps),
		CreatedAt:           createdAt,
		Attachments:         attachments,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		s.discardBlobs(attachments)
		return nil, apperrors.NewPersistenceError("failed to save ticket", err)
	}
	s.metrics.RecordTicketCreated(len(attachments))
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("priority", string(ticket.Priority)),
		zap.Int("attachments", len(attachments)))

	resp := dto.NewTicketResponse(ticket)
	_ = s.notifier.NotifyTicketCreated(ctx, resp)

	s.publish(ctx, events.NewEvent(events.EventTicketCreated, ticket.ID, events.TicketCreatedPayload{
		Title:           ticket.Title,
		Priority:        ticket.Priority,
		Category:        ticket.CategoryName(),
		AttachmentCount: len(attachments),
	}))
	return ticket, nil
}

// acceptedUploads drops empty files and rejects oversized ones before
// anything is written.
func (s *TicketService) acceptedUploads(uploads []FileUpload) ([]FileUpload, error) {
	accepted := make([]FileUpload, 0, len(uploads))
	for _, u := range uploads {
		if u.Size <= 0 {
			s.logger.Debug("skipping empty attachment", zap.String("file_name", u.FileName))
			continue
		}
		if s.cfg.MaxAttachmentBytes > 0 && u.Size > s.cfg.MaxAttachmentBytes {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("attachment %q exceeds the maximum size of %d bytes", u.FileName, s.cfg.MaxAttachmentBytes),
				map[string]any{"fileName": u.FileName, "fileSize": u.Size, "maxBytes": s.cfg.MaxAttachmentBytes})
		}
		if u.Open == nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("attachment %q has no content", u.FileName), nil)
		}
		accepted = append(accepted, u)
	}
	return accepted, nil
}

// storeAttachments writes uploads in order. Any failure removes the blobs
// already written and aborts the submission.
func (s *TicketService) storeAttachments(ctx context.Context, ticketID string, createdAt time.Time, uploads []FileUpload) ([]domain.Attachment, error) {
	attachments := make([]domain.Attachment, 0, len(uploads))
	for _, u := range uploads {
		att, err := s.storeAttachment(ctx, ticketID, createdAt, u)
		if err != nil {
			s.discardBlobs(attachments)
			var domainErr *apperrors.DomainError
			if errors.As(err, &domainErr) {
				return nil, err
			}
			return nil, apperrors.NewStorageError(fmt.Sprintf("failed to store attachment %q", u.FileName), err)
		}
		if att == nil {
			continue
		}
		attachments = append(attachments, *att)
	}
	return attachments, nil
}

func (s *TicketService) storeAttachment(ctx context.Context, ticketID string, createdAt time.Time, u FileUpload) (*domain.Attachment, error) {
	rc, err := u.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()

	fileName := displayName(u.FileName)
	var r io.Reader = rc
	if s.cfg.MaxAttachmentBytes > 0 {
		r = io.LimitReader(rc, s.cfg.MaxAttachmentBytes+1)
	}
	blob, err := s.store.Save(ctx, fileName, r)
	if err != nil {
		return nil, err
	}

	switch {
	case blob.Size == 0:
		_ = s.store.Delete(context.WithoutCancel(ctx), blob.Reference)
		return nil, nil
	case s.cfg.MaxAttachmentBytes > 0 && blob.Size > s.cfg.MaxAttachmentBytes:
		_ = s.store.Delete(context.WithoutCancel(ctx), blob.Reference)
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("attachment %q exceeds the maximum size of %d bytes", fileName, s.cfg.MaxAttachmentBytes),
			map[string]any{"fileName": fileName, "maxBytes": s.cfg.MaxAttachmentBytes})
	}

	return &domain.Attachment{
		ID:               uuid.NewString(),
		TicketID:         ticketID,
		FileName:         fileName,
		StorageReference: blob.Reference,
		ContentType:      blob.ContentType,
		FileSize:         blob.Size,
		CreatedAt:        createdAt,
	}, nil
}

// discardBlobs removes written blobs after an aborted submission.
func (s *TicketService) discardBlobs(attachments []domain.Attachment) {
	ctx := context.Background()
	for _, att := range attachments {
		if err := s.store.Delete(ctx, att.StorageReference); err != nil {
			s.logger.Warn("failed to remove orphaned attachment",
				zap.String("storage_reference", att.StorageReference),
				zap.Error(err))
		}
	}
}

// GetTicket loads a ticket with its attachments.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "ticket", map[string]any{"ticket_id": id})
	}
	return ticket, nil
}

// ListTickets returns every ticket, newest first.
func (s *TicketService) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to list tickets", err)
	}
	return tickets, nil
}

// ListTicketsByCategory returns the tickets of a category. An unknown
// category yields an empty list.
func (s *TicketService) ListTicketsByCategory(ctx context.Context, category string) ([]domain.Ticket, error) {
	category = strings.TrimSpace(category)
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{Category: &category})
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to list tickets", err)
	}
	return tickets, nil
}

// UpdateTicket overwrites the mutable fields of a ticket. Identity,
// creation time and attachments are kept.
func (s *TicketService) UpdateTicket(ctx context.Context, id string, input TicketUpdateInput) (*domain.Ticket, error) {
	fields := ticketFields{
		Title:            input.Title,
		Description:      input.Description,
		Priority:         input.Priority,
		Email:            input.Email,
		StepsToReproduce: input.StepsToReproduce,
		Category:         input.Category,
	}
	if err := validateTicketFields(&fields, s.cfg.Strict()); err != nil {
		return nil, err
	}

	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	category, err := s.categories.GetOrCreateCategory(ctx, fields.Category)
	if err != nil {
		return nil, err
	}

	oldPriority := ticket.Priority
	ticket.Title = fields.Title
	ticket.Description = fields.Description
	ticket.Priority = domain.TicketPriority(fields.Priority)
	ticket.Email = fields.Email
	ticket.StepsToReproduce = fields.StepsToReproduce
	ticket.Category = category
	ticket.AISuggestedTitle = trimmedOrNil(input.AISuggestedTitle)
	ticket.AISuggestedPriority = trimmedOrNil(input.AISuggestedPriority)
	ticket.AISuggestedSteps = trimmedOrNil(input.AISuggestedSteps)

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapRepoError(err, "ticket", map[string]any{"ticket_id": id})
	}

	s.publish(ctx, events.NewEvent(events.EventTicketUpdated, ticket.ID, events.TicketUpdatedPayload{
		OldPriority: oldPriority,
		NewPriority: ticket.Priority,
		Category:    ticket.CategoryName(),
	}))
	return ticket, nil
}

// DeleteTicket removes a ticket and its attachment records. Blob cleanup
// happens in the ticket_deleted handler.
func (s *TicketService) DeleteTicket(ctx context.Context, id string) error {
	if !validID(id) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	removed, err := s.tickets.Delete(ctx, id)
	if err != nil {
		return mapRepoError(err, "ticket", map[string]any{"ticket_id": id})
	}

	refs := make([]string, 0, len(removed))
	for _, att := range removed {
		refs = append(refs, att.StorageReference)
	}
	s.logger.Info("ticket deleted", zap.String("ticket_id", id), zap.Int("attachments", len(refs)))
	s.publish(ctx, events.NewEvent(events.EventTicketDeleted, id, events.TicketDeletedPayload{StorageReferences: refs}))
	return nil
}

// OpenAttachment returns the attachment metadata and a reader for its blob.
// The attachment must belong to the given ticket.
func (s *TicketService) OpenAttachment(ctx context.Context, ticketID, attachmentID string) (*domain.Attachment, io.ReadCloser, error) {
	details := map[string]any{"ticket_id": ticketID, "attachment_id": attachmentID}
	if !validID(ticketID) || !validID(attachmentID) {
		return nil, nil, apperrors.NewNotFound("attachment", details)
	}
	att, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		return nil, nil, mapRepoError(err, "attachment", details)
	}
	if att.TicketID != ticketID {
		return nil, nil, apperrors.NewNotFound("attachment", details)
	}
	rc, err := s.store.Open(ctx, att.StorageReference)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return nil, nil, apperrors.NewNotFound("attachment", details)
		}
		return nil, nil, apperrors.NewStorageError("failed to read attachment", err)
	}
	return att, rc, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func mapRepoError(err error, resource string, details map[string]any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, details)
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewPersistenceError(fmt.Sprintf("failed to access %s", resource), err)
}

// validID reports whether id can name a stored record.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func displayName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "attachment"
	}
	return name
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
