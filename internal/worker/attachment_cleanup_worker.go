package worker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/events"
)

// BlobDeleter removes stored attachment payloads.
type BlobDeleter interface {
	Delete(ctx context.Context, reference string) error
}

// StartAttachmentCleanupWorker removes the blobs of deleted tickets.
func StartAttachmentCleanupWorker(dispatcher events.Dispatcher, blobs BlobDeleter, logger *zap.Logger) {
	if dispatcher == nil || blobs == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketDeleted, func(ctx context.Context, event events.Event) error {
		return cleanupAttachments(ctx, blobs, logger, event)
	})
}

func cleanupAttachments(ctx context.Context, blobs BlobDeleter, logger *zap.Logger, event events.Event) error {
	payload, ok := event.Payload.(events.TicketDeletedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}

	var errs []error
	for _, ref := range payload.StorageReferences {
		if err := blobs.Delete(ctx, ref); err != nil {
			errs = append(errs, fmt.Errorf("delete blob %s: %w", ref, err))
			continue
		}
		logger.Debug("attachment blob removed",
			zap.String("ticket_id", event.TicketID),
			zap.String("storage_reference", ref))
	}
	return errors.Join(errs...)
}
