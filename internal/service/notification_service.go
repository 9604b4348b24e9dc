package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/observability"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// TicketMailer delivers the ticket-created email.
type TicketMailer interface {
	SendTicketCreated(ctx context.Context, ticket dto.TicketResponse, recipient string) error
}

// NotificationService sends ticket notifications on a best-effort basis.
type NotificationService struct {
	mailer  TicketMailer
	logger  *zap.Logger
	metrics *observability.Metrics
	cfg     config.NotificationConfig
}

// NewNotificationService creates the service. A nil mailer disables sending.
func NewNotificationService(mailer TicketMailer, logger *zap.Logger, metrics *observability.Metrics, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		mailer:  mailer,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
	}
}

// Enabled reports whether notifications will be attempted.
func (n *NotificationService) Enabled() bool {
	return n != nil && n.mailer != nil && n.cfg.Enabled && strings.TrimSpace(n.cfg.RecipientEmail) != ""
}

// NotifyTicketCreated sends a single delivery attempt. Failures are logged
// and counted, and returned as a NotificationError for the caller to ignore.
func (n *NotificationService) NotifyTicketCreated(ctx context.Context, ticket dto.TicketResponse) error {
	if !n.Enabled() {
		if n != nil {
			n.logger.Debug("ticket notification skipped", zap.String("ticket_id", ticket.ID))
		}
		return nil
	}

	if err := n.mailer.SendTicketCreated(ctx, ticket, n.cfg.RecipientEmail); err != nil {
		n.metrics.RecordNotificationFailure()
		n.logger.Warn("ticket notification failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("recipient", n.cfg.RecipientEmail),
			zap.Error(err))
		return apperrors.NewNotificationError("failed to send ticket notification", err)
	}
	return nil
}
