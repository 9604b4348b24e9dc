package notification

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/storage"
)

// SMTPDialer opens an authenticated SMTP session. *gomail.Dialer satisfies it.
type SMTPDialer interface {
	Dial() (gomail.SendCloser, error)
}

// BlobOpener reads stored attachment payloads.
type BlobOpener interface {
	Open(ctx context.Context, reference string) (io.ReadCloser, error)
}

// Dispatcher emails ticket summaries with their attachments.
type Dispatcher struct {
	cfg    config.SMTPConfig
	dialer SMTPDialer
	blobs  BlobOpener
	logger *zap.Logger
}

// ErrPlaintextSMTP is returned when a session could run without TLS.
var ErrPlaintextSMTP = errors.New("smtp without credentials may send in plaintext; set SMTP_USERNAME, use port 465 or set SMTP_ALLOW_PLAINTEXT")

// NewDispatcher builds a dispatcher backed by gomail. Port 465 uses implicit
// TLS. On other ports gomail upgrades to STARTTLS when offered, and
// authentication refuses to proceed without TLS, so a credential-less
// dialer is only built when plaintext is explicitly allowed.
func NewDispatcher(cfg config.SMTPConfig, blobs BlobOpener, logger *zap.Logger) (*Dispatcher, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is not configured")
	}
	if cfg.Port != 465 && strings.TrimSpace(cfg.Username) == "" && !cfg.AllowPlaintext {
		return nil, ErrPlaintextSMTP
	}
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec
	}
	return NewDispatcherWithDialer(cfg, dialer, blobs, logger), nil
}

// NewDispatcherWithDialer builds a dispatcher around an existing dialer.
func NewDispatcherWithDialer(cfg config.SMTPConfig, dialer SMTPDialer, blobs BlobOpener, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{cfg: cfg, dialer: dialer, blobs: blobs, logger: logger}
}

// SendTicketCreated composes and delivers the ticket summary in a single
// attempt. The SMTP session is closed on every return path.
func (d *Dispatcher) SendTicketCreated(ctx context.Context, ticket dto.TicketResponse, recipient string) (err error) {
	if strings.TrimSpace(recipient) == "" {
		return errors.New("notification recipient is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := d.compose(ctx, ticket, recipient)

	session, err := d.dialer.Dial()
	if err != nil {
		return fmt.Errorf("connect to smtp server: %w", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			if err == nil {
				err = fmt.Errorf("close smtp session: %w", closeErr)
			} else {
				d.logger.Debug("close smtp session", zap.Error(closeErr))
			}
		}
	}()

	if err := gomail.Send(session, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	d.logger.Info("ticket notification sent",
		zap.String("ticket_id", ticket.ID),
		zap.String("recipient", recipient),
		zap.Int("attachments", len(ticket.Attachments)))
	return nil
}

func (d *Dispatcher) compose(ctx context.Context, ticket dto.TicketResponse, recipient string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", d.cfg.SenderEmail, d.cfg.SenderName)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", Subject(ticket))
	m.SetBody("text/plain", ComposeBody(ticket))

	for _, att := range ticket.Attachments {
		data, err := d.readBlob(ctx, att.StorageReference)
		if err != nil {
			d.logger.Warn("skipping attachment in notification",
				zap.String("ticket_id", ticket.ID),
				zap.String("file_name", att.FileName),
				zap.String("storage_reference", att.StorageReference),
				zap.Error(err))
			continue
		}
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		}
		if att.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{"Content-Type": {att.ContentType}}))
		}
		m.Attach(att.FileName, settings...)
	}
	return m
}

func (d *Dispatcher) readBlob(ctx context.Context, reference string) ([]byte, error) {
	if d.blobs == nil {
		return nil, storage.ErrBlobNotFound
	}
	rc, err := d.blobs.Open(ctx, reference)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
