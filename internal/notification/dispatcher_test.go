package notification

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/gomail.v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/storage"
)

type fakeSession struct {
	sendErr  error
	closed   int
	from     string
	to       []string
	raw      bytes.Buffer
	sendCall int
}

func (s *fakeSession) Send(from string, to []string, msg io.WriterTo) error {
	s.sendCall++
	if s.sendErr != nil {
		return s.sendErr
	}
	s.from = from
	s.to = to
	_, err := msg.WriteTo(&s.raw)
	return err
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

type fakeDialer struct {
	session *fakeSession
	err     error
	dials   int
}

func (d *fakeDialer) Dial() (gomail.SendCloser, error) {
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

type mapBlobs map[string][]byte

func (m mapBlobs) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	data, ok := m[ref]
	if !ok {
		return nil, storage.ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func testSMTPConfig() config.SMTPConfig {
	return config.SMTPConfig{
		Host:        "smtp.example.com",
		Port:        587,
		SenderEmail: "desk@example.com",
		SenderName:  "Support Desk",
	}
}

func sampleTicket() dto.TicketResponse {
	return dto.TicketResponse{
		ID:          "3f1c",
		Title:       "Printer jam",
		Description: "Paper stuck",
		Priority:    "High",
		Email:       "user@example.com",
		Attachments: []dto.AttachmentResponse{
			{ID: "a1", FileName: "jam.txt", FileSize: 5, ContentType: "text/plain", StorageReference: "ref-1"},
		},
	}
}

func TestSendTicketCreated_Success(t *testing.T) {
	session := &fakeSession{}
	dialer := &fakeDialer{session: session}
	d := NewDispatcherWithDialer(testSMTPConfig(), dialer, mapBlobs{"ref-1": []byte("hello")}, zap.NewNop())

	err := d.SendTicketCreated(context.Background(), sampleTicket(), "support@example.com")
	require.NoError(t, err)

	assert.Equal(t, 1, dialer.dials)
	assert.Equal(t, 1, session.closed)
	assert.Equal(t, "desk@example.com", session.from)
	assert.Equal(t, []string{"support@example.com"}, session.to)

	raw := session.raw.String()
	assert.Contains(t, raw, "Subject: New Ticket Created: Printer jam")
	assert.Contains(t, raw, `"Support Desk" <desk@example.com>`)
	assert.Contains(t, raw, `filename="jam.txt"`)
}

func TestSendTicketCreated_ClosesSessionWhenSendFails(t *testing.T) {
	session := &fakeSession{sendErr: errors.New("552 mailbox full")}
	d := NewDispatcherWithDialer(testSMTPConfig(), &fakeDialer{session: session}, mapBlobs{}, zap.NewNop())

	err := d.SendTicketCreated(context.Background(), sampleTicket(), "support@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mailbox full")
	assert.Equal(t, 1, session.closed)
}

func TestSendTicketCreated_DialFailure(t *testing.T) {
	d := NewDispatcherWithDialer(testSMTPConfig(), &fakeDialer{err: errors.New("connection refused")}, mapBlobs{}, zap.NewNop())

	err := d.SendTicketCreated(context.Background(), sampleTicket(), "support@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to smtp server")
}

func TestSendTicketCreated_SkipsMissingBlob(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	session := &fakeSession{}
	d := NewDispatcherWithDialer(testSMTPConfig(), &fakeDialer{session: session}, mapBlobs{}, zap.New(core))

	err := d.SendTicketCreated(context.Background(), sampleTicket(), "support@example.com")
	require.NoError(t, err)

	assert.Equal(t, 1, session.sendCall)
	assert.NotContains(t, session.raw.String(), `filename="jam.txt"`)
	require.Equal(t, 1, logs.FilterMessage("skipping attachment in notification").Len())
}

func TestSendTicketCreated_RequiresRecipient(t *testing.T) {
	dialer := &fakeDialer{session: &fakeSession{}}
	d := NewDispatcherWithDialer(testSMTPConfig(), dialer, nil, zap.NewNop())

	err := d.SendTicketCreated(context.Background(), sampleTicket(), " ")
	require.Error(t, err)
	assert.Zero(t, dialer.dials)
}

func TestNewDispatcher_RequiresHost(t *testing.T) {
	_, err := NewDispatcher(config.SMTPConfig{}, nil, zap.NewNop())
	require.Error(t, err)
}

func TestNewDispatcher_RefusesPlaintextWithoutCredentials(t *testing.T) {
	cfg := testSMTPConfig()
	_, err := NewDispatcher(cfg, nil, zap.NewNop())
	require.ErrorIs(t, err, ErrPlaintextSMTP)

	implicitTLS := cfg
	implicitTLS.Port = 465
	_, err = NewDispatcher(implicitTLS, nil, zap.NewNop())
	require.NoError(t, err)

	withAuth := cfg
	withAuth.Username = "desk"
	withAuth.Password = "secret"
	_, err = NewDispatcher(withAuth, nil, zap.NewNop())
	require.NoError(t, err)

	allowed := cfg
	allowed.AllowPlaintext = true
	_, err = NewDispatcher(allowed, nil, zap.NewNop())
	require.NoError(t, err)
}

// fakeSMTPServer accepts one session and records the DATA payload.
type fakeSMTPServer struct {
	ln   net.Listener
	mu   sync.Mutex
	data strings.Builder
	done chan struct{}
}

func startFakeSMTPServer(t *testing.T) *fakeSMTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeSMTPServer{ln: ln, done: make(chan struct{})}
	t.Cleanup(func() { _ = ln.Close() })
	go s.serve()
	return s
}

func (s *fakeSMTPServer) serve() {
	defer close(s.done)
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	write := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }
	write("220 fake ESMTP")
	inData := false
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		if inData {
			if line == ".\r\n" {
				inData = false
				write("250 OK queued")
				continue
			}
			s.mu.Lock()
			s.data.WriteString(line)
			s.mu.Unlock()
			continue
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"):
			write("250-fake")
			write("250 8BITMIME")
		case strings.HasPrefix(cmd, "HELO"), strings.HasPrefix(cmd, "MAIL FROM"),
			strings.HasPrefix(cmd, "RCPT TO"), strings.HasPrefix(cmd, "RSET"):
			write("250 OK")
		case cmd == "DATA":
			inData = true
			write("354 End data with <CR><LF>.<CR><LF>")
		case cmd == "QUIT":
			write("221 Bye")
			return
		default:
			write("250 OK")
		}
	}
}

func TestSendTicketCreated_OverSMTP(t *testing.T) {
	server := startFakeSMTPServer(t)
	addr := server.ln.Addr().(*net.TCPAddr)

	cfg := testSMTPConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = addr.Port
	cfg.AllowPlaintext = true
	d, err := NewDispatcher(cfg, mapBlobs{"ref-1": []byte("hello")}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, d.SendTicketCreated(context.Background(), sampleTicket(), "support@example.com"))
	<-server.done

	server.mu.Lock()
	defer server.mu.Unlock()
	assert.Contains(t, server.data.String(), "Subject: New Ticket Created: Printer jam")
}

func TestSendTicketCreated_UnreachableServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	cfg := testSMTPConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = port
	cfg.AllowPlaintext = true
	d, err := NewDispatcher(cfg, nil, zap.NewNop())
	require.NoError(t, err)

	err = d.SendTicketCreated(context.Background(), sampleTicket(), "support@example.com")
	require.Error(t, err)
}
