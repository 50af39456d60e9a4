// Package mailer sends tables as an xlsx attachment over SMTP.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/JonMunkholm/sheetflow/internal/core"
	"github.com/JonMunkholm/sheetflow/internal/workbook"
)

// Defaults for the relay and attachment.
const (
	DefaultHost           = "smtp.gmail.com"
	DefaultPort           = 587
	DefaultAttachmentName = "tables.xlsx"
)

// ErrIncompleteRequest is returned when a required form field is empty.
var ErrIncompleteRequest = errors.New("incomplete email request")

// Sender delivers built messages. *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Config configures the SMTP relay.
type Config struct {
	Host           string
	Port           int
	AttachmentName string
}

// Mailer is the default core.EmailSender. The sender credentials come with
// every request, so a client is created per send.
type Mailer struct {
	cfg  Config
	dial func(req core.EmailRequest) (Sender, error)
}

// New creates a mailer, filling unset fields with the defaults.
func New(cfg Config) *Mailer {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.AttachmentName == "" {
		cfg.AttachmentName = DefaultAttachmentName
	}
	m := &Mailer{cfg: cfg}
	m.dial = m.newClient
	return m
}

// newClient connects with mandatory STARTTLS and PLAIN auth.
func (m *Mailer) newClient(req core.EmailRequest) (Sender, error) {
	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(strings.TrimSpace(req.From)),
		mail.WithPassword(req.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("create SMTP client: %w", err)
	}
	return client, nil
}

// Send implements core.EmailSender. Every table in tables becomes one sheet
// of the attachment.
func (m *Mailer) Send(ctx context.Context, req core.EmailRequest, tables *core.TableSet) error {
	if missing := req.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteRequest, strings.Join(missing, ", "))
	}

	msg, err := m.Build(req, tables)
	if err != nil {
		return err
	}

	client, err := m.dial(req)
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	slog.Info("email delivered",
		"host", m.cfg.Host,
		"to", req.To,
		"sheets", tables.Len(),
	)
	return nil
}

// Build assembles the message with the workbook attached.
func (m *Mailer) Build(req core.EmailRequest, tables *core.TableSet) (*mail.Msg, error) {
	data, err := workbook.Bytes(tables)
	if err != nil {
		return nil, fmt.Errorf("build attachment: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(strings.TrimSpace(req.From)); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(strings.TrimSpace(req.To)); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(req.Subject)
	msg.SetBodyString(mail.TypeTextPlain, req.Body)

	if err := msg.AttachReader(m.cfg.AttachmentName, bytes.NewReader(data),
		mail.WithFileContentType(mail.ContentType(workbook.ContentType)),
	); err != nil {
		return nil, fmt.Errorf("attach workbook: %w", err)
	}
	return msg, nil
}
