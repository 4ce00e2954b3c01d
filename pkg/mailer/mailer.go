package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"

	pkglogger "github.com/communityweb/strtracker/pkg/logger"
	"gopkg.in/mail.v2"
)

// ErrNoRecipient is returned for a message without a To address
var ErrNoRecipient = errors.New("mailer: message has no recipient")

// Attachment is an in-memory file carried by a message
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one plain-text email
type Message struct {
	To          []string
	Cc          []string
	ReplyTo     string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Sender delivers messages
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// Config holds SMTP settings
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromName    string
	FromAddress string
}

// SMTPSender sends through an SMTP relay
type SMTPSender struct {
	dialer *mail.Dialer
	from   string
}

// NewSMTPSender creates a sender for the configured relay
func NewSMTPSender(cfg Config) *SMTPSender {
	from := cfg.FromAddress
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress)
	}
	return &SMTPSender{
		dialer: mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   from,
	}
}

// Send dials the relay and delivers one message
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	m, err := Build(s.from, msg)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// Build assembles the MIME message
func Build(from string, msg *Message) (*mail.Message, error) {
	if len(msg.To) == 0 {
		return nil, ErrNoRecipient
	}

	m := mail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To...)
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", msg.Cc...)
	}
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	for _, a := range msg.Attachments {
		data := a.Data
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		m.Attach(a.Filename,
			mail.SetHeader(map[string][]string{"Content-Type": {contentType}}),
			mail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		)
	}
	return m, nil
}

// LogSender only logs messages; used when mail is disabled
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipient
	}
	pkglogger.GetLogger().Info().
		Strs("to", msg.To).
		Strs("cc", msg.Cc).
		Str("subject", msg.Subject).
		Int("attachments", len(msg.Attachments)).
		Msg("mail disabled, message not sent")
	return nil
}
