// Package notify delivers transactional email.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

type Message struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

func (m Message) validate() error {
	if m.From == "" {
		return errors.New("from address is empty")
	}
	if m.To == "" {
		return errors.New("to address is empty")
	}
	return nil
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

const senderName = "Kampung Cuisine"

type sendFunc func(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)

// SendGridSender delivers through the SendGrid v3 API.
type SendGridSender struct {
	send   sendFunc
	logger *zap.Logger
}

func NewSendGridSender(apiKey string, logger *zap.Logger) (*SendGridSender, error) {
	if apiKey == "" {
		return nil, errors.New("sendgrid api key is empty")
	}
	client := sendgrid.NewSendClient(apiKey)
	return &SendGridSender{send: client.SendWithContext, logger: logger.Named("sendgrid")}, nil
}

func (s *SendGridSender) Send(ctx context.Context, m Message) error {
	if err := m.validate(); err != nil {
		return err
	}

	body := m.HTML
	if body == "" {
		body = "<pre>" + html.EscapeString(m.Text) + "</pre>"
	}
	email := mail.NewSingleEmail(mail.NewEmail(senderName, m.From), m.Subject, mail.NewEmail("", m.To), m.Text, body)
	if m.ReplyTo != "" {
		email.SetReplyTo(mail.NewEmail("", m.ReplyTo))
	}

	resp, err := s.send(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", resp.StatusCode, resp.Body)
	}

	s.logger.Info("mail sent",
		zap.Int("status", resp.StatusCode),
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
	)
	return nil
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("mail")}
}

func (s *LogSender) Send(_ context.Context, m Message) error {
	if err := m.validate(); err != nil {
		return err
	}
	s.logger.Info("mail not sent, no provider configured",
		zap.String("from", m.From),
		zap.String("to", m.To),
		zap.String("reply_to", m.ReplyTo),
		zap.String("subject", m.Subject),
		zap.String("body", m.Text),
	)
	return nil
}
