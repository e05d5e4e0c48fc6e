// Package contact forwards storefront contact-form submissions to the shop's inbox.
package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/notify"
	"go.uber.org/zap"
)

// ErrDelivery is returned when the message was valid but could not be sent.
var ErrDelivery = errors.New("contact message could not be delivered")

type Service struct {
	sender    notify.Sender
	from      string
	recipient string
	logger    *zap.Logger
}

func NewService(sender notify.Sender, from, recipient string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{sender: sender, from: from, recipient: recipient, logger: logger.Named("contact")}
}

func (s *Service) Submit(ctx context.Context, req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	if err := s.sender.Send(ctx, Compose(req, s.from, s.recipient)); err != nil {
		s.logger.Error("send contact message",
			zap.String("subject", string(req.Subject)),
			zap.String("recipient", s.recipient),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	s.logger.Info("contact message sent", zap.String("subject", string(req.Subject)))
	return nil
}

// Compose builds the inbox message for a validated request. Replies go to the customer.
func Compose(req Request, from, recipient string) notify.Message {
	label := req.Subject.Label()

	var b strings.Builder
	b.WriteString("New contact form submission from Kampung Cuisine website:\n\n")
	b.WriteString("Contact Information:\n")
	fmt.Fprintf(&b, "- Name: %s\n", req.Name)
	fmt.Fprintf(&b, "- Email: %s\n", req.Email)
	if req.Phone != "" {
		fmt.Fprintf(&b, "- Phone: %s\n", req.Phone)
	}
	fmt.Fprintf(&b, "- Subject: %s\n\n", label)
	b.WriteString("Message:\n")
	b.WriteString(req.Message)
	b.WriteString("\n\n---\n")
	b.WriteString("This message was sent from the Kampung Cuisine contact form.\n")
	b.WriteString("Reply directly to this email to respond to the customer.")

	return notify.Message{
		From:    from,
		To:      recipient,
		ReplyTo: req.Email,
		Subject: fmt.Sprintf("Contact Form: %s - %s", label, req.Name),
		Text:    strings.TrimSpace(b.String()),
	}
}
