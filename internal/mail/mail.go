// Package mail renders the account emails and hands them to a delivery
// transport (SES, SMTP, or the log in development).
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/BradenHooton/gamegate/pkg/logger"
)

// Message is a rendered email ready for delivery.
type Message struct {
	From     string
	FromName string
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Transport delivers a rendered message.
type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}

// Dispatcher renders a named template and delivers the result.
type Dispatcher struct {
	renderer  *Renderer
	transport Transport
	from      string
	fromName  string
	logger    *slog.Logger
}

func NewDispatcher(renderer *Renderer, transport Transport, from, fromName string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		renderer:  renderer,
		transport: transport,
		from:      from,
		fromName:  fromName,
		logger:    logger,
	}
}

// Send renders templateKey with data and delivers it to a single recipient.
func (d *Dispatcher) Send(ctx context.Context, to, subject, templateKey string, data map[string]any) error {
	if _, err := mail.ParseAddress(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}

	html, text, err := d.renderer.Render(templateKey, data)
	if err != nil {
		return err
	}

	msg := Message{
		From:     d.from,
		FromName: d.fromName,
		To:       to,
		Subject:  subject,
		HTMLBody: html,
		TextBody: text,
	}

	if err := d.transport.Deliver(ctx, msg); err != nil {
		d.logger.Error("email delivery failed",
			slog.String("to", logger.SanitizedEmail(to)),
			slog.String("template", templateKey),
			slog.Any("error", err))
		return fmt.Errorf("deliver %s email: %w", templateKey, err)
	}

	d.logger.Info("email sent",
		slog.String("to", logger.SanitizedEmail(to)),
		slog.String("template", templateKey))
	return nil
}
