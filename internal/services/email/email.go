// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email delivers outbound mail through SMTP, Amazon SES or the log.
package email

import (
	"context"
	"fmt"

	"codeberg.org/oliverandrich/go-newsletter/internal/config"
	"codeberg.org/oliverandrich/go-newsletter/internal/domain"
)

// Sender delivers a single message with an HTML and a plain text part.
type Sender interface {
	Send(ctx context.Context, to domain.SubscriberEmail, subject, html, text string) error
}

// New builds the transport selected by cfg.Transport.
func New(ctx context.Context, cfg *config.MailConfig) (Sender, error) {
	switch cfg.Transport {
	case config.MailTransportSMTP:
		return NewSMTPSender(cfg)
	case config.MailTransportSES:
		return NewSESSender(ctx, cfg)
	case config.MailTransportLog, "":
		return NewLogSender(nil), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
	}
}

// fromAddress renders the configured sender as an RFC 5322 address.
func fromAddress(cfg *config.MailConfig) string {
	if cfg.FromName == "" {
		return cfg.From
	}
	return fmt.Sprintf("%q <%s>", cfg.FromName, cfg.From)
}
