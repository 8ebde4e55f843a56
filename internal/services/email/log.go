// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"log/slog"

	"codeberg.org/oliverandrich/go-newsletter/internal/domain"
)

// LogSender writes messages to the structured log instead of sending them.
// It is the development default.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a LogSender writing to logger, or to slog.Default()
// when logger is nil.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, to domain.SubscriberEmail, subject, _, text string) error {
	logger := s.logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.InfoContext(ctx, "email_logged",
		"to", to.String(),
		"subject", subject,
		"body", text,
	)
	return nil
}
