// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package newsletter

import (
	"context"
	"log/slog"

	"codeberg.org/oliverandrich/go-newsletter/internal/domain"
	"codeberg.org/oliverandrich/go-newsletter/internal/errchain"
	"codeberg.org/oliverandrich/go-newsletter/internal/metrics"
)

// Issue is one newsletter edition.
type Issue struct {
	Title string `form:"title" validate:"required"`
	HTML  string `form:"html" validate:"required"`
	Text  string `form:"text" validate:"required"`
}

// Mailer sends a message with an HTML and a plain text body.
type Mailer interface {
	Send(ctx context.Context, to domain.SubscriberEmail, subject, html, text string) error
}

// Publisher delivers issues to every confirmed subscriber.
type Publisher struct {
	source  *Source
	mailer  Mailer
	metrics *metrics.Metrics
}

func NewPublisher(source *Source, mailer Mailer, m *metrics.Metrics) *Publisher {
	return &Publisher{source: source, mailer: mailer, metrics: m}
}

// Publish sends issue to the confirmed subscribers one at a time, in the
// order the source returns them. Subscribers with invalid stored emails are
// logged and skipped. The first transport failure aborts the run; messages
// already sent stay sent.
func (p *Publisher) Publish(ctx context.Context, issue Issue) error {
	err := p.publish(ctx, issue)
	if err != nil {
		p.metrics.IncPublish("failed")
		return err
	}
	p.metrics.IncPublish("success")
	return nil
}

func (p *Publisher) publish(ctx context.Context, issue Issue) error {
	recipients, err := p.source.LoadConfirmed(ctx)
	if err != nil {
		return errchain.Wrap(err, "failed to load confirmed subscribers")
	}

	var delivered, skipped int
	for _, r := range recipients {
		if r.Err != nil {
			skipped++
			p.metrics.IncSkipped()
			slog.WarnContext(ctx, "Skipping a confirmed subscriber. Their stored contact details are invalid",
				errchain.Attr(r.Err))
			continue
		}

		to := r.Subscriber.Email
		if err := p.mailer.Send(ctx, to, issue.Title, issue.HTML, issue.Text); err != nil {
			return errchain.Wrapf(err, "failed to send newsletter issue to %s", to)
		}
		delivered++
		p.metrics.IncDelivered()
	}

	slog.InfoContext(ctx, "newsletter_published",
		"title", issue.Title,
		"delivered", delivered,
		"skipped", skipped,
	)
	return nil
}
