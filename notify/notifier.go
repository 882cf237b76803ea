// Package notify delivers run reports to operators. Delivery trouble is
// logged and swallowed: a scrape run never fails because a notification
// could not go out.
package notify

import (
	"errors"
	"fmt"

	"taxdeed-scraper/config"
	"taxdeed-scraper/models"
	"taxdeed-scraper/utils"
)

// Notifier delivers one run report to a single sink.
type Notifier interface {
	Notify(subject, body string, summaries []*models.RunSummary) error
	Name() string
}

// Multi fans a report out to every configured sink.
type Multi struct {
	sinks  []Notifier
	logger *utils.Logger
}

// NewFromConfig assembles the sinks the configuration enables. No sinks
// configured is fine; Send becomes a no-op.
func NewFromConfig(cfg *config.Config, logger *utils.Logger) *Multi {
	var sinks []Notifier
	if cfg.SMTPHost != "" && cfg.MailTo != "" {
		sinks = append(sinks, NewEmailNotifier(cfg))
	}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, NewWebhookNotifier(cfg.WebhookURL))
	}
	if len(sinks) == 0 {
		logger.Info("[notify] no notification sinks configured")
	}
	return &Multi{sinks: sinks, logger: logger}
}

// Send delivers the report to every sink, collecting failures instead of
// stopping at the first. Failures are logged, never propagated.
func (m *Multi) Send(subject, body string, summaries []*models.RunSummary) {
	if len(m.sinks) == 0 {
		return
	}

	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Notify(subject, body, summaries); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		m.logger.Warn("[notify] delivery failed: %v", err)
		return
	}
	m.logger.Info("[notify] report delivered to %d sink(s)", len(m.sinks))
}
