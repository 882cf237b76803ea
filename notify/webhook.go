package notify

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"taxdeed-scraper/models"
)

// WebhookNotifier POSTs the report as JSON to a configured endpoint, for
// chat-channel bridges and downstream automation.
type WebhookNotifier struct {
	url    string
	client *resty.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: resty.New().SetTimeout(15 * time.Second),
	}
}

func (n *WebhookNotifier) Name() string { return "webhook" }

type webhookPayload struct {
	Subject   string               `json:"subject"`
	Body      string               `json:"body"`
	Summaries []*models.RunSummary `json:"summaries,omitempty"`
	SentAt    time.Time            `json:"sent_at"`
}

func (n *WebhookNotifier) Notify(subject, body string, summaries []*models.RunSummary) error {
	res, err := n.client.R().
		SetHeader("content-type", "application/json").
		SetBody(webhookPayload{
			Subject:   subject,
			Body:      body,
			Summaries: summaries,
			SentAt:    time.Now(),
		}).
		Post(n.url)
	if err != nil {
		return err
	}
	if res.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned %s", res.Status())
	}
	return nil
}
