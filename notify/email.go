package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"taxdeed-scraper/config"
	"taxdeed-scraper/models"
)

// EmailNotifier sends the plain-text report over SMTP.
type EmailNotifier struct {
	host string
	port string
	user string
	pass string
	from string
	to   []string
}

func NewEmailNotifier(cfg *config.Config) *EmailNotifier {
	return &EmailNotifier{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		from: cfg.MailFrom,
		to:   splitAddresses(cfg.MailTo),
	}
}

func (n *EmailNotifier) Name() string { return "email" }

func (n *EmailNotifier) Notify(subject, body string, _ []*models.RunSummary) error {
	mail := email.NewEmail()
	mail.From = n.from
	mail.To = n.to
	mail.Subject = subject
	mail.Text = []byte(body)

	var auth smtp.Auth
	if n.user != "" {
		auth = smtp.PlainAuth("", n.user, n.pass, n.host)
	}
	return mail.Send(fmt.Sprintf("%s:%s", n.host, n.port), auth)
}

func splitAddresses(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
