// Package notify sends customer emails. Delivery is always best effort: callers never see a send failure.
package notify

import (
	"context"
	"fmt"

	"motorent/internal/config"

	"github.com/gofiber/fiber/v2/log"
)

// LogoContentID is the Content-ID templates reference as cid:logo.png.
const LogoContentID = "logo.png"

type Message struct {
	To         string
	Subject    string
	HTML       string
	InlineLogo bool
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer picks the transport named by MAIL_PROVIDER.
func NewMailer(cfg *config.Config) (Mailer, error) {
	switch cfg.MailProvider {
	case "smtp":
		if cfg.SMTPUser == "" || cfg.SMTPPassword == "" {
			return nil, fmt.Errorf("smtp mail provider needs SMTP_USER and SMTP_PASSWORD")
		}
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom, cfg.LogoPath), nil
	case "graph":
		if cfg.GraphTenant == "" || cfg.GraphClient == "" || cfg.GraphSecret == "" {
			return nil, fmt.Errorf("graph mail provider needs GRAPH_TENANT_ID, GRAPH_CLIENT_ID and GRAPH_CLIENT_SECRET")
		}
		return NewGraphMailer(cfg.GraphTenant, cfg.GraphClient, cfg.GraphSecret, cfg.MailFrom, cfg.LogoPath), nil
	default:
		return LogMailer{}, nil
	}
}

// LogMailer is the development fallback: it only logs what would have been sent.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	log.Infof("[MAIL] to=%s subject=%q bytes=%d", msg.To, msg.Subject, len(msg.HTML))
	return nil
}
