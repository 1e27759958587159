package notify

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/gomail.v2"
)

// SMTPMailer covers Gmail and Office365 (smtp.office365.com:587) alike.
type SMTPMailer struct {
	dialer   *gomail.Dialer
	from     string
	logoPath string
	send     func(...*gomail.Message) error
}

func NewSMTPMailer(host string, port int, user, password, from, logoPath string) *SMTPMailer {
	d := gomail.NewDialer(host, port, user, password)
	return &SMTPMailer{
		dialer:   d,
		from:     from,
		logoPath: logoPath,
		send:     d.DialAndSend,
	}
}

func (m *SMTPMailer) message(msg Message) *gomail.Message {
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTML)

	if msg.InlineLogo && m.logoPath != "" {
		if _, err := os.Stat(m.logoPath); err == nil {
			gm.Embed(m.logoPath, gomail.Rename(LogoContentID))
		}
	}
	return gm
}

// Send returns when the relay answers or ctx ends, whichever comes first. gomail has no context
// support, so an abandoned session finishes in the background.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	gm := m.message(msg)
	done := make(chan error, 1)
	go func() { done <- m.send(gm) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("smtp send to %s: %w", msg.To, ctx.Err())
	}
}
