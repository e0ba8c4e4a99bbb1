package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/nutripanel/nutripanel-api/internal/config"
)

// SendResult is the gateway's confirmation of a successful send.
type SendResult struct {
	MessageID string
}

// EmailGateway delivers a single message. Implementations must only return a
// nil error after the message has actually been accepted; the dispatcher
// treats a nil error as the commit signal for the delivered flag.
type EmailGateway interface {
	Send(ctx context.Context, to, subject, htmlBody string) (SendResult, error)
}

// SMTPGateway sends mail through a plain SMTP server.
type SMTPGateway struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPGateway(cfg config.EmailConfig) (*SMTPGateway, error) {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil, fmt.Errorf("smtp_host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("email from address is required")
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}

	return &SMTPGateway{
		host:     cfg.SMTPHost,
		port:     port,
		username: strings.TrimSpace(cfg.Username),
		password: cfg.Password,
		from:     cfg.From,
	}, nil
}

func (g *SMTPGateway) Send(ctx context.Context, to, subject, htmlBody string) (SendResult, error) {
	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n",
		g.from, to, subject)
	message := []byte(headers + htmlBody)
	addr := fmt.Sprintf("%s:%d", g.host, g.port)

	var auth smtp.Auth
	if g.username != "" {
		auth = smtp.PlainAuth("", g.username, g.password, g.host)
	}

	// net/smtp has no context support; run the send aside and treat a
	// cancelled context as failure so the record stays pending.
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, g.from, []string{to}, message)
	}()

	select {
	case <-ctx.Done():
		return SendResult{}, ctx.Err()
	case err := <-done:
		if err != nil {
			return SendResult{}, err
		}
		return SendResult{MessageID: fmt.Sprintf("smtp-%s", addr)}, nil
	}
}

func (g *SMTPGateway) String() string {
	return "SMTPGateway"
}
