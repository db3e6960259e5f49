// Package email delivers notification emails over SMTP.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"gopkg.in/gomail.v2"
)

// Config holds the SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type Sender struct {
	cfg    Config
	dialer *gomail.Dialer
}

func NewSender(cfg Config) *Sender {
	return &Sender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Send delivers one HTML email to a single address.
func (s *Sender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("email: empty recipient")
	}

	m := gomail.NewMessage()
	if s.cfg.FromName != "" {
		m.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	} else {
		m.SetHeader("From", s.cfg.From)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("email: send to %s: %w", to, err)
	}
	return nil
}

var layout = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html dir="auto">
<body style="font-family: Arial, sans-serif; background: #f5f5f5; padding: 24px;">
  <div style="max-width: 560px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 24px;">
    <h2 style="margin-top: 0;">{{.Title}}</h2>
    <p style="white-space: pre-line;">{{.Message}}</p>
    {{- if .Link}}
    <p><a href="{{.Link}}" style="color: #1a73e8;">{{.LinkText}}</a></p>
    {{- end}}
  </div>
</body>
</html>
`))

// Content is the data rendered into the notification layout.
type Content struct {
	Title    string
	Message  string
	Link     string
	LinkText string
}

// Render produces the HTML body for c. Fields are escaped.
func Render(c Content) (string, error) {
	if c.Link != "" && c.LinkText == "" {
		c.LinkText = "Open"
	}

	var buf bytes.Buffer
	if err := layout.Execute(&buf, c); err != nil {
		return "", fmt.Errorf("email: render: %w", err)
	}
	return buf.String(), nil
}
