package push

import (
	"alcyxob/fitcoach/internal/domain"
	"context"
	"fmt"
	"html"

	"github.com/resend/resend-go/v2"
)

type emailClient interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// EmailSender sends push messages through the Resend API.
type EmailSender struct {
	client emailClient
	from   string
}

func NewEmailSender(apiKey, from string) *EmailSender {
	return &EmailSender{client: resend.NewClient(apiKey).Emails, from: from}
}

func (s *EmailSender) Name() string { return "email" }

func (s *EmailSender) Send(ctx context.Context, to *domain.User, msg Message) error {
	if to.Email == "" {
		return ErrNoAddress
	}
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to.Email},
		Subject: msg.Title,
		Html:    renderHTML(to.Name, msg),
	}
	if _, err := s.client.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}
	return nil
}

func renderHTML(name string, msg Message) string {
	body := fmt.Sprintf("<p>Hi %s,</p><p>%s</p>", html.EscapeString(name), html.EscapeString(msg.Body))
	if msg.Link != "" {
		body += fmt.Sprintf(`<p><a href="%s">Open</a></p>`, html.EscapeString(msg.Link))
	}
	return body
}
