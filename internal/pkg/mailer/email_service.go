package mailer

import (
	"context"
	"fmt"
	"html"
	"strings"

	"notification-hub-be/internal/model"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

// RecipientResolver maps a user id to an email address. Account data lives
// outside this service, so the address lookup is injected.
type RecipientResolver func(ctx context.Context, userID uuid.UUID) (string, error)

type IEmailService interface {
	SendNotification(ctx context.Context, userID uuid.UUID, notification model.Notification) error
	SendDigest(ctx context.Context, userID uuid.UUID, notifications []model.Notification) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	resolve     RecipientResolver
}

func NewEmailService(host string, port int, username, password, senderEmail string, resolve RecipientResolver) IEmailService {
	return &emailService{
		dialer:      gomail.NewDialer(host, port, username, password),
		senderEmail: senderEmail,
		resolve:     resolve,
	}
}

func (s *emailService) SendNotification(ctx context.Context, userID uuid.UUID, notification model.Notification) error {
	to, err := s.resolve(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("New %s notification", notification.Type))
	m.SetBody("text/html", notificationBody(notification))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send notification email: %w", err)
	}
	return nil
}

// SendDigest combines the accumulated notifications into one transmission.
func (s *emailService) SendDigest(ctx context.Context, userID uuid.UUID, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	to, err := s.resolve(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("Your notification digest (%d new)", len(notifications)))
	m.SetBody("text/html", digestBody(notifications))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send digest email: %w", err)
	}
	return nil
}

// Notification content arrives from upstream events, so everything rendered
// into the HTML bodies is escaped.

func notificationBody(notification model.Notification) string {
	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<p>%s</p>%s
		</div>
	`, html.EscapeString(notification.Message), linkFragment(notification.Link))
}

func digestBody(notifications []model.Notification) string {
	var items strings.Builder
	for _, n := range notifications {
		items.WriteString(fmt.Sprintf(
			`<li style="margin-bottom: 8px;"><strong>%s</strong>: %s%s</li>`,
			html.EscapeString(n.Type), html.EscapeString(n.Message), linkFragment(n.Link),
		))
	}
	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>While you were away</h2>
			<ul style="list-style: none; padding: 0;">%s</ul>
		</div>
	`, items.String())
}

func linkFragment(link *string) string {
	if link == nil || *link == "" {
		return ""
	}
	return fmt.Sprintf(` <a href="%s">View</a>`, html.EscapeString(*link))
}
