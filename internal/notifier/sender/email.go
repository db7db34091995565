package sender

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"medremind/internal/entity"
	"medremind/internal/notifier"
)

type EmailSender struct {
	dialer   *gomail.Dialer
	from     string
	contacts ContactSource
	log      *zap.SugaredLogger
}

func NewEmailSender(host string, port int, username, password, from string, contacts ContactSource, log *zap.SugaredLogger) *EmailSender {
	return &EmailSender{
		dialer:   gomail.NewDialer(host, port, username, password),
		from:     from,
		contacts: contacts,
		log:      log.With("sender", "email"),
	}
}

func (s *EmailSender) Send(ctx context.Context, event entity.NotificationEvent) error {
	contact, err := s.contacts.Get(ctx, event.OwnerID)
	if err != nil {
		if errors.Is(err, entity.ErrContactNotFound) {
			return fmt.Errorf("no email for owner: %w", notifier.ErrNoRecipient)
		}
		return fmt.Errorf("resolve contact: %w", err)
	}
	if contact.Email == "" {
		return fmt.Errorf("no email for owner: %w", notifier.ErrNoRecipient)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", contact.Email)
	msg.SetHeader("Subject", event.Title)
	msg.SetBody("text/plain", event.Message)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	s.log.Infow("email sent",
		"reminder_id", event.ReminderID,
		"to", contact.Email,
	)
	return nil
}
