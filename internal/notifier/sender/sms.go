package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"medremind/internal/entity"
	"medremind/internal/notifier"
)

// SMSSender posts messages to the SMS gateway's JSON webhook.
type SMSSender struct {
	client   *http.Client
	apiURL   string
	apiKey   string
	from     string
	contacts ContactSource
	log      *zap.SugaredLogger
}

func NewSMSSender(client *http.Client, apiURL, apiKey, from string, contacts ContactSource, log *zap.SugaredLogger) *SMSSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &SMSSender{
		client:   client,
		apiURL:   apiURL,
		apiKey:   apiKey,
		from:     from,
		contacts: contacts,
		log:      log.With("sender", "sms"),
	}
}

func (s *SMSSender) Send(ctx context.Context, event entity.NotificationEvent) error {
	contact, err := s.contacts.Get(ctx, event.OwnerID)
	if err != nil {
		if errors.Is(err, entity.ErrContactNotFound) {
			return fmt.Errorf("no phone for owner: %w", notifier.ErrNoRecipient)
		}
		return fmt.Errorf("resolve contact: %w", err)
	}
	if contact.Phone == "" {
		return fmt.Errorf("no phone for owner: %w", notifier.ErrNoRecipient)
	}

	body, err := json.Marshal(map[string]string{
		"from": s.from,
		"to":   contact.Phone,
		"body": event.Title + ": " + event.Message,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("call sms gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sms gateway returned %s", resp.Status)
	}

	s.log.Infow("sms sent",
		"reminder_id", event.ReminderID,
		"to", contact.Phone,
	)
	return nil
}
