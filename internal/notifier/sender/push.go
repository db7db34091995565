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

// PushSender posts notifications to the push provider keyed by the owner's
// device token.
type PushSender struct {
	client   *http.Client
	apiURL   string
	apiKey   string
	contacts ContactSource
	log      *zap.SugaredLogger
}

type pushRequest struct {
	Token    string            `json:"token"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Priority string            `json:"priority"`
	Data     map[string]string `json:"data,omitempty"`
}

func NewPushSender(client *http.Client, apiURL, apiKey string, contacts ContactSource, log *zap.SugaredLogger) *PushSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &PushSender{
		client:   client,
		apiURL:   apiURL,
		apiKey:   apiKey,
		contacts: contacts,
		log:      log.With("sender", "push"),
	}
}

func (s *PushSender) Send(ctx context.Context, event entity.NotificationEvent) error {
	contact, err := s.contacts.Get(ctx, event.OwnerID)
	if err != nil {
		if errors.Is(err, entity.ErrContactNotFound) {
			return fmt.Errorf("no push token for owner: %w", notifier.ErrNoRecipient)
		}
		return fmt.Errorf("resolve contact: %w", err)
	}
	if contact.PushToken == "" {
		return fmt.Errorf("no push token for owner: %w", notifier.ErrNoRecipient)
	}

	body, err := json.Marshal(pushRequest{
		Token:    contact.PushToken,
		Title:    event.Title,
		Body:     event.Message,
		Priority: string(event.Priority),
		Data:     event.Metadata,
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
		return fmt.Errorf("call push provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("push provider returned %s", resp.Status)
	}

	s.log.Infow("push sent",
		"reminder_id", event.ReminderID,
		"owner_id", event.OwnerID,
	)
	return nil
}
