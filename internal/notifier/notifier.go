// Package notifier fans a due reminder out to its configured channels and
// collects a per-channel outcome.
package notifier

import (
	"context"
	"errors"
	"strings"

	"medremind/internal/entity"
)

// ErrNoRecipient is returned by a sender when the owner has no reachable
// address for its channel. It yields a Skipped outcome, not a Failed one.
var ErrNoRecipient = errors.New("no recipient address on file")

type Status string

const (
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

type Result struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Sender is one pluggable channel capability. Implementations must respect
// the context deadline where their transport allows it.
type Sender interface {
	Send(ctx context.Context, event entity.NotificationEvent) error
}

// Tally counts outcomes by status.
func Tally(results map[entity.Channel]Result) (sent, failed, skipped int) {
	for _, res := range results {
		switch res.Status {
		case StatusSent:
			sent++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return sent, failed, skipped
}

// FailureReasons joins the per-channel failure reasons for logging and
// dead-letter records.
func FailureReasons(results map[entity.Channel]Result) string {
	var parts []string
	for ch, res := range results {
		if res.Status == StatusFailed {
			parts = append(parts, string(ch)+": "+res.Reason)
		}
	}
	return strings.Join(parts, "; ")
}
