// Package sender holds the channel sender implementations wired into the
// dispatcher.
package sender

import (
	"context"

	"github.com/google/uuid"

	"medremind/internal/entity"
)

// ContactSource resolves an owner's delivery addresses.
type ContactSource interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*entity.OwnerContact, error)
}
