package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"medremind/internal/entity"
)

// ContactRepository stores the per-owner delivery addresses the dispatcher
// consults for reachability.
type ContactRepository struct {
	rdb *redis.Client
}

func NewContactRepository(rdb *redis.Client) *ContactRepository {
	return &ContactRepository{rdb: rdb}
}

func (c *ContactRepository) Get(ctx context.Context, ownerID uuid.UUID) (*entity.OwnerContact, error) {
	const op = "repository.ContactRepository.Get"

	raw, err := c.rdb.Get(ctx, contactKey(ownerID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrContactNotFound)
		}
		return nil, fmt.Errorf("%s: get: %w", op, err)
	}

	var contact entity.OwnerContact
	if err := json.Unmarshal([]byte(raw), &contact); err != nil {
		return nil, fmt.Errorf("%s: unmarshal: %w", op, err)
	}
	return &contact, nil
}

func (c *ContactRepository) Set(ctx context.Context, contact *entity.OwnerContact) error {
	const op = "repository.ContactRepository.Set"

	payload, err := json.Marshal(contact)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	if err := c.rdb.Set(ctx, contactKey(contact.OwnerID), payload, 0).Err(); err != nil {
		return fmt.Errorf("%s: set: %w", op, err)
	}
	return nil
}
