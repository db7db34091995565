package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"medremind/internal/entity"
)

// ListFilter narrows ListByOwner results. Nil fields match everything.
type ListFilter struct {
	Type     *entity.ReminderType
	IsActive *bool
	From     *time.Time
	To       *time.Time
}

// Page is one slice of an owner's reminder list, ordered by scheduled time.
// Limit and Offset echo the effective pagination window after clamping.
type Page struct {
	Items   []entity.Reminder
	Total   int
	Limit   int
	Offset  int
	HasMore bool
}

type ReminderRepository struct {
	rdb *redis.Client
}

func NewReminderRepository(rdb *redis.Client) *ReminderRepository {
	return &ReminderRepository{rdb: rdb}
}

// Create persists the reminder document, its membership sets and, when the
// reminder is active, its schedule index entry in one MULTI/EXEC pipeline, so
// a concurrent scheduler poll never sees a half-written reminder.
func (r *ReminderRepository) Create(ctx context.Context, rem *entity.Reminder) error {
	const op = "repository.ReminderRepository.Create"

	rem.Schema = entity.SchemaVersion
	doc, err := json.Marshal(rem)
	if err != nil {
		return fmt.Errorf("%s: marshal document: %w", op, err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, reminderKey(rem.ID), doc, 0)
		pipe.SAdd(ctx, ownerKey(rem.OwnerID), rem.ID.String())
		pipe.SAdd(ctx, typeKey(rem.Type), rem.ID.String())
		if rem.IsActive {
			pipe.SAdd(ctx, _activeKey, rem.ID.String())
			pipe.ZAdd(ctx, _scheduleKey, &redis.Z{
				Score:  float64(rem.ScheduledTime.UnixMilli()),
				Member: rem.ID.String(),
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: exec pipeline: %w", op, err)
	}

	return nil
}

func (r *ReminderRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Reminder, error) {
	const op = "repository.ReminderRepository.Get"

	doc, err := r.rdb.Get(ctx, reminderKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrReminderNotFound)
		}
		return nil, fmt.Errorf("%s: get document: %w", op, err)
	}

	rem, err := decodeReminder([]byte(doc))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rem, nil
}

// Update rewrites the full document and reconciles every index the reminder
// participates in. An active reminder keeps exactly one schedule entry at its
// current scheduled time; an inactive one keeps none. This runs as a single
// pipeline: there is no window where the document and the index disagree.
func (r *ReminderRepository) Update(ctx context.Context, rem *entity.Reminder) error {
	const op = "repository.ReminderRepository.Update"

	exists, err := r.rdb.Exists(ctx, reminderKey(rem.ID)).Result()
	if err != nil {
		return fmt.Errorf("%s: exists: %w", op, err)
	}
	if exists == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrReminderNotFound)
	}

	rem.Schema = entity.SchemaVersion
	doc, err := json.Marshal(rem)
	if err != nil {
		return fmt.Errorf("%s: marshal document: %w", op, err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, reminderKey(rem.ID), doc, 0)
		if rem.IsActive {
			pipe.SAdd(ctx, _activeKey, rem.ID.String())
			// ZADD on an existing member moves its score, so a
			// scheduled-time change never leaves a stale entry.
			pipe.ZAdd(ctx, _scheduleKey, &redis.Z{
				Score:  float64(rem.ScheduledTime.UnixMilli()),
				Member: rem.ID.String(),
			})
		} else {
			pipe.SRem(ctx, _activeKey, rem.ID.String())
			pipe.ZRem(ctx, _scheduleKey, rem.ID.String())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: exec pipeline: %w", op, err)
	}

	return nil
}

// Delete removes the document, its schedule entry, its retry counter and all
// membership sets in one pipeline, so a concurrent poll either pops the id
// before any of it is gone or sees none of it.
func (r *ReminderRepository) Delete(ctx context.Context, rem *entity.Reminder) error {
	const op = "repository.ReminderRepository.Delete"

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, reminderKey(rem.ID))
		pipe.Del(ctx, retryKey(rem.ID))
		pipe.SRem(ctx, ownerKey(rem.OwnerID), rem.ID.String())
		pipe.SRem(ctx, typeKey(rem.Type), rem.ID.String())
		pipe.SRem(ctx, _activeKey, rem.ID.String())
		pipe.ZRem(ctx, _scheduleKey, rem.ID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: exec pipeline: %w", op, err)
	}

	return nil
}

// ByOwner loads every reminder owned by ownerID, ordered by scheduled time.
func (r *ReminderRepository) ByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.Reminder, error) {
	const op = "repository.ReminderRepository.ByOwner"

	ids, err := r.rdb.SMembers(ctx, ownerKey(ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: members: %w", op, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = "reminder:" + id
	}
	docs, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: mget: %w", op, err)
	}

	reminders := make([]entity.Reminder, 0, len(docs))
	for _, raw := range docs {
		doc, ok := raw.(string)
		if !ok {
			// Membership entry without a document: the document was
			// deleted out from under the set. Skip, do not fail the list.
			continue
		}
		rem, err := decodeReminder([]byte(doc))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		reminders = append(reminders, *rem)
	}

	sort.Slice(reminders, func(i, j int) bool {
		return reminders[i].ScheduledTime.Before(reminders[j].ScheduledTime)
	})
	return reminders, nil
}

// ListByOwner applies the filter to the owner's reminders and paginates.
func (r *ReminderRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, filter ListFilter, limit, offset int) (*Page, error) {
	const op = "repository.ReminderRepository.ListByOwner"

	all, err := r.ByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	matched := make([]entity.Reminder, 0, len(all))
	for _, rem := range all {
		if filter.Type != nil && rem.Type != *filter.Type {
			continue
		}
		if filter.IsActive != nil && rem.IsActive != *filter.IsActive {
			continue
		}
		if filter.From != nil && rem.ScheduledTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && rem.ScheduledTime.After(*filter.To) {
			continue
		}
		matched = append(matched, rem)
	}

	total := len(matched)
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	return &Page{
		Items:   matched[offset:end],
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: end < total,
	}, nil
}

func decodeReminder(doc []byte) (*entity.Reminder, error) {
	var rem entity.Reminder
	if err := json.Unmarshal(doc, &rem); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	if rem.Schema > entity.SchemaVersion {
		return nil, fmt.Errorf("schema %d: %w", rem.Schema, entity.ErrSchemaVersion)
	}
	return &rem, nil
}
