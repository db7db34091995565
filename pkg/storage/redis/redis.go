// Package redis constructs the shared backing store client. The store is the
// single arbiter of truth for reminders, the schedule index, retry counters
// and the dead-letter queue.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Redis struct {
	poolSize    int
	minIdleCons int
	poolTimeout time.Duration
	dialTimeout time.Duration
	readTimeout time.Duration
}

// New connects to the store at addr and verifies the connection with a ping.
func New(addr, password string, db int, opts ...Option) (*redis.Client, error) {
	const op = "redis.New"

	r := &Redis{
		poolSize:    20,
		minIdleCons: 10,
		poolTimeout: 100 * time.Millisecond,
		dialTimeout: 5 * time.Second,
		readTimeout: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     r.poolSize,
		MinIdleConns: r.minIdleCons,
		PoolTimeout:  r.poolTimeout,
		DialTimeout:  r.dialTimeout,
		ReadTimeout:  r.readTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), r.dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return client, nil
}
