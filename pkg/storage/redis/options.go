package redis

import (
	"fmt"
	"time"
)

type Option func(*Redis)

// PoolSize caps the number of connections the client keeps open.
func PoolSize(size int) Option {
	return func(r *Redis) {
		r.poolSize = size
	}
}

// MinIdleCons keeps warm connections around for bursty schedule polls.
func MinIdleCons(cons int) Option {
	return func(r *Redis) {
		r.minIdleCons = cons
	}
}

func PoolTimeout(timeout time.Duration) Option {
	return func(r *Redis) {
		r.poolTimeout = timeout
	}
}

// DialTimeout bounds connection establishment, including the startup ping.
func DialTimeout(timeout time.Duration) Option {
	return func(r *Redis) {
		r.dialTimeout = timeout
	}
}

func ReadTimeout(timeout time.Duration) Option {
	return func(r *Redis) {
		r.readTimeout = timeout
	}
}

func (r *Redis) validate() error {
	if r.poolSize < 1 {
		return fmt.Errorf("pool size %d: must be at least 1", r.poolSize)
	}
	if r.minIdleCons < 1 || r.minIdleCons > r.poolSize {
		return fmt.Errorf("min idle conns %d: must be between 1 and the pool size", r.minIdleCons)
	}
	for name, timeout := range map[string]time.Duration{
		"pool timeout": r.poolTimeout,
		"dial timeout": r.dialTimeout,
		"read timeout": r.readTimeout,
	} {
		if timeout <= 0 {
			return fmt.Errorf("%s %s: must be positive", name, timeout)
		}
	}
	return nil
}
