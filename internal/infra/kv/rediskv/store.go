// Package rediskv keeps tracker snapshots in Redis.
package rediskv

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/domain/sessions"
)

// Options configures the Redis connection.
type Options struct {
	// URL is the connection string, e.g. "redis://localhost:6379/0"
	URL string

	// Prefix is prepended to every key.
	Prefix string

	// TTL expires idle snapshots; zero keeps them forever.
	TTL time.Duration

	DialTimeout time.Duration
}

// Store implements sessions.Store on a Redis client.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ sessions.Store = (*Store)(nil)

// New parses opts.URL, connects and pings.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379/0"
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	ro, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse redis url")
	}
	ro.DialTimeout = opts.DialTimeout

	s := &Store{client: redis.NewClient(ro), prefix: opts.Prefix, ttl: opts.TTL}

	pctx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := s.Ping(pctx); err != nil {
		_ = s.client.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) key(k string) string { return s.prefix + k }

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, goerr.Wrap(errs.ErrNotFound, "session key not found", goerr.V("key", key))
	}
	if err != nil {
		return nil, goerr.Wrap(errs.ErrBackendUnavailable, err.Error(), goerr.V("key", key))
	}
	return b, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return goerr.Wrap(errs.ErrBackendUnavailable, err.Error(), goerr.V("key", key))
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return goerr.Wrap(errs.ErrBackendUnavailable, err.Error(), goerr.V("key", key))
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return goerr.Wrap(errs.ErrBackendUnavailable, "redis ping failed: "+err.Error())
	}
	return nil
}

func (s *Store) Close() error { return s.client.Close() }
