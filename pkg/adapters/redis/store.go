// Package redis provides a Redis-backed cache store and distributed locker.
//
// Values are stored as JSON, so what comes back from the store is the JSON
// normalization of what was put in (numbers become float64, structs become
// maps). Cached nodes read values back after writing them, so evaluations
// observe the same shape on a hit and on a miss.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "espalier:cache:"

// Store implements ports.Store and ports.Invalidator using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for entries.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for entries.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client returns the underlying client, for sharing with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(fp ports.Fingerprint) string {
	return s.prefix + string(fp)
}

func (s *Store) markerKey(fp ports.Fingerprint) string {
	return s.prefix + "invalid:" + string(fp)
}

// consumeMarker reports domain.ErrInvalidated once per invalidation.
func (s *Store) consumeMarker(ctx context.Context, fp ports.Fingerprint) error {
	n, err := s.client.Del(ctx, s.markerKey(fp)).Result()
	if err != nil {
		return fmt.Errorf("failed to check invalidation: %w", err)
	}
	if n > 0 {
		return domain.ErrInvalidated
	}
	return nil
}

// Exists reports whether a value is stored for fp.
func (s *Store) Exists(ctx context.Context, fp ports.Fingerprint) (bool, error) {
	if err := s.consumeMarker(ctx, fp); err != nil {
		return false, err
	}
	n, err := s.client.Exists(ctx, s.key(fp)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to query redis: %w", err)
	}
	return n > 0, nil
}

// Get retrieves the value stored for fp.
func (s *Store) Get(ctx context.Context, fp ports.Fingerprint) (any, error) {
	if err := s.consumeMarker(ctx, fp); err != nil {
		return nil, err
	}
	val, err := s.client.Get(ctx, s.key(fp)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var value any
	if err := json.Unmarshal(val, &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return value, nil
}

// Set stores value for fp and clears any pending invalidation.
func (s *Store) Set(ctx context.Context, fp ports.Fingerprint, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cached value: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(fp), data, s.ttl)
	pipe.Del(ctx, s.markerKey(fp))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Invalidate drops the entry for fp and leaves a marker so the next access
// reports domain.ErrInvalidated.
func (s *Store) Invalidate(ctx context.Context, fp ports.Fingerprint) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(fp))
	pipe.Set(ctx, s.markerKey(fp), 1, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to invalidate in redis: %w", err)
	}
	return nil
}

// Clear removes every key under the store's prefix.
func (s *Store) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to clear redis: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan redis: %w", err)
	}
	if len(batch) > 0 {
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to clear redis: %w", err)
		}
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
