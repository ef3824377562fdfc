// Package redis persists execution history in Redis, one hash field per
// script.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/scriptdeck/scriptdeck/pkg/domain"
)

// Store implements ports.HistoryStore on a Redis hash. Each field holds the
// JSON-encoded record list of one script.
type Store struct {
	client *backend.Client
	key    string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithKey overrides the hash key.
func WithKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

// WithTTL sets an expiration on the hash, refreshed on every Save.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// New creates a Store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		key:    "scriptdeck:history",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the whole hash. An absent key yields an empty map.
func (s *Store) Load(ctx context.Context) (map[string][]domain.RunRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history from redis: %w", err)
	}

	history := make(map[string][]domain.RunRecord, len(fields))
	for name, raw := range fields {
		var records []domain.RunRecord
		if err := json.Unmarshal([]byte(raw), &records); err != nil {
			return nil, fmt.Errorf("failed to decode history for %q: %w", name, err)
		}
		history[name] = records
	}
	return history, nil
}

// Save replaces the whole hash in one pipeline: delete, HSet per script,
// optional expire.
func (s *Store) Save(ctx context.Context, history map[string][]domain.RunRecord) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key)

	for name, records := range history {
		data, err := json.Marshal(records)
		if err != nil {
			return fmt.Errorf("failed to encode history for %q: %w", name, err)
		}
		pipe.HSet(ctx, s.key, name, data)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save history to redis: %w", err)
	}
	return nil
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
