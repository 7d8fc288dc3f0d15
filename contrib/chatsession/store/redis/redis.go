// Package redis implements chatsession.Store on top of Redis, storing
// each session snapshot as a JSON blob under a prefixed key.
//
// Grounded on the teacher's session/store/redis.go RedisStore/RedisConfig
// idiom (prefix+id key, JSON-marshaled value, optional TTL); retargeted
// from *session.SessionData to chatsession.Snapshot and trimmed to the
// three chatsession.Store methods instead of the teacher's full
// session.Manager surface (Create/Get/List/Count/Ping), which this
// package has no use for.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ggozad/haikurag-core/chatsession"
	"github.com/ggozad/haikurag-core/config"
)

// ErrNotFound is returned by Load when no snapshot exists for an id.
var ErrNotFound = errors.New("chatsession: snapshot not found")

// Config holds Redis connection settings for session snapshot storage.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// DefaultConfig returns the teacher's defaults, adapted to this store's
// own key prefix.
func DefaultConfig() *Config {
	return &Config{
		Addr:   "localhost:6379",
		Prefix: "haikurag:chatsession:",
		TTL:    24 * time.Hour,
	}
}

// Store implements chatsession.Store using Redis.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New creates a Redis-backed chatsession.Store.
func New(cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := config.ValidateRedisConfig(cfg.Addr, cfg.DB, cfg.Prefix); err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Store{client: client, prefix: cfg.Prefix, ttl: cfg.TTL}, nil
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

// Save writes snap under its ID, overwriting any prior snapshot.
func (s *Store) Save(ctx context.Context, snap chatsession.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal session snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key(snap.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session snapshot: %w", err)
	}
	return nil
}

// Load fetches the snapshot for id, returning ErrNotFound if absent.
func (s *Store) Load(ctx context.Context, id string) (chatsession.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return chatsession.Snapshot{}, ErrNotFound
		}
		return chatsession.Snapshot{}, fmt.Errorf("load session snapshot: %w", err)
	}

	var snap chatsession.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return chatsession.Snapshot{}, fmt.Errorf("unmarshal session snapshot: %w", err)
	}
	return snap, nil
}

// Delete removes the snapshot for id, if any.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
