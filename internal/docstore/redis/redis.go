// Package redis keeps each user document under its own Redis key.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vbonduro/measureiq/internal/docstore"
)

const keyPrefix = "measureiq:doc:"

type Config struct {
	Addr     string
	Password string
	DB       int
}

type Store struct {
	rdb *goredis.Client
}

// Open connects and pings the server.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(rdb), nil
}

func New(rdb *goredis.Client) *Store {
	return &Store{rdb: rdb}
}

func key(userID string) string {
	return keyPrefix + userID
}

func (s *Store) Get(ctx context.Context, userID string) ([]byte, error) {
	doc, err := s.rdb.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return doc, nil
}

func (s *Store) Put(ctx context.Context, userID string, doc []byte) error {
	if err := s.rdb.Set(ctx, key(userID), doc, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
