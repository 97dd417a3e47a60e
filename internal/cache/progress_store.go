package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/example/lexera/internal/progression"
	"github.com/example/lexera/pkg/models"
)

const keyPrefix = "lexera:progress:"

// ProgressStore keeps each identity's progress as one JSON document in Redis
type ProgressStore struct {
	rdb *goredis.Client
}

// Dial connects to Redis and checks the connection
func Dial(ctx context.Context, addr, password string, db int) (*ProgressStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewProgressStore(rdb), nil
}

func NewProgressStore(rdb *goredis.Client) *ProgressStore {
	return &ProgressStore{rdb: rdb}
}

func Key(identity string) string {
	return keyPrefix + identity
}

func (s *ProgressStore) Get(ctx context.Context, identity string) (*models.ProgressState, error) {
	raw, err := s.rdb.Get(ctx, Key(identity)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, progression.ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get progress: %w", err)
	}
	var p models.ProgressState
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	return &p, nil
}

// Create writes p only when the identity has no document yet
func (s *ProgressStore) Create(ctx context.Context, identity string, p models.ProgressState) error {
	raw, err := encode(p)
	if err != nil {
		return err
	}
	if err := s.rdb.SetNX(ctx, Key(identity), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis create progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) Upsert(ctx context.Context, identity string, p models.ProgressState) error {
	raw, err := encode(p)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, Key(identity), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis save progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) Close() error {
	return s.rdb.Close()
}

func encode(p models.ProgressState) ([]byte, error) {
	if p.WordsCompleted == nil {
		p.WordsCompleted = []string{}
	}
	if p.LastUpdated.IsZero() {
		p.LastUpdated = time.Now().UTC()
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode progress: %w", err)
	}
	return raw, nil
}
