package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/lexera/internal/progression"
	"github.com/example/lexera/pkg/models"
)

type progressRow struct {
	Identity       string    `db:"identity"`
	Level          string    `db:"level"`
	Score          int       `db:"score"`
	WordsCompleted string    `db:"words_completed"`
	LastUpdated    time.Time `db:"last_updated"`
}

// ProgressRepository stores one progress row per identity
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository creates a new repository instance
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Get returns the progress for identity, or progression.ErrProgressNotFound
func (r *ProgressRepository) Get(ctx context.Context, identity string) (*models.ProgressState, error) {
	var row progressRow
	query := r.db.Rebind("SELECT identity, level, score, words_completed, last_updated FROM user_progress WHERE identity = ?")
	err := r.db.GetContext(ctx, &row, query, identity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, progression.ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user progress: %w", err)
	}

	p := &models.ProgressState{
		Level:       models.Difficulty(row.Level),
		Score:       row.Score,
		LastUpdated: row.LastUpdated,
	}
	if err := json.Unmarshal([]byte(row.WordsCompleted), &p.WordsCompleted); err != nil {
		return nil, fmt.Errorf("failed to parse completed words: %w", err)
	}
	return p, nil
}

// Create stores p unless the identity already has a row
func (r *ProgressRepository) Create(ctx context.Context, identity string, p models.ProgressState) error {
	completed, err := marshalCompleted(p.WordsCompleted)
	if err != nil {
		return err
	}
	query := r.db.Rebind(`
		INSERT INTO user_progress (identity, level, score, words_completed, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (identity) DO NOTHING
	`)
	if _, err := r.db.ExecContext(ctx, query, identity, string(p.Level), p.Score, completed, lastUpdated(p)); err != nil {
		return fmt.Errorf("failed to create user progress: %w", err)
	}
	return nil
}

// Upsert creates or replaces the progress row for identity
func (r *ProgressRepository) Upsert(ctx context.Context, identity string, p models.ProgressState) error {
	completed, err := marshalCompleted(p.WordsCompleted)
	if err != nil {
		return err
	}
	query := r.db.Rebind(`
		INSERT INTO user_progress (identity, level, score, words_completed, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (identity) DO UPDATE SET
			level = excluded.level,
			score = excluded.score,
			words_completed = excluded.words_completed,
			last_updated = excluded.last_updated
	`)
	if _, err := r.db.ExecContext(ctx, query, identity, string(p.Level), p.Score, completed, lastUpdated(p)); err != nil {
		return fmt.Errorf("failed to save user progress: %w", err)
	}
	return nil
}

// Delete removes the progress row for identity
func (r *ProgressRepository) Delete(ctx context.Context, identity string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM user_progress WHERE identity = ?"), identity); err != nil {
		return fmt.Errorf("failed to delete user progress: %w", err)
	}
	return nil
}

func marshalCompleted(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completed words: %w", err)
	}
	return string(b), nil
}

func lastUpdated(p models.ProgressState) time.Time {
	if p.LastUpdated.IsZero() {
		return time.Now().UTC()
	}
	return p.LastUpdated.UTC()
}
