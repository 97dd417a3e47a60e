package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/lexera/internal/logger"
	"github.com/example/lexera/pkg/models"
)

// wordRow is the stored shape of a word; options are a JSON array
type wordRow struct {
	ID         string `db:"id"`
	Word       string `db:"word"`
	Options    string `db:"options"`
	Image      string `db:"image"`
	Sound      string `db:"sound"`
	Difficulty string `db:"difficulty"`
}

// record converts the row. A malformed options column leaves Options empty
// and is reported through the returned error; the word stays playable.
func (r wordRow) record() (models.WordRecord, error) {
	w := models.WordRecord{
		ID:         r.ID,
		Word:       r.Word,
		Image:      r.Image,
		Sound:      r.Sound,
		Difficulty: models.Difficulty(r.Difficulty),
	}
	if err := json.Unmarshal([]byte(r.Options), &w.Options); err != nil {
		w.Options = nil
		return w, fmt.Errorf("decode options: %w", err)
	}
	return w, nil
}

// WordRepository handles database operations for words
type WordRepository struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewWordRepository creates a new repository instance. A nil log discards warnings.
func NewWordRepository(db *sqlx.DB, log *logger.Logger) *WordRepository {
	if log == nil {
		log = logger.Nop()
	}
	return &WordRepository{db: db, log: log}
}

func (r *WordRepository) decode(row wordRow) models.WordRecord {
	w, err := row.record()
	if err != nil {
		r.log.Warn("ignoring malformed word options", "word", row.ID, "error", err)
	}
	return w
}

// GetAll returns every word. It serves as the remote catalog source.
func (r *WordRepository) GetAll(ctx context.Context) ([]models.WordRecord, error) {
	var rows []wordRow
	err := r.db.SelectContext(ctx, &rows, "SELECT id, word, options, image, sound, difficulty FROM words ORDER BY difficulty, id")
	if err != nil {
		return nil, fmt.Errorf("failed to get words: %w", err)
	}
	words := make([]models.WordRecord, 0, len(rows))
	for _, row := range rows {
		words = append(words, r.decode(row))
	}
	return words, nil
}

// Fetch implements the catalog source contract
func (r *WordRepository) Fetch(ctx context.Context) ([]models.WordRecord, error) {
	return r.GetAll(ctx)
}

// GetByID returns a word by ID
func (r *WordRepository) GetByID(ctx context.Context, id string) (*models.WordRecord, error) {
	var row wordRow
	query := r.db.Rebind("SELECT id, word, options, image, sound, difficulty FROM words WHERE id = ?")
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, fmt.Errorf("failed to get word by ID: %w", err)
	}
	w := r.decode(row)
	return &w, nil
}

// Upsert inserts a word or replaces the stored one with the same id.
// It reports whether a new row was created.
func (r *WordRepository) Upsert(ctx context.Context, w models.WordRecord) (created bool, err error) {
	options, err := json.Marshal(w.Options)
	if err != nil {
		return false, fmt.Errorf("failed to marshal options: %w", err)
	}
	if w.Options == nil {
		options = []byte("[]")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.GetContext(ctx, &n, tx.Rebind("SELECT COUNT(*) FROM words WHERE id = ?"), w.ID); err != nil {
		return false, fmt.Errorf("failed to look up word: %w", err)
	}

	query := tx.Rebind(`
		INSERT INTO words (id, word, options, image, sound, difficulty, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			word = excluded.word,
			options = excluded.options,
			image = excluded.image,
			sound = excluded.sound,
			difficulty = excluded.difficulty,
			updated_at = CURRENT_TIMESTAMP
	`)
	if _, err := tx.ExecContext(ctx, query, w.ID, w.Word, string(options), w.Image, w.Sound, string(w.Difficulty)); err != nil {
		return false, fmt.Errorf("failed to save word: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit word: %w", err)
	}
	return n == 0, nil
}

// Delete removes a word
func (r *WordRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM words WHERE id = ?"), id); err != nil {
		return fmt.Errorf("failed to delete word: %w", err)
	}
	return nil
}

// Count returns the number of stored words
func (r *WordRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM words"); err != nil {
		return 0, fmt.Errorf("failed to count words: %w", err)
	}
	return n, nil
}

// CountByDifficulty returns the number of words per tier
func (r *WordRepository) CountByDifficulty(ctx context.Context) (map[models.Difficulty]int, error) {
	var rows []struct {
		Difficulty string `db:"difficulty"`
		N          int    `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows, "SELECT difficulty, COUNT(*) AS n FROM words GROUP BY difficulty"); err != nil {
		return nil, fmt.Errorf("failed to count words by difficulty: %w", err)
	}
	out := make(map[models.Difficulty]int, len(rows))
	for _, row := range rows {
		out[models.Difficulty(row.Difficulty)] = row.N
	}
	return out, nil
}
