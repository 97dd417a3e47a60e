package progression

import (
	"context"
	"errors"
	"time"

	"github.com/example/lexera/pkg/models"
)

// ErrProgressNotFound is returned by a ProgressStore when an identity has no record yet.
var ErrProgressNotFound = errors.New("progress not found")

// CatalogSource supplies the full list of word records.
type CatalogSource interface {
	Fetch(ctx context.Context) ([]models.WordRecord, error)
}

// ProgressStore persists one progress document per identity.
type ProgressStore interface {
	// Get returns ErrProgressNotFound when the identity has no record.
	Get(ctx context.Context, identity string) (*models.ProgressState, error)
	// Create stores defaults for an identity seen for the first time.
	Create(ctx context.Context, identity string, p models.ProgressState) error
	Upsert(ctx context.Context, identity string, p models.ProgressState) error
}

// Pronouncer speaks a word, preferring the recorded sound when one is given.
type Pronouncer interface {
	Pronounce(ctx context.Context, word, soundURL string, rate float64) error
}

// Cue plays the success or failure sound/haptic.
type Cue interface {
	Play(ctx context.Context, correct bool) error
}

// Notifier receives engine events in the order they happen.
type Notifier interface {
	Notify(ev Event)
}

// Timer is a pending delayed call.
type Timer interface {
	Stop() bool
}

// Delayer schedules f to run once after d.
type Delayer interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RandomSource picks candidate indexes.
type RandomSource interface {
	Intn(n int) int
}

type realDelayer struct{}

func (realDelayer) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ev Event)

func (f NotifierFunc) Notify(ev Event) { f(ev) }
