package progression

import "github.com/example/lexera/pkg/models"

// EventKind names an engine notification
type EventKind int

const (
	// WordSelected: a new word is ready for an answer
	WordSelected EventKind = iota
	Correct
	Incorrect
	// TierAdvanced: the previous tier is exhausted and Level moved to the next
	// tier that has records. Tiers absent from the catalog are skipped silently.
	TierAdvanced
	// GameCompleted: every tier has been played through
	GameCompleted
	// CatalogExhausted: nothing was playable from the starting tier onwards
	CatalogExhausted
)

func (k EventKind) String() string {
	switch k {
	case WordSelected:
		return "word_selected"
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	case TierAdvanced:
		return "tier_advanced"
	case GameCompleted:
		return "game_completed"
	case CatalogExhausted:
		return "catalog_exhausted"
	}
	return "unknown"
}

// Terminal reports whether the event ends the game until a reset
func (k EventKind) Terminal() bool {
	return k == GameCompleted || k == CatalogExhausted
}

// Event is delivered to the Notifier
type Event struct {
	Kind  EventKind
	Level models.Difficulty
	Score int
	Word  *models.WordRecord // Set for WordSelected, Correct and Incorrect
}

// Phase is the input state of the engine
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	// PhaseReady accepts answers for the current word
	PhaseReady
	// PhasePresentingFeedback rejects answers until the feedback or tier celebration delay elapses
	PhasePresentingFeedback
	PhaseCompleted
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhasePresentingFeedback:
		return "presenting_feedback"
	case PhaseCompleted:
		return "completed"
	case PhaseClosed:
		return "closed"
	}
	return "unknown"
}

// Outcome is the result of SubmitAnswer
type Outcome int

const (
	// Ignored: no current word, or input is gated by a pending delay
	Ignored Outcome = iota
	AnswerCorrect
	AnswerIncorrect
)

func (o Outcome) String() string {
	switch o {
	case AnswerCorrect:
		return "correct"
	case AnswerIncorrect:
		return "incorrect"
	}
	return "ignored"
}
