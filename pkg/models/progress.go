package models

import "time"

// ProgressState is the persisted game progress of one identity
type ProgressState struct {
	Level          Difficulty `json:"level"`
	Score          int        `json:"score"`
	WordsCompleted []string   `json:"wordsCompleted"` // Word ids, insertion order
	LastUpdated    time.Time  `json:"lastUpdated"`
}

// NewProgressState returns the defaults used for a first-time identity
func NewProgressState() ProgressState {
	return ProgressState{
		Level:          Easy,
		Score:          0,
		WordsCompleted: []string{},
	}
}

// Clone returns a deep copy
func (p ProgressState) Clone() ProgressState {
	out := p
	out.WordsCompleted = append([]string(nil), p.WordsCompleted...)
	if out.WordsCompleted == nil {
		out.WordsCompleted = []string{}
	}
	return out
}
