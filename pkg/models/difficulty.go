package models

import (
	"fmt"
	"strings"
)

// Difficulty is one of the ordered word tiers
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
	Expert Difficulty = "expert"
)

var tiers = []Difficulty{Easy, Medium, Hard, Expert}

// Tiers returns the tiers in progression order
func Tiers() []Difficulty {
	out := make([]Difficulty, len(tiers))
	copy(out, tiers)
	return out
}

// Index returns the position of d in the tier ordering, or -1
func (d Difficulty) Index() int {
	for i, t := range tiers {
		if t == d {
			return i
		}
	}
	return -1
}

// Valid reports whether d is a known tier
func (d Difficulty) Valid() bool {
	return d.Index() >= 0
}

// Next returns the tier after d. ok is false for the last tier.
func (d Difficulty) Next() (next Difficulty, ok bool) {
	i := d.Index()
	if i < 0 || i+1 >= len(tiers) {
		return d, false
	}
	return tiers[i+1], true
}

// Title returns the tier name with a leading capital, for display
func (d Difficulty) Title() string {
	s := string(d)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseDifficulty parses a tier name, case-insensitively
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
	return d, nil
}
