package models

// WordRecord is a spelling exercise: the correct word and the spellings offered
type WordRecord struct {
	ID         string     `json:"id" db:"id"`
	Word       string     `json:"word" db:"word"`
	Options    []string   `json:"options" db:"-"`           // Display order, includes Word
	Image      string     `json:"image,omitempty" db:"image"` // Optional: illustration URL
	Sound      string     `json:"sound,omitempty" db:"sound"` // Optional: recorded pronunciation URL
	Difficulty Difficulty `json:"difficulty" db:"difficulty"`
}

// HasOption reports whether s is one of the offered spellings
func (w WordRecord) HasOption(s string) bool {
	for _, o := range w.Options {
		if o == s {
			return true
		}
	}
	return false
}
