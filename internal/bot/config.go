package bot

import (
	"time"

	"github.com/example/lexera/internal/progression"
)

// Settings represents the game and audio configuration for the bot
type Settings struct {
	// Points for each correct answer
	RewardPoints int
	// Time feedback stays on screen before the next word
	FeedbackDelay time.Duration
	// Celebration pause after a tier is finished
	TierAdvanceDelay time.Duration
	// Sessions quiet for longer than this are closed by the sweeper
	SessionIdleTimeout time.Duration

	// Text-to-speech URL with one %s for the word; empty disables synthesis
	TTSURLTemplate    string
	CorrectSoundURL   string
	IncorrectSoundURL string
}

// DefaultSettings returns the default bot configuration
func DefaultSettings() Settings {
	return Settings{
		RewardPoints:       progression.DefaultRewardPoints,
		FeedbackDelay:      progression.DefaultFeedbackDelay,
		TierAdvanceDelay:   progression.DefaultTierAdvanceDelay,
		SessionIdleTimeout: 30 * time.Minute,
	}
}
