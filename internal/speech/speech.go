package speech

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/example/lexera/internal/logger"
)

var ErrNoVoice = errors.New("no voice available")

// Player plays an audio file by URL
type Player interface {
	PlayURL(ctx context.Context, audioURL string, rate float64) error
}

// Synthesizer speaks arbitrary text
type Synthesizer interface {
	Speak(ctx context.Context, text string, rate float64) error
}

// Chain pronounces a word from its recording, falling back to synthesized
// speech when there is no recording or it fails to play.
type Chain struct {
	player Player
	synth  Synthesizer
	log    *logger.Logger
}

func NewChain(player Player, synth Synthesizer, log *logger.Logger) *Chain {
	if log == nil {
		log = logger.Nop()
	}
	return &Chain{player: player, synth: synth, log: log}
}

func (c *Chain) Pronounce(ctx context.Context, word, soundURL string, rate float64) error {
	if soundURL != "" && c.player != nil {
		err := c.player.PlayURL(ctx, soundURL, rate)
		if err == nil {
			return nil
		}
		c.log.Warn("recorded pronunciation failed, synthesizing", "word", word, "error", err)
	}
	if c.synth == nil {
		return ErrNoVoice
	}
	if err := c.synth.Speak(ctx, word, rate); err != nil {
		return fmt.Errorf("synthesize %q: %w", word, err)
	}
	return nil
}

// URLSynthesizer turns text into a text-to-speech service URL and plays it.
// The template holds one %s for the query-escaped text.
type URLSynthesizer struct {
	template string
	player   Player
}

func NewURLSynthesizer(template string, player Player) (*URLSynthesizer, error) {
	if strings.Count(template, "%s") != 1 {
		return nil, fmt.Errorf("tts template must contain exactly one %%s: %q", template)
	}
	return &URLSynthesizer{template: template, player: player}, nil
}

func (s *URLSynthesizer) URL(text string) string {
	return fmt.Sprintf(s.template, url.QueryEscape(text))
}

func (s *URLSynthesizer) Speak(ctx context.Context, text string, rate float64) error {
	return s.player.PlayURL(ctx, s.URL(text), rate)
}
