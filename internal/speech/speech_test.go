package speech

import (
	"context"
	"errors"
	"testing"
)

type fakePlayer struct {
	fail   map[string]bool
	played []string
}

func (p *fakePlayer) PlayURL(_ context.Context, u string, _ float64) error {
	p.played = append(p.played, u)
	if p.fail[u] {
		return errors.New("404")
	}
	return nil
}

type fakeSynth struct {
	spoken []string
	err    error
}

func (s *fakeSynth) Speak(_ context.Context, text string, _ float64) error {
	s.spoken = append(s.spoken, text)
	return s.err
}

func TestChain(t *testing.T) {
	cases := []struct {
		name       string
		soundURL   string
		failPlay   bool
		synthErr   error
		wantPlayed int
		wantSpoken int
		wantErr    bool
	}{
		{"recording plays", "https://cdn/cat.mp3", false, nil, 1, 0, false},
		{"no recording", "", false, nil, 0, 1, false},
		{"recording fails", "https://cdn/cat.mp3", true, nil, 1, 1, false},
		{"everything fails", "https://cdn/cat.mp3", true, errors.New("tts down"), 1, 1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			player := &fakePlayer{fail: map[string]bool{tc.soundURL: tc.failPlay}}
			synth := &fakeSynth{err: tc.synthErr}
			err := NewChain(player, synth, nil).Pronounce(context.Background(), "cat", tc.soundURL, 1)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if len(player.played) != tc.wantPlayed || len(synth.spoken) != tc.wantSpoken {
				t.Fatalf("played=%v spoken=%v", player.played, synth.spoken)
			}
		})
	}
}

func TestChainWithoutSynth(t *testing.T) {
	err := NewChain(nil, nil, nil).Pronounce(context.Background(), "cat", "", 1)
	if !errors.Is(err, ErrNoVoice) {
		t.Fatalf("err = %v, want ErrNoVoice", err)
	}
}

func TestURLSynthesizer(t *testing.T) {
	if _, err := NewURLSynthesizer("https://tts.example/speak", nil); err == nil {
		t.Fatalf("template without %%s accepted")
	}

	player := &fakePlayer{}
	s, err := NewURLSynthesizer("https://tts.example/speak?q=%s&lang=en", player)
	if err != nil {
		t.Fatalf("NewURLSynthesizer: %v", err)
	}
	if err := s.Speak(context.Background(), "ice cream", 1); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	want := "https://tts.example/speak?q=ice+cream&lang=en"
	if len(player.played) != 1 || player.played[0] != want {
		t.Fatalf("played %v, want %s", player.played, want)
	}
}
