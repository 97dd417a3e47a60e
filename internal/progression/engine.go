package progression

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/example/lexera/internal/logger"
	"github.com/example/lexera/pkg/models"
)

const (
	DefaultRewardPoints     = 10
	DefaultFeedbackDelay    = 2 * time.Second
	DefaultTierAdvanceDelay = 2500 * time.Millisecond

	MinSpeechRate     = 0.5
	MaxSpeechRate     = 1.5
	DefaultSpeechRate = 1.0

	storeTimeout = 10 * time.Second
	audioTimeout = 30 * time.Second
)

var (
	ErrClosed         = errors.New("engine closed")
	ErrAlreadyStarted = errors.New("engine already started")
)

// Options wires the engine to its collaborators. Only Catalog is needed for play;
// every other field has a working default.
type Options struct {
	Catalog    CatalogSource
	Store      ProgressStore
	Pronouncer Pronouncer
	Cue        Cue
	Notifier   Notifier
	Delayer    Delayer
	Rand       RandomSource
	Log        *logger.Logger
	Now        func() time.Time

	RewardPoints     int
	FeedbackDelay    time.Duration
	TierAdvanceDelay time.Duration
}

// State is a point-in-time copy of the engine
type State struct {
	Identity       string
	Level          models.Difficulty
	Score          int
	WordsCompleted []string
	Current        *models.WordRecord
	Phase          Phase
	SpeechRate     float64
}

// Engine runs one spelling game session: it picks words tier by tier, scores
// answers and keeps the identity's progress in sync with the store.
type Engine struct {
	opts  Options
	log   *logger.Logger
	spawn func(func())

	mu       sync.Mutex
	identity string
	catalog  []models.WordRecord
	level    models.Difficulty
	score    int
	used     map[string]struct{}
	order    []string
	current  *models.WordRecord
	phase    Phase
	rate     float64
	epoch    uint64
	timerSeq uint64
	timers   map[uint64]Timer
	writer   *writer
}

// New creates an idle engine. Call Start to load the catalog and progress.
func New(opts Options) *Engine {
	if opts.Notifier == nil {
		opts.Notifier = NotifierFunc(func(Event) {})
	}
	if opts.Delayer == nil {
		opts.Delayer = realDelayer{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RewardPoints <= 0 {
		opts.RewardPoints = DefaultRewardPoints
	}
	if opts.FeedbackDelay <= 0 {
		opts.FeedbackDelay = DefaultFeedbackDelay
	}
	if opts.TierAdvanceDelay < 0 {
		opts.TierAdvanceDelay = 0
	}

	return &Engine{
		opts:   opts,
		log:    opts.Log,
		spawn:  func(f func()) { go f() },
		level:  models.Easy,
		used:   make(map[string]struct{}),
		phase:  PhaseIdle,
		rate:   DefaultSpeechRate,
		timers: make(map[uint64]Timer),
	}
}

// Start loads the catalog and, for a non-empty identity, the stored progress,
// then selects the first word. An empty identity plays in memory only.
func (e *Engine) Start(ctx context.Context, identity string) error {
	e.mu.Lock()
	switch e.phase {
	case PhaseClosed:
		e.mu.Unlock()
		return ErrClosed
	case PhaseIdle:
	default:
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	e.phase = PhaseLoading
	e.identity = identity
	if identity != "" {
		e.log = e.log.With("identity", identity)
	}
	e.mu.Unlock()

	catalog := e.loadCatalog(ctx)
	progress := e.loadProgress(ctx, identity)
	completed := normalizeCompleted(progress.WordsCompleted, catalog)

	e.mu.Lock()
	if e.phase == PhaseClosed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.catalog = catalog
	e.level = progress.Level
	e.score = progress.Score
	e.used = make(map[string]struct{}, len(completed))
	e.order = nil
	for _, id := range completed {
		e.markUsedLocked(id)
	}
	if identity != "" && e.opts.Store != nil {
		e.writer = newWriter(e.opts.Store, identity, storeTimeout, e.log)
	}
	e.phase = PhaseReady
	e.log.Info("session started", "words", len(catalog), "level", e.level, "score", e.score, "completed", len(e.order))
	fx := e.selectNextLocked()
	e.mu.Unlock()

	e.run(fx)
	return nil
}

func (e *Engine) loadCatalog(ctx context.Context) []models.WordRecord {
	if e.opts.Catalog == nil {
		e.log.Warn("no catalog source configured")
		return nil
	}
	words, err := e.opts.Catalog.Fetch(ctx)
	if err != nil {
		e.log.Warn("catalog fetch failed", "error", err)
		return nil
	}
	return words
}

func (e *Engine) loadProgress(ctx context.Context, identity string) models.ProgressState {
	defaults := models.NewProgressState()
	if identity == "" || e.opts.Store == nil {
		return defaults
	}

	p, err := e.opts.Store.Get(ctx, identity)
	switch {
	case errors.Is(err, ErrProgressNotFound):
		defaults.LastUpdated = e.opts.Now()
		if err := e.opts.Store.Create(ctx, identity, defaults); err != nil {
			e.log.Warn("create progress failed", "error", err)
		}
		return defaults
	case err != nil:
		e.log.Warn("load progress failed, playing from defaults", "error", err)
		return defaults
	case p == nil:
		return defaults
	}

	out := p.Clone()
	if !out.Level.Valid() {
		out.Level = models.Easy
	}
	if out.Score < 0 {
		out.Score = 0
	}
	return out
}

// normalizeCompleted maps entries stored by word value onto record ids and drops duplicates.
// Entries matching nothing in the catalog are kept so a partial catalog does not erase progress.
func normalizeCompleted(entries []string, catalog []models.WordRecord) []string {
	ids := make(map[string]bool, len(catalog))
	byWord := make(map[string]string, len(catalog))
	for _, w := range catalog {
		ids[w.ID] = true
		if _, ok := byWord[w.Word]; !ok {
			byWord[w.Word] = w.ID
		}
	}

	seen := make(map[string]bool, len(entries))
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		id := entry
		if !ids[id] {
			if mapped, ok := byWord[entry]; ok {
				id = mapped
			}
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// SelectNextWord picks a random unused word of the current tier, advancing
// tiers when the current one is exhausted. It only acts in PhaseReady: before
// Start, while feedback is presented and after the game has ended it does nothing.
func (e *Engine) SelectNextWord() {
	e.mu.Lock()
	var fx []func()
	if e.phase == PhaseReady {
		fx = e.selectNextLocked()
	}
	e.mu.Unlock()
	e.run(fx)
}

func (e *Engine) selectNextLocked() []func() {
	var fx []func()
	start := e.level
	advanced := false

	for {
		candidates := e.candidatesLocked(e.level)
		if len(candidates) > 0 {
			w := candidates[e.opts.Rand.Intn(len(candidates))]
			e.current = &w

			if advanced && e.opts.TierAdvanceDelay > 0 {
				e.phase = PhasePresentingFeedback
				e.scheduleLocked(e.opts.TierAdvanceDelay, func() []func() {
					e.phase = PhaseReady
					return e.presentLocked()
				})
				return fx
			}
			e.phase = PhaseReady
			return append(fx, e.presentLocked()...)
		}

		next, ok := e.nextPopulatedTierLocked(e.level)
		if !ok {
			e.current = nil
			e.phase = PhaseCompleted
			kind := GameCompleted
			if !e.hasTierFromLocked(start) {
				kind = CatalogExhausted
			}
			e.log.Info("game ended", "event", kind, "level", e.level, "score", e.score)
			return append(fx, e.notifyLocked(kind, nil))
		}

		e.level = next
		advanced = true
		e.log.Info("tier advanced", "level", next)
		e.persistLocked()
		fx = append(fx, e.notifyLocked(TierAdvanced, nil))
	}
}

// presentLocked announces the current word and plays its pronunciation
func (e *Engine) presentLocked() []func() {
	if e.current == nil {
		return nil
	}
	w := *e.current
	return []func(){e.notifyLocked(WordSelected, &w), e.speakLocked(w)}
}

func (e *Engine) candidatesLocked(level models.Difficulty) []models.WordRecord {
	var out []models.WordRecord
	for _, w := range e.catalog {
		if w.Difficulty != level {
			continue
		}
		if _, done := e.used[w.ID]; done {
			continue
		}
		out = append(out, w)
	}
	return out
}

// nextPopulatedTierLocked returns the first tier after level that has any
// records at all. Tiers absent from the catalog are skipped.
func (e *Engine) nextPopulatedTierLocked(level models.Difficulty) (models.Difficulty, bool) {
	for next, ok := level.Next(); ok; next, ok = next.Next() {
		for _, w := range e.catalog {
			if w.Difficulty == next {
				return next, true
			}
		}
	}
	return level, false
}

func (e *Engine) hasTierFromLocked(level models.Difficulty) bool {
	from := level.Index()
	for _, w := range e.catalog {
		if w.Difficulty.Index() >= from {
			return true
		}
	}
	return false
}

// SubmitAnswer checks selected against the current word by exact match.
// Answers are ignored when there is no current word or feedback is still on screen.
func (e *Engine) SubmitAnswer(selected string) Outcome {
	e.mu.Lock()
	if e.phase != PhaseReady || e.current == nil {
		e.mu.Unlock()
		return Ignored
	}
	return e.submitLocked(selected)
}

// AnswerOption submits the option at idx of the word with the given id.
// Stale input for a word that is no longer current is ignored.
func (e *Engine) AnswerOption(wordID string, idx int) Outcome {
	e.mu.Lock()
	if e.phase != PhaseReady || e.current == nil || e.current.ID != wordID ||
		idx < 0 || idx >= len(e.current.Options) {
		e.mu.Unlock()
		return Ignored
	}
	return e.submitLocked(e.current.Options[idx])
}

// submitLocked scores selected and releases the lock
func (e *Engine) submitLocked(selected string) Outcome {
	w := *e.current
	var fx []func()
	var outcome Outcome
	e.phase = PhasePresentingFeedback

	if selected == w.Word {
		outcome = AnswerCorrect
		e.score += e.opts.RewardPoints
		e.markUsedLocked(w.ID)
		e.persistLocked()
		fx = append(fx,
			e.notifyLocked(Correct, &w),
			e.cueLocked(true),
		)
		e.scheduleLocked(e.opts.FeedbackDelay, func() []func() {
			e.phase = PhaseReady
			return e.selectNextLocked()
		})
	} else {
		outcome = AnswerIncorrect
		fx = append(fx,
			e.notifyLocked(Incorrect, &w),
			e.cueLocked(false),
		)
		e.scheduleLocked(e.opts.FeedbackDelay, func() []func() {
			e.phase = PhaseReady
			return nil
		})
	}
	e.log.Debug("answer submitted", "word", w.ID, "outcome", outcome, "score", e.score)
	e.mu.Unlock()

	e.run(fx)
	return outcome
}

// ResetProgress discards all progress, persists the defaults and starts over at the first tier.
func (e *Engine) ResetProgress() {
	e.mu.Lock()
	if e.phase == PhaseClosed || e.phase == PhaseLoading {
		e.mu.Unlock()
		return
	}
	e.cancelTimersLocked()
	e.level = models.Easy
	e.score = 0
	e.used = make(map[string]struct{})
	e.order = nil
	e.current = nil
	e.phase = PhaseReady
	e.log.Info("progress reset")

	e.persistLocked()
	fx := e.selectNextLocked()
	e.mu.Unlock()
	e.run(fx)
}

// SetSpeechRate clamps rate to [MinSpeechRate, MaxSpeechRate] and returns the effective value.
func (e *Engine) SetSpeechRate(rate float64) float64 {
	rate = ClampSpeechRate(rate)
	e.mu.Lock()
	e.rate = rate
	e.mu.Unlock()
	return rate
}

// ClampSpeechRate limits rate to the supported range. NaN yields the default.
func ClampSpeechRate(rate float64) float64 {
	switch {
	case math.IsNaN(rate):
		return DefaultSpeechRate
	case rate < MinSpeechRate:
		return MinSpeechRate
	case rate > MaxSpeechRate:
		return MaxSpeechRate
	}
	return rate
}

func (e *Engine) SpeechRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate
}

// RepeatWord plays the current word again
func (e *Engine) RepeatWord() bool {
	e.mu.Lock()
	if e.phase == PhaseClosed || e.current == nil {
		e.mu.Unlock()
		return false
	}
	fx := e.speakLocked(*e.current)
	e.mu.Unlock()
	e.run([]func(){fx})
	return true
}

// Snapshot returns a copy of the current state
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := State{
		Identity:       e.identity,
		Level:          e.level,
		Score:          e.score,
		WordsCompleted: append([]string{}, e.order...),
		Phase:          e.phase,
		SpeechRate:     e.rate,
	}
	if e.current != nil {
		w := *e.current
		w.Options = append([]string(nil), e.current.Options...)
		s.Current = &w
	}
	return s
}

// TierProgress returns how many words of the active tier are completed, out of the tier's total
func (e *Engine) TierProgress() (completed, total int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, w := range e.catalog {
		if w.Difficulty != e.level {
			continue
		}
		total++
		if _, done := e.used[w.ID]; done {
			completed++
		}
	}
	return completed, total
}

// Close tears the session down. Pending delayed steps are discarded and the
// last progress snapshot is written before Close returns.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.phase == PhaseClosed {
		e.mu.Unlock()
		return
	}
	e.phase = PhaseClosed
	e.cancelTimersLocked()
	w := e.writer
	e.mu.Unlock()

	if w != nil {
		w.close()
	}
	e.log.Debug("session closed")
}

func (e *Engine) markUsedLocked(id string) {
	if _, ok := e.used[id]; ok {
		return
	}
	e.used[id] = struct{}{}
	e.order = append(e.order, id)
}

// scheduleLocked runs fn under the lock after d, unless the engine was reset
// or closed in the meantime.
func (e *Engine) scheduleLocked(d time.Duration, fn func() []func()) {
	epoch := e.epoch
	e.timerSeq++
	id := e.timerSeq
	e.timers[id] = e.opts.Delayer.AfterFunc(d, func() {
		e.mu.Lock()
		delete(e.timers, id)
		if e.epoch != epoch || e.phase == PhaseClosed {
			e.mu.Unlock()
			return
		}
		fx := fn()
		e.mu.Unlock()
		e.run(fx)
	})
}

func (e *Engine) cancelTimersLocked() {
	e.epoch++
	for id, t := range e.timers {
		t.Stop()
		delete(e.timers, id)
	}
}

func (e *Engine) notifyLocked(kind EventKind, w *models.WordRecord) func() {
	ev := Event{Kind: kind, Level: e.level, Score: e.score, Word: w}
	n := e.opts.Notifier
	return func() { n.Notify(ev) }
}

// persistLocked queues the current progress. It runs under the lock so a
// Close that follows cannot overtake the save.
func (e *Engine) persistLocked() {
	if e.writer == nil {
		return
	}
	p := models.ProgressState{
		Level:          e.level,
		Score:          e.score,
		WordsCompleted: append([]string{}, e.order...),
		LastUpdated:    e.opts.Now(),
	}
	e.writer.save(p)
}

func (e *Engine) speakLocked(w models.WordRecord) func() {
	p := e.opts.Pronouncer
	if p == nil {
		return nil
	}
	rate := e.rate
	log := e.log
	return func() {
		e.spawn(func() {
			ctx, cancel := context.WithTimeout(context.Background(), audioTimeout)
			defer cancel()
			if err := p.Pronounce(ctx, w.Word, w.Sound, rate); err != nil {
				log.Debug("pronounce failed", "word", w.ID, "error", err)
			}
		})
	}
}

func (e *Engine) cueLocked(correct bool) func() {
	c := e.opts.Cue
	if c == nil {
		return nil
	}
	log := e.log
	return func() {
		e.spawn(func() {
			ctx, cancel := context.WithTimeout(context.Background(), audioTimeout)
			defer cancel()
			if err := c.Play(ctx, correct); err != nil {
				log.Debug("cue failed", "correct", correct, "error", err)
			}
		})
	}
}

func (e *Engine) run(fx []func()) {
	for _, f := range fx {
		if f != nil {
			f()
		}
	}
}
