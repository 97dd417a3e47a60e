package progression

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/example/lexera/pkg/models"
)

// manualDelayer queues delayed calls until the test fires them. Stopped
// timers still fire, which simulates a timer that lost the race with Stop.
type manualDelayer struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.stopped = true
	return true
}

func (m *manualDelayer) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{d: d, f: f}
	m.pending = append(m.pending, t)
	return t
}

func (m *manualDelayer) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// fire runs every queued call, including ones queued while firing
func (m *manualDelayer) fire() {
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.mu.Unlock()
			return
		}
		t := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()
		t.f()
	}
}

type memStore struct {
	mu      sync.Mutex
	docs    map[string]models.ProgressState
	gets    int
	creates int
	upserts int
	failAll bool
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]models.ProgressState)}
}

var errStoreDown = errors.New("store down")

func (s *memStore) Get(_ context.Context, identity string) (*models.ProgressState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.failAll {
		return nil, errStoreDown
	}
	p, ok := s.docs[identity]
	if !ok {
		return nil, ErrProgressNotFound
	}
	p = p.Clone()
	return &p, nil
}

func (s *memStore) Create(_ context.Context, identity string, p models.ProgressState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.failAll {
		return errStoreDown
	}
	if _, ok := s.docs[identity]; !ok {
		s.docs[identity] = p.Clone()
	}
	return nil
}

func (s *memStore) Upsert(_ context.Context, identity string, p models.ProgressState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.failAll {
		return errStoreDown
	}
	s.docs[identity] = p.Clone()
	return nil
}

func (s *memStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets + s.creates + s.upserts
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func (r *recorder) count(kind EventKind) int {
	n := 0
	for _, k := range r.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

type staticCatalog struct {
	words []models.WordRecord
	err   error
}

func (c staticCatalog) Fetch(context.Context) ([]models.WordRecord, error) {
	return c.words, c.err
}

type firstIndex struct{}

func (firstIndex) Intn(int) int { return 0 }

type speech struct {
	word string
	url  string
	rate float64
}

type recordingPronouncer struct {
	mu    sync.Mutex
	calls []speech
}

func (p *recordingPronouncer) Pronounce(_ context.Context, word, soundURL string, rate float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, speech{word, soundURL, rate})
	return nil
}

type failingCue struct{ plays int }

func (c *failingCue) Play(context.Context, bool) error {
	c.plays++
	return errors.New("no speaker")
}

func word(id string, d models.Difficulty) models.WordRecord {
	return models.WordRecord{ID: id, Word: id, Options: []string{id, id + "x"}, Difficulty: d}
}

func fullCatalog() []models.WordRecord {
	return []models.WordRecord{
		word("cat", models.Easy), word("dog", models.Easy),
		word("apple", models.Medium), word("banana", models.Medium),
		word("castle", models.Hard),
		word("rhythm", models.Expert), word("queue", models.Expert),
	}
}

type harness struct {
	engine   *Engine
	delay    *manualDelayer
	store    *memStore
	events   *recorder
	pronounc *recordingPronouncer
}

func newHarness(t *testing.T, catalog []models.WordRecord, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{
		delay:    &manualDelayer{},
		store:    newMemStore(),
		events:   &recorder{},
		pronounc: &recordingPronouncer{},
	}
	opts := Options{
		Catalog:    staticCatalog{words: catalog},
		Store:      h.store,
		Pronouncer: h.pronounc,
		Notifier:   h.events,
		Delayer:    h.delay,
		Rand:       rand.New(rand.NewSource(42)),
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.engine = New(opts)
	h.engine.spawn = func(f func()) { f() }
	t.Cleanup(h.engine.Close)
	return h
}

func (h *harness) start(t *testing.T, identity string) {
	t.Helper()
	if err := h.engine.Start(context.Background(), identity); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
}

// answerCorrectly answers the current word and lets the feedback delay elapse
func (h *harness) answerCorrectly(t *testing.T) models.WordRecord {
	t.Helper()
	cur := h.engine.Snapshot().Current
	if cur == nil {
		t.Fatalf("no current word")
	}
	if got := h.engine.SubmitAnswer(cur.Word); got != AnswerCorrect {
		t.Fatalf("SubmitAnswer(%q) = %v, want correct", cur.Word, got)
	}
	h.delay.fire()
	return *cur
}

func TestTwoWordEasyScenario(t *testing.T) {
	catalog := []models.WordRecord{word("cat", models.Easy), word("dog", models.Easy)}
	h := newHarness(t, catalog, nil)
	h.start(t, "")

	first := h.engine.Snapshot().Current
	if first == nil || (first.ID != "cat" && first.ID != "dog") {
		t.Fatalf("unexpected first word: %+v", first)
	}

	h.answerCorrectly(t)
	s := h.engine.Snapshot()
	if s.Score != 10 || len(s.WordsCompleted) != 1 || s.WordsCompleted[0] != first.ID {
		t.Fatalf("after first answer: score=%d completed=%v", s.Score, s.WordsCompleted)
	}
	if s.Current == nil || s.Current.ID == first.ID {
		t.Fatalf("second word should be the other record, got %+v", s.Current)
	}

	h.answerCorrectly(t)
	s = h.engine.Snapshot()
	if s.Score != 20 || len(s.WordsCompleted) != 2 {
		t.Fatalf("after second answer: score=%d completed=%v", s.Score, s.WordsCompleted)
	}
	if s.Current != nil {
		t.Fatalf("current word should be none, got %+v", s.Current)
	}
	if s.Phase != PhaseCompleted {
		t.Fatalf("phase = %v, want completed", s.Phase)
	}
	if h.events.count(GameCompleted) != 1 || h.events.count(TierAdvanced) != 0 {
		t.Fatalf("unexpected events: %v", h.events.kinds())
	}
	if s.Level != models.Easy {
		t.Fatalf("level = %v, want easy", s.Level)
	}
}

func TestSelectionNeverRepeatsWithinTier(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		h := newHarness(t, fullCatalog(), func(o *Options) {
			o.Rand = rand.New(rand.NewSource(seed))
			o.TierAdvanceDelay = time.Millisecond
		})
		h.start(t, "")

		seen := make(map[string]bool)
		for i := 0; i < len(fullCatalog()); i++ {
			cur := h.engine.Snapshot().Current
			if cur == nil {
				t.Fatalf("seed %d: ran out of words after %d answers", seed, i)
			}
			if seen[cur.ID] {
				t.Fatalf("seed %d: word %q presented twice", seed, cur.ID)
			}
			if cur.Difficulty != h.engine.Snapshot().Level {
				t.Fatalf("seed %d: word %q tier %v differs from level", seed, cur.ID, cur.Difficulty)
			}
			seen[cur.ID] = true
			h.answerCorrectly(t)
		}
		if h.engine.Snapshot().Phase != PhaseCompleted {
			t.Fatalf("seed %d: game should be completed", seed)
		}
	}
}

func TestTierAdvanceKeepsUsedWordsAndGatesInput(t *testing.T) {
	h := newHarness(t, fullCatalog(), func(o *Options) {
		o.Rand = firstIndex{}
		o.TierAdvanceDelay = 2500 * time.Millisecond
	})
	h.start(t, "")

	h.answerCorrectly(t) // cat
	cur := h.engine.Snapshot().Current
	if got := h.engine.SubmitAnswer(cur.Word); got != AnswerCorrect {
		t.Fatalf("dog answer = %v", got)
	}
	h.delay.fire() // feedback delay, then tier advance schedules the celebration

	s := h.engine.Snapshot()
	if s.Level != models.Medium {
		t.Fatalf("level = %v, want medium", s.Level)
	}
	if len(s.WordsCompleted) != 2 {
		t.Fatalf("used words reset on tier advance: %v", s.WordsCompleted)
	}
	if h.events.count(TierAdvanced) != 1 {
		t.Fatalf("expected one tier advance, events %v", h.events.kinds())
	}
}

func TestTierCelebrationRejectsAnswers(t *testing.T) {
	catalog := []models.WordRecord{word("cat", models.Easy), word("apple", models.Medium)}
	h := newHarness(t, catalog, func(o *Options) {
		o.TierAdvanceDelay = 2500 * time.Millisecond
	})
	h.start(t, "")

	if got := h.engine.SubmitAnswer("cat"); got != AnswerCorrect {
		t.Fatalf("answer = %v", got)
	}
	// Run only the feedback continuation.
	h.delay.mu.Lock()
	feedback := h.delay.pending[0]
	h.delay.pending = h.delay.pending[1:]
	h.delay.mu.Unlock()
	feedback.f()

	s := h.engine.Snapshot()
	if s.Phase != PhasePresentingFeedback || s.Level != models.Medium {
		t.Fatalf("expected celebration at medium, got phase=%v level=%v", s.Phase, s.Level)
	}
	if s.Current == nil || s.Current.ID != "apple" {
		t.Fatalf("current = %+v, want apple", s.Current)
	}
	if got := h.engine.SubmitAnswer("apple"); got != Ignored {
		t.Fatalf("answer during celebration = %v, want ignored", got)
	}
	if h.delay.len() != 1 {
		t.Fatalf("expected celebration timer pending, have %d", h.delay.len())
	}
	if h.events.count(WordSelected) != 1 {
		t.Fatalf("apple announced before celebration ended: %v", h.events.kinds())
	}

	h.delay.fire()
	if h.engine.Snapshot().Phase != PhaseReady {
		t.Fatalf("phase after celebration = %v", h.engine.Snapshot().Phase)
	}
	if h.events.count(WordSelected) != 2 {
		t.Fatalf("apple not announced: %v", h.events.kinds())
	}
	if got := h.engine.SubmitAnswer("apple"); got != AnswerCorrect {
		t.Fatalf("answer after celebration = %v", got)
	}
}

func TestGameCompletedIsStickyUntilReset(t *testing.T) {
	catalog := []models.WordRecord{word("cat", models.Easy), word("queue", models.Expert)}
	h := newHarness(t, catalog, func(o *Options) { o.TierAdvanceDelay = 0 })
	h.start(t, "")

	h.answerCorrectly(t)
	if lvl := h.engine.Snapshot().Level; lvl != models.Expert {
		t.Fatalf("empty tiers should be skipped, level = %v", lvl)
	}
	if n := h.events.count(TierAdvanced); n != 1 {
		t.Fatalf("jump over empty tiers emitted %d TierAdvanced, want 1", n)
	}
	h.answerCorrectly(t)

	if h.events.count(GameCompleted) != 1 {
		t.Fatalf("events: %v", h.events.kinds())
	}
	h.engine.SelectNextWord()
	h.engine.SelectNextWord()
	s := h.engine.Snapshot()
	if s.Current != nil || s.Phase != PhaseCompleted {
		t.Fatalf("completed state changed: %+v", s)
	}
	if h.events.count(GameCompleted) != 1 {
		t.Fatalf("game completed re-emitted: %v", h.events.kinds())
	}

	h.engine.ResetProgress()
	s = h.engine.Snapshot()
	if s.Level != models.Easy || s.Score != 0 || len(s.WordsCompleted) != 0 {
		t.Fatalf("reset did not restore defaults: %+v", s)
	}
	if s.Current == nil || s.Current.ID != "cat" || s.Phase != PhaseReady {
		t.Fatalf("reset did not select a fresh word: %+v", s)
	}
}

func TestIncorrectAnswerRetriesSameWord(t *testing.T) {
	h := newHarness(t, fullCatalog(), nil)
	h.start(t, "")

	cur := h.engine.Snapshot().Current
	if got := h.engine.SubmitAnswer(cur.Word + "x"); got != AnswerIncorrect {
		t.Fatalf("wrong answer = %v", got)
	}
	if got := h.engine.SubmitAnswer(cur.Word); got != Ignored {
		t.Fatalf("answer during feedback = %v, want ignored", got)
	}
	s := h.engine.Snapshot()
	if s.Score != 0 || len(s.WordsCompleted) != 0 {
		t.Fatalf("wrong answer changed progress: %+v", s)
	}

	h.delay.fire()
	s = h.engine.Snapshot()
	if s.Phase != PhaseReady || s.Current == nil || s.Current.ID != cur.ID {
		t.Fatalf("expected retry of %q, got %+v", cur.ID, s)
	}
	if h.events.count(Incorrect) != 1 {
		t.Fatalf("events: %v", h.events.kinds())
	}
}

func TestAnswerMatchIsExact(t *testing.T) {
	cases := []struct {
		name   string
		answer string
		want   Outcome
	}{
		{"exact", "cat", AnswerCorrect},
		{"upper", "Cat", AnswerIncorrect},
		{"padded", " cat", AnswerIncorrect},
		{"empty", "", AnswerIncorrect},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, []models.WordRecord{word("cat", models.Easy)}, nil)
			h.start(t, "")
			if got := h.engine.SubmitAnswer(tc.answer); got != tc.want {
				t.Fatalf("SubmitAnswer(%q) = %v, want %v", tc.answer, got, tc.want)
			}
		})
	}
}

func TestAnswerOptionIgnoresStaleInput(t *testing.T) {
	h := newHarness(t, []models.WordRecord{word("cat", models.Easy), word("dog", models.Easy)}, func(o *Options) {
		o.Rand = firstIndex{}
	})
	h.start(t, "")

	if got := h.engine.AnswerOption("dog", 0); got != Ignored {
		t.Fatalf("answer for another word = %v", got)
	}
	if got := h.engine.AnswerOption("cat", 5); got != Ignored {
		t.Fatalf("out of range option = %v", got)
	}
	if got := h.engine.AnswerOption("cat", 1); got != AnswerIncorrect {
		t.Fatalf("wrong option = %v", got)
	}
	h.delay.fire()
	if got := h.engine.AnswerOption("cat", 0); got != AnswerCorrect {
		t.Fatalf("right option = %v", got)
	}
	h.delay.fire()
	if got := h.engine.AnswerOption("cat", 0); got != Ignored {
		t.Fatalf("replayed button = %v", got)
	}
	if s := h.engine.Snapshot(); s.Score != 10 || s.Current == nil || s.Current.ID != "dog" {
		t.Fatalf("state = %+v", s)
	}
}

func TestSubmitWithoutCurrentWordIsNoop(t *testing.T) {
	h := newHarness(t, nil, nil)
	if got := h.engine.SubmitAnswer("cat"); got != Ignored {
		t.Fatalf("before start = %v", got)
	}
	h.start(t, "")
	if got := h.engine.SubmitAnswer("cat"); got != Ignored {
		t.Fatalf("empty catalog = %v", got)
	}
	if h.events.count(CatalogExhausted) != 1 {
		t.Fatalf("events: %v", h.events.kinds())
	}
	if s := h.engine.Snapshot(); s.Score != 0 || s.Current != nil {
		t.Fatalf("state changed: %+v", s)
	}
}

func TestCatalogExhaustedWhenNothingAtOrAboveLevel(t *testing.T) {
	h := newHarness(t, []models.WordRecord{word("cat", models.Easy)}, nil)
	h.store.docs["u1"] = models.ProgressState{Level: models.Hard, Score: 50}
	h.start(t, "u1")

	if h.events.count(CatalogExhausted) != 1 || h.events.count(GameCompleted) != 0 {
		t.Fatalf("events: %v", h.events.kinds())
	}
}

func TestSpeechRateClamp(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{2.0, 1.5},
		{0.1, 0.5},
		{1.0, 1.0},
		{0.5, 0.5},
		{1.5, 1.5},
		{-3, 0.5},
	}
	e := New(Options{})
	for _, tc := range cases {
		if got := e.SetSpeechRate(tc.in); got != tc.want {
			t.Fatalf("SetSpeechRate(%v) = %v, want %v", tc.in, got, tc.want)
		}
		if got := e.SpeechRate(); got != tc.want {
			t.Fatalf("SpeechRate after %v = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestPronouncerGetsSoundAndClampedRate(t *testing.T) {
	w := word("cat", models.Easy)
	w.Sound = "https://cdn.example/cat.mp3"
	h := newHarness(t, []models.WordRecord{w}, nil)
	h.engine.SetSpeechRate(9)
	h.start(t, "")

	if !h.engine.RepeatWord() {
		t.Fatalf("RepeatWord returned false")
	}
	h.pronounc.mu.Lock()
	defer h.pronounc.mu.Unlock()
	if len(h.pronounc.calls) != 2 {
		t.Fatalf("pronounce calls = %d, want 2", len(h.pronounc.calls))
	}
	got := h.pronounc.calls[0]
	if got.word != "cat" || got.url != w.Sound || got.rate != MaxSpeechRate {
		t.Fatalf("unexpected pronounce call: %+v", got)
	}
}

func TestAnonymousSessionNeverTouchesStore(t *testing.T) {
	h := newHarness(t, fullCatalog(), nil)
	h.start(t, "")
	h.answerCorrectly(t)
	h.engine.ResetProgress()
	h.engine.Close()

	if n := h.store.calls(); n != 0 {
		t.Fatalf("store called %d times for anonymous session", n)
	}
}

func TestFirstSessionCreatesDefaults(t *testing.T) {
	h := newHarness(t, fullCatalog(), nil)
	h.start(t, "u1")

	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	if h.store.creates != 1 {
		t.Fatalf("creates = %d, want 1", h.store.creates)
	}
	doc := h.store.docs["u1"]
	if doc.Level != models.Easy || doc.Score != 0 || len(doc.WordsCompleted) != 0 {
		t.Fatalf("unexpected defaults: %+v", doc)
	}
}

func TestResumeStoredProgress(t *testing.T) {
	h := newHarness(t, fullCatalog(), nil)
	// "apple" is stored by word value, as older clients did.
	h.store.docs["u1"] = models.ProgressState{
		Level:          models.Medium,
		Score:          30,
		WordsCompleted: []string{"cat", "dog", "apple", "apple"},
	}
	h.start(t, "u1")

	s := h.engine.Snapshot()
	if s.Level != models.Medium || s.Score != 30 {
		t.Fatalf("progress not resumed: %+v", s)
	}
	if len(s.WordsCompleted) != 3 {
		t.Fatalf("completed = %v, want 3 unique ids", s.WordsCompleted)
	}
	if s.Current == nil || s.Current.ID != "banana" {
		t.Fatalf("current = %+v, want banana", s.Current)
	}
	if h.store.creates != 0 {
		t.Fatalf("existing progress must not be recreated")
	}
	if done, total := h.engine.TierProgress(); done != 1 || total != 2 {
		t.Fatalf("TierProgress = %d/%d, want 1/2", done, total)
	}
}

func TestCorrectAnswerIsPersisted(t *testing.T) {
	h := newHarness(t, fullCatalog(), nil)
	h.start(t, "u1")
	first := h.answerCorrectly(t)
	h.engine.Close()

	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	doc := h.store.docs["u1"]
	if doc.Score != 10 || len(doc.WordsCompleted) != 1 || doc.WordsCompleted[0] != first.ID {
		t.Fatalf("persisted progress = %+v", doc)
	}
	if doc.LastUpdated.IsZero() {
		t.Fatalf("lastUpdated not set")
	}
}

func TestResetIsPersisted(t *testing.T) {
	h := newHarness(t, fullCatalog(), nil)
	h.store.docs["u1"] = models.ProgressState{Level: models.Hard, Score: 90, WordsCompleted: []string{"cat"}}
	h.start(t, "u1")
	h.engine.ResetProgress()
	h.engine.Close()

	doc := h.store.docs["u1"]
	if doc.Level != models.Easy || doc.Score != 0 || len(doc.WordsCompleted) != 0 {
		t.Fatalf("reset not persisted: %+v", doc)
	}
}

func TestCloseFromNotifierKeepsLastSave(t *testing.T) {
	var h *harness
	h = newHarness(t, fullCatalog(), func(o *Options) {
		o.Notifier = NotifierFunc(func(ev Event) {
			if ev.Kind == Correct {
				h.engine.Close()
			}
		})
	})
	h.start(t, "u1")

	cur := h.engine.Snapshot().Current
	if got := h.engine.SubmitAnswer(cur.Word); got != AnswerCorrect {
		t.Fatalf("SubmitAnswer = %v", got)
	}
	if h.engine.Snapshot().Phase != PhaseClosed {
		t.Fatalf("engine should be closed by the notifier")
	}

	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	doc := h.store.docs["u1"]
	if doc.Score != 10 || len(doc.WordsCompleted) != 1 || doc.WordsCompleted[0] != cur.ID {
		t.Fatalf("save lost on close: %+v", doc)
	}
}

func TestStoreFailuresDoNotBlockPlay(t *testing.T) {
	h := newHarness(t, fullCatalog(), nil)
	h.store.failAll = true
	h.start(t, "u1")

	h.answerCorrectly(t)
	s := h.engine.Snapshot()
	if s.Score != 10 || s.Current == nil {
		t.Fatalf("play should continue in memory: %+v", s)
	}
}

func TestCatalogFailureEndsGracefully(t *testing.T) {
	h := newHarness(t, nil, func(o *Options) {
		o.Catalog = staticCatalog{err: errors.New("offline")}
	})
	h.start(t, "")
	if h.events.count(CatalogExhausted) != 1 {
		t.Fatalf("events: %v", h.events.kinds())
	}
}

func TestCueFailureDoesNotAffectState(t *testing.T) {
	cue := &failingCue{}
	h := newHarness(t, fullCatalog(), func(o *Options) { o.Cue = cue })
	h.start(t, "")
	h.answerCorrectly(t)
	if cue.plays != 1 || h.engine.Snapshot().Score != 10 {
		t.Fatalf("plays=%d score=%d", cue.plays, h.engine.Snapshot().Score)
	}
}

func TestLateTimerAfterCloseIsDiscarded(t *testing.T) {
	h := newHarness(t, fullCatalog(), nil)
	h.start(t, "")
	cur := h.engine.Snapshot().Current
	h.engine.SubmitAnswer(cur.Word)
	before := h.events.count(WordSelected)

	h.engine.Close()
	h.delay.fire()

	if got := h.events.count(WordSelected); got != before {
		t.Fatalf("timer fired after close selected a word")
	}
	if h.engine.Snapshot().Phase != PhaseClosed {
		t.Fatalf("phase = %v", h.engine.Snapshot().Phase)
	}
	if got := h.engine.SubmitAnswer(cur.Word); got != Ignored {
		t.Fatalf("answer after close = %v", got)
	}
	if err := h.engine.Start(context.Background(), ""); !errors.Is(err, ErrAlreadyStarted) && !errors.Is(err, ErrClosed) {
		t.Fatalf("Start after close = %v", err)
	}
}

func TestLateTimerAfterResetIsDiscarded(t *testing.T) {
	h := newHarness(t, fullCatalog(), func(o *Options) { o.Rand = firstIndex{} })
	h.start(t, "")
	h.engine.SubmitAnswer("cat")
	h.engine.ResetProgress()

	s := h.engine.Snapshot()
	h.delay.fire()
	after := h.engine.Snapshot()
	if after.Current == nil || after.Current.ID != s.Current.ID || after.Score != 0 {
		t.Fatalf("stale continuation applied after reset: before %+v after %+v", s, after)
	}
}

func TestStartTwice(t *testing.T) {
	h := newHarness(t, fullCatalog(), nil)
	h.start(t, "")
	if err := h.engine.Start(context.Background(), ""); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start = %v", err)
	}
}

func TestNormalizeCompleted(t *testing.T) {
	catalog := []models.WordRecord{
		{ID: "word1", Word: "cat", Difficulty: models.Easy},
		{ID: "word2", Word: "dog", Difficulty: models.Easy},
	}
	got := normalizeCompleted([]string{"cat", "word1", "word2", "ghost"}, catalog)
	want := []string{"word1", "word2", "ghost"}
	if len(got) != len(want) {
		t.Fatalf("normalizeCompleted = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("normalizeCompleted = %v, want %v", got, want)
		}
	}
}
