package progression

import (
	"context"
	"sync"
	"time"

	"github.com/example/lexera/internal/logger"
	"github.com/example/lexera/pkg/models"
)

// writer persists progress snapshots for one identity on its own goroutine.
// Saves never block; only the latest unsaved snapshot is kept.
type writer struct {
	store    ProgressStore
	identity string
	timeout  time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	pending *models.ProgressState
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

func newWriter(store ProgressStore, identity string, timeout time.Duration, log *logger.Logger) *writer {
	w := &writer{
		store:    store,
		identity: identity,
		timeout:  timeout,
		log:      log,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *writer) save(p models.ProgressState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending = &p
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *writer) loop() {
	defer close(w.done)
	for range w.wake {
		w.flush()
	}
	w.flush()
}

func (w *writer) flush() {
	w.mu.Lock()
	p := w.pending
	w.pending = nil
	w.mu.Unlock()
	if p == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := w.store.Upsert(ctx, w.identity, *p); err != nil {
		w.log.Warn("save progress failed", "identity", w.identity, "error", err)
		return
	}
	w.log.Debug("progress saved", "identity", w.identity, "level", p.Level, "score", p.Score)
}

// close writes whatever is still pending and waits for the goroutine to exit
func (w *writer) close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	close(w.wake)
	w.mu.Unlock()
	<-w.done
}
