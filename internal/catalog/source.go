package catalog

import (
	"context"

	"github.com/example/lexera/internal/logger"
	"github.com/example/lexera/pkg/models"
)

// Fetcher is anything that can list the remote word catalog
type Fetcher interface {
	Fetch(ctx context.Context) ([]models.WordRecord, error)
}

// FetchFunc adapts a plain function to Fetcher
type FetchFunc func(ctx context.Context) ([]models.WordRecord, error)

func (f FetchFunc) Fetch(ctx context.Context) ([]models.WordRecord, error) { return f(ctx) }

// Fallback serves the remote catalog and falls back to Local when the remote
// fails or is empty. It never returns an error.
type Fallback struct {
	remote Fetcher
	log    *logger.Logger
}

// WithFallback wraps remote. A nil remote always serves the local list.
func WithFallback(remote Fetcher, log *logger.Logger) *Fallback {
	if log == nil {
		log = logger.Nop()
	}
	return &Fallback{remote: remote, log: log.With("component", "catalog")}
}

func (f *Fallback) Fetch(ctx context.Context) ([]models.WordRecord, error) {
	if f.remote == nil {
		f.log.Warn("no remote catalog configured, using local words")
		return Local(), nil
	}

	words, err := f.remote.Fetch(ctx)
	switch {
	case err != nil:
		f.log.Warn("remote catalog fetch failed, using local words", "error", err)
		return Local(), nil
	case len(words) == 0:
		f.log.Warn("remote catalog is empty, using local words")
		return Local(), nil
	}

	f.log.Debug("remote catalog loaded", "words", len(words))
	return words, nil
}
