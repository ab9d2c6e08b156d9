// Package loader orchestrates the client-side fetch of process metadata
// and its rendered preview for one viewing surface.
package loader

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jacksnnn/fabublox-process-selector/internal/proxy"
)

// Caller issues proxied calls on behalf of the current session. The
// concrete implementation is the HTTP stub in this package; tests swap in
// a double.
type Caller interface {
	ProcessByID(ctx context.Context, id string) (*proxy.ProcessMetadata, error)
	ProcessSVG(ctx context.Context, id string) (string, error)
}

// Snapshot is what the presentation layer reads. Either slot may be nil
// or empty when its fetch failed; a failed slot never fails the other.
type Snapshot struct {
	Metadata *proxy.ProcessMetadata
	Preview  string
	Loading  bool
}

// Loader fetches metadata and preview for one canonical identifier at a
// time. A new Load cancels the previous in-flight one, and stale results
// never overwrite a newer snapshot. Nothing is cached: every Load
// re-fetches.
type Loader struct {
	caller Caller
	logger *slog.Logger

	mu     sync.Mutex
	snap   Snapshot
	gen    int
	cancel context.CancelFunc
}

// New creates a loader over a caller.
func New(caller Caller, logger *slog.Logger) *Loader {
	return &Loader{caller: caller, logger: logger}
}

// Load starts fetching both slots for id. Empty id is a no-op that
// leaves the snapshot untouched. The returned channel closes when both
// fetches have completed (or the load was cancelled); it exists for
// consumers that need to sequence on completion.
func (l *Loader) Load(ctx context.Context, id string) <-chan struct{} {
	done := make(chan struct{})
	if id == "" {
		close(done)
		return done
	}

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.gen++
	gen := l.gen
	l.snap = Snapshot{Loading: true}
	l.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		var g errgroup.Group
		g.Go(func() error {
			md, err := l.caller.ProcessByID(loadCtx, id)
			if err != nil {
				l.logger.Warn("loader: metadata fetch failed",
					slog.String("id", id), slog.String("error", err.Error()))
				return nil
			}
			l.apply(gen, func(s *Snapshot) { s.Metadata = md })
			return nil
		})
		g.Go(func() error {
			svg, err := l.caller.ProcessSVG(loadCtx, id)
			if err != nil {
				l.logger.Warn("loader: preview fetch failed",
					slog.String("id", id), slog.String("error", err.Error()))
				return nil
			}
			l.apply(gen, func(s *Snapshot) { s.Preview = svg })
			return nil
		})
		_ = g.Wait()
		l.apply(gen, func(s *Snapshot) { s.Loading = false })
	}()
	return done
}

// apply mutates the snapshot unless the load that produced the result
// has been superseded.
func (l *Loader) apply(gen int, mutate func(*Snapshot)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return
	}
	mutate(&l.snap)
}

// Snapshot returns a copy of the current state.
func (l *Loader) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap
}

// Close cancels any in-flight load. Called when the owning view is torn
// down so a stale response cannot arrive afterwards.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
}
