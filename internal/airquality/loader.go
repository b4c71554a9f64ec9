package airquality

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Loader runs load sequences against a provider and records their outcome in
// a state store.
type Loader struct {
	provider Provider
	states   StateStore
}

// NewLoader creates a new Loader.
func NewLoader(provider Provider, states StateStore) *Loader {
	return &Loader{
		provider: provider,
		states:   states,
	}
}

// States returns the store the loader writes to.
func (l *Loader) States() StateStore {
	return l.states
}

// Load returns a lazy load sequence. Nothing is requested until the sequence
// is ranged over, and every range starts a new, independent sequence.
//
// The sequence yields Loading, then exactly one of Ready or Failed. The
// resolution is discarded, neither stored nor yielded, when ctx is done before
// the provider returns or when a newer sequence has started in the meantime.
func (l *Loader) Load(ctx context.Context) iter.Seq[LoadState] {
	return func(yield func(LoadState) bool) {
		loading, log := l.begin()
		if !yield(loading) {
			log.Debug("load consumer stopped before fetch")
			return
		}
		if st, ok := l.resolve(ctx, loading, log); ok {
			yield(st)
		}
	}
}

// Start begins a new sequence and resolves it in the background. The
// returned Loading state is already current in the store when Start returns.
// timeout bounds the fetch and must exceed the provider's own request
// timeout, otherwise an expired sequence stays Loading until the next one.
func (l *Loader) Start(parent context.Context, timeout time.Duration) LoadState {
	loading, log := l.begin()
	ctx, cancel := context.WithTimeout(parent, timeout)
	go func() {
		defer cancel()
		l.resolve(ctx, loading, log)
	}()
	return loading
}

func (l *Loader) begin() (LoadState, *zap.Logger) {
	loading := l.states.Begin()
	log := zap.L().With(
		zap.String("load_id", uuid.NewString()),
		zap.Uint64("generation", loading.Generation),
		zap.String("provider", l.provider.Name()),
	)
	log.Debug("air quality load started")
	return loading, log
}

// resolve fetches and dispatches the outcome of the sequence started as
// loading. ok is false when the outcome was discarded.
func (l *Loader) resolve(ctx context.Context, loading LoadState, log *zap.Logger) (LoadState, bool) {
	snap, err := l.provider.Fetch(ctx)
	if ctx.Err() != nil {
		log.Info("load discarded, consumer context done", zap.Error(ctx.Err()))
		return LoadState{}, false
	}

	var ev Event
	if err != nil {
		// The cause stays in the logs; the state only carries FailureMessage.
		log.Warn("air quality load failed",
			zap.String("kind", KindOf(err).String()),
			zap.Error(err),
		)
		ev = Failed(loading.Generation, err)
	} else {
		log.Info("air quality load complete",
			zap.Int("aqi", snap.AQI),
			zap.String("station", snap.Location.Name),
		)
		ev = Succeeded(loading.Generation, snap)
	}

	cur := l.states.Dispatch(ev)
	if cur.Generation != loading.Generation {
		log.Info("stale load result discarded", zap.Uint64("current_generation", cur.Generation))
		return LoadState{}, false
	}
	return cur, true
}

// Reload drains one load sequence and returns its final state. When the
// result was discarded it returns the store's current state instead.
func (l *Loader) Reload(ctx context.Context) LoadState {
	var last LoadState
	for st := range l.Load(ctx) {
		last = st
	}
	if !last.Settled() {
		return l.states.Current()
	}
	return last
}
