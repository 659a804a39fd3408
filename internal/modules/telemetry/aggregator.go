// README: Telemetry aggregator; polls feeds concurrently, merges, classifies and publishes snapshots.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// IdentitySource is the identity mapper as the aggregator uses it.
type IdentitySource interface {
	Identities
	Reload(ctx context.Context) error
}

// Mirror receives every published snapshot, e.g. for dashboards reading Redis.
type Mirror interface {
	Write(ctx context.Context, s *Snapshot) error
}

type Options struct {
	Geofence        Geofence
	PollInterval    time.Duration
	// FeedTimeout bounds each feed's fetch; FeedTimeouts overrides it by feed name.
	FeedTimeout     time.Duration
	FeedTimeouts    map[string]time.Duration
	// IdentityTimeout bounds the assignment reload; zero means FeedTimeout.
	IdentityTimeout time.Duration
	Mirror          Mirror
}

type Aggregator struct {
	feeds  []Feed
	ids    IdentitySource
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	generation atomic.Uint64
	current    atomic.Pointer[Snapshot]
}

func NewAggregator(feeds []Feed, ids IdentitySource, logger *zap.Logger, opts Options) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.FeedTimeout <= 0 {
		opts.FeedTimeout = 5 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 15 * time.Second
	}
	if opts.IdentityTimeout <= 0 {
		opts.IdentityTimeout = opts.FeedTimeout
	}
	return &Aggregator{
		feeds:  feeds,
		ids:    ids,
		opts:   opts,
		logger: logger.Named("telemetry"),
		now:    time.Now,
	}
}

type feedResult struct {
	view     PartialView
	err      error
	duration time.Duration
}

// Refresh runs one cycle and returns the snapshot it built. The snapshot is
// published unless a newer cycle has already published; in that case it is
// returned but discarded.
func (a *Aggregator) Refresh(ctx context.Context) *Snapshot {
	gen := a.generation.Add(1)

	results := make([]feedResult, len(a.feeds))
	var wg sync.WaitGroup
	if a.ids != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.reloadIdentities(ctx)
		}()
	}
	for i, f := range a.feeds {
		i, f := i, f
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = a.fetch(ctx, f)
		}()
	}
	wg.Wait()

	views := make([]PartialView, 0, len(a.feeds))
	var feedErrors map[string]string
	for i, r := range results {
		f := a.feeds[i]
		if r.err != nil {
			a.logger.Warn("feed failed",
				zap.String("feed", f.Name()), zap.Duration("duration", r.duration), zap.Error(r.err))
			if feedErrors == nil {
				feedErrors = make(map[string]string)
			}
			feedErrors[f.Name()] = r.err.Error()
			continue
		}
		r.view.Kind = f.Kind()
		views = append(views, r.view)
	}

	snap := newSnapshot(gen, a.now().UTC(), Merge(views, a.ids, a.opts.Geofence), feedErrors)
	if !a.publish(snap) {
		a.logger.Debug("stale snapshot discarded", zap.Uint64("generation", gen))
		return snap
	}
	a.logger.Debug("snapshot published",
		zap.Uint64("generation", gen), zap.Int("vehicles", len(snap.Vehicles)), zap.Int("feed_errors", len(feedErrors)))

	if a.opts.Mirror != nil {
		if err := a.opts.Mirror.Write(ctx, snap); err != nil {
			a.logger.Warn("snapshot mirror failed", zap.Uint64("generation", gen), zap.Error(err))
		}
	}
	return snap
}

func (a *Aggregator) fetch(ctx context.Context, f Feed) feedResult {
	timeout := a.opts.FeedTimeout
	if d, ok := a.opts.FeedTimeouts[f.Name()]; ok && d > 0 {
		timeout = d
	}
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan feedResult, 1)
	go func() {
		view, err := f.Fetch(fctx)
		done <- feedResult{view: view, err: err, duration: time.Since(start)}
	}()
	select {
	case r := <-done:
		return r
	case <-fctx.Done():
		return feedResult{err: fmt.Errorf("feed %s: %w", f.Name(), fctx.Err()), duration: time.Since(start)}
	}
}

// reloadIdentities refreshes the assignment table within IdentityTimeout. A
// failed or late reload leaves the previous table in place for this cycle.
func (a *Aggregator) reloadIdentities(ctx context.Context) {
	rctx, cancel := context.WithTimeout(ctx, a.opts.IdentityTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- a.ids.Reload(rctx) }()
	select {
	case <-done:
		// the mapper logs its own failures
	case <-rctx.Done():
		a.logger.Warn("identity reload timed out",
			zap.Duration("duration", time.Since(start)), zap.Error(rctx.Err()))
	}
}

// publish stores s unless a snapshot of a later generation is already current.
func (a *Aggregator) publish(s *Snapshot) bool {
	for {
		cur := a.current.Load()
		if cur != nil && cur.Generation > s.Generation {
			return false
		}
		if a.current.CompareAndSwap(cur, s) {
			return true
		}
	}
}

// Snapshot returns the latest published snapshot, or nil before the first one.
func (a *Aggregator) Snapshot() *Snapshot {
	return a.current.Load()
}

func (a *Aggregator) Ready() bool {
	return a.current.Load() != nil
}

// Run refreshes immediately and then every PollInterval until ctx is done.
func (a *Aggregator) Run(ctx context.Context) {
	ticker := time.NewTicker(a.opts.PollInterval)
	defer ticker.Stop()

	a.Refresh(ctx)
	a.logger.Info("telemetry ready", zap.Int("feeds", len(a.feeds)), zap.Duration("interval", a.opts.PollInterval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Refresh(ctx)
		}
	}
}
