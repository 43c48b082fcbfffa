// Package dashboard assembles the account dashboard: one snapshot per
// refresh, fetched as a concurrent batch of the four analytics
// sections. Refreshes inside the cooldown window are deduplicated, and
// a forced refresh supersedes whatever batch is still in flight.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pagereach/console/internal/backend"
	"github.com/pagereach/console/internal/config"
)

// ErrSuperseded is returned to a refresh whose batch was overtaken by a
// newer forced refresh. Its results are discarded, never stored.
var ErrSuperseded = errors.New("dashboard: refresh superseded by a newer one")

// Backend is the slice of the API client the refresher needs.
type Backend interface {
	UserAnalytics(ctx context.Context, opts backend.UserAnalyticsOptions) (*backend.UserAnalytics, error)
	Performance(ctx context.Context, opts backend.PerformanceOptions) (*backend.Performance, error)
	DailyStats(ctx context.Context, opts backend.DailyStatsOptions) (*backend.DailyStats, error)
	Revenue(ctx context.Context, opts backend.RevenueOptions) (*backend.Revenue, error)
}

// Snapshot is one fully assembled dashboard. Snapshots are replaced
// wholesale and never mutated after publication.
type Snapshot struct {
	Analytics   *backend.UserAnalytics
	Performance *backend.Performance
	Daily       *backend.DailyStats
	Revenue     *backend.Revenue
	FetchedAt   time.Time
}

// Refresher fetches dashboard snapshots with refresh deduplication.
type Refresher struct {
	api      Backend
	cooldown time.Duration
	days     int
	log      *zap.Logger

	mu          sync.Mutex
	snapshot    *Snapshot
	lastStarted time.Time
	generation  int
	cancel      context.CancelFunc
}

// NewRefresher creates a refresher. Zero config values fall back to a
// 1s cooldown over a 30 day range.
func NewRefresher(api Backend, cfg config.DashboardConfig, log *zap.Logger) *Refresher {
	if log == nil {
		log = zap.NewNop()
	}
	cooldown := cfg.Cooldown()
	if cooldown <= 0 {
		cooldown = time.Second
	}
	days := cfg.RangeDays
	if days <= 0 {
		days = 30
	}
	return &Refresher{
		api:      api,
		cooldown: cooldown,
		days:     days,
		log:      log,
	}
}

// Latest returns the most recently completed snapshot, or nil. The
// returned snapshot is shared and must be treated as read-only.
func (r *Refresher) Latest() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot
}

// LastRefresh returns when the current snapshot was assembled, zero if
// none completed yet.
func (r *Refresher) LastRefresh() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snapshot == nil {
		return time.Time{}
	}
	return r.snapshot.FetchedAt
}

// Refresh fetches a new snapshot. A non-forced call inside the cooldown
// window of the previously started refresh is a no-op returning the
// cached snapshot (nil when nothing completed yet). A forced call
// bypasses the cooldown and cancels the in-flight batch; the loser's
// results are discarded, so a stale batch can never overwrite a newer
// snapshot.
func (r *Refresher) Refresh(ctx context.Context, force bool) (*Snapshot, error) {
	r.mu.Lock()
	now := time.Now()
	if !force && !r.lastStarted.IsZero() && now.Sub(r.lastStarted) < r.cooldown {
		snap := r.snapshot
		r.mu.Unlock()
		r.log.Debug("dashboard refresh suppressed inside cooldown")
		return snap, nil
	}
	if r.cancel != nil {
		// Supersede whatever is still running.
		r.cancel()
		r.cancel = nil
	}
	r.lastStarted = now
	r.generation++
	gen := r.generation
	batchCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	snap, err := r.fetchAll(batchCtx)
	cancel()

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		return nil, ErrSuperseded
	}
	r.cancel = nil
	if err != nil {
		return nil, err
	}
	r.snapshot = snap
	return snap, nil
}

// fetchAll fetches the four dashboard sections concurrently. The
// snapshot is only returned when every section succeeded; on partial
// failure the first error wins and nothing is stored.
func (r *Refresher) fetchAll(ctx context.Context) (*Snapshot, error) {
	start := time.Now()

	var wg sync.WaitGroup
	type fetchResult struct {
		name string
		err  error
	}
	results := make(chan fetchResult, 4)

	snap := &Snapshot{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		a, err := r.api.UserAnalytics(ctx, backend.UserAnalyticsOptions{Days: r.days})
		if err == nil {
			snap.Analytics = a
		}
		results <- fetchResult{name: "analytics", err: err}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		p, err := r.api.Performance(ctx, backend.PerformanceOptions{TimeRange: r.days})
		if err == nil {
			snap.Performance = p
		}
		results <- fetchResult{name: "performance", err: err}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		d, err := r.api.DailyStats(ctx, backend.DailyStatsOptions{Days: r.days})
		if err == nil {
			snap.Daily = d
		}
		results <- fetchResult{name: "daily_stats", err: err}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		rev, err := r.api.Revenue(ctx, backend.RevenueOptions{Days: r.days})
		if err == nil {
			snap.Revenue = rev
		}
		results <- fetchResult{name: "revenue", err: err}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var firstErr error
	for result := range results {
		if result.err != nil {
			r.log.Warn("dashboard section fetch failed",
				zap.String("section", result.name),
				zap.Error(result.err),
			)
			if firstErr == nil {
				firstErr = result.err
			}
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	snap.FetchedAt = time.Now()
	r.log.Debug("dashboard refreshed", zap.Duration("took", time.Since(start)))
	return snap, nil
}
