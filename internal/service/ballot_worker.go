package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mathieu-neron/callvote/internal/metrics"
	"github.com/mathieu-neron/callvote/internal/model"
	"github.com/mathieu-neron/callvote/internal/repository"
)

// DefaultFlushInterval is how often buffered ballots are written.
const DefaultFlushInterval = 5 * time.Second

// BallotStore persists ballot history.
type BallotStore interface {
	InsertBatch(ctx context.Context, recs []model.BallotRecord) error
	Recent(ctx context.Context, limit int) ([]model.BallotRecord, error)
}

// BallotWorker receives resolved ballots from the game loop and writes them
// to the store in batches. It also keeps the newest ballots in memory so the
// history listing works without a database.
type BallotWorker struct {
	store    BallotStore
	cache    *CacheService
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	pending []model.BallotRecord
	recent  []model.BallotRecord // newest last, at most MaxRecentBallots
}

// NewBallotWorker creates the worker. store and cache may be nil.
func NewBallotWorker(store BallotStore, cache *CacheService, interval time.Duration, logger zerolog.Logger) *BallotWorker {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &BallotWorker{
		store:    store,
		cache:    cache,
		interval: interval,
		log:      logger,
		now:      time.Now,
	}
}

// RecordBallot queues rec for the next flush. It never blocks on I/O.
func (w *BallotWorker) RecordBallot(rec model.BallotRecord) {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = w.now().UTC()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.recent = append(w.recent, rec)
	if over := len(w.recent) - repository.MaxRecentBallots; over > 0 {
		w.recent = append(w.recent[:0:0], w.recent[over:]...)
	}
	if w.store != nil {
		w.pending = append(w.pending, rec)
	}
}

// Start flushes every interval until ctx is cancelled, then flushes once more.
func (w *BallotWorker) Start(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Bool("persist", w.store != nil).Msg("ballot-worker: starting")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.flush(ctx)
		case <-ctx.Done():
			// Final flush before exit
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.flush(flushCtx)
			cancel()
			w.log.Info().Msg("ballot-worker: stopping (context cancelled)")
			return nil
		}
	}
}

// flush drains the pending batch into the store.
func (w *BallotWorker) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	// Swap out the pending batch
	batch := w.pending
	w.pending = nil
	w.mu.Unlock()

	if err := w.store.InsertBatch(ctx, batch); err != nil {
		metrics.Metrics.BallotErrors.Inc()
		w.log.Error().Err(err).Int("ballots", len(batch)).Msg("ballot-worker: insert failed")
		return
	}
	metrics.Metrics.BallotsPersisted.Add(float64(len(batch)))

	// Invalidate Redis cache so next read gets fresh data
	if w.cache != nil {
		if err := w.cache.InvalidateRecent(ctx); err != nil {
			w.log.Warn().Err(err).Msg("ballot-worker: cache invalidate failed")
		}
	}
	w.log.Debug().Int("ballots", len(batch)).Msg("ballot-worker: batch written")
}

// Recent returns up to limit ballots, newest first. With a store it reads
// through the cache; without one it serves the in-memory window.
func (w *BallotWorker) Recent(ctx context.Context, limit int) ([]model.BallotRecord, error) {
	limit = repository.ClampLimit(limit)
	if w.store == nil {
		return w.recentFromMemory(limit), nil
	}

	if w.cache != nil {
		data, err := w.cache.GetRecent(ctx)
		if err != nil {
			w.log.Warn().Err(err).Msg("ballot-worker: cache read failed")
		} else if data != nil {
			var cached []model.BallotRecord
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached[:min(limit, len(cached))], nil
			}
		}
	}

	ballots, err := w.store.Recent(ctx, repository.MaxRecentBallots)
	if err != nil {
		return nil, err
	}
	if w.cache != nil {
		if err := w.cache.SetRecent(ctx, ballots); err != nil {
			w.log.Warn().Err(err).Msg("ballot-worker: cache write failed")
		}
	}
	return ballots[:min(limit, len(ballots))], nil
}

func (w *BallotWorker) recentFromMemory(limit int) []model.BallotRecord {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := min(limit, len(w.recent))
	out := make([]model.BallotRecord, 0, n)
	for i := len(w.recent) - 1; i >= len(w.recent)-n; i-- {
		out = append(out, w.recent[i])
	}
	return out
}
