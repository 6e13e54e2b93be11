package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mathieu-neron/callvote/internal/metrics"
)

// ErrLoopStopped is returned for work submitted to a loop that is not running.
var ErrLoopStopped = errors.New("game loop stopped")

type job struct {
	fn   func(*World)
	done chan struct{}
}

// GameLoop advances server time at a fixed tick rate and runs the vote
// controllers. Everything in World is touched only from its goroutine; other
// goroutines submit closures through Do.
type GameLoop struct {
	world    *World
	interval time.Duration
	jobs     chan job
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	log      zerolog.Logger
}

// NewGameLoop creates a loop ticking tickRate times per second.
func NewGameLoop(world *World, tickRate int, logger zerolog.Logger) *GameLoop {
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}
	return &GameLoop{
		world:    world,
		interval: time.Second / time.Duration(tickRate),
		jobs:     make(chan job),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		log:      logger,
	}
}

// Interval is the server time one tick advances.
func (l *GameLoop) Interval() time.Duration {
	return l.interval
}

// Start runs the loop until ctx is cancelled or Stop is called.
func (l *GameLoop) Start(ctx context.Context) error {
	l.log.Info().Dur("interval", l.interval).Msg("game-loop: starting")
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.tick()
		case j := <-l.jobs:
			j.fn(l.world)
			close(j.done)
		case <-ctx.Done():
			l.world.Match.EndVotesImmediately()
			l.log.Info().Msg("game-loop: stopping (context cancelled)")
			return nil
		case <-l.stopCh:
			l.world.Match.EndVotesImmediately()
			l.log.Info().Msg("game-loop: stopping (stop signal)")
			return nil
		}
	}
}

// Stop signals the loop to stop. It is safe to call more than once.
func (l *GameLoop) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// tick advances time by one interval and thinks every controller.
func (l *GameLoop) tick() {
	start := time.Now()
	l.world.Clock.Advance(l.interval)
	l.world.Match.Think()
	metrics.Metrics.TickDuration.Observe(time.Since(start).Seconds())
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (l *GameLoop) Do(ctx context.Context, fn func(*World)) error {
	j := job{fn: fn, done: make(chan struct{})}
	select {
	case l.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopStopped
	}
	// An accepted job always runs to completion.
	<-j.done
	return nil
}

// Query runs fn on the loop goroutine and returns its result.
func Query[T any](ctx context.Context, l *GameLoop, fn func(*World) T) (T, error) {
	var out T
	err := l.Do(ctx, func(w *World) {
		out = fn(w)
	})
	return out, err
}
