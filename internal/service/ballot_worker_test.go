package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mathieu-neron/callvote/internal/model"
	"github.com/mathieu-neron/callvote/internal/repository"
)

type fakeStore struct {
	mu      sync.Mutex
	batches [][]model.BallotRecord
	fail    error
	recent  []model.BallotRecord
}

func (s *fakeStore) InsertBatch(_ context.Context, recs []model.BallotRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.batches = append(s.batches, recs)
	return nil
}

func (s *fakeStore) Recent(_ context.Context, limit int) ([]model.BallotRecord, error) {
	return s.recent[:min(limit, len(s.recent))], nil
}

func (s *fakeStore) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func TestBallotWorker_FlushesInBatches(t *testing.T) {
	store := &fakeStore{}
	w := NewBallotWorker(store, nil, time.Second, zerolog.Nop())

	w.flush(context.Background())
	require.Zero(t, store.batchCount(), "empty batches are not written")

	w.RecordBallot(model.BallotRecord{ID: "a"})
	w.RecordBallot(model.BallotRecord{ID: "b"})
	w.flush(context.Background())

	require.Len(t, store.batches, 1)
	require.Len(t, store.batches[0], 2)
	require.False(t, store.batches[0][0].RecordedAt.IsZero(), "records are stamped when queued")

	w.flush(context.Background())
	require.Equal(t, 1, store.batchCount())
}

func TestBallotWorker_DropsFailedBatch(t *testing.T) {
	store := &fakeStore{fail: errors.New("db down")}
	w := NewBallotWorker(store, nil, time.Second, zerolog.Nop())

	w.RecordBallot(model.BallotRecord{ID: "a"})
	w.flush(context.Background())
	require.Empty(t, w.pending)
}

func TestBallotWorker_FinalFlushOnStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	store := &fakeStore{}
	w := NewBallotWorker(store, nil, time.Hour, zerolog.Nop())
	w.RecordBallot(model.BallotRecord{ID: "a"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()
	cancel()
	require.NoError(t, <-done)
	require.Equal(t, 1, store.batchCount())
}

func TestBallotWorker_RecentFromMemory(t *testing.T) {
	w := NewBallotWorker(nil, nil, 0, zerolog.Nop())
	require.Equal(t, DefaultFlushInterval, w.interval)

	for i := range repository.MaxRecentBallots + 3 {
		w.RecordBallot(model.BallotRecord{WinningOption: i})
	}
	require.Empty(t, w.pending, "nothing is queued without a store")

	got, err := w.Recent(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	last := repository.MaxRecentBallots + 2
	require.Equal(t, []int{last, last - 1, last - 2},
		[]int{got[0].WinningOption, got[1].WinningOption, got[2].WinningOption})

	got, err = w.Recent(context.Background(), 1000)
	require.NoError(t, err)
	require.Len(t, got, repository.MaxRecentBallots)
	require.Equal(t, 3, got[len(got)-1].WinningOption, "the oldest ballots fall out of the window")
}

func TestBallotWorker_RecentFromStore(t *testing.T) {
	store := &fakeStore{recent: []model.BallotRecord{{ID: "new"}, {ID: "old"}}}
	w := NewBallotWorker(store, NewCacheService("", zerolog.Nop()), time.Second, zerolog.Nop())

	got, err := w.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []model.BallotRecord{{ID: "new"}}, got)
}

func TestCacheService_DisabledIsNoop(t *testing.T) {
	c := NewCacheService("", zerolog.Nop())
	ctx := context.Background()

	require.Nil(t, c.Client())
	data, err := c.GetRecent(ctx)
	require.NoError(t, err)
	require.Nil(t, data)
	require.NoError(t, c.SetRecent(ctx, []int{1}))
	require.NoError(t, c.InvalidateRecent(ctx))
	require.NoError(t, c.Close())

	c = NewCacheService("not a url", zerolog.Nop())
	require.Nil(t, c.Client())
}
