package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mathieu-neron/callvote/internal/model"
)

// MaxRecentBallots caps a history listing.
const MaxRecentBallots = 100

const schema = `
CREATE TABLE IF NOT EXISTS ballots (
	id               UUID PRIMARY KEY,
	controller       TEXT NOT NULL,
	issue_type       TEXT NOT NULL,
	details          TEXT NOT NULL DEFAULT '',
	caller_slot      INT NOT NULL,
	caller_name      TEXT NOT NULL DEFAULT '',
	team_restriction SMALLINT NOT NULL DEFAULT 0,
	yes_votes        INT NOT NULL,
	no_votes         INT NOT NULL,
	potential_votes  INT NOT NULL,
	winning_option   SMALLINT NOT NULL,
	passed           BOOLEAN NOT NULL,
	fail_reason      TEXT NOT NULL DEFAULT '',
	started_at       DOUBLE PRECISION NOT NULL,
	resolved_at      DOUBLE PRECISION NOT NULL,
	recorded_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS ballots_recorded_at_idx ON ballots (recorded_at DESC);`

type BallotRepo struct {
	pool *pgxpool.Pool
}

func NewBallotRepo(pool *pgxpool.Pool) *BallotRepo {
	return &BallotRepo{pool: pool}
}

// EnsureSchema creates the ballots table if it does not exist.
func (r *BallotRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure ballots schema: %w", err)
	}
	return nil
}

// InsertBatch writes recs in one round trip. Records already present are skipped.
func (r *BallotRepo) InsertBatch(ctx context.Context, recs []model.BallotRecord) error {
	if len(recs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range recs {
		batch.Queue(`
			INSERT INTO ballots (id, controller, issue_type, details, caller_slot, caller_name,
				team_restriction, yes_votes, no_votes, potential_votes, winning_option,
				passed, fail_reason, started_at, resolved_at, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			ON CONFLICT (id) DO NOTHING`,
			rec.ID, rec.Controller, rec.IssueType, rec.Details, rec.CallerSlot, rec.CallerName,
			int(rec.TeamRestriction), rec.YesVotes, rec.NoVotes, rec.PotentialVotes, rec.WinningOption,
			rec.Passed, rec.FailReason, rec.StartedAt.Seconds(), rec.ResolvedAt.Seconds(), recordedAt(rec))
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range recs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert ballot: %w", err)
		}
	}
	return nil
}

// Recent returns the newest ballots first.
func (r *BallotRepo) Recent(ctx context.Context, limit int) ([]model.BallotRecord, error) {
	limit = ClampLimit(limit)

	rows, err := r.pool.Query(ctx, `
		SELECT id, controller, issue_type, details, caller_slot, caller_name,
			team_restriction, yes_votes, no_votes, potential_votes, winning_option,
			passed, fail_reason, started_at, resolved_at, recorded_at
		FROM ballots
		ORDER BY recorded_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ballots := make([]model.BallotRecord, 0, limit)
	for rows.Next() {
		var (
			rec              model.BallotRecord
			team             int16
			winning          int16
			started, resolve float64
		)
		if err := rows.Scan(&rec.ID, &rec.Controller, &rec.IssueType, &rec.Details, &rec.CallerSlot,
			&rec.CallerName, &team, &rec.YesVotes, &rec.NoVotes, &rec.PotentialVotes, &winning,
			&rec.Passed, &rec.FailReason, &started, &resolve, &rec.RecordedAt); err != nil {
			return nil, err
		}
		rec.TeamRestriction = model.Team(team)
		rec.WinningOption = int(winning)
		rec.StartedAt = seconds(started)
		rec.ResolvedAt = seconds(resolve)
		ballots = append(ballots, rec)
	}
	return ballots, rows.Err()
}

// ClampLimit bounds a requested listing size to [1, MaxRecentBallots].
func ClampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return min(limit, MaxRecentBallots)
}

func recordedAt(rec model.BallotRecord) time.Time {
	if rec.RecordedAt.IsZero() {
		return time.Now().UTC()
	}
	return rec.RecordedAt
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
