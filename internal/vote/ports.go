package vote

import (
	"time"

	"github.com/mathieu-neron/callvote/internal/model"
)

// Clock returns monotonic server time.
type Clock interface {
	Now() time.Duration
}

// Players is the player/session registry the vote system reads.
type Players interface {
	MaxClients() int
	BySlot(slot int) (model.Player, bool)
	ByUserID(userID int) (model.Player, bool)

	// NextVoteCreation returns the server time before which the player may not
	// create another vote. Zero means no limit.
	NextVoteCreation(slot int) time.Duration
	SetNextVoteCreation(slot int, at time.Duration)
}

// GameRules exposes the match state that gates vote issues.
type GameRules interface {
	IsWaitingForPlayers() bool
	IsWarmup() bool
	IsQueuedMatchmaking() bool
	// QueuedRequiresUnanimous reports a queued mode where every non-team vote must be unanimous.
	QueuedRequiresUnanimous() bool
	IsStrictCompetitive() bool
	IsMatchPoint() bool
	IsLastRound() bool
	IsRematchLocked() bool
	IsPaused() bool
	IsTimeoutActive() bool
	TimeoutsRemaining(team model.Team) int
	RoundsPlayed() int
	CurrentMap() string
	IsValidMap(name string) bool
	MapCycle() []string
	NextLevel() string
}

// Messenger delivers game events and client messages.
type Messenger interface {
	FireEvent(event model.GameEvent)
	Send(msg model.ClientMessage, to model.Recipients)
}

// LogSink is the append-only game log.
type LogSink interface {
	Printf(format string, args ...any)
}

// CommandRunner executes server console commands on behalf of a passed vote.
type CommandRunner interface {
	ServerCommand(cmd string)
}

// Recorder receives resolved ballots.
type Recorder interface {
	RecordBallot(rec model.BallotRecord)
}
