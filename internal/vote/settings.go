package vote

import (
	"time"

	"github.com/mathieu-neron/callvote/internal/model"
)

const (
	// MaxVoteOptions bounds the per-ballot tally array.
	MaxVoteOptions = 5

	// ResetDelay is how long a resolved ballot stays on screen before the
	// controller returns to idle.
	ResetDelay = 5 * time.Second

	idleThinkInterval = 500 * time.Millisecond
)

// Yes/no ballots use the first two options.
const (
	OptionYes = 0
	OptionNo  = 1

	voteUncast = -1
)

// Settings are the externally settable vote convars.
type Settings struct {
	AllowVotes               bool
	VoteDuration             time.Duration
	VoteDurationQueued       time.Duration
	CommandDelay             time.Duration
	FailureLockout           time.Duration
	CreationInterval         time.Duration
	QuorumRatio              float64
	AllowSpectators          bool
	CountSpectatorVotes      bool
	AllowInWarmup            bool
	DisallowKickOnMatchPoint bool
	KickBanDuration          time.Duration

	// Debug enables debug-build behaviour: the creation timer is bypassed and
	// voters may change their vote.
	Debug bool
}

// DefaultSettings returns the stock convar values.
func DefaultSettings() Settings {
	return Settings{
		AllowVotes:         true,
		VoteDuration:       15 * time.Second,
		VoteDurationQueued: 30 * time.Second,
		CommandDelay:       2 * time.Second,
		FailureLockout:     300 * time.Second,
		CreationInterval:   120 * time.Second,
		QuorumRatio:        0.501,
		KickBanDuration:    15 * time.Minute,
	}
}

// Quorum returns the quorum ratio clamped to [0, 1].
func (s *Settings) Quorum() float64 {
	return min(max(s.QuorumRatio, 0), 1)
}

// Apply merges a partial convar update.
func (s *Settings) Apply(u model.ConvarUpdate) {
	if u.AllowVotes != nil {
		s.AllowVotes = *u.AllowVotes
	}
	if u.VoteDuration != nil {
		s.VoteDuration = seconds(*u.VoteDuration)
	}
	if u.VoteDurationQueued != nil {
		s.VoteDurationQueued = seconds(*u.VoteDurationQueued)
	}
	if u.CommandDelay != nil {
		s.CommandDelay = seconds(*u.CommandDelay)
	}
	if u.FailureLockout != nil {
		s.FailureLockout = seconds(*u.FailureLockout)
	}
	if u.CreationInterval != nil {
		s.CreationInterval = seconds(*u.CreationInterval)
	}
	if u.QuorumRatio != nil {
		s.QuorumRatio = min(max(*u.QuorumRatio, 0), 1)
	}
	if u.AllowSpectators != nil {
		s.AllowSpectators = *u.AllowSpectators
	}
	if u.CountSpectatorVotes != nil {
		s.CountSpectatorVotes = *u.CountSpectatorVotes
	}
	if u.AllowInWarmup != nil {
		s.AllowInWarmup = *u.AllowInWarmup
	}
	if u.DisallowKickOnMatchPoint != nil {
		s.DisallowKickOnMatchPoint = *u.DisallowKickOnMatchPoint
	}
	if u.KickBanDuration != nil {
		s.KickBanDuration = seconds(*u.KickBanDuration)
	}
}

// Convars returns the API view of s.
func (s *Settings) Convars() model.Convars {
	return model.Convars{
		AllowVotes:               s.AllowVotes,
		VoteDuration:             s.VoteDuration.Seconds(),
		VoteDurationQueued:       s.VoteDurationQueued.Seconds(),
		CommandDelay:             s.CommandDelay.Seconds(),
		FailureLockout:           s.FailureLockout.Seconds(),
		CreationInterval:         s.CreationInterval.Seconds(),
		QuorumRatio:              s.Quorum(),
		AllowSpectators:          s.AllowSpectators,
		CountSpectatorVotes:      s.CountSpectatorVotes,
		AllowInWarmup:            s.AllowInWarmup,
		DisallowKickOnMatchPoint: s.DisallowKickOnMatchPoint,
		KickBanDuration:          s.KickBanDuration.Seconds(),
		Debug:                    s.Debug,
	}
}

func seconds(v float64) time.Duration {
	if v < 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}
