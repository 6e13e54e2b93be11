package vote

import "time"

// FailReason explains why a vote could not be called, or why a ballot failed.
type FailReason int

const (
	FailNone FailReason = iota
	FailGeneric
	FailTransitioningPlayers
	FailRateExceeded
	FailYesMustExceedNo
	FailQuorumFailure
	FailIssueDisabled
	FailMapNotFound
	FailMapNameRequired
	FailFailedRecently
	FailFailedRecentKick
	FailFailedRecentChangeLevel
	FailFailedRecentSwapTeams
	FailFailedRecentScramble
	FailFailedRecentRestart
	FailTeamCantCall
	FailWaitingForPlayers
	FailPlayerNotFound
	FailCannotKickAdmin
	FailSpectator
	FailDisabled
	FailNextLevelSet
	FailRematch
	FailTooEarlySurrender
	FailMatchPaused
	FailMatchNotPaused
	FailTimeoutActive
	FailTimeoutExhausted
	FailKickMatchPoint
	FailVoteInProgress
	FailUnknownIssue
)

var failReasonNames = [...]string{
	FailNone:                    "NONE",
	FailGeneric:                 "GENERIC",
	FailTransitioningPlayers:    "TRANSITIONING_PLAYERS",
	FailRateExceeded:            "RATE_EXCEEDED",
	FailYesMustExceedNo:         "YES_MUST_EXCEED_NO",
	FailQuorumFailure:           "QUORUM_FAILURE",
	FailIssueDisabled:           "ISSUE_DISABLED",
	FailMapNotFound:             "MAP_NOT_FOUND",
	FailMapNameRequired:         "MAP_NAME_REQUIRED",
	FailFailedRecently:          "FAILED_RECENTLY",
	FailFailedRecentKick:        "FAILED_RECENT_KICK",
	FailFailedRecentChangeLevel: "FAILED_RECENT_CHANGEMAP",
	FailFailedRecentSwapTeams:   "FAILED_RECENT_SWAPTEAMS",
	FailFailedRecentScramble:    "FAILED_RECENT_SCRAMBLETEAMS",
	FailFailedRecentRestart:     "FAILED_RECENT_RESTART",
	FailTeamCantCall:            "TEAM_CANT_CALL",
	FailWaitingForPlayers:       "WAITING_FOR_PLAYERS",
	FailPlayerNotFound:          "PLAYER_NOT_FOUND",
	FailCannotKickAdmin:         "CANNOT_KICK_ADMIN",
	FailSpectator:               "SPECTATOR",
	FailDisabled:                "DISABLED",
	FailNextLevelSet:            "NEXTLEVEL_SET",
	FailRematch:                 "REMATCH",
	FailTooEarlySurrender:       "TOO_EARLY_SURRENDER",
	FailMatchPaused:             "MATCH_PAUSED",
	FailMatchNotPaused:          "MATCH_NOT_PAUSED",
	FailTimeoutActive:           "TIMEOUT_ACTIVE",
	FailTimeoutExhausted:        "TIMEOUT_EXHAUSTED",
	FailKickMatchPoint:          "KICK_MATCH_POINT",
	FailVoteInProgress:          "VOTE_IN_PROGRESS",
	FailUnknownIssue:            "UNKNOWN_ISSUE",
}

func (r FailReason) String() string {
	if r < 0 || int(r) >= len(failReasonNames) {
		return "UNKNOWN"
	}
	return failReasonNames[r]
}

// CallResult is the outcome of a vote creation request.
type CallResult struct {
	Reason     FailReason
	RetryAfter time.Duration
}

// Ok reports whether the vote was created.
func (r CallResult) Ok() bool {
	return r.Reason == FailNone
}

func callFailed(reason FailReason, retry time.Duration) CallResult {
	return CallResult{Reason: reason, RetryAfter: retry}
}

// CastResult is the outcome of a vote cast.
type CastResult int

const (
	CastOK CastResult = iota
	CastServerDisabled
	CastNoActiveIssue
	CastBallotClosed
	CastTeamRestricted
	CastNoChanges
	CastDuplicate
	CastSystemError
)

func (r CastResult) String() string {
	switch r {
	case CastOK:
		return "OK"
	case CastServerDisabled:
		return "SERVER_DISABLED"
	case CastNoActiveIssue:
		return "NO_ACTIVE_ISSUE"
	case CastBallotClosed:
		return "BALLOT_CLOSED"
	case CastTeamRestricted:
		return "TEAM_RESTRICTED"
	case CastNoChanges:
		return "NO_CHANGES"
	case CastDuplicate:
		return "DUPLICATE"
	case CastSystemError:
		return "SYSTEM_ERROR"
	default:
		return "UNKNOWN"
	}
}

// State is the ballot state of a controller.
type State int

const (
	StateIdle State = iota
	StateVoting
	StatePassed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateVoting:
		return "voting"
	case StatePassed:
		return "passed"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}
