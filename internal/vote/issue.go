package vote

import (
	"math"
	"strings"
	"time"

	"github.com/mathieu-neron/callvote/internal/model"
)

// Kind enumerates the votable actions.
type Kind int

const (
	KindKick Kind = iota
	KindChangeLevel
	KindNextLevel
	KindRestartGame
	KindScrambleTeams
	KindSwapTeams
	KindSurrender
	KindStartTimeout
	KindPauseMatch
	KindUnpauseMatch

	kindCount
)

// GlobalKinds are hosted by the match-wide controller.
var GlobalKinds = []Kind{
	KindKick,
	KindChangeLevel,
	KindNextLevel,
	KindRestartGame,
	KindScrambleTeams,
	KindSwapTeams,
	KindPauseMatch,
	KindUnpauseMatch,
}

// TeamKinds are hosted by each team's controller.
var TeamKinds = []Kind{
	KindSurrender,
	KindStartTimeout,
}

// issueSpec is the per-kind dispatch entry.
type issueSpec struct {
	typeString string
	display    string
	otherTeam  string
	passed     string

	yesNo                bool
	allyRestricted       bool
	unanimous            bool
	ignoreCreationTimer  bool
	queuedMatchmaking    bool
	warmup               bool
	spectatorsOnly       bool
	multiTeamExclusive   bool
	failsWhenUnreachable bool

	// recentFailure is reported when a lockout for this kind is still running.
	recentFailure FailReason

	check    func(is *Issue, caller model.Player, details string) FailReason
	commands func(is *Issue) []string
	options  func(is *Issue) []string
	detail   func(is *Issue) string
	usage    func(is *Issue) []string
}

// Issue is one votable action registered with a controller. It lives as long as
// its controller and keeps its failure lockouts across ballots.
type Issue struct {
	kind Kind
	ctrl *Controller

	details       string
	winningOption int
	lockouts      lockoutList

	yesCount       int
	noCount        int
	potentialCount int
}

func newIssue(kind Kind, ctrl *Controller) *Issue {
	is := &Issue{kind: kind, ctrl: ctrl}
	ctrl.issues = append(ctrl.issues, is)
	return is
}

func (is *Issue) spec() *issueSpec {
	return &issueSpecs[is.kind]
}

func (is *Issue) Kind() Kind {
	return is.kind
}

// TypeString is the name used on the console, e.g. "Kick".
func (is *Issue) TypeString() string {
	return is.spec().typeString
}

func (is *Issue) Details() string {
	return is.details
}

func (is *Issue) SetIssueDetails(details string) {
	is.details = strings.TrimSpace(details)
	is.winningOption = 0
}

// IsYesNoVote reports whether the ballot offers exactly Yes and No.
func (is *Issue) IsYesNoVote() bool {
	if is.kind == KindNextLevel {
		return is.details != ""
	}
	return is.spec().yesNo
}

func (is *Issue) IsAllyRestrictedVote() bool {
	return is.spec().allyRestricted
}

func (is *Issue) IsUnanimousVoteToPass() bool {
	return is.spec().unanimous
}

func (is *Issue) ShouldIgnoreCreationTimer() bool {
	return is.spec().ignoreCreationTimer
}

func (is *Issue) IsEnabledInQueuedMatchmaking() bool {
	return is.spec().queuedMatchmaking
}

func (is *Issue) IsEnabledDuringWarmup() bool {
	return is.spec().warmup
}

func (is *Issue) IsVoteCallExclusiveToSpectators() bool {
	return is.spec().spectatorsOnly
}

// IsMultiTeamExclusive reports whether a ballot on this issue blocks the other
// team's controller from opening one at the same time.
func (is *Issue) IsMultiTeamExclusive() bool {
	return is.spec().multiTeamExclusive
}

func (is *Issue) FailsWhenUnreachable() bool {
	return is.spec().failsWhenUnreachable
}

func (is *Issue) GetDisplayString() string {
	return is.spec().display
}

func (is *Issue) GetOtherTeamDisplayString() string {
	return is.spec().otherTeam
}

func (is *Issue) GetVotePassedString() string {
	return is.spec().passed
}

// GetDetailsString is the human form of the details shown with the ballot.
func (is *Issue) GetDetailsString() string {
	if f := is.spec().detail; f != nil {
		return f(is)
	}
	return is.details
}

// IsEnabled reports whether the issue can be offered in the current match state.
func (is *Issue) IsEnabled() bool {
	rules := is.ctrl.rules
	if rules.IsQueuedMatchmaking() && !is.IsEnabledInQueuedMatchmaking() {
		return false
	}
	if rules.IsWarmup() && !is.IsEnabledDuringWarmup() && !is.ctrl.settings.AllowInWarmup {
		return false
	}
	return true
}

// CanCallVote decides whether caller may open a ballot on this issue with the
// given details. The checks run in a fixed order so the first failing rule is
// the one reported.
func (is *Issue) CanCallVote(callerSlot int, command, details string) (bool, FailReason, time.Duration) {
	if callerSlot == model.DedicatedServerSlot {
		return true, FailNone, 0
	}

	ctrl := is.ctrl
	rules := ctrl.rules
	settings := ctrl.settings
	now := ctrl.clock.Now()
	details = strings.TrimSpace(details)

	caller, ok := ctrl.players.BySlot(callerSlot)
	if !ok || !caller.Connected {
		return false, FailGeneric, 0
	}

	if rules.IsWaitingForPlayers() {
		return false, FailWaitingForPlayers, 0
	}
	if rules.IsWarmup() && !is.IsEnabledDuringWarmup() && !settings.AllowInWarmup {
		return false, FailIssueDisabled, 0
	}
	if is.IsAllyRestrictedVote() && !caller.Team.IsPlaying() {
		return false, FailTeamCantCall, 0
	}
	if is.IsVoteCallExclusiveToSpectators() {
		if !caller.IsSpectator() {
			return false, FailTeamCantCall, 0
		}
	} else if caller.IsSpectator() && !settings.AllowSpectators {
		return false, FailSpectator, 0
	}
	if rules.IsQueuedMatchmaking() && !is.IsEnabledInQueuedMatchmaking() {
		return false, FailIssueDisabled, 0
	}
	if rules.IsRematchLocked() {
		return false, FailRematch, 0
	}
	if is.kind == KindKick && settings.DisallowKickOnMatchPoint && (rules.IsMatchPoint() || rules.IsLastRound()) {
		return false, FailKickMatchPoint, 0
	}

	if rec, locked := is.lockouts.active(command, details, now); locked {
		return false, is.recentFailureReason(), rec.expiry - now
	}

	if check := is.spec().check; check != nil {
		if reason := check(is, caller, details); reason != FailNone {
			return false, reason, 0
		}
	}
	return true, FailNone, 0
}

func (is *Issue) recentFailureReason() FailReason {
	if r := is.spec().recentFailure; r != FailNone {
		return r
	}
	return FailFailedRecently
}

// GetVotesRequiredToPass returns the yes count that passes the ballot.
func (is *Issue) GetVotesRequiredToPass() int {
	ctrl := is.ctrl
	potential := max(is.CountPotentialVoters(), ctrl.potentialVotes)

	if is.IsUnanimousVoteToPass() {
		return max(1, potential)
	}
	if ctrl.rules.IsStrictCompetitive() {
		return max(1, potential-1)
	}
	if ctrl.rules.QueuedRequiresUnanimous() && !is.IsAllyRestrictedVote() {
		return max(1, potential)
	}
	return RequiredForQuorum(potential, ctrl.settings.Quorum())
}

// RequiredForQuorum is ceil(potential * ratio), at least one. The small bias
// keeps products like 0.3*10 from rounding up past an exact integer.
func RequiredForQuorum(potential int, ratio float64) int {
	need := int(math.Ceil(float64(potential)*ratio - 1e-9))
	return max(1, need)
}

// OnVoteFailed locks out this issue with the current details for the failure window.
func (is *Issue) OnVoteFailed() {
	now := is.ctrl.clock.Now()
	is.lockouts.prune(now)
	is.lockouts.add(is.TypeString(), is.details, now+is.ctrl.settings.FailureLockout)
}

// OnVoteStarted runs once a ballot on this issue opens.
func (is *Issue) OnVoteStarted() {
	is.lockouts.prune(is.ctrl.clock.Now())
}

// CountPotentialVoters counts the players the controller would accept a vote from.
func (is *Issue) CountPotentialVoters() int {
	ctrl := is.ctrl
	count := 0
	for slot := 1; slot <= ctrl.players.MaxClients(); slot++ {
		p, ok := ctrl.players.BySlot(slot)
		if !ok {
			continue
		}
		if ctrl.IsValidVoter(p) && ctrl.CanTeamCastVote(p) {
			count++
		}
	}
	return count
}

// GetVoteOptions returns the ballot options, Yes/No unless the kind overrides.
func (is *Issue) GetVoteOptions() []string {
	if f := is.spec().options; f != nil && !is.IsYesNoVote() {
		opts := f(is)
		if len(opts) > MaxVoteOptions {
			opts = opts[:MaxVoteOptions]
		}
		return opts
	}
	return []string{"Yes", "No"}
}

// ExecuteCommand runs the server commands of a passed ballot.
func (is *Issue) ExecuteCommand() {
	for _, cmd := range is.spec().commands(is) {
		is.ctrl.commands.ServerCommand(cmd)
	}
}

// ListIssueDetails returns usage lines for listissues.
func (is *Issue) ListIssueDetails() []string {
	if !is.IsEnabled() {
		return nil
	}
	if f := is.spec().usage; f != nil {
		return f(is)
	}
	return []string{"callvote " + is.TypeString()}
}

// SetYesNoVoteCount snapshots the final tally for logging and status.
func (is *Issue) SetYesNoVoteCount(yes, no, potential int) {
	is.yesCount = yes
	is.noCount = no
	is.potentialCount = potential
}

// Tally returns the last snapshot taken by SetYesNoVoteCount.
func (is *Issue) Tally() (yes, no, potential int) {
	return is.yesCount, is.noCount, is.potentialCount
}

// WinningOption is the option a multi-option ballot passed with.
func (is *Issue) WinningOption() int {
	return is.winningOption
}
