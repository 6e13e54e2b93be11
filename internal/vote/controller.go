package vote

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mathieu-neron/callvote/internal/gamelog"
	"github.com/mathieu-neron/callvote/internal/model"
)

const noActiveIssue = -1

// Deps are the collaborators a controller consults. Recorder may be nil.
type Deps struct {
	Clock     Clock
	Players   Players
	Rules     GameRules
	Messenger Messenger
	GameLog   LogSink
	Commands  CommandRunner
	Recorder  Recorder
	Logger    zerolog.Logger
}

// Controller runs one ballot at a time for its scope: the whole match, or a
// single team. It is not safe for concurrent use; every call must come from
// the game loop goroutine.
type Controller struct {
	name string
	team model.Team

	clock     Clock
	players   Players
	rules     GameRules
	messenger Messenger
	gamelog   LogSink
	commands  CommandRunner
	recorder  Recorder
	log       zerolog.Logger
	settings  *Settings

	global  *Controller
	sibling *Controller
	teams   []*Controller

	issues      []*Issue
	activeIssue int
	state       State

	tally     [MaxVoteOptions]int
	votesCast []int
	seen      map[string]struct{}

	teamRestriction model.Team
	options         []string
	potentialVotes  int
	callerSlot      int
	isYesNo         bool
	failReason      FailReason
	startedAt       time.Duration

	acceptingVotes CountdownTimer
	executeCommand CountdownTimer
	resetVote      CountdownTimer
	nextThink      time.Duration
}

// NewController builds a controller and registers the issues it hosts. A
// controller for TeamUnassigned is the match-wide one.
func NewController(name string, team model.Team, deps Deps, settings *Settings) *Controller {
	c := &Controller{
		name:      name,
		team:      team,
		clock:     deps.Clock,
		players:   deps.Players,
		rules:     deps.Rules,
		messenger: deps.Messenger,
		gamelog:   deps.GameLog,
		commands:  deps.Commands,
		recorder:  deps.Recorder,
		log:       deps.Logger.With().Str("controller", name).Logger(),
		settings:  settings,
		votesCast: make([]int, deps.Players.MaxClients()+1),
		seen:      make(map[string]struct{}),
	}

	kinds := GlobalKinds
	if team.IsPlaying() {
		kinds = TeamKinds
	}
	for _, k := range kinds {
		newIssue(k, c)
	}

	c.ResetData()
	return c
}

func (c *Controller) Name() string {
	return c.name
}

func (c *Controller) Team() model.Team {
	return c.team
}

func (c *Controller) State() State {
	return c.state
}

// IsVoteActive reports whether a ballot is open or still resolving.
func (c *Controller) IsVoteActive() bool {
	return c.activeIssue != noActiveIssue
}

// ActiveIssue returns the issue of the current ballot.
func (c *Controller) ActiveIssue() (*Issue, bool) {
	if c.activeIssue == noActiveIssue {
		return nil, false
	}
	return c.issues[c.activeIssue], true
}

// Issue returns the registered issue matching typeString, ignoring case.
func (c *Controller) Issue(typeString string) (*Issue, bool) {
	for _, is := range c.issues {
		if strings.EqualFold(is.TypeString(), typeString) {
			return is, true
		}
	}
	return nil, false
}

// HostsIssue reports whether this controller registers the given type.
func (c *Controller) HostsIssue(typeString string) bool {
	_, ok := c.Issue(typeString)
	return ok
}

// CreateVote opens a ballot on typeString with details. On failure the
// caller is notified and nothing changes.
func (c *Controller) CreateVote(callerSlot int, typeString, details string) CallResult {
	res, issue := c.validateCall(callerSlot, typeString, details)
	if !res.Ok() {
		c.notifyCallFailed(callerSlot, typeString, res)
		return res
	}

	now := c.clock.Now()
	isServer := callerSlot == model.DedicatedServerSlot

	issue.SetIssueDetails(details)
	c.activeIssue = c.indexOf(issue)
	c.state = StateVoting
	c.callerSlot = callerSlot
	c.isYesNo = issue.IsYesNoVote()
	c.startedAt = now
	c.nextThink = now

	c.teamRestriction = c.team
	if issue.IsAllyRestrictedVote() && !isServer {
		if caller, ok := c.players.BySlot(callerSlot); ok {
			c.teamRestriction = caller.Team
		}
	}

	c.options = issue.GetVoteOptions()
	if len(c.options) >= 2 {
		fields := map[string]any{"count": len(c.options)}
		for i, opt := range c.options {
			fields[fmt.Sprintf("option%d", i+1)] = opt
		}
		c.messenger.FireEvent(model.GameEvent{Name: model.EventVoteOptions, Fields: fields})
	}

	c.potentialVotes = issue.CountPotentialVoters()
	c.sendVoteStart(issue)

	duration := c.settings.VoteDuration
	if c.rules.IsQueuedMatchmaking() {
		duration = c.settings.VoteDurationQueued
	}
	c.acceptingVotes.Start(now, duration)
	issue.OnVoteStarted()

	if !isServer {
		c.players.SetNextVoteCreation(callerSlot, now+c.settings.CreationInterval)
	}

	c.gamelog.Printf("%s triggered \"Vote_Started\" (issue \"%s\") (details \"%s\")",
		c.callerTuple(callerSlot), issue.TypeString(), issue.GetDetailsString())
	c.log.Info().
		Str("issue", issue.TypeString()).
		Str("details", issue.Details()).
		Int("caller", callerSlot).
		Int("potential", c.potentialVotes).
		Str("team", c.teamRestriction.String()).
		Msg("vote started")

	if c.isYesNo && !isServer {
		c.TryCastVote(callerSlot, "option1")
	}
	return CallResult{}
}

func (c *Controller) validateCall(callerSlot int, typeString, details string) (CallResult, *Issue) {
	if !c.settings.AllowVotes {
		return callFailed(FailDisabled, 0), nil
	}

	issue, ok := c.Issue(typeString)
	if !ok {
		return callFailed(FailUnknownIssue, 0), nil
	}

	if c.IsVoteActive() {
		return callFailed(FailVoteInProgress, 0), nil
	}
	if c.global != nil && c.global.IsVoteActive() {
		return callFailed(FailVoteInProgress, 0), nil
	}
	for _, t := range c.teams {
		if t.IsVoteActive() {
			return callFailed(FailVoteInProgress, 0), nil
		}
	}
	if issue.IsMultiTeamExclusive() && c.sibling != nil && c.sibling.IsVoteActive() {
		return callFailed(FailVoteInProgress, 0), nil
	}

	if callerSlot != model.DedicatedServerSlot {
		if c.team.IsPlaying() {
			if caller, ok := c.players.BySlot(callerSlot); ok && caller.Team != c.team {
				return callFailed(FailTeamCantCall, 0), nil
			}
		}
		if !issue.ShouldIgnoreCreationTimer() && !c.settings.Debug {
			now := c.clock.Now()
			if next := c.players.NextVoteCreation(callerSlot); now < next {
				return callFailed(FailRateExceeded, next-now), nil
			}
		}
	}

	allowed, reason, retry := issue.CanCallVote(callerSlot, issue.TypeString(), details)
	if !allowed {
		return callFailed(reason, retry), nil
	}
	return CallResult{}, issue
}

func (c *Controller) notifyCallFailed(callerSlot int, typeString string, res CallResult) {
	if callerSlot == model.DedicatedServerSlot {
		c.log.Warn().
			Str("issue", typeString).
			Str("reason", res.Reason.String()).
			Msg("server vote rejected")
		return
	}
	c.messenger.Send(model.ClientMessage{
		Type:         model.MsgCallVoteFailed,
		Reason:       res.Reason.String(),
		ReasonCode:   int(res.Reason),
		RetrySeconds: int(math.Ceil(res.RetryAfter.Seconds())),
	}, model.Single(callerSlot))
	c.log.Debug().
		Int("caller", callerSlot).
		Str("issue", typeString).
		Str("reason", res.Reason.String()).
		Dur("retry", res.RetryAfter).
		Msg("callvote rejected")
}

func (c *Controller) sendVoteStart(issue *Issue) {
	var voters, others []int
	for slot := 1; slot <= c.players.MaxClients(); slot++ {
		p, ok := c.players.BySlot(slot)
		if !ok || !p.Connected || p.Bot {
			continue
		}
		if p.IsSpectator() && !c.settings.CountSpectatorVotes {
			continue
		}
		if c.CanTeamCastVote(p) {
			voters = append(voters, slot)
		} else {
			others = append(others, slot)
		}
	}

	details := issue.GetDetailsString()
	c.messenger.Send(model.ClientMessage{
		Type:          model.MsgVoteStart,
		Team:          c.teamRestriction,
		EntIdx:        c.callerSlot,
		DisplayString: issue.GetDisplayString(),
		OtherTeamStr:  issue.GetOtherTeamDisplayString(),
		Details:       details,
		IsYesNoVote:   c.isYesNo,
	}, model.Recipients{Slots: voters})

	if len(others) > 0 {
		c.messenger.Send(model.ClientMessage{
			Type:          model.MsgTextMsg,
			Team:          c.teamRestriction,
			DisplayString: issue.GetOtherTeamDisplayString(),
			Details:       details,
		}, model.Recipients{Slots: others})
	}
}

// TryCastVote records slot's choice. option is "option1".."option5".
func (c *Controller) TryCastVote(slot int, option string) CastResult {
	if !c.settings.AllowVotes {
		return CastServerDisabled
	}
	if c.activeIssue == noActiveIssue {
		return CastNoActiveIssue
	}
	if c.state != StateVoting || c.executeCommand.HasStarted() {
		return CastBallotClosed
	}

	voter, ok := c.players.BySlot(slot)
	if !ok || slot >= len(c.votesCast) || !c.IsValidVoter(voter) || !c.CanTeamCastVote(voter) {
		return CastTeamRestricted
	}

	previous := c.votesCast[slot]
	_, seen := c.seen[voter.NetworkID]
	if seen && previous == voteUncast && voter.NetworkID != "" {
		// Same identity voted from another slot.
		return CastNoChanges
	}
	if previous != voteUncast && !c.settings.Debug {
		return CastNoChanges
	}

	choice, ok := parseOption(option)
	if !ok {
		return CastSystemError
	}
	if c.isYesNo {
		choice = min(choice, OptionNo)
	} else if choice >= len(c.options) {
		return CastSystemError
	}

	issue := c.issues[c.activeIssue]
	if previous != voteUncast {
		if previous == choice {
			return CastDuplicate
		}
		c.tally[previous]--
	}

	if voter.NetworkID != "" {
		c.seen[voter.NetworkID] = struct{}{}
	}
	c.tally[choice]++
	c.votesCast[slot] = choice
	if total := c.totalVotes(); total > c.potentialVotes {
		c.potentialVotes = total
	}
	if previous != voteUncast {
		c.messenger.FireEvent(model.GameEvent{Name: model.EventVoteChanged, Fields: c.tallyFields()})
	}

	c.messenger.FireEvent(model.GameEvent{Name: model.EventVoteCast, Fields: map[string]any{
		"vote_option": choice,
		"team":        int(voter.Team),
		"entityid":    slot,
	}})
	c.gamelog.Printf("%s triggered \"Vote_Cast\" (option \"%s\") (issue \"%s\")",
		gamelog.PlayerTuple(voter), c.optionName(choice), issue.TypeString())

	c.CheckForEarlyVoteClose()
	return CastOK
}

func parseOption(option string) (int, bool) {
	rest, ok := strings.CutPrefix(strings.ToLower(strings.TrimSpace(option)), "option")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 || n > MaxVoteOptions {
		return 0, false
	}
	return n - 1, true
}

// CheckForEarlyVoteClose expires the accepting-votes timer once every
// potential voter has voted.
func (c *Controller) CheckForEarlyVoteClose() {
	if c.state != StateVoting || !c.acceptingVotes.HasStarted() {
		return
	}
	if c.totalVotes() >= c.potentialVotes {
		c.acceptingVotes.Expire(c.clock.Now())
	}
}

// IsValidVoter reports whether p may take part in ballots at all.
func (c *Controller) IsValidVoter(p model.Player) bool {
	if !p.Connected || p.Bot || p.HLTV {
		return false
	}
	if p.IsSpectator() && !c.settings.CountSpectatorVotes {
		return false
	}
	return true
}

// CanTeamCastVote applies the controller's team scope and the current
// ballot's team restriction.
func (c *Controller) CanTeamCastVote(p model.Player) bool {
	if c.team.IsPlaying() && p.Team != c.team {
		return false
	}
	if c.teamRestriction != model.TeamUnassigned && p.Team != c.teamRestriction {
		return false
	}
	return true
}

// ListIssues returns the usage lines of every enabled issue.
func (c *Controller) ListIssues() []string {
	var lines []string
	for _, is := range c.issues {
		lines = append(lines, is.ListIssueDetails()...)
	}
	return lines
}

// EnabledIssues returns the type strings a client may choose from.
func (c *Controller) EnabledIssues() []string {
	var names []string
	for _, is := range c.issues {
		if is.IsEnabled() {
			names = append(names, is.TypeString())
		}
	}
	return names
}

// SendVoteSetup sends slot the issue list for the vote UI: this controller's
// enabled issues followed by extra.
func (c *Controller) SendVoteSetup(slot int, extra ...string) []string {
	names := append(c.EnabledIssues(), extra...)
	if slot == model.DedicatedServerSlot {
		return names
	}
	team := c.team
	if p, ok := c.players.BySlot(slot); ok {
		team = p.Team
	}
	c.messenger.Send(model.ClientMessage{
		Type:   model.MsgVoteSetup,
		Team:   team,
		Issues: names,
	}, model.Single(slot))
	return names
}

// Status snapshots the controller for the API.
func (c *Controller) Status() model.ControllerStatus {
	st := model.ControllerStatus{
		Name:            c.name,
		State:           c.state.String(),
		TeamRestriction: c.teamRestriction,
		PotentialVotes:  c.potentialVotes,
	}
	issue, ok := c.ActiveIssue()
	if !ok {
		return st
	}
	now := c.clock.Now()
	st.Issue = issue.TypeString()
	st.Details = issue.Details()
	st.CallerSlot = c.callerSlot
	st.Options = append([]string(nil), c.options...)
	st.Tally = append([]int(nil), c.tally[:max(len(c.options), 2)]...)
	if c.state == StateVoting {
		st.Required = issue.GetVotesRequiredToPass()
		st.SecondsLeft = c.acceptingVotes.Remaining(now).Seconds()
	}
	return st
}

// ResetData clears every piece of ballot state.
func (c *Controller) ResetData() {
	c.activeIssue = noActiveIssue
	c.state = StateIdle
	c.tally = [MaxVoteOptions]int{}
	for i := range c.votesCast {
		c.votesCast[i] = voteUncast
	}
	clear(c.seen)
	c.teamRestriction = model.TeamUnassigned
	c.options = nil
	c.potentialVotes = 0
	c.callerSlot = 0
	c.isYesNo = false
	c.failReason = FailNone
	c.startedAt = 0
	c.acceptingVotes.Invalidate()
	c.executeCommand.Invalidate()
	c.resetVote.Invalidate()
}

// Tally returns a copy of the per-option counts.
func (c *Controller) Tally() [MaxVoteOptions]int {
	return c.tally
}

// PotentialVotes is the denominator recorded for the current ballot.
func (c *Controller) PotentialVotes() int {
	return c.potentialVotes
}

// FailReason is the reason the last ballot failed, until reset.
func (c *Controller) FailReason() FailReason {
	return c.failReason
}

func (c *Controller) totalVotes() int {
	total := 0
	for _, n := range c.tally {
		total += n
	}
	return total
}

func (c *Controller) tallyFields() map[string]any {
	fields := map[string]any{"potentialVotes": c.potentialVotes}
	for i, n := range c.tally {
		fields[fmt.Sprintf("vote_option%d", i+1)] = n
	}
	return fields
}

func (c *Controller) optionName(i int) string {
	if i >= 0 && i < len(c.options) {
		return c.options[i]
	}
	return strconv.Itoa(i + 1)
}

func (c *Controller) indexOf(issue *Issue) int {
	for i, is := range c.issues {
		if is == issue {
			return i
		}
	}
	return noActiveIssue
}

// ballotTeam is the team a passed team-scoped issue acts on.
func (c *Controller) ballotTeam() model.Team {
	if c.teamRestriction != model.TeamUnassigned {
		return c.teamRestriction
	}
	return c.team
}

func (c *Controller) callerTuple(slot int) string {
	if slot == model.DedicatedServerSlot {
		return gamelog.ConsoleTuple
	}
	if p, ok := c.players.BySlot(slot); ok {
		return gamelog.PlayerTuple(p)
	}
	return gamelog.ConsoleTuple
}

// audience lists the connected human clients a ballot result is shown to.
func (c *Controller) audience() model.Recipients {
	var slots []int
	for slot := 1; slot <= c.players.MaxClients(); slot++ {
		p, ok := c.players.BySlot(slot)
		if !ok || !p.Connected || p.Bot {
			continue
		}
		if c.team.IsPlaying() && p.Team != c.team {
			continue
		}
		slots = append(slots, slot)
	}
	return model.Recipients{Slots: slots}
}
