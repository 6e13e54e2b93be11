package vote

import (
	"github.com/mathieu-neron/callvote/internal/model"
)

// Match holds the three controllers of a running match: the match-wide one
// and one per playing team. They share one Settings value.
type Match struct {
	Global    *Controller
	Terrorist *Controller
	CT        *Controller

	settings  *Settings
	clock     Clock
	players   Players
	messenger Messenger
}

// NewMatch builds and links the three controllers.
func NewMatch(deps Deps, settings *Settings) *Match {
	m := &Match{
		Global:    NewController("global", model.TeamUnassigned, deps, settings),
		Terrorist: NewController("terrorist", model.TeamTerrorist, deps, settings),
		CT:        NewController("ct", model.TeamCT, deps, settings),
		settings:  settings,
		clock:     deps.Clock,
		players:   deps.Players,
		messenger: deps.Messenger,
	}

	m.Global.teams = []*Controller{m.Terrorist, m.CT}
	m.Terrorist.global = m.Global
	m.Terrorist.sibling = m.CT
	m.CT.global = m.Global
	m.CT.sibling = m.Terrorist
	return m
}

// Settings returns the shared convars. Mutate them only on the game loop.
func (m *Match) Settings() *Settings {
	return m.settings
}

// Controllers lists global, Terrorist and CT in that order.
func (m *Match) Controllers() []*Controller {
	return []*Controller{m.Global, m.Terrorist, m.CT}
}

// TeamController returns the controller for a playing team.
func (m *Match) TeamController(t model.Team) (*Controller, bool) {
	switch t {
	case model.TeamTerrorist:
		return m.Terrorist, true
	case model.TeamCT:
		return m.CT, true
	}
	return nil, false
}

// CallVote routes a callvote to the controller that hosts typeString. Team
// issues go to the caller's team; the server names the team in details.
func (m *Match) CallVote(slot int, typeString, details string) CallResult {
	if m.Global.HostsIssue(typeString) {
		return m.Global.CreateVote(slot, typeString, details)
	}

	if _, ok := m.Terrorist.Issue(typeString); !ok {
		res := callFailed(FailUnknownIssue, 0)
		m.Global.notifyCallFailed(slot, typeString, res)
		return res
	}

	var team model.Team
	if slot == model.DedicatedServerSlot {
		team, _ = model.ParseTeam(details)
		details = ""
	} else if p, ok := m.players.BySlot(slot); ok {
		team = p.Team
	}

	ctrl, ok := m.TeamController(team)
	if !ok {
		res := callFailed(FailTeamCantCall, 0)
		m.Global.notifyCallFailed(slot, typeString, res)
		return res
	}
	return ctrl.CreateVote(slot, typeString, details)
}

// CastVote routes a vote to the ballot slot can see.
func (m *Match) CastVote(slot int, option string) CastResult {
	if m.Global.IsVoteActive() {
		return m.Global.TryCastVote(slot, option)
	}
	p, ok := m.players.BySlot(slot)
	if !ok {
		return CastNoActiveIssue
	}
	ctrl, ok := m.TeamController(p.Team)
	if !ok {
		if m.Terrorist.IsVoteActive() || m.CT.IsVoteActive() {
			return CastTeamRestricted
		}
		return CastNoActiveIssue
	}
	return ctrl.TryCastVote(slot, option)
}

// Think runs one tick on every controller.
func (m *Match) Think() {
	for _, c := range m.Controllers() {
		c.Think()
	}
}

// EndVotesImmediately fails every open ballot, e.g. at round end.
func (m *Match) EndVotesImmediately() {
	for _, c := range m.Controllers() {
		c.EndVoteImmediately()
	}
}

// ListIssues returns the usage lines slot can act on and sends them to the
// client console.
func (m *Match) ListIssues(slot int) []string {
	lines := []string{"---Vote commands---"}
	lines = append(lines, m.Global.ListIssues()...)
	for _, c := range m.teamScope(slot) {
		lines = append(lines, c.ListIssues()...)
	}
	lines = append(lines, "--- End Vote commands---")

	if slot != model.DedicatedServerSlot {
		m.messenger.Send(model.ClientMessage{Type: model.MsgTextMsg, Lines: lines}, model.Single(slot))
	}
	return lines
}

// VoteSetup sends slot the issues it may call, for a bare "callvote".
func (m *Match) VoteSetup(slot int) []string {
	var team []string
	for _, c := range m.teamScope(slot) {
		team = append(team, c.EnabledIssues()...)
	}
	return m.Global.SendVoteSetup(slot, team...)
}

func (m *Match) teamScope(slot int) []*Controller {
	if slot == model.DedicatedServerSlot {
		return []*Controller{m.Terrorist}
	}
	p, ok := m.players.BySlot(slot)
	if !ok {
		return nil
	}
	if c, ok := m.TeamController(p.Team); ok {
		return []*Controller{c}
	}
	return nil
}

// Status snapshots all three controllers.
func (m *Match) Status() model.MatchStatus {
	st := model.MatchStatus{ServerTime: m.clock.Now().Seconds()}
	for _, c := range m.Controllers() {
		st.Controllers = append(st.Controllers, c.Status())
	}
	return st
}
