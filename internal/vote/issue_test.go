package vote

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mathieu-neron/callvote/internal/model"
)

func TestRequiredForQuorum(t *testing.T) {
	tests := []struct {
		potential int
		ratio     float64
		want      int
	}{
		// 10 * 0.501 = 5.01 -> 6, one more than half
		{10, 0.501, 6},
		{10, 0.5, 5},
		// 4 * 0.501 = 2.004 -> 3
		{4, 0.501, 3},
		{0, 0.501, 1},
		{1, 0.501, 1},
		// 10 * 0.3 is 3.0000000000000004 in float64; must stay 3
		{10, 0.3, 3},
		{3, 1.0, 3},
		{7, 0, 1},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, RequiredForQuorum(tt.potential, tt.ratio),
			"potential=%d ratio=%v", tt.potential, tt.ratio)
	}
}

func TestRequiredForQuorumMonotonicInRatio(t *testing.T) {
	for potential := 0; potential <= 24; potential++ {
		prev := 0
		for step := 0; step <= 100; step++ {
			got := RequiredForQuorum(potential, float64(step)/100)
			require.GreaterOrEqual(t, got, prev, "potential=%d ratio=%d%%", potential, step)
			prev = got
		}
	}
}

func TestGetVotesRequiredToPass(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
		ctrl  func(m *Match) *Controller
		issue string
		want  int
	}{
		{
			name:  "quorum over all ten voters",
			ctrl:  func(m *Match) *Controller { return m.Global },
			issue: "RestartGame",
			want:  6,
		},
		{
			name:  "unanimous surrender counts the team only",
			ctrl:  func(m *Match) *Controller { return m.Terrorist },
			issue: "Surrender",
			want:  5,
		},
		{
			name:  "strict competitive is all but one",
			setup: func(h *harness) { h.rules.strict = true },
			ctrl:  func(m *Match) *Controller { return m.Global },
			issue: "RestartGame",
			want:  9,
		},
		{
			name:  "queued unanimous mode",
			setup: func(h *harness) { h.rules.queuedUnanimous = true },
			ctrl:  func(m *Match) *Controller { return m.Global },
			issue: "RestartGame",
			want:  10,
		},
		{
			name:  "queued unanimous mode spares ally-restricted issues",
			setup: func(h *harness) { h.rules.queuedUnanimous = true },
			ctrl:  func(m *Match) *Controller { return m.Global },
			issue: "Kick",
			want:  6,
		},
		{
			name: "unanimous with nobody eligible is one",
			setup: func(h *harness) {
				for slot := 1; slot <= 5; slot++ {
					h.players.remove(slot)
				}
			},
			ctrl:  func(m *Match) *Controller { return m.CT },
			issue: "Surrender",
			want:  1,
		},
		{
			name:  "controller potential wins when larger",
			setup: func(h *harness) { h.match.Global.potentialVotes = 12 },
			ctrl:  func(m *Match) *Controller { return m.Global },
			issue: "RestartGame",
			// 12 * 0.501 = 6.012 -> 7
			want: 7,
		},
		{
			name: "spectators only count when enabled",
			setup: func(h *harness) {
				h.players.add(11, model.TeamSpectator)
				h.players.add(12, model.TeamSpectator)
				h.settings.CountSpectatorVotes = true
			},
			ctrl:  func(m *Match) *Controller { return m.Global },
			issue: "RestartGame",
			// 12 * 0.501 -> 7
			want: 7,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.teams(5, 5)
			if tt.setup != nil {
				tt.setup(h)
			}
			is, ok := tt.ctrl(h.match).Issue(tt.issue)
			require.True(t, ok)
			require.Equal(t, tt.want, is.GetVotesRequiredToPass())
		})
	}
}

func TestUnanimousEqualsPotential(t *testing.T) {
	for n := 0; n <= 8; n++ {
		h := newHarness(t)
		h.teams(0, n)
		is, _ := h.match.Terrorist.Issue("Surrender")
		require.Equal(t, max(1, n), is.GetVotesRequiredToPass(), "n=%d", n)
	}
}

func TestCountPotentialVoters(t *testing.T) {
	h := newHarness(t)
	h.teams(3, 3)
	h.players.add(7, model.TeamSpectator)
	h.players.add(8, model.TeamCT)
	h.players.update(8, func(p *model.Player) { p.Bot = true })
	h.players.add(9, model.TeamTerrorist)
	h.players.update(9, func(p *model.Player) { p.HLTV = true })
	h.players.add(10, model.TeamTerrorist)
	h.players.update(10, func(p *model.Player) { p.Connected = false })

	global, _ := h.match.Global.Issue("RestartGame")
	require.Equal(t, 6, global.CountPotentialVoters())

	ct, _ := h.match.CT.Issue("Surrender")
	require.Equal(t, 3, ct.CountPotentialVoters())

	h.settings.CountSpectatorVotes = true
	require.Equal(t, 7, global.CountPotentialVoters())
	require.Equal(t, 3, ct.CountPotentialVoters())
}

func TestCanCallVoteFailures(t *testing.T) {
	// Slots 1-4 are CT, 5-8 Terrorist. Slot 5 calls unless noted.
	tests := []struct {
		name    string
		setup   func(h *harness)
		caller  int
		issue   string
		details string
		want    FailReason
	}{
		{name: "waiting for players", setup: func(h *harness) { h.rules.waiting = true }, issue: "RestartGame", want: FailWaitingForPlayers},
		{name: "kick disabled in warmup", setup: func(h *harness) { h.rules.warmup = true }, issue: "Kick", details: "106", want: FailIssueDisabled},
		{name: "ally-restricted from spectator", setup: func(h *harness) { h.players.add(9, model.TeamSpectator) }, caller: 9, issue: "Kick", details: "106", want: FailTeamCantCall},
		{name: "spectator may not call", setup: func(h *harness) { h.players.add(9, model.TeamSpectator) }, caller: 9, issue: "RestartGame", want: FailSpectator},
		{name: "disabled in queued matchmaking", setup: func(h *harness) { h.rules.queued = true }, issue: "ScrambleTeams", want: FailIssueDisabled},
		{name: "rematch lock", setup: func(h *harness) { h.rules.rematch = true }, issue: "SwapTeams", want: FailRematch},
		{
			name: "kick on match point",
			setup: func(h *harness) {
				h.rules.matchPoint = true
				h.settings.DisallowKickOnMatchPoint = true
			},
			issue: "Kick", details: "106", want: FailKickMatchPoint,
		},
		{name: "kick unknown user", issue: "Kick", details: "999", want: FailPlayerNotFound},
		{name: "kick malformed user", issue: "Kick", details: "alice", want: FailPlayerNotFound},
		{name: "kick self", issue: "Kick", details: "105", want: FailGeneric},
		{name: "kick admin", setup: func(h *harness) { h.players.update(6, func(p *model.Player) { p.Admin = true }) }, issue: "Kick", details: "106", want: FailCannotKickAdmin},
		{name: "kick enemy", issue: "Kick", details: "101", want: FailPlayerNotFound},
		{name: "changelevel without map", issue: "ChangeLevel", want: FailMapNameRequired},
		{name: "changelevel unknown map", issue: "ChangeLevel", details: "de_cache", want: FailMapNotFound},
		{name: "nextlevel already set", setup: func(h *harness) { h.rules.next = "de_nuke" }, issue: "NextLevel", details: "de_mirage", want: FailNextLevelSet},
		{name: "nextlevel unknown map", issue: "NextLevel", details: "de_cache", want: FailMapNotFound},
		{name: "nextlevel with too few candidates", setup: func(h *harness) { h.rules.maps = []string{"de_dust2", "de_nuke"} }, issue: "NextLevel", want: FailMapNameRequired},
		{name: "pause while paused", setup: func(h *harness) { h.rules.paused = true }, issue: "PauseMatch", want: FailMatchPaused},
		{name: "unpause while running", issue: "UnpauseMatch", want: FailMatchNotPaused},
		{name: "early surrender", setup: func(h *harness) { h.rules.rounds = 2 }, issue: "Surrender", want: FailTooEarlySurrender},
		{name: "timeout while timeout running", setup: func(h *harness) { h.rules.timeoutActive = true }, issue: "StartTimeout", want: FailTimeoutActive},
		{name: "timeouts exhausted", setup: func(h *harness) { h.rules.timeouts[model.TeamTerrorist] = 0 }, issue: "StartTimeout", want: FailTimeoutExhausted},
		{name: "disconnected caller", setup: func(h *harness) { h.players.update(5, func(p *model.Player) { p.Connected = false }) }, issue: "RestartGame", want: FailGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.teams(4, 4)
			if tt.setup != nil {
				tt.setup(h)
			}
			caller := tt.caller
			if caller == 0 {
				caller = 5
			}
			ctrl := h.match.Global
			if !ctrl.HostsIssue(tt.issue) {
				ctrl = h.match.Terrorist
			}
			is, ok := ctrl.Issue(tt.issue)
			require.True(t, ok)

			allowed, reason, _ := is.CanCallVote(caller, is.TypeString(), tt.details)
			require.False(t, allowed)
			require.Equal(t, tt.want, reason, "got %s", reason)
		})
	}
}

func TestCanCallVoteAllowed(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(h *harness)
		caller  int
		issue   string
		details string
	}{
		{name: "kick teammate", issue: "Kick", details: "106"},
		{name: "kick by #userid", issue: "Kick", details: "#106"},
		{name: "changelevel in warmup", setup: func(h *harness) { h.rules.warmup = true }, issue: "ChangeLevel", details: "de_nuke"},
		{
			name: "kick in warmup when allowed",
			setup: func(h *harness) {
				h.rules.warmup = true
				h.settings.AllowInWarmup = true
			},
			issue: "Kick", details: "106",
		},
		{
			name: "spectator when allowed",
			setup: func(h *harness) {
				h.players.add(9, model.TeamSpectator)
				h.settings.AllowSpectators = true
			},
			caller: 9, issue: "RestartGame",
		},
		{name: "nextlevel ballot over the map cycle", issue: "NextLevel"},
		{
			name: "server bypasses every rule",
			setup: func(h *harness) {
				h.rules.waiting = true
				h.rules.rematch = true
			},
			caller: model.DedicatedServerSlot, issue: "ChangeLevel",
		},
		{name: "unpause while paused", setup: func(h *harness) { h.rules.paused = true }, issue: "UnpauseMatch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.teams(4, 4)
			if tt.setup != nil {
				tt.setup(h)
			}
			caller := tt.caller
			if caller == 0 {
				caller = 5
			}
			is, ok := h.match.Global.Issue(tt.issue)
			require.True(t, ok)
			allowed, reason, _ := is.CanCallVote(caller, is.TypeString(), tt.details)
			require.True(t, allowed, "reason %s", reason)
		})
	}
}

func TestSpectatorExclusiveIssue(t *testing.T) {
	saved := issueSpecs[KindRestartGame]
	t.Cleanup(func() { issueSpecs[KindRestartGame] = saved })
	issueSpecs[KindRestartGame].spectatorsOnly = true

	h := newHarness(t)
	h.teams(2, 2)
	h.players.add(5, model.TeamSpectator)
	is, _ := h.match.Global.Issue("RestartGame")

	allowed, reason, _ := is.CanCallVote(1, "RestartGame", "")
	require.False(t, allowed)
	require.Equal(t, FailTeamCantCall, reason)

	allowed, _, _ = is.CanCallVote(5, "RestartGame", "")
	require.True(t, allowed)
}

func TestFailureLockoutBoundary(t *testing.T) {
	h := newHarness(t)
	h.teams(2, 2)
	g := h.match.Global

	require.True(t, g.CreateVote(1, "RestartGame", "").Ok())
	require.Equal(t, CastOK, g.TryCastVote(2, "option2"))
	require.Equal(t, CastOK, g.TryCastVote(3, "option2"))

	// yes 1 + 1 outstanding cannot reach 3 of 4
	h.match.Think()
	require.Equal(t, StateFailed, g.State())
	require.Equal(t, FailYesMustExceedNo, g.FailReason())
	expiry := h.clock.now + h.settings.FailureLockout

	h.advance(ResetDelay)
	require.Equal(t, StateIdle, g.State())

	h.clock.now = expiry - time.Millisecond
	res := g.CreateVote(4, "RestartGame", "")
	require.Equal(t, FailFailedRecentRestart, res.Reason)
	require.Equal(t, time.Millisecond, res.RetryAfter)

	failed := h.msgs.ofType(model.MsgCallVoteFailed)
	require.NotEmpty(t, failed)
	last := failed[len(failed)-1]
	require.Equal(t, []int{4}, last.to.Slots)
	require.Equal(t, "FAILED_RECENT_RESTART", last.msg.Reason)
	require.Equal(t, 1, last.msg.RetrySeconds)

	h.clock.now = expiry
	require.True(t, g.CreateVote(4, "RestartGame", "").Ok())
}

func TestFailureLockoutMatchesDetails(t *testing.T) {
	h := newHarness(t)
	h.teams(2, 2)
	g := h.match.Global

	require.True(t, g.CreateVote(1, "ChangeLevel", "de_inferno").Ok())
	require.Equal(t, CastOK, g.TryCastVote(2, "option2"))
	require.Equal(t, CastOK, g.TryCastVote(3, "option2"))
	h.match.Think()
	require.Equal(t, StateFailed, g.State())
	h.advance(ResetDelay)

	res := g.CreateVote(2, "ChangeLevel", "de_inferno")
	require.Equal(t, FailFailedRecentChangeLevel, res.Reason)
	require.Greater(t, res.RetryAfter, time.Duration(0))

	require.True(t, g.CreateVote(2, "ChangeLevel", "de_mirage").Ok())
}

func TestKickCommands(t *testing.T) {
	h := newHarness(t)
	h.teams(2, 2)
	h.players.add(5, model.TeamCT)
	h.players.update(5, func(p *model.Player) { p.Bot = true })
	is, _ := h.match.Global.Issue("Kick")

	is.SetIssueDetails("101")
	require.Equal(t, "player1", is.GetDetailsString())
	require.Equal(t, []string{"banid 15 101", "kickid 101 You have been voted off"}, issueSpecs[KindKick].commands(is))

	is.SetIssueDetails("105")
	require.Equal(t, []string{"kickid 105 You have been voted off"}, issueSpecs[KindKick].commands(is))

	h.settings.KickBanDuration = 0
	is.SetIssueDetails("102")
	require.Equal(t, []string{"kickid 102 You have been voted off"}, issueSpecs[KindKick].commands(is))

	is.SetIssueDetails("150")
	require.Empty(t, issueSpecs[KindKick].commands(is))
}

func TestGetVoteOptions(t *testing.T) {
	h := newHarness(t)
	h.rules.maps = []string{"de_dust2", "de_inferno", "de_mirage", "de_nuke", "de_overpass", "de_vertigo", "de_ancient", "de_anubis"}
	is, _ := h.match.Global.Issue("NextLevel")

	is.SetIssueDetails("")
	require.False(t, is.IsYesNoVote())
	require.Equal(t, []string{"de_inferno", "de_mirage", "de_nuke", "de_overpass", "de_vertigo"}, is.GetVoteOptions())

	is.SetIssueDetails("de_nuke")
	require.True(t, is.IsYesNoVote())
	require.Equal(t, []string{"Yes", "No"}, is.GetVoteOptions())

	kick, _ := h.match.Global.Issue("Kick")
	require.Equal(t, []string{"Yes", "No"}, kick.GetVoteOptions())
}

func TestListIssueDetails(t *testing.T) {
	h := newHarness(t)
	h.teams(1, 1)

	kick, _ := h.match.Global.Issue("Kick")
	require.Equal(t, []string{"callvote Kick <userID>", "  101 player1", "  102 player2"}, kick.ListIssueDetails())

	restart, _ := h.match.Global.Issue("RestartGame")
	require.Equal(t, []string{"callvote RestartGame"}, restart.ListIssueDetails())

	h.rules.queued = true
	scramble, _ := h.match.Global.Issue("ScrambleTeams")
	require.Nil(t, scramble.ListIssueDetails())
}

func TestKindNames(t *testing.T) {
	for k := range kindCount {
		spec := issueSpecs[k]
		require.NotEmpty(t, spec.typeString, "kind %d", k)
		require.NotNil(t, spec.commands, "kind %s", k)

		got, ok := ParseKind(strings.ToLower(k.String()))
		require.True(t, ok)
		require.Equal(t, k, got)
	}
	_, ok := ParseKind("Ban")
	require.False(t, ok)
	require.Equal(t, "Kind(42)", Kind(42).String())
}
