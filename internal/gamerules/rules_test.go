package gamerules

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mathieu-neron/callvote/internal/model"
)

type fakeClock struct{ now time.Duration }

func (c *fakeClock) Now() time.Duration { return c.now }

type fakeLog struct{ lines []string }

func (l *fakeLog) Printf(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func newTestRules() (*Rules, *fakeClock, *fakeLog) {
	clock := &fakeClock{now: time.Minute}
	gl := &fakeLog{}
	r := New(clock, []string{"de_dust2", "de_inferno", " de_mirage ", ""}, "", gl, zerolog.Nop())
	return r, clock, gl
}

func ptr[T any](v T) *T { return &v }

func TestNew(t *testing.T) {
	r, _, _ := newTestRules()
	require.Equal(t, "de_dust2", r.CurrentMap())
	require.Equal(t, []string{"de_dust2", "de_inferno", "de_mirage"}, r.MapCycle())
	require.Equal(t, DefaultTimeoutsPerTeam, r.TimeoutsRemaining(model.TeamCT))
	require.Zero(t, r.TimeoutsRemaining(model.TeamSpectator))

	r = New(&fakeClock{}, []string{"de_dust2"}, "cs_office", &fakeLog{}, zerolog.Nop())
	require.Equal(t, "cs_office", r.CurrentMap())
	require.True(t, r.IsValidMap("CS_OFFICE"))
}

func TestMapCycle_ReturnsCopy(t *testing.T) {
	r, _, _ := newTestRules()
	cycle := r.MapCycle()
	cycle[0] = "changed"
	require.Equal(t, "de_dust2", r.MapCycle()[0])
}

func TestSetNextLevelAndChangeLevel(t *testing.T) {
	r, _, gl := newTestRules()

	require.ErrorIs(t, r.SetNextLevel("de_nuke"), ErrUnknownMap)
	require.NoError(t, r.SetNextLevel("DE_INFERNO"))
	require.Equal(t, "de_inferno", r.NextLevel())

	r.roundsPlayed = 12
	require.NoError(t, r.ChangeLevel("de_mirage"))
	require.Equal(t, "de_mirage", r.CurrentMap())
	require.Empty(t, r.NextLevel())
	require.Zero(t, r.RoundsPlayed())
	require.Contains(t, gl.lines, `Started map "de_mirage"`)

	require.ErrorIs(t, r.ChangeLevel("de_nuke"), ErrUnknownMap)
}

func TestTimeouts(t *testing.T) {
	r, clock, gl := newTestRules()

	require.ErrorIs(t, r.StartTimeout(model.TeamSpectator), ErrInvalidTeam)
	require.NoError(t, r.StartTimeout(model.TeamTerrorist))
	require.True(t, r.IsTimeoutActive())
	require.Equal(t, DefaultTimeoutsPerTeam-1, r.TimeoutsRemaining(model.TeamTerrorist))
	require.Equal(t, DefaultTimeoutsPerTeam, r.TimeoutsRemaining(model.TeamCT))
	require.Contains(t, gl.lines, `World triggered "Timeout_TERRORIST_Start"`)

	st := r.State()
	require.Equal(t, model.TeamTerrorist, st.TimeoutTeam)
	require.InDelta(t, 30.0, st.TimeoutSecondsLeft, 1e-9)

	clock.now += DefaultTimeoutDuration
	require.False(t, r.IsTimeoutActive())
	require.Equal(t, model.TeamUnassigned, r.State().TimeoutTeam)

	require.NoError(t, r.Update(model.RulesUpdate{TimeoutsPerTeam: ptr(0)}))
	require.Error(t, r.StartTimeout(model.TeamCT))
}

func TestPauseUnpause(t *testing.T) {
	r, _, gl := newTestRules()

	r.Unpause()
	require.Empty(t, gl.lines)
	r.Pause()
	r.Pause()
	require.True(t, r.IsPaused())
	require.Len(t, gl.lines, 1)
	r.Unpause()
	require.False(t, r.IsPaused())
	require.Len(t, gl.lines, 2)
}

func TestSurrender(t *testing.T) {
	r, _, _ := newTestRules()
	require.ErrorIs(t, r.Surrender(model.TeamUnassigned), ErrInvalidTeam)
	require.NoError(t, r.Surrender(model.TeamCT))
	require.True(t, r.IsRematchLocked())
	require.Equal(t, model.TeamCT, r.State().SurrenderedTeam)
}

func TestRestartAndSwap(t *testing.T) {
	r, _, _ := newTestRules()
	require.NoError(t, r.StartTimeout(model.TeamTerrorist))
	require.NoError(t, r.StartTimeout(model.TeamTerrorist))
	r.roundsPlayed = 7

	r.SwapTeams()
	require.Zero(t, r.RoundsPlayed())
	require.Equal(t, 1, r.State().Restarts)
	require.Equal(t, DefaultTimeoutsPerTeam-2, r.TimeoutsRemaining(model.TeamCT), "timeouts follow the side swap")
	require.Equal(t, DefaultTimeoutsPerTeam, r.TimeoutsRemaining(model.TeamTerrorist))

	r.ScrambleTeams()
	require.Equal(t, 2, r.State().Restarts)
	require.Equal(t, DefaultTimeoutsPerTeam, r.TimeoutsRemaining(model.TeamCT))
}

func TestUpdate(t *testing.T) {
	r, _, _ := newTestRules()

	require.NoError(t, r.Update(model.RulesUpdate{
		Warmup:            ptr(true),
		QueuedMatchmaking: ptr("Tournament"),
		RoundsPlayed:      ptr(-3),
		MatchPoint:        ptr(true),
	}))
	require.True(t, r.IsWarmup())
	require.True(t, r.IsQueuedMatchmaking())
	require.True(t, r.QueuedRequiresUnanimous())
	require.Zero(t, r.RoundsPlayed())
	require.True(t, r.IsMatchPoint())
	require.False(t, r.IsLastRound())

	require.NoError(t, r.Update(model.RulesUpdate{QueuedMatchmaking: ptr("competitive")}))
	require.True(t, r.IsQueuedMatchmaking())
	require.False(t, r.QueuedRequiresUnanimous())

	require.NoError(t, r.Update(model.RulesUpdate{QueuedMatchmaking: ptr("none")}))
	require.False(t, r.IsQueuedMatchmaking())

	err := r.Update(model.RulesUpdate{QueuedMatchmaking: ptr("wingman"), Warmup: ptr(false)})
	require.ErrorIs(t, err, ErrUnknownMode)
	require.True(t, r.IsWarmup(), "a rejected update changes nothing")
}

func TestUpdate_MapCycle(t *testing.T) {
	r, _, _ := newTestRules()
	require.NoError(t, r.SetNextLevel("de_inferno"))

	require.NoError(t, r.Update(model.RulesUpdate{MapCycle: []string{"de_nuke", "de_vertigo"}}))
	require.Equal(t, []string{"de_nuke", "de_vertigo", "de_dust2"}, r.MapCycle(), "the current map stays valid")
	require.Empty(t, r.NextLevel(), "a next level dropped from the cycle is cleared")
}
