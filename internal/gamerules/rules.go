// Package gamerules holds the match state that gates vote issues and applies
// the effects of passed ballots.
package gamerules

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mathieu-neron/callvote/internal/model"
)

// Queued matchmaking modes. ModeNone is a community server.
const (
	ModeNone        = ""
	ModeCompetitive = "competitive"
	ModeTournament  = "tournament"
)

const (
	DefaultTimeoutsPerTeam = 4
	DefaultTimeoutDuration = 30 * time.Second
)

var (
	ErrUnknownMap  = errors.New("map is not in the map cycle")
	ErrUnknownMode = errors.New("unknown queued matchmaking mode")
	ErrInvalidTeam = errors.New("team is not a playing team")
)

// Clock returns monotonic server time.
type Clock interface {
	Now() time.Duration
}

// LogSink is the game log.
type LogSink interface {
	Printf(format string, args ...any)
}

// Rules is the mutable game-rules state. Like the vote controllers it is
// owned by the game loop.
type Rules struct {
	clock   Clock
	gamelog LogSink
	log     zerolog.Logger

	currentMap string
	nextLevel  string
	mapCycle   []string

	waitingForPlayers bool
	warmup            bool
	queuedMode        string
	strictCompetitive bool
	matchPoint        bool
	lastRound         bool
	rematchLocked     bool
	roundsPlayed      int
	restarts          int
	surrendered       model.Team

	paused          bool
	timeoutTeam     model.Team
	timeoutEnds     time.Duration
	timeoutDuration time.Duration
	timeoutsPerTeam int
	timeoutsLeft    map[model.Team]int
}

// New starts on startMap, or on the first map of the cycle when startMap is
// empty. startMap is added to the cycle if missing.
func New(clock Clock, mapCycle []string, startMap string, gl LogSink, logger zerolog.Logger) *Rules {
	cycle := make([]string, 0, len(mapCycle)+1)
	for _, m := range mapCycle {
		if m = strings.TrimSpace(m); m != "" {
			cycle = append(cycle, m)
		}
	}
	if startMap == "" && len(cycle) > 0 {
		startMap = cycle[0]
	}
	r := &Rules{
		clock:           clock,
		gamelog:         gl,
		log:             logger,
		mapCycle:        cycle,
		currentMap:      startMap,
		timeoutDuration: DefaultTimeoutDuration,
		timeoutsPerTeam: DefaultTimeoutsPerTeam,
	}
	if startMap != "" && !r.IsValidMap(startMap) {
		r.mapCycle = append(r.mapCycle, startMap)
	}
	r.resetMatch()
	return r
}

func (r *Rules) resetMatch() {
	r.roundsPlayed = 0
	r.matchPoint = false
	r.lastRound = false
	r.surrendered = model.TeamUnassigned
	r.paused = false
	r.timeoutTeam = model.TeamUnassigned
	r.timeoutEnds = 0
	r.timeoutsLeft = map[model.Team]int{
		model.TeamTerrorist: r.timeoutsPerTeam,
		model.TeamCT:        r.timeoutsPerTeam,
	}
}

func (r *Rules) IsWaitingForPlayers() bool { return r.waitingForPlayers }
func (r *Rules) IsWarmup() bool            { return r.warmup }
func (r *Rules) IsQueuedMatchmaking() bool { return r.queuedMode != ModeNone }
func (r *Rules) IsStrictCompetitive() bool { return r.strictCompetitive }
func (r *Rules) IsMatchPoint() bool        { return r.matchPoint }
func (r *Rules) IsLastRound() bool         { return r.lastRound }
func (r *Rules) IsRematchLocked() bool     { return r.rematchLocked }
func (r *Rules) IsPaused() bool            { return r.paused }
func (r *Rules) RoundsPlayed() int         { return r.roundsPlayed }
func (r *Rules) CurrentMap() string        { return r.currentMap }
func (r *Rules) NextLevel() string         { return r.nextLevel }

// QueuedRequiresUnanimous is true in tournament mode.
func (r *Rules) QueuedRequiresUnanimous() bool {
	return r.queuedMode == ModeTournament
}

// IsTimeoutActive reports whether a team timeout is still running.
func (r *Rules) IsTimeoutActive() bool {
	return r.timeoutTeam != model.TeamUnassigned && r.clock.Now() < r.timeoutEnds
}

func (r *Rules) TimeoutsRemaining(team model.Team) int {
	return r.timeoutsLeft[team]
}

// MapCycle returns a copy of the cycle.
func (r *Rules) MapCycle() []string {
	return slices.Clone(r.mapCycle)
}

// IsValidMap reports whether name is in the map cycle, ignoring case.
func (r *Rules) IsValidMap(name string) bool {
	return r.canonicalMap(name) != ""
}

func (r *Rules) canonicalMap(name string) string {
	for _, m := range r.mapCycle {
		if strings.EqualFold(m, name) {
			return m
		}
	}
	return ""
}

// SetNextLevel picks the map loaded when the current one ends.
func (r *Rules) SetNextLevel(name string) error {
	m := r.canonicalMap(name)
	if m == "" {
		return fmt.Errorf("nextlevel %q: %w", name, ErrUnknownMap)
	}
	r.nextLevel = m
	r.log.Info().Str("map", m).Msg("next level set")
	return nil
}

// ChangeLevel loads name now, resetting match state.
func (r *Rules) ChangeLevel(name string) error {
	m := r.canonicalMap(name)
	if m == "" {
		return fmt.Errorf("changelevel %q: %w", name, ErrUnknownMap)
	}
	r.currentMap = m
	r.nextLevel = ""
	r.rematchLocked = false
	r.resetMatch()
	r.gamelog.Printf("Loading map \"%s\"", m)
	r.gamelog.Printf("Started map \"%s\"", m)
	return nil
}

// RestartGame restarts the match on the current map.
func (r *Rules) RestartGame() {
	r.restarts++
	r.resetMatch()
	r.gamelog.Printf("World triggered \"Restart_Round_(1_second)\"")
}

// ScrambleTeams records a team scramble. The caller reassigns players.
func (r *Rules) ScrambleTeams() {
	r.gamelog.Printf("World triggered \"Teams_Scrambled\"")
	r.RestartGame()
}

// SwapTeams records a side swap. The caller reassigns players.
func (r *Rules) SwapTeams() {
	r.gamelog.Printf("World triggered \"Teams_Swapped\"")
	timeouts := r.timeoutsLeft
	r.RestartGame()
	r.timeoutsLeft = map[model.Team]int{
		model.TeamTerrorist: timeouts[model.TeamCT],
		model.TeamCT:        timeouts[model.TeamTerrorist],
	}
}

func (r *Rules) Pause() {
	if r.paused {
		return
	}
	r.paused = true
	r.gamelog.Printf("Match pause is enabled - mp_pause_match")
}

func (r *Rules) Unpause() {
	if !r.paused {
		return
	}
	r.paused = false
	r.gamelog.Printf("Match pause is disabled - mp_unpause_match")
}

// StartTimeout spends one of team's timeouts.
func (r *Rules) StartTimeout(team model.Team) error {
	if !team.IsPlaying() {
		return ErrInvalidTeam
	}
	if r.timeoutsLeft[team] <= 0 {
		return fmt.Errorf("team %s has no timeouts left", team)
	}
	r.timeoutsLeft[team]--
	r.timeoutTeam = team
	r.timeoutEnds = r.clock.Now() + r.timeoutDuration
	r.gamelog.Printf("World triggered \"Timeout_%s_Start\"", team)
	return nil
}

// Surrender ends the match in favour of team's opponent.
func (r *Rules) Surrender(team model.Team) error {
	if !team.IsPlaying() {
		return ErrInvalidTeam
	}
	r.surrendered = team
	r.rematchLocked = true
	r.gamelog.Printf("Team \"%s\" triggered \"SFUI_Notice_%s_Surrender\"", team, team)
	return nil
}

// Update applies an admin partial update.
func (r *Rules) Update(u model.RulesUpdate) error {
	if u.QueuedMatchmaking != nil {
		switch mode := strings.ToLower(*u.QueuedMatchmaking); mode {
		case ModeNone, "none", "off":
			r.queuedMode = ModeNone
		case ModeCompetitive, ModeTournament:
			r.queuedMode = mode
		default:
			return fmt.Errorf("%q: %w", *u.QueuedMatchmaking, ErrUnknownMode)
		}
	}
	if len(u.MapCycle) > 0 {
		r.mapCycle = nil
		for _, m := range u.MapCycle {
			if m = strings.TrimSpace(m); m != "" {
				r.mapCycle = append(r.mapCycle, m)
			}
		}
		if !r.IsValidMap(r.currentMap) {
			r.mapCycle = append(r.mapCycle, r.currentMap)
		}
		if r.nextLevel != "" && !r.IsValidMap(r.nextLevel) {
			r.nextLevel = ""
		}
	}
	setBool(&r.waitingForPlayers, u.WaitingForPlayers)
	setBool(&r.warmup, u.Warmup)
	setBool(&r.strictCompetitive, u.StrictCompetitive)
	setBool(&r.matchPoint, u.MatchPoint)
	setBool(&r.lastRound, u.LastRound)
	setBool(&r.rematchLocked, u.RematchLocked)
	if u.RoundsPlayed != nil {
		r.roundsPlayed = max(*u.RoundsPlayed, 0)
	}
	if u.TimeoutsPerTeam != nil {
		r.timeoutsPerTeam = max(*u.TimeoutsPerTeam, 0)
		r.timeoutsLeft[model.TeamTerrorist] = r.timeoutsPerTeam
		r.timeoutsLeft[model.TeamCT] = r.timeoutsPerTeam
	}
	r.log.Debug().Interface("update", u).Msg("rules updated")
	return nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// SetTimeoutDuration changes how long a team timeout lasts.
func (r *Rules) SetTimeoutDuration(d time.Duration) {
	if d > 0 {
		r.timeoutDuration = d
	}
}

// State snapshots the rules for the API.
func (r *Rules) State() model.RulesState {
	st := model.RulesState{
		CurrentMap:        r.currentMap,
		NextLevel:         r.nextLevel,
		MapCycle:          r.MapCycle(),
		WaitingForPlayers: r.waitingForPlayers,
		Warmup:            r.warmup,
		QueuedMatchmaking: r.queuedMode,
		StrictCompetitive: r.strictCompetitive,
		MatchPoint:        r.matchPoint,
		LastRound:         r.lastRound,
		RematchLocked:     r.rematchLocked,
		Paused:            r.paused,
		TimeoutsLeftT:     r.timeoutsLeft[model.TeamTerrorist],
		TimeoutsLeftCT:    r.timeoutsLeft[model.TeamCT],
		RoundsPlayed:      r.roundsPlayed,
		Restarts:          r.restarts,
		SurrenderedTeam:   r.surrendered,
	}
	if r.IsTimeoutActive() {
		st.TimeoutTeam = r.timeoutTeam
		st.TimeoutSecondsLeft = (r.timeoutEnds - r.clock.Now()).Seconds()
	}
	return st
}
