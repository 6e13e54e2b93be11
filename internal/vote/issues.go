package vote

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mathieu-neron/callvote/internal/model"
)

// Surrender is refused until this many rounds have been played.
const surrenderMinRounds = 3

var issueSpecs [kindCount]issueSpec

func init() {
	issueSpecs = [kindCount]issueSpec{
		KindKick: {
			typeString:           "Kick",
			display:              "#SFUI_vote_kick_player_other",
			otherTeam:            "#SFUI_otherteam_vote_kick_player",
			passed:               "#SFUI_vote_passed_kick_player",
			yesNo:                true,
			allyRestricted:       true,
			queuedMatchmaking:    true,
			failsWhenUnreachable: true,
			recentFailure:        FailFailedRecentKick,
			check:                checkKick,
			commands:             kickCommands,
			detail:               kickDetail,
			usage:                kickUsage,
		},
		KindChangeLevel: {
			typeString:           "ChangeLevel",
			display:              "#SFUI_vote_changelevel",
			otherTeam:            "#SFUI_otherteam_vote_changelevel",
			passed:               "#SFUI_vote_passed_changelevel",
			yesNo:                true,
			warmup:               true,
			failsWhenUnreachable: true,
			recentFailure:        FailFailedRecentChangeLevel,
			check:                checkChangeLevel,
			commands: func(is *Issue) []string {
				return []string{"changelevel " + is.details}
			},
			usage: mapUsage("ChangeLevel"),
		},
		KindNextLevel: {
			typeString:           "NextLevel",
			display:              "#SFUI_vote_nextlevel",
			otherTeam:            "#SFUI_otherteam_vote_nextlevel",
			passed:               "#SFUI_vote_passed_nextlevel",
			warmup:               true,
			failsWhenUnreachable: true,
			check:                checkNextLevel,
			commands:             nextLevelCommands,
			options:              nextLevelCandidates,
			usage:                mapUsage("NextLevel"),
		},
		KindRestartGame: {
			typeString:           "RestartGame",
			display:              "#SFUI_vote_restart_game",
			otherTeam:            "#SFUI_otherteam_vote_restart_game",
			passed:               "#SFUI_vote_passed_restart_game",
			yesNo:                true,
			warmup:               true,
			failsWhenUnreachable: true,
			recentFailure:        FailFailedRecentRestart,
			commands:             fixedCommands("mp_restartgame 1"),
		},
		KindScrambleTeams: {
			typeString:           "ScrambleTeams",
			display:              "#SFUI_vote_scramble_teams",
			otherTeam:            "#SFUI_otherteam_vote_scramble_teams",
			passed:               "#SFUI_vote_passed_scramble_teams",
			yesNo:                true,
			failsWhenUnreachable: true,
			recentFailure:        FailFailedRecentScramble,
			commands:             fixedCommands("mp_scrambleteams 1"),
		},
		KindSwapTeams: {
			typeString:           "SwapTeams",
			display:              "#SFUI_vote_swap_teams",
			otherTeam:            "#SFUI_otherteam_vote_swap_teams",
			passed:               "#SFUI_vote_passed_swap_teams",
			yesNo:                true,
			failsWhenUnreachable: true,
			recentFailure:        FailFailedRecentSwapTeams,
			commands:             fixedCommands("mp_swapteams 1"),
		},
		KindSurrender: {
			typeString:           "Surrender",
			display:              "#SFUI_vote_surrender",
			otherTeam:            "#SFUI_otherteam_vote_surrender",
			passed:               "#SFUI_vote_passed_surrender",
			yesNo:                true,
			allyRestricted:       true,
			unanimous:            true,
			queuedMatchmaking:    true,
			multiTeamExclusive:   true,
			failsWhenUnreachable: true,
			check: func(is *Issue, _ model.Player, _ string) FailReason {
				if is.ctrl.rules.RoundsPlayed() < surrenderMinRounds {
					return FailTooEarlySurrender
				}
				return FailNone
			},
			commands: func(is *Issue) []string {
				return []string{fmt.Sprintf("mp_surrender %d", int(is.ctrl.ballotTeam()))}
			},
		},
		KindStartTimeout: {
			typeString:          "StartTimeout",
			display:             "#SFUI_vote_start_timeout",
			otherTeam:           "#SFUI_otherteam_vote_timeout",
			passed:              "#SFUI_vote_passed_timeout",
			yesNo:               true,
			allyRestricted:      true,
			ignoreCreationTimer: true,
			queuedMatchmaking:   true,
			multiTeamExclusive:  true,
			check:               checkStartTimeout,
			commands: func(is *Issue) []string {
				if is.ctrl.ballotTeam() == model.TeamTerrorist {
					return []string{"timeout_terrorist_start"}
				}
				return []string{"timeout_ct_start"}
			},
		},
		KindPauseMatch: {
			typeString:           "PauseMatch",
			display:              "#SFUI_Vote_pause_match",
			otherTeam:            "#SFUI_otherteam_vote_pause_match",
			passed:               "#SFUI_vote_passed_pause_match",
			yesNo:                true,
			queuedMatchmaking:    true,
			failsWhenUnreachable: true,
			check: func(is *Issue, _ model.Player, _ string) FailReason {
				if is.ctrl.rules.IsPaused() {
					return FailMatchPaused
				}
				return FailNone
			},
			commands: fixedCommands("mp_pause_match"),
		},
		KindUnpauseMatch: {
			typeString:           "UnpauseMatch",
			display:              "#SFUI_Vote_unpause_match",
			otherTeam:            "#SFUI_otherteam_vote_unpause_match",
			passed:               "#SFUI_vote_passed_unpause_match",
			yesNo:                true,
			ignoreCreationTimer:  true,
			queuedMatchmaking:    true,
			failsWhenUnreachable: true,
			check: func(is *Issue, _ model.Player, _ string) FailReason {
				if !is.ctrl.rules.IsPaused() {
					return FailMatchNotPaused
				}
				return FailNone
			},
			commands: fixedCommands("mp_unpause_match"),
		},
	}
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return issueSpecs[k].typeString
}

// ParseKind looks up a kind by its console name, ignoring case.
func ParseKind(s string) (Kind, bool) {
	for k := range kindCount {
		if strings.EqualFold(issueSpecs[k].typeString, s) {
			return k, true
		}
	}
	return 0, false
}

func fixedCommands(cmds ...string) func(*Issue) []string {
	return func(*Issue) []string {
		return cmds
	}
}

func mapUsage(typeString string) func(*Issue) []string {
	return func(is *Issue) []string {
		lines := []string{"callvote " + typeString + " <mapname>"}
		for _, m := range is.ctrl.rules.MapCycle() {
			lines = append(lines, "  "+m)
		}
		return lines
	}
}

func kickTarget(is *Issue, details string) (model.Player, bool) {
	userID, err := strconv.Atoi(strings.TrimPrefix(details, "#"))
	if err != nil {
		return model.Player{}, false
	}
	p, ok := is.ctrl.players.ByUserID(userID)
	if !ok || !p.Connected {
		return model.Player{}, false
	}
	return p, true
}

func checkKick(is *Issue, caller model.Player, details string) FailReason {
	target, ok := kickTarget(is, details)
	if !ok || target.HLTV {
		return FailPlayerNotFound
	}
	if target.Slot == caller.Slot {
		return FailGeneric
	}
	if target.Admin {
		return FailCannotKickAdmin
	}
	// Kicks are team votes; the target must be on the caller's team.
	if target.Team != caller.Team {
		return FailPlayerNotFound
	}
	return FailNone
}

func kickDetail(is *Issue) string {
	if target, ok := kickTarget(is, is.details); ok {
		return target.Name
	}
	return is.details
}

func kickCommands(is *Issue) []string {
	target, ok := kickTarget(is, is.details)
	if !ok {
		is.ctrl.log.Info().Str("details", is.details).Msg("kick target left before the vote executed")
		return nil
	}
	var cmds []string
	if ban := is.ctrl.settings.KickBanDuration; ban > 0 && !target.Bot {
		minutes := int(math.Ceil(ban.Minutes()))
		cmds = append(cmds, fmt.Sprintf("banid %d %d", minutes, target.UserID))
	}
	return append(cmds, fmt.Sprintf("kickid %d %s", target.UserID, "You have been voted off"))
}

func kickUsage(is *Issue) []string {
	lines := []string{"callvote Kick <userID>"}
	for slot := 1; slot <= is.ctrl.players.MaxClients(); slot++ {
		p, ok := is.ctrl.players.BySlot(slot)
		if !ok || !p.Connected || p.HLTV {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %d %s", p.UserID, p.Name))
	}
	return lines
}

func checkChangeLevel(is *Issue, _ model.Player, details string) FailReason {
	if details == "" {
		return FailMapNameRequired
	}
	if !is.ctrl.rules.IsValidMap(details) {
		return FailMapNotFound
	}
	return FailNone
}

func checkNextLevel(is *Issue, _ model.Player, details string) FailReason {
	rules := is.ctrl.rules
	if rules.NextLevel() != "" {
		return FailNextLevelSet
	}
	if details == "" {
		if len(nextLevelCandidates(is)) < 2 {
			return FailMapNameRequired
		}
		return FailNone
	}
	if !rules.IsValidMap(details) {
		return FailMapNotFound
	}
	return FailNone
}

// nextLevelCandidates lists up to MaxVoteOptions maps from the cycle, current map excluded.
func nextLevelCandidates(is *Issue) []string {
	rules := is.ctrl.rules
	current := rules.CurrentMap()
	var maps []string
	for _, m := range rules.MapCycle() {
		if strings.EqualFold(m, current) {
			continue
		}
		maps = append(maps, m)
		if len(maps) == MaxVoteOptions {
			break
		}
	}
	return maps
}

func nextLevelCommands(is *Issue) []string {
	level := is.details
	if level == "" {
		opts := is.ctrl.options
		if is.winningOption < 0 || is.winningOption >= len(opts) {
			return nil
		}
		level = opts[is.winningOption]
	}
	return []string{"nextlevel " + level}
}

func checkStartTimeout(is *Issue, caller model.Player, _ string) FailReason {
	rules := is.ctrl.rules
	if rules.IsPaused() {
		return FailMatchPaused
	}
	if rules.IsTimeoutActive() {
		return FailTimeoutActive
	}
	if rules.TimeoutsRemaining(caller.Team) <= 0 {
		return FailTimeoutExhausted
	}
	return FailNone
}
