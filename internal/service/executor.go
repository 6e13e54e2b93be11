package service

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mathieu-neron/callvote/internal/events"
	"github.com/mathieu-neron/callvote/internal/gamerules"
	"github.com/mathieu-neron/callvote/internal/model"
	"github.com/mathieu-neron/callvote/internal/player"
)

// commandHistorySize bounds the commands an Executor remembers.
const commandHistorySize = 64

// Executor runs the server commands a passed vote issues against the player
// registry and game rules. It runs on the game loop.
type Executor struct {
	players   *player.Registry
	rules     *gamerules.Rules
	mailboxes *events.Mailboxes
	log       zerolog.Logger
	shuffle   func(n int, swap func(i, j int))

	history []string
}

func NewExecutor(players *player.Registry, rules *gamerules.Rules, mailboxes *events.Mailboxes, logger zerolog.Logger) *Executor {
	return &Executor{
		players:   players,
		rules:     rules,
		mailboxes: mailboxes,
		log:       logger,
		shuffle:   rand.Shuffle,
	}
}

// History returns the most recent commands, oldest first.
func (e *Executor) History() []string {
	return append([]string(nil), e.history...)
}

// ServerCommand interprets one console command line.
func (e *Executor) ServerCommand(cmd string) {
	args := strings.Fields(cmd)
	if len(args) == 0 {
		return
	}
	if len(e.history) == commandHistorySize {
		e.history = append(e.history[:0], e.history[1:]...)
	}
	e.history = append(e.history, cmd)
	e.log.Info().Str("cmd", cmd).Msg("server command")

	var err error
	switch strings.ToLower(args[0]) {
	case "kickid":
		err = e.kick(args[1:])
	case "banid":
		err = e.ban(args[1:])
	case "changelevel":
		if len(args) < 2 {
			err = errMissingArg
			break
		}
		err = e.rules.ChangeLevel(args[1])
	case "nextlevel":
		if len(args) < 2 {
			err = errMissingArg
			break
		}
		err = e.rules.SetNextLevel(args[1])
	case "mp_restartgame":
		e.rules.RestartGame()
	case "mp_scrambleteams":
		e.scramble()
		e.rules.ScrambleTeams()
	case "mp_swapteams":
		e.swap()
		e.rules.SwapTeams()
	case "mp_surrender":
		if len(args) < 2 {
			err = errMissingArg
			break
		}
		team, ok := model.ParseTeam(args[1])
		if !ok {
			err = gamerules.ErrInvalidTeam
			break
		}
		err = e.rules.Surrender(team)
	case "timeout_terrorist_start":
		err = e.rules.StartTimeout(model.TeamTerrorist)
	case "timeout_ct_start":
		err = e.rules.StartTimeout(model.TeamCT)
	case "mp_pause_match":
		e.rules.Pause()
	case "mp_unpause_match":
		e.rules.Unpause()
	default:
		e.log.Warn().Str("cmd", cmd).Msg("unknown server command")
		return
	}
	if err != nil {
		e.log.Error().Err(err).Str("cmd", cmd).Msg("server command failed")
	}
}

// kick handles "kickid <userid> [reason...]".
func (e *Executor) kick(args []string) error {
	if len(args) == 0 {
		return errMissingArg
	}
	userID, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}
	p, ok := e.players.ByUserID(userID)
	if !ok {
		return player.ErrNoSuchPlayer
	}
	reason := strings.Join(args[1:], " ")
	if err := e.players.Kick(userID, reason); err != nil {
		return err
	}
	if e.mailboxes != nil {
		e.mailboxes.Clear(p.Slot)
	}
	return nil
}

// ban handles "banid <minutes> <userid>". Zero minutes bans permanently.
func (e *Executor) ban(args []string) error {
	if len(args) < 2 {
		return errMissingArg
	}
	minutes, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return err
	}
	userID, err := strconv.Atoi(args[1])
	if err != nil {
		return err
	}
	p, ok := e.players.ByUserID(userID)
	if !ok {
		return player.ErrNoSuchPlayer
	}
	return e.players.Ban(p.NetworkID, time.Duration(max(minutes, 0)*float64(time.Minute)))
}

// playing lists the players on T or CT.
func (e *Executor) playing() []model.Player {
	var out []model.Player
	for _, p := range e.players.Players() {
		if p.Team.IsPlaying() {
			out = append(out, p)
		}
	}
	return out
}

// scramble deals the playing players into two teams at random.
func (e *Executor) scramble() {
	ps := e.playing()
	e.shuffle(len(ps), func(i, j int) { ps[i], ps[j] = ps[j], ps[i] })
	for i, p := range ps {
		team := model.TeamTerrorist
		if i%2 == 1 {
			team = model.TeamCT
		}
		if err := e.players.ChangeTeam(p.Slot, team); err != nil {
			e.log.Error().Err(err).Int("slot", p.Slot).Msg("scramble: change team")
		}
	}
}

// swap moves every playing player to the other side.
func (e *Executor) swap() {
	for _, p := range e.playing() {
		if err := e.players.ChangeTeam(p.Slot, p.Team.Other()); err != nil {
			e.log.Error().Err(err).Int("slot", p.Slot).Msg("swap: change team")
		}
	}
}
