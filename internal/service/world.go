package service

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/mathieu-neron/callvote/internal/events"
	"github.com/mathieu-neron/callvote/internal/gamerules"
	"github.com/mathieu-neron/callvote/internal/player"
	"github.com/mathieu-neron/callvote/internal/vote"
)

// DefaultTickRate is the server frame rate.
const DefaultTickRate = 64

// ServerClock is monotonic server time, advanced only by the game loop.
type ServerClock struct {
	now time.Duration
}

func (c *ServerClock) Now() time.Duration {
	return c.now
}

func (c *ServerClock) Advance(d time.Duration) {
	c.now += d
}

// World is the state owned by the game loop goroutine.
type World struct {
	Clock     *ServerClock
	Players   *player.Registry
	Rules     *gamerules.Rules
	Match     *vote.Match
	Executor  *Executor
	Mailboxes *events.Mailboxes
}

// WorldOptions configure NewWorld. Recorder may be nil.
type WorldOptions struct {
	MaxPlayers int
	MapCycle   []string
	StartMap   string
	Settings   vote.Settings
	GameLog    vote.LogSink
	Sinks      []events.Sink
	Recorder   vote.Recorder
	Logger     zerolog.Logger
}

// NewWorld wires the registry, rules, executor and match. Client messages go
// to the per-slot mailboxes and then to opts.Sinks.
func NewWorld(opts WorldOptions) *World {
	clock := &ServerClock{}
	players := player.NewRegistry(opts.MaxPlayers, clock, opts.GameLog,
		opts.Logger.With().Str("component", "players").Logger())
	rules := gamerules.New(clock, opts.MapCycle, opts.StartMap, opts.GameLog,
		opts.Logger.With().Str("component", "rules").Logger())
	mailboxes := events.NewMailboxes(events.DefaultMailboxSize)
	exec := NewExecutor(players, rules, mailboxes,
		opts.Logger.With().Str("component", "executor").Logger())

	bus := events.NewBus(mailboxes)
	for _, s := range opts.Sinks {
		bus.Add(s)
	}

	settings := opts.Settings
	deps := vote.Deps{
		Clock:     clock,
		Players:   players,
		Rules:     rules,
		Messenger: bus,
		GameLog:   opts.GameLog,
		Commands:  exec,
		Recorder:  opts.Recorder,
		Logger:    opts.Logger.With().Str("component", "vote").Logger(),
	}

	return &World{
		Clock:     clock,
		Players:   players,
		Rules:     rules,
		Match:     vote.NewMatch(deps, &settings),
		Executor:  exec,
		Mailboxes: mailboxes,
	}
}
