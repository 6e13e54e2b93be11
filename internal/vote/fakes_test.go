package vote

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mathieu-neron/callvote/internal/model"
)

type fakeClock struct {
	now time.Duration
}

func (c *fakeClock) Now() time.Duration { return c.now }

type fakePlayers struct {
	max        int
	bySlot     map[int]model.Player
	nextCreate map[int]time.Duration
}

func newFakePlayers(max int) *fakePlayers {
	return &fakePlayers{
		max:        max,
		bySlot:     make(map[int]model.Player),
		nextCreate: make(map[int]time.Duration),
	}
}

// add connects a human on team. User ids are slot+100.
func (f *fakePlayers) add(slot int, team model.Team) model.Player {
	p := model.Player{
		Slot:      slot,
		UserID:    slot + 100,
		Name:      fmt.Sprintf("player%d", slot),
		NetworkID: fmt.Sprintf("STEAM_1:0:%d", 1000+slot),
		Team:      team,
		Connected: true,
	}
	f.bySlot[slot] = p
	return p
}

func (f *fakePlayers) update(slot int, fn func(p *model.Player)) {
	p := f.bySlot[slot]
	fn(&p)
	f.bySlot[slot] = p
}

func (f *fakePlayers) remove(slot int) { delete(f.bySlot, slot) }

func (f *fakePlayers) MaxClients() int { return f.max }

func (f *fakePlayers) BySlot(slot int) (model.Player, bool) {
	p, ok := f.bySlot[slot]
	return p, ok
}

func (f *fakePlayers) ByUserID(userID int) (model.Player, bool) {
	for _, p := range f.bySlot {
		if p.UserID == userID {
			return p, true
		}
	}
	return model.Player{}, false
}

func (f *fakePlayers) NextVoteCreation(slot int) time.Duration { return f.nextCreate[slot] }

func (f *fakePlayers) SetNextVoteCreation(slot int, at time.Duration) { f.nextCreate[slot] = at }

type fakeRules struct {
	waiting         bool
	warmup          bool
	queued          bool
	queuedUnanimous bool
	strict          bool
	matchPoint      bool
	lastRound       bool
	rematch         bool
	paused          bool
	timeoutActive   bool
	timeouts        map[model.Team]int
	rounds          int
	current         string
	maps            []string
	next            string
}

func newFakeRules() *fakeRules {
	return &fakeRules{
		timeouts: map[model.Team]int{model.TeamTerrorist: 4, model.TeamCT: 4},
		rounds:   5,
		current:  "de_dust2",
		maps:     []string{"de_dust2", "de_inferno", "de_mirage", "de_nuke"},
	}
}

func (r *fakeRules) IsWaitingForPlayers() bool     { return r.waiting }
func (r *fakeRules) IsWarmup() bool                { return r.warmup }
func (r *fakeRules) IsQueuedMatchmaking() bool     { return r.queued }
func (r *fakeRules) QueuedRequiresUnanimous() bool { return r.queuedUnanimous }
func (r *fakeRules) IsStrictCompetitive() bool     { return r.strict }
func (r *fakeRules) IsMatchPoint() bool            { return r.matchPoint }
func (r *fakeRules) IsLastRound() bool             { return r.lastRound }
func (r *fakeRules) IsRematchLocked() bool         { return r.rematch }
func (r *fakeRules) IsPaused() bool                { return r.paused }
func (r *fakeRules) IsTimeoutActive() bool         { return r.timeoutActive }
func (r *fakeRules) RoundsPlayed() int             { return r.rounds }
func (r *fakeRules) CurrentMap() string            { return r.current }
func (r *fakeRules) MapCycle() []string            { return r.maps }
func (r *fakeRules) NextLevel() string             { return r.next }

func (r *fakeRules) TimeoutsRemaining(team model.Team) int { return r.timeouts[team] }

func (r *fakeRules) IsValidMap(name string) bool {
	for _, m := range r.maps {
		if strings.EqualFold(m, name) {
			return true
		}
	}
	return false
}

type sentMessage struct {
	msg model.ClientMessage
	to  model.Recipients
}

type fakeMessenger struct {
	events []model.GameEvent
	sent   []sentMessage
}

func (m *fakeMessenger) FireEvent(e model.GameEvent) { m.events = append(m.events, e) }

func (m *fakeMessenger) Send(msg model.ClientMessage, to model.Recipients) {
	m.sent = append(m.sent, sentMessage{msg: msg, to: to})
}

func (m *fakeMessenger) ofType(t model.MessageType) []sentMessage {
	var out []sentMessage
	for _, s := range m.sent {
		if s.msg.Type == t {
			out = append(out, s)
		}
	}
	return out
}

func (m *fakeMessenger) eventsNamed(name string) []model.GameEvent {
	var out []model.GameEvent
	for _, e := range m.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

type fakeLog struct {
	lines []string
}

func (l *fakeLog) Printf(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *fakeLog) contains(sub string) bool {
	for _, line := range l.lines {
		if strings.Contains(line, sub) {
			return true
		}
	}
	return false
}

type fakeCommands struct {
	cmds []string
}

func (c *fakeCommands) ServerCommand(cmd string) { c.cmds = append(c.cmds, cmd) }

type fakeRecorder struct {
	records []model.BallotRecord
}

func (r *fakeRecorder) RecordBallot(rec model.BallotRecord) { r.records = append(r.records, rec) }

type harness struct {
	clock    *fakeClock
	players  *fakePlayers
	rules    *fakeRules
	msgs     *fakeMessenger
	log      *fakeLog
	cmds     *fakeCommands
	rec      *fakeRecorder
	settings *Settings
	match    *Match
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	settings := DefaultSettings()
	h := &harness{
		clock:    &fakeClock{now: 100 * time.Second},
		players:  newFakePlayers(16),
		rules:    newFakeRules(),
		msgs:     &fakeMessenger{},
		log:      &fakeLog{},
		cmds:     &fakeCommands{},
		rec:      &fakeRecorder{},
		settings: &settings,
	}
	h.match = NewMatch(Deps{
		Clock:     h.clock,
		Players:   h.players,
		Rules:     h.rules,
		Messenger: h.msgs,
		GameLog:   h.log,
		Commands:  h.cmds,
		Recorder:  h.rec,
		Logger:    zerolog.Nop(),
	}, h.settings)
	return h
}

// teams connects slots 1..ct on CT and the next t slots on Terrorist.
func (h *harness) teams(ct, t int) {
	for i := 1; i <= ct; i++ {
		h.players.add(i, model.TeamCT)
	}
	for i := ct + 1; i <= ct+t; i++ {
		h.players.add(i, model.TeamTerrorist)
	}
}

func (h *harness) advance(d time.Duration) {
	h.clock.now += d
	h.match.Think()
}

func tallySum(c *Controller) int {
	sum := 0
	for _, n := range c.Tally() {
		sum += n
	}
	return sum
}
