// Package player keeps the slot table of connected clients.
package player

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mathieu-neron/callvote/internal/gamelog"
	"github.com/mathieu-neron/callvote/internal/model"
)

var (
	ErrServerFull   = errors.New("server is full")
	ErrNoSuchPlayer = errors.New("no such player")
	ErrBanned       = errors.New("network id is banned")
	ErrInvalidTeam  = errors.New("invalid team")

	ErrDuplicateNetworkID = errors.New("network id already connected")
)

const hltvNetworkID = "HLTV"

// Clock returns monotonic server time.
type Clock interface {
	Now() time.Duration
}

// LogSink is the game log.
type LogSink interface {
	Printf(format string, args ...any)
}

type entry struct {
	player           model.Player
	nextVoteCreation time.Duration
}

// Registry maps slots 1..capacity to connected players. It is owned by the
// game loop and is not safe for concurrent use.
type Registry struct {
	clock   Clock
	gamelog LogSink
	log     zerolog.Logger
	wall    func() time.Time

	slots      []*entry
	nextUserID int

	// bans maps network id to expiry server time. Zero expiry is permanent.
	bans map[string]time.Duration
}

// NewRegistry creates a registry with capacity slots, clamped to model.MaxPlayers.
func NewRegistry(capacity int, clock Clock, gl LogSink, logger zerolog.Logger) *Registry {
	capacity = min(max(capacity, 1), model.MaxPlayers)
	return &Registry{
		clock:      clock,
		gamelog:    gl,
		log:        logger,
		wall:       time.Now,
		slots:      make([]*entry, capacity+1),
		nextUserID: 2,
		bans:       make(map[string]time.Duration),
	}
}

// MaxClients is the highest valid slot.
func (r *Registry) MaxClients() int {
	return len(r.slots) - 1
}

// Connect places a new client in the lowest free slot.
func (r *Registry) Connect(req model.ConnectRequest) (model.Player, error) {
	networkID := strings.TrimSpace(req.NetworkID)
	switch {
	case req.Bot:
		networkID = model.BotNetworkID
	case req.HLTV:
		networkID = hltvNetworkID
	case r.IsBanned(networkID):
		return model.Player{}, ErrBanned
	case networkID != "" && r.connectedWith(networkID):
		return model.Player{}, ErrDuplicateNetworkID
	}

	team := model.TeamUnassigned
	if req.Team != "" {
		t, ok := model.ParseTeam(req.Team)
		if !ok {
			return model.Player{}, ErrInvalidTeam
		}
		team = t
	}

	slot := 0
	for i := 1; i < len(r.slots); i++ {
		if r.slots[i] == nil {
			slot = i
			break
		}
	}
	if slot == 0 {
		return model.Player{}, ErrServerFull
	}

	p := model.Player{
		Slot:        slot,
		UserID:      r.nextUserID,
		Name:        req.Name,
		NetworkID:   networkID,
		Connected:   true,
		Bot:         req.Bot,
		HLTV:        req.HLTV,
		Admin:       req.Admin,
		ConnectedAt: r.wall(),
	}
	r.nextUserID++
	r.slots[slot] = &entry{player: p}

	r.gamelog.Printf("%s entered the game", gamelog.PlayerTuple(p))
	r.log.Info().Int("slot", slot).Int("userId", p.UserID).Bool("bot", p.Bot).Msg("player connected")

	if team != model.TeamUnassigned {
		if err := r.ChangeTeam(slot, team); err != nil {
			return model.Player{}, err
		}
	}
	return r.slots[slot].player, nil
}

// Disconnect frees slot.
func (r *Registry) Disconnect(slot int, reason string) error {
	e, err := r.entry(slot)
	if err != nil {
		return err
	}
	r.gamelog.Printf("%s disconnected (reason \"%s\")", gamelog.PlayerTuple(e.player), reason)
	r.log.Info().Int("slot", slot).Str("reason", reason).Msg("player disconnected")
	r.slots[slot] = nil
	return nil
}

// ChangeTeam moves the player in slot to team.
func (r *Registry) ChangeTeam(slot int, team model.Team) error {
	e, err := r.entry(slot)
	if err != nil {
		return err
	}
	if team < model.TeamUnassigned || team > model.TeamCT {
		return ErrInvalidTeam
	}
	if e.player.Team == team {
		return nil
	}
	r.gamelog.Printf("%s joined team \"%s\"", gamelog.PlayerTuple(e.player), team)
	e.player.Team = team
	return nil
}

func (r *Registry) SetAdmin(slot int, admin bool) error {
	e, err := r.entry(slot)
	if err != nil {
		return err
	}
	e.player.Admin = admin
	return nil
}

// Kick disconnects the player with userID.
func (r *Registry) Kick(userID int, reason string) error {
	p, ok := r.ByUserID(userID)
	if !ok {
		return fmt.Errorf("kick userid %d: %w", userID, ErrNoSuchPlayer)
	}
	r.gamelog.Printf("Kick: %s was kicked by \"Console\" (message \"%s\")", gamelog.PlayerTuple(p), reason)
	return r.Disconnect(p.Slot, "Kicked by Console : "+reason)
}

// Ban refuses connections from networkID for d. A zero d bans permanently.
func (r *Registry) Ban(networkID string, d time.Duration) error {
	if networkID == "" || networkID == model.BotNetworkID || networkID == hltvNetworkID {
		return fmt.Errorf("ban %q: %w", networkID, ErrNoSuchPlayer)
	}
	var expiry time.Duration
	length := "permanently"
	if d > 0 {
		expiry = r.clock.Now() + d
		length = fmt.Sprintf("for %d minutes", int(math.Ceil(d.Minutes())))
	}
	r.bans[networkID] = expiry
	r.gamelog.Printf("Banid: \"<><%s><>\" was banned \"%s\" by \"Console\"", networkID, length)
	return nil
}

// IsBanned reports whether networkID is under a running ban.
func (r *Registry) IsBanned(networkID string) bool {
	expiry, ok := r.bans[networkID]
	if !ok {
		return false
	}
	if expiry == 0 || r.clock.Now() < expiry {
		return true
	}
	delete(r.bans, networkID)
	return false
}

// Players lists connected players in slot order.
func (r *Registry) Players() []model.Player {
	var out []model.Player
	for _, e := range r.slots {
		if e != nil {
			out = append(out, e.player)
		}
	}
	return out
}

// Count returns the number of occupied slots.
func (r *Registry) Count() int {
	n := 0
	for _, e := range r.slots {
		if e != nil {
			n++
		}
	}
	return n
}

func (r *Registry) BySlot(slot int) (model.Player, bool) {
	e, err := r.entry(slot)
	if err != nil {
		return model.Player{}, false
	}
	return e.player, true
}

func (r *Registry) ByUserID(userID int) (model.Player, bool) {
	for _, e := range r.slots {
		if e != nil && e.player.UserID == userID {
			return e.player, true
		}
	}
	return model.Player{}, false
}

func (r *Registry) NextVoteCreation(slot int) time.Duration {
	e, err := r.entry(slot)
	if err != nil {
		return 0
	}
	return e.nextVoteCreation
}

func (r *Registry) SetNextVoteCreation(slot int, at time.Duration) {
	if e, err := r.entry(slot); err == nil {
		e.nextVoteCreation = at
	}
}

// connectedWith reports whether a connected player already uses networkID.
func (r *Registry) connectedWith(networkID string) bool {
	for _, e := range r.slots {
		if e != nil && e.player.NetworkID == networkID {
			return true
		}
	}
	return false
}

func (r *Registry) entry(slot int) (*entry, error) {
	if slot < 1 || slot >= len(r.slots) || r.slots[slot] == nil {
		return nil, fmt.Errorf("slot %d: %w", slot, ErrNoSuchPlayer)
	}
	return r.slots[slot], nil
}
