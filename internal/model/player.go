package model

import "time"

const (
	// MaxPlayers is the hard cap on player slots. Slot 0 is the world entity.
	MaxPlayers = 64

	// DedicatedServerSlot identifies the dedicated server as a vote caller.
	DedicatedServerSlot = 99

	// BotNetworkID is the network id the engine reports for bots.
	BotNetworkID = "BOT"
)

// Player is a connected client as seen by the session registry.
type Player struct {
	Slot        int       `json:"slot"`
	UserID      int       `json:"userId"`
	Name        string    `json:"name"`
	NetworkID   string    `json:"networkId"`
	Team        Team      `json:"team"`
	Connected   bool      `json:"connected"`
	Bot         bool      `json:"bot"`
	HLTV        bool      `json:"hltv"`
	Admin       bool      `json:"admin"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// IsSpectator reports whether the player is watching rather than playing.
func (p Player) IsSpectator() bool {
	return p.Team == TeamSpectator || p.Team == TeamUnassigned
}

// ConnectRequest is the admin API request body for a client connection.
type ConnectRequest struct {
	Name      string `json:"name"`
	NetworkID string `json:"networkId"`
	Bot       bool   `json:"bot,omitempty"`
	HLTV      bool   `json:"hltv,omitempty"`
	Admin     bool   `json:"admin,omitempty"`
	Team      string `json:"team,omitempty"`
}

// TeamChangeRequest is the admin API request body for a team switch.
type TeamChangeRequest struct {
	Team string `json:"team"`
}
