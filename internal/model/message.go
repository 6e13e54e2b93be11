package model

// MessageType names a client message the vote system sends.
type MessageType string

const (
	MsgVoteSetup      MessageType = "VoteSetup"
	MsgVoteStart      MessageType = "VoteStart"
	MsgVoteFailed     MessageType = "VoteFailed"
	MsgVotePass       MessageType = "VotePass"
	MsgCallVoteFailed MessageType = "CallVoteFailed"
	MsgTextMsg        MessageType = "TextMsg"
)

// ClientMessage is a typed user message. Only the fields relevant to Type are set.
type ClientMessage struct {
	Type          MessageType `json:"type"`
	Team          Team        `json:"team"`
	EntIdx        int         `json:"entIdx,omitempty"`
	DisplayString string      `json:"displayString,omitempty"`
	OtherTeamStr  string      `json:"otherTeamString,omitempty"`
	Details       string      `json:"details,omitempty"`
	IsYesNoVote   bool        `json:"isYesNoVote,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	ReasonCode    int         `json:"reasonCode,omitempty"`
	RetrySeconds  int         `json:"retrySeconds,omitempty"`
	Issues        []string    `json:"issues,omitempty"`
	Lines         []string    `json:"lines,omitempty"`
}

// Recipients addresses a client message to explicit player slots.
type Recipients struct {
	Slots []int `json:"slots"`
}

// Single addresses one slot.
func Single(slot int) Recipients {
	return Recipients{Slots: []int{slot}}
}

// Game event names fired by the vote controller.
const (
	EventVoteOptions = "vote_options"
	EventVoteCast    = "vote_cast"
	EventVoteChanged = "vote_changed"
)

// GameEvent is a fire-and-forget typed event.
type GameEvent struct {
	Name   string         `json:"name"`
	Fields map[string]any `json:"fields"`
}

// Envelope wraps a message or event for external transports.
type Envelope struct {
	Kind       string         `json:"kind"`
	Message    *ClientMessage `json:"message,omitempty"`
	Recipients []int          `json:"recipients,omitempty"`
	Event      *GameEvent     `json:"event,omitempty"`
}
