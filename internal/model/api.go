package model

// ConsoleRequest is the API request body for a console command line.
type ConsoleRequest struct {
	Slot    int    `json:"slot"`
	Command string `json:"command"`
}

// ConsoleResponse reports the outcome of a console command.
type ConsoleResponse struct {
	Success      bool     `json:"success"`
	Code         string   `json:"code,omitempty"`
	RetrySeconds int      `json:"retrySeconds,omitempty"`
	Lines        []string `json:"lines,omitempty"`
}

// CallVoteRequest is the API request body for creating a vote.
type CallVoteRequest struct {
	Slot    int    `json:"slot"`
	Issue   string `json:"issue"`
	Details string `json:"details,omitempty"`
}

// CastVoteRequest is the API request body for casting a vote.
type CastVoteRequest struct {
	Slot   int    `json:"slot"`
	Option string `json:"option"`
}

// RulesUpdate is a partial update of game-rules state. Nil fields are left unchanged.
type RulesUpdate struct {
	WaitingForPlayers *bool    `json:"waitingForPlayers,omitempty"`
	Warmup            *bool    `json:"warmup,omitempty"`
	QueuedMatchmaking *string  `json:"queuedMatchmaking,omitempty"`
	StrictCompetitive *bool    `json:"strictCompetitive,omitempty"`
	MatchPoint        *bool    `json:"matchPoint,omitempty"`
	LastRound         *bool    `json:"lastRound,omitempty"`
	RematchLocked     *bool    `json:"rematchLocked,omitempty"`
	RoundsPlayed      *int     `json:"roundsPlayed,omitempty"`
	MapCycle          []string `json:"mapCycle,omitempty"`
	TimeoutsPerTeam   *int     `json:"timeoutsPerTeam,omitempty"`
}

// RulesState is the API view of game-rules state.
type RulesState struct {
	CurrentMap         string   `json:"currentMap"`
	NextLevel          string   `json:"nextLevel,omitempty"`
	MapCycle           []string `json:"mapCycle"`
	WaitingForPlayers  bool     `json:"waitingForPlayers"`
	Warmup             bool     `json:"warmup"`
	QueuedMatchmaking  string   `json:"queuedMatchmaking"`
	StrictCompetitive  bool     `json:"strictCompetitive"`
	MatchPoint         bool     `json:"matchPoint"`
	LastRound          bool     `json:"lastRound"`
	RematchLocked      bool     `json:"rematchLocked"`
	Paused             bool     `json:"paused"`
	TimeoutTeam        Team     `json:"timeoutTeam"`
	TimeoutSecondsLeft float64  `json:"timeoutSecondsLeft,omitempty"`
	TimeoutsLeftT      int      `json:"timeoutsLeftT"`
	TimeoutsLeftCT     int      `json:"timeoutsLeftCT"`
	RoundsPlayed       int      `json:"roundsPlayed"`
	Restarts           int      `json:"restarts"`
	SurrenderedTeam    Team     `json:"surrenderedTeam"`
}

// ConvarUpdate is a partial update of vote settings. Durations are in seconds.
type ConvarUpdate struct {
	AllowVotes               *bool    `json:"sv_allow_votes,omitempty"`
	VoteDuration             *float64 `json:"sv_vote_timer_duration,omitempty"`
	VoteDurationQueued       *float64 `json:"sv_vote_timer_duration_queued,omitempty"`
	CommandDelay             *float64 `json:"sv_vote_command_delay,omitempty"`
	FailureLockout           *float64 `json:"sv_vote_failure_timer,omitempty"`
	CreationInterval         *float64 `json:"sv_vote_creation_timer,omitempty"`
	QuorumRatio              *float64 `json:"sv_vote_quorum_ratio,omitempty"`
	AllowSpectators          *bool    `json:"sv_vote_allow_spectators,omitempty"`
	CountSpectatorVotes      *bool    `json:"sv_vote_count_spectator_votes,omitempty"`
	AllowInWarmup            *bool    `json:"sv_vote_allow_in_warmup,omitempty"`
	DisallowKickOnMatchPoint *bool    `json:"sv_vote_disallow_kick_on_match_point,omitempty"`
	KickBanDuration          *float64 `json:"sv_vote_kick_ban_duration,omitempty"`
}

// Convars is the API view of the vote settings. Durations are in seconds.
type Convars struct {
	AllowVotes               bool    `json:"sv_allow_votes"`
	VoteDuration             float64 `json:"sv_vote_timer_duration"`
	VoteDurationQueued       float64 `json:"sv_vote_timer_duration_queued"`
	CommandDelay             float64 `json:"sv_vote_command_delay"`
	FailureLockout           float64 `json:"sv_vote_failure_timer"`
	CreationInterval         float64 `json:"sv_vote_creation_timer"`
	QuorumRatio              float64 `json:"sv_vote_quorum_ratio"`
	AllowSpectators          bool    `json:"sv_vote_allow_spectators"`
	CountSpectatorVotes      bool    `json:"sv_vote_count_spectator_votes"`
	AllowInWarmup            bool    `json:"sv_vote_allow_in_warmup"`
	DisallowKickOnMatchPoint bool    `json:"sv_vote_disallow_kick_on_match_point"`
	KickBanDuration          float64 `json:"sv_vote_kick_ban_duration"`
	Debug                    bool    `json:"vote_debug"`
}

// ServerCallVoteRequest is the admin request body for a server-initiated vote.
// Team issues name the team in Details.
type ServerCallVoteRequest struct {
	Issue   string `json:"issue"`
	Details string `json:"details,omitempty"`
}

// PlayerListResponse lists connected players.
type PlayerListResponse struct {
	Players []Player `json:"players"`
	Count   int      `json:"count"`
	Max     int      `json:"max"`
}

// MessagesResponse carries the drained mailbox of one slot.
type MessagesResponse struct {
	Slot     int             `json:"slot"`
	Messages []ClientMessage `json:"messages"`
}
