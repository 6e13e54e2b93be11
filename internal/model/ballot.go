package model

import "time"

// BallotRecord is a resolved ballot as persisted to the history table.
type BallotRecord struct {
	ID              string        `json:"id"`
	Controller      string        `json:"controller"`
	IssueType       string        `json:"issueType"`
	Details         string        `json:"details,omitempty"`
	CallerSlot      int           `json:"callerSlot"`
	CallerName      string        `json:"callerName"`
	TeamRestriction Team          `json:"teamRestriction"`
	YesVotes        int           `json:"yesVotes"`
	NoVotes         int           `json:"noVotes"`
	PotentialVotes  int           `json:"potentialVotes"`
	WinningOption   int           `json:"winningOption"`
	Passed          bool          `json:"passed"`
	FailReason      string        `json:"failReason,omitempty"`
	StartedAt       time.Duration `json:"startedAt"`
	ResolvedAt      time.Duration `json:"resolvedAt"`
	RecordedAt      time.Time     `json:"recordedAt"`
}

// BallotListResponse is the API response for ballot history.
type BallotListResponse struct {
	Ballots []BallotRecord `json:"ballots"`
}

// ControllerStatus is a point-in-time view of one vote controller.
type ControllerStatus struct {
	Name            string   `json:"name"`
	State           string   `json:"state"`
	Issue           string   `json:"issue,omitempty"`
	Details         string   `json:"details,omitempty"`
	CallerSlot      int      `json:"callerSlot,omitempty"`
	TeamRestriction Team     `json:"teamRestriction"`
	Options         []string `json:"options,omitempty"`
	Tally           []int    `json:"tally,omitempty"`
	PotentialVotes  int      `json:"potentialVotes"`
	Required        int      `json:"required,omitempty"`
	SecondsLeft     float64  `json:"secondsLeft,omitempty"`
}

// MatchStatus groups the three controllers of a match.
type MatchStatus struct {
	ServerTime  float64            `json:"serverTime"`
	Controllers []ControllerStatus `json:"controllers"`
}
