package model

// Team is a player's team number, or spectator/unassigned state.
type Team int

const (
	TeamUnassigned Team = iota
	TeamSpectator
	TeamTerrorist
	TeamCT
)

// String returns the team name used in game log lines.
func (t Team) String() string {
	switch t {
	case TeamSpectator:
		return "Spectator"
	case TeamTerrorist:
		return "TERRORIST"
	case TeamCT:
		return "CT"
	default:
		return "Unassigned"
	}
}

// IsPlaying reports whether the team is one of the two playing sides.
func (t Team) IsPlaying() bool {
	return t == TeamTerrorist || t == TeamCT
}

// Other returns the opposing playing team. Non-playing teams map to themselves.
func (t Team) Other() Team {
	switch t {
	case TeamTerrorist:
		return TeamCT
	case TeamCT:
		return TeamTerrorist
	default:
		return t
	}
}

// ParseTeam accepts a team name or number as sent by admin tooling.
func ParseTeam(s string) (Team, bool) {
	switch s {
	case "0", "unassigned", "Unassigned":
		return TeamUnassigned, true
	case "1", "spec", "spectator", "Spectator":
		return TeamSpectator, true
	case "2", "t", "T", "terrorist", "TERRORIST":
		return TeamTerrorist, true
	case "3", "ct", "CT":
		return TeamCT, true
	}
	return TeamUnassigned, false
}
