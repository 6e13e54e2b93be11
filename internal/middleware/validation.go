package middleware

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/callvote/internal/model"
)

// Field length limits. Names and details follow the engine's buffer sizes.
const (
	MaxIssueLen     = 32
	MaxDetailsLen   = 64
	MaxCommandLen   = 256
	MaxNameLen      = 32
	MaxNetworkIDLen = 64
	MaxMapNameLen   = 64
)

var (
	// issueRe matches issue type strings such as "Kick" or "ChangeLevel".
	issueRe = regexp.MustCompile(`^[A-Za-z]+$`)
	// optionRe matches ballot options as typed in the console.
	optionRe = regexp.MustCompile(`^option[1-5]$`)
	// networkIDRe matches STEAM_x:y:z style ids, BOT and HLTV.
	networkIDRe = regexp.MustCompile(`^[A-Za-z0-9_:\[\]]+$`)
	// mapNameRe matches map file names without extension.
	mapNameRe = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)
)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateSlot accepts player slots and the dedicated server slot.
func ValidateSlot(slot int) string {
	if slot == model.DedicatedServerSlot {
		return ""
	}
	if slot < 1 || slot > model.MaxPlayers {
		return "slot must be between 1 and 64"
	}
	return ""
}

// ValidatePlayerSlot accepts player slots only.
func ValidatePlayerSlot(slot int) string {
	if slot < 1 || slot > model.MaxPlayers {
		return "slot must be between 1 and 64"
	}
	return ""
}

// ValidateIssue checks the shape of an issue type string. Unknown issues are
// reported by the vote controller itself.
func ValidateIssue(issue string) (string, string) {
	issue = strings.TrimSpace(issue)
	if issue == "" {
		return "", "issue is required"
	}
	if len(issue) > MaxIssueLen {
		return "", "issue must be at most 32 characters"
	}
	if !issueRe.MatchString(issue) {
		return "", "issue contains invalid characters"
	}
	return issue, ""
}

// ValidateOption normalizes and checks a ballot option.
func ValidateOption(option string) (string, string) {
	option = strings.ToLower(strings.TrimSpace(option))
	if option == "" {
		return "", "option is required"
	}
	if !optionRe.MatchString(option) {
		return "", "option must be option1 through option5"
	}
	return option, ""
}

// ValidateDetails trims vote details. Empty details are allowed.
func ValidateDetails(details string) (string, string) {
	details = strings.TrimSpace(details)
	if len(details) > MaxDetailsLen {
		return "", "details must be at most 64 characters"
	}
	if strings.ContainsAny(details, "\"\r\n;") {
		return "", "details contains invalid characters"
	}
	return details, ""
}

// ValidateCommand checks a console command line.
func ValidateCommand(cmd string) (string, string) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return "", "command is required"
	}
	if len(cmd) > MaxCommandLen {
		return "", "command must be at most 256 characters"
	}
	if strings.ContainsAny(cmd, "\r\n;") {
		return "", "command must be a single line"
	}
	return cmd, ""
}

// ValidatePlayerName checks a display name. Quotes and angle brackets would
// break the game log player tuple.
func ValidatePlayerName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "name is required"
	}
	if len(name) > MaxNameLen {
		return "", "name must be at most 32 characters"
	}
	if strings.ContainsAny(name, "\"<>\r\n") {
		return "", "name contains invalid characters"
	}
	return name, ""
}

// ValidateNetworkID checks a network id. Empty is allowed for bots.
func ValidateNetworkID(id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ""
	}
	if len(id) > MaxNetworkIDLen {
		return "", "networkId must be at most 64 characters"
	}
	if !networkIDRe.MatchString(id) {
		return "", "networkId contains invalid characters"
	}
	return id, ""
}

// ValidateMapName checks a map name.
func ValidateMapName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "map name is required"
	}
	if len(name) > MaxMapNameLen {
		return "", "map name must be at most 64 characters"
	}
	if !mapNameRe.MatchString(name) {
		return "", "map name contains invalid characters"
	}
	return name, ""
}
