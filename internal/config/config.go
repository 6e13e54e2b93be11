package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mathieu-neron/callvote/internal/vote"
)

type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	LogLevel    string
	Environment string
	CORSOrigins string
	AdminToken  string

	TickRate    int
	MaxPlayers  int
	GameLogPath string
	MapCycle    []string
	StartMap    string

	Vote vote.Settings
}

// DefaultMapCycle is used when MAP_CYCLE is unset.
var DefaultMapCycle = []string{
	"de_dust2", "de_inferno", "de_mirage", "de_nuke", "de_overpass", "de_ancient", "de_anubis",
}

// Load reads the environment, after an optional .env file in the working
// directory. Variables already set win over .env values.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENVIRONMENT", "development"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		AdminToken:  getEnv("ADMIN_TOKEN", ""),

		TickRate:    getEnvInt("TICK_RATE", 64),
		MaxPlayers:  getEnvInt("MAX_PLAYERS", 64),
		GameLogPath: getEnv("GAME_LOG_PATH", ""),
		MapCycle:    getEnvList("MAP_CYCLE", DefaultMapCycle),
		StartMap:    getEnv("START_MAP", ""),

		Vote: loadVoteSettings(),
	}
}

func loadVoteSettings() vote.Settings {
	d := vote.DefaultSettings()
	return vote.Settings{
		AllowVotes:               getEnvBool("SV_ALLOW_VOTES", d.AllowVotes),
		VoteDuration:             getEnvSeconds("SV_VOTE_TIMER_DURATION", d.VoteDuration),
		VoteDurationQueued:       getEnvSeconds("SV_VOTE_TIMER_DURATION_QUEUED", d.VoteDurationQueued),
		CommandDelay:             getEnvSeconds("SV_VOTE_COMMAND_DELAY", d.CommandDelay),
		FailureLockout:           getEnvSeconds("SV_VOTE_FAILURE_TIMER", d.FailureLockout),
		CreationInterval:         getEnvSeconds("SV_VOTE_CREATION_TIMER", d.CreationInterval),
		QuorumRatio:              min(max(getEnvFloat("SV_VOTE_QUORUM_RATIO", d.QuorumRatio), 0), 1),
		AllowSpectators:          getEnvBool("SV_VOTE_ALLOW_SPECTATORS", d.AllowSpectators),
		CountSpectatorVotes:      getEnvBool("SV_VOTE_COUNT_SPECTATOR_VOTES", d.CountSpectatorVotes),
		AllowInWarmup:            getEnvBool("SV_VOTE_ALLOW_IN_WARMUP", d.AllowInWarmup),
		DisallowKickOnMatchPoint: getEnvBool("SV_VOTE_DISALLOW_KICK_ON_MATCH_POINT", d.DisallowKickOnMatchPoint),
		KickBanDuration:          getEnvMinutes("SV_VOTE_KICK_BAN_DURATION", d.KickBanDuration),
		Debug:                    getEnvBool("VOTE_DEBUG", false),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return fallback
}

// getEnvBool accepts convar style 0/1 as well as true/false.
func getEnvBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

// getEnvSeconds reads a convar in seconds.
func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && f >= 0 {
		return time.Duration(f * float64(time.Second))
	}
	return fallback
}

// getEnvMinutes reads a convar in minutes.
func getEnvMinutes(key string, fallback time.Duration) time.Duration {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && f >= 0 {
		return time.Duration(f * float64(time.Minute))
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
