package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config represents application configuration
type Config struct {
	// Discord configuration
	Discord DiscordConfig

	// Board configuration
	Board BoardConfig

	// Rotation configuration (optional)
	Rotation RotationConfig

	// Debug mode
	Debug bool
}

// DiscordConfig contains Discord configuration
type DiscordConfig struct {
	Token         string
	CommandPrefix string
}

// BoardConfig contains starboard configuration
type BoardConfig struct {
	DBPath            string
	MaxStarAge        time.Duration
	ResolverCacheSize int
}

// RotationConfig contains rotation/weapon lookup configuration
type RotationConfig struct {
	DataPath    string // JSON file with stages and weapons
	ScheduleURL string // HTTP endpoint serving the rotation schedule
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Board DB path
	dbPath := os.Getenv("STARBOARD_DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".starboard", "boards.db")
	}

	// Star eligibility window
	maxAgeDays := 7
	if val := os.Getenv("MAX_STAR_AGE_DAYS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			maxAgeDays = parsed
		}
	}

	// Resolver cache size
	cacheSize := 256
	if val := os.Getenv("RESOLVER_CACHE_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			cacheSize = parsed
		}
	}

	prefix := os.Getenv("COMMAND_PREFIX")
	if prefix == "" {
		prefix = "!"
	}

	return &Config{
		Discord: DiscordConfig{
			Token:         os.Getenv("DISCORD_TOKEN"),
			CommandPrefix: prefix,
		},
		Board: BoardConfig{
			DBPath:            dbPath,
			MaxStarAge:        time.Duration(maxAgeDays) * 24 * time.Hour,
			ResolverCacheSize: cacheSize,
		},
		Rotation: RotationConfig{
			DataPath:    os.Getenv("SPLATOON_DATA_PATH"),
			ScheduleURL: os.Getenv("SCHEDULE_URL"),
		},
		Debug: os.Getenv("DEBUG") == "true",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return &ConfigError{Field: "DISCORD_TOKEN", Message: "required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
