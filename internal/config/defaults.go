package config

import "path/filepath"

// Default tuning values.
const (
	defaultPollTimeout = 50 // seconds; Telegram long-poll maximum is 50
	defaultWorkers     = 8
	defaultLogLevel    = "info"
)

// DefaultConfig returns a Config populated with every default value.
// File, environment, and CLI layers override on top of this.
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			PollTimeout: defaultPollTimeout,
			Workers:     defaultWorkers,
		},
		Logging: LoggingConfig{
			LogLevel: defaultLogLevel,
		},
	}
}

// applyPathDefaults fills empty path fields from the platform data dir.
func applyPathDefaults(cfg *Config) {
	dataDir := DefaultDataDir()

	if cfg.Paths.TokenFile == "" {
		cfg.Paths.TokenFile = filepath.Join(dataDir, "token.json")
	}

	if cfg.Paths.UserDB == "" {
		cfg.Paths.UserDB = filepath.Join(dataDir, "users.db")
	}

	if cfg.Paths.PIDFile == "" {
		cfg.Paths.PIDFile = filepath.Join(dataDir, "drivelinkbot.pid")
	}
}
