package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal — silently ignoring a typo in a
// config file leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
// Returns the resolved config and the path it was loaded from.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Config, string, error) {
	// Config path: CLI > env > default.
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, "", err
	}

	if env.BotToken != "" {
		cfg.Telegram.BotToken = env.BotToken
	}

	if cli.BotToken != "" {
		cfg.Telegram.BotToken = cli.BotToken
	}

	applyPathDefaults(cfg)

	return cfg, cfgPath, nil
}

// Validate checks cross-field constraints. Token and client ID presence is
// checked by the commands that need them, not here, so read-only commands
// (config show) work on a partial file.
func Validate(cfg *Config) error {
	if cfg.Telegram.PollTimeout < 0 {
		return fmt.Errorf("telegram.poll_timeout_seconds must not be negative")
	}

	if cfg.Telegram.Workers < 0 {
		return fmt.Errorf("telegram.workers must not be negative")
	}

	if level := cfg.Logging.LogLevel; level != "" {
		switch level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("logging.log_level %q is not one of debug, info, warn, error", level)
		}
	}

	if strings.HasPrefix(cfg.Browse.LandingPath, "/") {
		return fmt.Errorf("browse.landing_path must not start with a slash")
	}

	return nil
}
