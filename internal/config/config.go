// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for drivelinkbot. Overrides follow the
// chain defaults -> config file -> environment -> CLI flags, and the serve
// daemon watches the config file so admin and landing-folder changes apply
// without a restart.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Telegram TelegramConfig `toml:"telegram"`
	Graph    GraphConfig    `toml:"graph"`
	Browse   BrowseConfig   `toml:"browse"`
	Logging  LoggingConfig  `toml:"logging"`
	Paths    PathsConfig    `toml:"paths"`
}

// TelegramConfig holds the bot transport settings. The token can also come
// from DRIVELINKBOT_BOT_TOKEN so it stays out of the config file.
type TelegramConfig struct {
	BotToken    string  `toml:"bot_token"`
	AdminIDs    []int64 `toml:"admin_ids"`
	PollTimeout int     `toml:"poll_timeout_seconds"`
	Workers     int     `toml:"workers"`
}

// GraphConfig identifies the Azure AD app registration used for the
// device-code flow.
type GraphConfig struct {
	ClientID string `toml:"client_id"`
	TenantID string `toml:"tenant_id"`
}

// BrowseConfig controls the folder browser. landing_path is a slash-
// separated sequence of folder names resolved from the drive root; empty
// means the root itself is the landing folder.
type BrowseConfig struct {
	LandingPath string `toml:"landing_path"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel string `toml:"log_level"`
}

// PathsConfig overrides the default data locations. Empty values fall back
// to the platform data directory.
type PathsConfig struct {
	TokenFile string `toml:"token_file"`
	UserDB    string `toml:"user_db"`
	PIDFile   string `toml:"pid_file"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings.
type CLIOverrides struct {
	ConfigPath string
	BotToken   string
}

// IsAdmin reports whether the user is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Telegram.AdminIDs {
		if id == userID {
			return true
		}
	}

	return false
}
