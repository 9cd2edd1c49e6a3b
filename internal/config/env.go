package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig   = "DRIVELINKBOT_CONFIG"
	EnvBotToken = "DRIVELINKBOT_BOT_TOKEN"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // DRIVELINKBOT_CONFIG: override config file path
	BotToken   string // DRIVELINKBOT_BOT_TOKEN: bot token, kept out of the file
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		BotToken:   os.Getenv(EnvBotToken),
	}
}
