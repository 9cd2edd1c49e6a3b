package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfigFile(t, `
[telegram]
bot_token = "123:abc"
admin_ids = [100, 200]
poll_timeout_seconds = 30
workers = 4

[graph]
client_id = "client-1"
tenant_id = "consumers"

[browse]
landing_path = "shared/public"

[logging]
log_level = "debug"

[paths]
token_file = "/tmp/token.json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, []int64{100, 200}, cfg.Telegram.AdminIDs)
	assert.Equal(t, 30, cfg.Telegram.PollTimeout)
	assert.Equal(t, 4, cfg.Telegram.Workers)
	assert.Equal(t, "client-1", cfg.Graph.ClientID)
	assert.Equal(t, "consumers", cfg.Graph.TenantID)
	assert.Equal(t, "shared/public", cfg.Browse.LandingPath)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)
	assert.Equal(t, "/tmp/token.json", cfg.Paths.TokenFile)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfigFile(t, `
[graph]
client_id = "client-1"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "client-1", cfg.Graph.ClientID)
	assert.Equal(t, defaultPollTimeout, cfg.Telegram.PollTimeout)
	assert.Equal(t, defaultWorkers, cfg.Telegram.Workers)
	assert.Equal(t, defaultLogLevel, cfg.Logging.LogLevel)
}

func TestLoad_UnknownKeyFails(t *testing.T) {
	path := writeConfigFile(t, `
[telegram]
bot_tokne = "typo"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config keys")
	assert.Contains(t, err.Error(), "telegram.bot_tokne")
}

func TestLoad_MalformedTOMLFails(t *testing.T) {
	path := writeConfigFile(t, `telegram = [broken`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidLogLevelFails(t *testing.T) {
	path := writeConfigFile(t, `
[logging]
log_level = "verbose"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoad_AbsoluteLandingPathFails(t *testing.T) {
	path := writeConfigFile(t, `
[browse]
landing_path = "/shared/public"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "landing_path")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, defaultPollTimeout, cfg.Telegram.PollTimeout)
}

func TestResolve_OverrideChain(t *testing.T) {
	path := writeConfigFile(t, `
[telegram]
bot_token = "from-file"
`)

	// Env overrides file.
	cfg, usedPath, err := Resolve(
		EnvOverrides{ConfigPath: path, BotToken: "from-env"},
		CLIOverrides{},
	)
	require.NoError(t, err)
	assert.Equal(t, path, usedPath)
	assert.Equal(t, "from-env", cfg.Telegram.BotToken)

	// CLI overrides env.
	cfg, _, err = Resolve(
		EnvOverrides{ConfigPath: path, BotToken: "from-env"},
		CLIOverrides{BotToken: "from-cli"},
	)
	require.NoError(t, err)
	assert.Equal(t, "from-cli", cfg.Telegram.BotToken)
}

func TestResolve_CLIConfigPathWins(t *testing.T) {
	envPath := writeConfigFile(t, `
[graph]
client_id = "env-client"
`)
	cliPath := writeConfigFile(t, `
[graph]
client_id = "cli-client"
`)

	cfg, usedPath, err := Resolve(
		EnvOverrides{ConfigPath: envPath},
		CLIOverrides{ConfigPath: cliPath},
	)
	require.NoError(t, err)
	assert.Equal(t, cliPath, usedPath)
	assert.Equal(t, "cli-client", cfg.Graph.ClientID)
}

func TestResolve_FillsPathDefaults(t *testing.T) {
	path := writeConfigFile(t, ``)

	cfg, _, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{})
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Paths.TokenFile)
	assert.NotEmpty(t, cfg.Paths.UserDB)
	assert.NotEmpty(t, cfg.Paths.PIDFile)
}

func TestValidate_NegativeValuesFail(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Telegram.PollTimeout = -1
	assert.Error(t, Validate(cfg))

	cfg = DefaultConfig()
	cfg.Telegram.Workers = -1
	assert.Error(t, Validate(cfg))
}
