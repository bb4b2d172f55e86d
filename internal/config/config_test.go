package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, kv []string) {
	t.Helper()
	old := environ
	environ = func() []string { return kv }
	t.Cleanup(func() { environ = old })
}

func TestLoadRequiresInfrastructureSecrets(t *testing.T) {
	withEnv(t, nil)
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url")
	assert.Contains(t, err.Error(), "digitalocean_token")
	assert.Contains(t, err.Error(), "encryption_key")
}

func TestLoadAppliesDefaults(t *testing.T) {
	withEnv(t, []string{
		"OPENCLAW_DATABASE_URL=postgres://localhost/openclaw",
		"OPENCLAW_DIGITALOCEAN_TOKEN=do_token",
		"OPENCLAW_ENCRYPTION_KEY=base64key",
	})
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.ServerHost)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "ubuntu-22-04-x64", cfg.OpenclawImage)
	assert.True(t, cfg.Toolchain.InstallPnpm)
	assert.False(t, cfg.Toolchain.InstallRust)
	assert.Equal(t, 180, cfg.StaleBotTimeoutSeconds)
}

func TestLoadIsCaseInsensitiveAndListSplitting(t *testing.T) {
	withEnv(t, []string{
		"openclaw_database_url=postgres://localhost/openclaw",
		"Openclaw_Digitalocean_Token=do_token",
		"OPENCLAW_encryption_key=base64key",
		"OPENCLAW_SERVER_PORT=9090",
		"OPENCLAW_TOOLCHAIN_EXTRA_APT_PACKAGES=ripgrep, jq ,tmux",
	})
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, []string{"ripgrep", "jq", "tmux"}, cfg.Toolchain.ExtraAptPackages)
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := &Config{
		DatabaseURL:       "x",
		DigitalOceanToken: "x",
		EncryptionKey:     "x",
		ServerPort:        70000,
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server_port")
}
