package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminAddr = "0x1111111111111111111111111111111111111111"

func validConfig() Config {
	cfg := Defaults()
	cfg.Engine.AdminAddress = adminAddr
	cfg.Oracle.Address = "0x2222222222222222222222222222222222222222"
	cfg.Server.AdminAPIKey = "test-admin-key"
	return cfg
}

func TestDefaultsMatchDeploymentConstants(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, uint64(100_000), cfg.Engine.MinBetAmount)
	assert.Equal(t, uint64(100_000_000_000), cfg.Engine.MaxBetAmount)
	assert.Equal(t, uint64(3_600), cfg.Engine.MinDurationSecs)
	assert.Equal(t, uint64(2_592_000), cfg.Engine.MaxDurationSecs)
	assert.Equal(t, uint64(20_000), cfg.Engine.PayoutMultiplier)
	assert.Equal(t, uint64(200), cfg.Engine.FeeBps)
	assert.Equal(t, "full", cfg.Mode)
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "bogus"
	cfg.Engine.AdminAddress = "not-an-address"
	cfg.Engine.MaxBetAmount = cfg.Engine.MinBetAmount - 1
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "not a valid hex address")
	assert.Contains(t, err.Error(), "max_bet_amount")
	assert.Contains(t, err.Error(), "redis: addr")
}

func TestValidateOracleAttestationRequiresAddress(t *testing.T) {
	cfg := validConfig()
	cfg.Oracle.Address = ""
	cfg.Oracle.RequireAttestation = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "require_attestation")
}

func TestValidateKeeperOnlyWhenRunning(t *testing.T) {
	cfg := validConfig()
	cfg.Keeper.BatchSize = 0

	require.Error(t, cfg.Validate(), "full mode runs the keeper")

	cfg.Mode = "server"
	assert.NoError(t, cfg.Validate(), "server mode ignores keeper settings")
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "server"

[engine]
admin_address = "`+adminAddr+`"
min_bet_amount = 250000

[keeper]
interval = "10s"
`), 0o600))

	t.Setenv("WAGERHOUSE_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("WAGERHOUSE_ENGINE_MIN_BET_AMOUNT", "500000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, adminAddr, cfg.Engine.AdminAddress)
	assert.Equal(t, uint64(500_000), cfg.Engine.MinBetAmount, "env beats file")
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 10*time.Second, cfg.Keeper.Interval.Duration)
	assert.Equal(t, 5432, cfg.Postgres.Port, "defaults survive the merge")
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.Password = "hunter2"
	cfg.Redis.Password = "hunter2"
	cfg.S3.SecretKey = "hunter2"
	cfg.Oracle.KeyPassword = "hunter2"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.S3.SecretKey)
	assert.Equal(t, "***", red.Oracle.KeyPassword)
	assert.Equal(t, "***", red.Server.AdminAPIKey)
	assert.Equal(t, "hunter2", cfg.Postgres.Password, "original untouched")
	assert.Empty(t, red.Postgres.DSN, "empty values stay empty")
}
