package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.TradingEnabled(), "no package id by default")
	assert.Equal(t, 1e9, cfg.Pool.PriceScale)
	assert.Len(t, cfg.Assets, 3)
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.Pool.PriceScale = 0
	cfg.Pool.FeeUnit = "cents"
	cfg.Chain.DiscoveryLimit = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "price_scale")
	assert.Contains(t, err.Error(), "fee_unit")
	assert.Contains(t, err.Error(), "discovery_limit")
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "server"

[chain]
package_id = "0xabc"
request_timeout = "5s"

[pool]
price_scale = 10000
fee_unit = "bps"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("FATE_ORACLE_PYTH_STATE_ID", "0xpyth")
	t.Setenv("FATE_SERVER_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, "0xabc", cfg.Chain.PackageID)
	assert.Equal(t, 5*time.Second, cfg.Chain.RequestTimeout.Duration)
	assert.Equal(t, 10000.0, cfg.Pool.PriceScale)
	assert.Equal(t, "0xpyth", cfg.Oracle.PythStateID)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.True(t, cfg.TradingEnabled())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Chain.RPCURL, cfg.Chain.RPCURL)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "deadbeef"
	cfg.Server.APIKey = "secret"
	cfg.Postgres.Password = ""

	out := RedactedConfig(&cfg)
	assert.Equal(t, redacted, out.Wallet.PrivateKey)
	assert.Equal(t, redacted, out.Server.APIKey)
	assert.Empty(t, out.Postgres.Password)
	assert.Equal(t, "deadbeef", cfg.Wallet.PrivateKey)

	out.Server.CORSOrigins[0] = "changed"
	assert.NotEqual(t, "changed", cfg.Server.CORSOrigins[0])
}
