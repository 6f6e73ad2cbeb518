package simconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsim/xsim/internal/simconfig"
)

const validYAML = `
seed: 7
bus:
  default_latency_median_us: 750
  default_latency_sigma: 0.6
  default_latency_cap_us: 15000
engine:
  symbol: BTC/USD
  price_scale: 100000000
watchdog:
  default_order_lifetime: 30s
logging:
  level: info
  development: false
metrics:
  enabled: true
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "simulation.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := simconfig.Default("BTC/USD")
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ReadsYAMLFile(t *testing.T) {
	path := writeConfig(t, validYAML)

	cfg, err := simconfig.Load(path)
	require.NoError(t, err)

	assert.EqualValues(t, 7, cfg.Seed)
	assert.Equal(t, "BTC/USD", cfg.Engine.Symbol)
	assert.Equal(t, 750.0, cfg.Bus.DefaultLatencyMedianUS)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, validYAML)
	t.Setenv("XSIM_ENGINE_SYMBOL", "ETH/USD")

	cfg, err := simconfig.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ETH/USD", cfg.Engine.Symbol, "an XSIM_ environment variable must override the file value")
}

func TestLoad_MissingFileIsAnError(t *testing.T) {
	_, err := simconfig.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestValidate_RejectsMalformedSymbolPair(t *testing.T) {
	cfg := simconfig.Default("BTCUSD")
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbol_pair")
}

func TestValidate_RejectsNonPositiveLatencyCap(t *testing.T) {
	cfg := simconfig.Default("BTC/USD")
	cfg.Bus.DefaultLatencyCapUS = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DefaultLatencyCapUS")
}

func TestValidate_RejectsZeroSeed(t *testing.T) {
	cfg := simconfig.Default("BTC/USD")
	cfg.Seed = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	cfg := simconfig.Default("BTC/USD")
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())
}
