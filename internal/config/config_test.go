package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
scan:
  symbols: ["BTCUSDT"]
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, []string{"BTCUSDT"}, cfg.Scan.Symbols)
	assert.Equal(t, "5m", cfg.Scan.FastInterval)
	assert.Equal(t, "15m", cfg.Scan.BaseInterval)
	assert.Equal(t, "1h", cfg.Scan.SlowInterval)
	assert.Equal(t, 180, cfg.Scan.ScanSeconds)
	assert.Equal(t, 20, cfg.Scan.MonitorSeconds)
	assert.Equal(t, 6, cfg.Scan.MinScore)
	assert.Equal(t, 3, cfg.Scan.MaxOpenPositions)

	assert.Equal(t, 0.03, cfg.Risk.RiskPct)
	assert.Equal(t, 0.3, cfg.Risk.MaxMarginPct)
	assert.Equal(t, 0.05, cfg.Risk.MaxDailyLossPct)
	assert.Equal(t, 1.5, cfg.Risk.MinRewardRisk)
	assert.Equal(t, 3.0, cfg.Risk.Leverage.Default)
	assert.Equal(t, 5.0, cfg.Risk.Leverage.Boosted)

	assert.Equal(t, 0.5, cfg.Exit.PartialCloseRatio)
	assert.Equal(t, "data/helmsman.db", cfg.Store.Path)
	assert.Equal(t, ":9921", cfg.App.HTTPAddr)
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
scan:
  symbols: ["ETHUSDT", "SOLUSDT"]
  min_score: 8
  scan_seconds: 300
risk:
  risk_pct: 0.05
`))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Scan.MinScore)
	assert.Equal(t, 300, cfg.Scan.ScanSeconds)
	assert.Equal(t, 0.05, cfg.Risk.RiskPct)
	// 未覆盖的字段仍取默认
	assert.Equal(t, 20, cfg.Scan.MonitorSeconds)
}

func TestLoadRejectsEmptySymbols(t *testing.T) {
	_, err := Load(writeConfig(t, `
app:
  env: dev
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbols")
}

func TestLoadRejectsBadInterval(t *testing.T) {
	_, err := Load(writeConfig(t, `
scan:
  symbols: ["BTCUSDT"]
  base_interval: "90x"
`))
	require.Error(t, err)
}

func TestLoadRejectsMonitorSlowerThanScan(t *testing.T) {
	_, err := Load(writeConfig(t, `
scan:
  symbols: ["BTCUSDT"]
  scan_seconds: 60
  monitor_seconds: 120
`))
	require.Error(t, err)
}

func TestLoadRejectsLeverageOrdering(t *testing.T) {
	_, err := Load(writeConfig(t, `
scan:
  symbols: ["BTCUSDT"]
risk:
  leverage:
    min: 5
    max: 3
    default: 4
    boosted: 4
`))
	require.Error(t, err)
}

func TestLoadRejectsTelegramWithoutToken(t *testing.T) {
	_, err := Load(writeConfig(t, `
scan:
  symbols: ["BTCUSDT"]
notify:
  telegram:
    enabled: true
`))
	require.Error(t, err)
}
