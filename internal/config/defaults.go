package config

import "strings"

// applyDefaults 为未显式设置的字段填充缺省值。
// 与校验不同，这里只处理"缺省即可运行"的字段；不合法的显式配置交由 validate 拒绝。
func (c *Config) applyDefaults() {
	if c == nil {
		return
	}
	if strings.TrimSpace(c.App.Env) == "" {
		c.App.Env = "dev"
	}
	if strings.TrimSpace(c.App.LogLevel) == "" {
		c.App.LogLevel = "info"
	}
	if strings.TrimSpace(c.App.HTTPAddr) == "" {
		c.App.HTTPAddr = ":9921"
	}

	if strings.TrimSpace(c.Market.Name) == "" {
		c.Market.Name = "binance"
	}
	if strings.TrimSpace(c.Market.RESTBaseURL) == "" {
		c.Market.RESTBaseURL = "https://fapi.binance.com"
	}
	if c.Market.TimeoutSeconds <= 0 {
		c.Market.TimeoutSeconds = 10
	}
	if c.Market.BreakerThreshold <= 0 {
		c.Market.BreakerThreshold = 5
	}
	if c.Market.BreakerCooldownS <= 0 {
		c.Market.BreakerCooldownS = 60
	}

	if strings.TrimSpace(c.Scan.FastInterval) == "" {
		c.Scan.FastInterval = "5m"
	}
	if strings.TrimSpace(c.Scan.BaseInterval) == "" {
		c.Scan.BaseInterval = "15m"
	}
	if strings.TrimSpace(c.Scan.SlowInterval) == "" {
		c.Scan.SlowInterval = "1h"
	}
	if c.Scan.CandleLimit <= 0 {
		c.Scan.CandleLimit = 120
	}
	if c.Scan.ScanSeconds <= 0 {
		c.Scan.ScanSeconds = 180
	}
	if c.Scan.MonitorSeconds <= 0 {
		c.Scan.MonitorSeconds = 20
	}
	if c.Scan.MinScore <= 0 {
		c.Scan.MinScore = 6
	}
	if c.Scan.MaxOpenPositions <= 0 {
		c.Scan.MaxOpenPositions = 3
	}

	if c.Risk.RiskPct <= 0 {
		c.Risk.RiskPct = 0.03
	}
	if c.Risk.MaxMarginPct <= 0 {
		c.Risk.MaxMarginPct = 0.3
	}
	if c.Risk.MaxDailyLossPct <= 0 {
		c.Risk.MaxDailyLossPct = 0.05
	}
	if c.Risk.MinRewardRisk <= 0 {
		c.Risk.MinRewardRisk = 1.5
	}
	if c.Risk.Leverage.Min <= 0 {
		c.Risk.Leverage.Min = 1
	}
	if c.Risk.Leverage.Max <= 0 {
		c.Risk.Leverage.Max = 10
	}
	if c.Risk.Leverage.Default <= 0 {
		c.Risk.Leverage.Default = 3
	}
	if c.Risk.Leverage.Boosted <= 0 {
		c.Risk.Leverage.Boosted = 5
	}

	if c.Exit.StopATRMult <= 0 {
		c.Exit.StopATRMult = 1.5
	}
	if c.Exit.TargetATRMult <= 0 {
		c.Exit.TargetATRMult = 3
	}
	if c.Exit.StopPct <= 0 {
		c.Exit.StopPct = 0.02
	}
	if c.Exit.TargetPct <= 0 {
		c.Exit.TargetPct = 0.04
	}
	if c.Exit.BollingerBufferPct <= 0 {
		c.Exit.BollingerBufferPct = 0.001
	}
	if c.Exit.TrailingActivatePct <= 0 {
		c.Exit.TrailingActivatePct = 0.05
	}
	if c.Exit.TrailingDistancePct <= 0 {
		c.Exit.TrailingDistancePct = 0.01
	}
	if c.Exit.PartialClosePct <= 0 {
		c.Exit.PartialClosePct = 0.03
	}
	if c.Exit.PartialCloseRatio <= 0 {
		c.Exit.PartialCloseRatio = 0.5
	}

	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = "data/helmsman.db"
	}
}
