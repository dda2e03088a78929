package config

import (
	"fmt"
	"strings"

	"helmsman/internal/scheduler"
)

// validate 拒绝无法安全运行的配置组合。
func validate(c *Config) error {
	if c == nil {
		return fmt.Errorf("nil config")
	}
	if len(c.Scan.Symbols) == 0 {
		return fmt.Errorf("scan.symbols 不能为空")
	}
	for _, sym := range c.Scan.Symbols {
		if strings.TrimSpace(sym) == "" {
			return fmt.Errorf("scan.symbols 含空白项")
		}
	}
	for _, iv := range c.Scan.Intervals() {
		if _, ok := scheduler.ParseIntervalDuration(iv); !ok {
			return fmt.Errorf("无法识别的K线周期: %s", iv)
		}
	}
	if c.Scan.MinScore < 1 || c.Scan.MinScore > 10 {
		return fmt.Errorf("scan.min_score 需在 1~10 之间, 当前=%d", c.Scan.MinScore)
	}
	if c.Scan.MonitorSeconds >= c.Scan.ScanSeconds {
		// 监控必须比扫描更频繁，否则持仓调整滞后于开仓节奏
		return fmt.Errorf("scan.monitor_seconds(%d) 需小于 scan.scan_seconds(%d)",
			c.Scan.MonitorSeconds, c.Scan.ScanSeconds)
	}

	if c.Risk.RiskPct <= 0 || c.Risk.RiskPct > 0.2 {
		return fmt.Errorf("risk.risk_pct 需在 (0, 0.2] 之间, 当前=%.4f", c.Risk.RiskPct)
	}
	if c.Risk.MaxMarginPct <= 0 || c.Risk.MaxMarginPct > 1 {
		return fmt.Errorf("risk.max_margin_pct 需在 (0, 1] 之间, 当前=%.4f", c.Risk.MaxMarginPct)
	}
	if c.Risk.MaxDailyLossPct <= 0 || c.Risk.MaxDailyLossPct > 1 {
		return fmt.Errorf("risk.max_daily_loss_pct 需在 (0, 1] 之间, 当前=%.4f", c.Risk.MaxDailyLossPct)
	}
	if c.Risk.MinRewardRisk < 1 {
		return fmt.Errorf("risk.min_reward_risk 不能低于 1, 当前=%.2f", c.Risk.MinRewardRisk)
	}

	lev := c.Risk.Leverage
	if lev.Min > lev.Max {
		return fmt.Errorf("risk.leverage.min(%.1f) 不能大于 max(%.1f)", lev.Min, lev.Max)
	}
	if lev.Default < lev.Min || lev.Default > lev.Max {
		return fmt.Errorf("risk.leverage.default(%.1f) 需落在 [%.1f, %.1f]", lev.Default, lev.Min, lev.Max)
	}
	if lev.Boosted < lev.Min || lev.Boosted > lev.Max {
		return fmt.Errorf("risk.leverage.boosted(%.1f) 需落在 [%.1f, %.1f]", lev.Boosted, lev.Min, lev.Max)
	}

	if c.Exit.PartialCloseRatio <= 0 || c.Exit.PartialCloseRatio >= 1 {
		return fmt.Errorf("exit.partial_close_ratio 需在 (0, 1) 之间, 当前=%.2f", c.Exit.PartialCloseRatio)
	}
	if c.Exit.TrailingDistancePct >= 0.1 {
		return fmt.Errorf("exit.trailing_distance_pct(%.4f) 过大, 上限 0.1", c.Exit.TrailingDistancePct)
	}
	if c.Notify.Telegram.Enabled {
		if strings.TrimSpace(c.Notify.Telegram.BotToken) == "" || strings.TrimSpace(c.Notify.Telegram.ChatID) == "" {
			return fmt.Errorf("notify.telegram 启用时 bot_token/chat_id 必填")
		}
	}
	return nil
}
