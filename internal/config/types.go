package config

import "strings"

// Config 是 helmsman 的主配置载体。
type Config struct {
	App     AppConfig     `toml:"app"`
	Market  MarketConfig  `toml:"market"`
	Scan    ScanConfig    `toml:"scan"`
	Risk    RiskConfig    `toml:"risk"`
	Exit    ExitConfig    `toml:"exit"`
	Store   StoreConfig   `toml:"store"`
	Notify  NotifyConfig  `toml:"notify"`
	Profile ProfileConfig `toml:"profile"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// MarketConfig 描述行情与执行网关的访问方式。
type MarketConfig struct {
	Name             string `toml:"name"`
	APIKey           string `toml:"api_key"`
	APISecret        string `toml:"api_secret"`
	RESTBaseURL      string `toml:"rest_base_url"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	BreakerThreshold int    `toml:"breaker_threshold"`
	BreakerCooldownS int    `toml:"breaker_cooldown_seconds"`
}

// ScanConfig 控制扫描/监控两条周期任务与信号准入门槛。
type ScanConfig struct {
	Symbols          []string `toml:"symbols"`
	FastInterval     string   `toml:"fast_interval"`
	BaseInterval     string   `toml:"base_interval"`
	SlowInterval     string   `toml:"slow_interval"`
	CandleLimit      int      `toml:"candle_limit"`
	ScanSeconds      int      `toml:"scan_seconds"`
	MonitorSeconds   int      `toml:"monitor_seconds"`
	MinScore         int      `toml:"min_score"`
	MaxOpenPositions int      `toml:"max_open_positions"`
}

// RiskConfig 约束资金占用与每日风险预算。
type RiskConfig struct {
	RiskPct         float64        `toml:"risk_pct"`           // 单笔风险预算占余额比例 0~1
	MaxMarginPct    float64        `toml:"max_margin_pct"`     // 单笔保证金上限占余额比例 0~1
	MaxDailyLossPct float64        `toml:"max_daily_loss_pct"` // 日亏损熔断阈值 0~1
	MinRewardRisk   float64        `toml:"min_reward_risk"`    // 盈亏比下限
	Leverage        LeverageConfig `toml:"leverage"`
}

// LeverageConfig 是固定档位杠杆决策表的参数。
type LeverageConfig struct {
	Min     float64 `toml:"min"`
	Max     float64 `toml:"max"`
	Default float64 `toml:"default"`
	Boosted float64 `toml:"boosted"`
}

// ExitConfig 控制止损/止盈/移动止损/分批止盈。
type ExitConfig struct {
	StopATRMult         float64 `toml:"stop_atr_mult"`
	TargetATRMult       float64 `toml:"target_atr_mult"`
	StopPct             float64 `toml:"stop_pct"`
	TargetPct           float64 `toml:"target_pct"`
	BollingerBufferPct  float64 `toml:"bollinger_buffer_pct"`
	TrailingActivatePct float64 `toml:"trailing_activate_pct"` // 杠杆后收益率阈值
	TrailingDistancePct float64 `toml:"trailing_distance_pct"` // 移动止损距离（价格比例）
	PartialClosePct     float64 `toml:"partial_close_pct"`     // 杠杆后收益率阈值
	PartialCloseRatio   float64 `toml:"partial_close_ratio"`   // 一次性减仓比例 0~1
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// ProfileConfig 指向可热更新的按币种覆盖文件。
type ProfileConfig struct {
	Path string `toml:"path"`
}

// Intervals 返回快/基准/慢三个周期（去空格，保持顺序）。
func (s ScanConfig) Intervals() []string {
	out := make([]string, 0, 3)
	for _, iv := range []string{s.FastInterval, s.BaseInterval, s.SlowInterval} {
		iv = strings.TrimSpace(iv)
		if iv != "" {
			out = append(out, iv)
		}
	}
	return out
}
