package signal

import (
	"helmsman/internal/types"
)

// 七个打分层的标识，Breakdown 以此为键。
const (
	LayerTrend     = "trend"
	LayerRSI       = "rsi"
	LayerMACD      = "macd"
	LayerBollinger = "bollinger"
	LayerEMA       = "ema"
	LayerVolume    = "volume"
	LayerTiming    = "timing"
)

// Score 是一次评分的完整输出。短生命周期对象：每个扫描周期重算，不落库。
type Score struct {
	Symbol    string         `json:"symbol"`
	Direction types.Side     `json:"direction"`
	Total     int            `json:"total"`
	Breakdown map[string]int `json:"breakdown"`
}

// Tradeable 报告该评分是否具备方向（不含门槛判断，门槛由引擎配置决定）。
func (s Score) Tradeable() bool {
	return s.Direction != types.SideNone && s.Total > 0
}
