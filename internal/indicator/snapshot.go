package indicator

import (
	"errors"
	"math"
)

// ErrInsufficientData 表示K线数量不足以计算完整指标。
// 调用方（评分器）应将受影响的层记 0 分而不是中断整次扫描。
var ErrInsufficientData = errors.New("insufficient candle data")

// MACDValue 保存单根K线对应的 MACD 三元组。
type MACDValue struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// BollingerValue 保存布林带边界与派生状态。
// Position 为价格在带内的归一化位置（下轨=0，上轨=1，带外截断）。
type BollingerValue struct {
	Upper    float64 `json:"upper"`
	Middle   float64 `json:"middle"`
	Lower    float64 `json:"lower"`
	Position float64 `json:"position"`
	Squeeze  bool    `json:"squeeze"`
}

// EMAValue 保存三条常用均线的最新值。
type EMAValue struct {
	Fast float64 `json:"fast"` // EMA9
	Mid  float64 `json:"mid"`  // EMA21
	Slow float64 `json:"slow"` // EMA50
}

// Snapshot 是单个 symbol+interval 的不可变指标快照，每个扫描周期重建。
type Snapshot struct {
	Symbol   string  `json:"symbol"`
	Interval string  `json:"interval"`
	Price    float64 `json:"price"`

	RSI       float64        `json:"rsi"`
	MACD      MACDValue      `json:"macd"`
	PrevMACD  MACDValue      `json:"prev_macd"`
	Bollinger BollingerValue `json:"bollinger"`
	EMA       EMAValue       `json:"ema"`

	ATR         float64 `json:"atr"`
	ATRPct      float64 `json:"atr_pct"`
	VolumeRatio float64 `json:"volume_ratio"`
}

// HasBollinger 报告布林带是否有效（带宽为正）。
func (s *Snapshot) HasBollinger() bool {
	return s != nil && s.Bollinger.Upper > s.Bollinger.Lower && s.Bollinger.Lower > 0
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		v := series[i]
		if v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v
		}
	}
	return 0
}

func at(series []float64, idx int) float64 {
	if idx < 0 || idx >= len(series) {
		return 0
	}
	return sanitize(series[idx])
}
