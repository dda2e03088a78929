package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"helmsman/internal/indicator"
	"helmsman/internal/types"
)

// bullishSnapshot 构造一个所有层都满分的多头快照。
func bullishSnapshot() *indicator.Snapshot {
	return &indicator.Snapshot{
		Symbol:   "BTCUSDT",
		Interval: "15m",
		Price:    50000,
		RSI:      22,
		MACD:     indicator.MACDValue{Line: 12, Signal: 8, Histogram: 4},
		PrevMACD: indicator.MACDValue{Line: 6, Signal: 8, Histogram: -2},
		Bollinger: indicator.BollingerValue{
			Upper: 51000, Middle: 50000, Lower: 49500, Position: 0.05,
		},
		EMA:         indicator.EMAValue{Fast: 49900, Mid: 49700, Slow: 49400},
		ATR:         500,
		ATRPct:      1.0,
		VolumeRatio: 1.8,
	}
}

func TestEvaluateFullBullish(t *testing.T) {
	sc := NewScorer()
	snap := bullishSnapshot()

	got := sc.Evaluate("BTCUSDT", snap, snap, snap)

	assert.Equal(t, types.SideLong, got.Direction)
	assert.Equal(t, 10, got.Total)
	assert.Equal(t, 2, got.Breakdown[LayerTrend])
	assert.Equal(t, 2, got.Breakdown[LayerRSI])
	assert.Equal(t, 2, got.Breakdown[LayerMACD])
	assert.Equal(t, 1, got.Breakdown[LayerBollinger])
	assert.Equal(t, 1, got.Breakdown[LayerEMA])
	assert.Equal(t, 1, got.Breakdown[LayerVolume])
	assert.Equal(t, 1, got.Breakdown[LayerTiming])
}

func TestEvaluateShortMirror(t *testing.T) {
	snap := &indicator.Snapshot{
		Price:    50000,
		RSI:      78,
		MACD:     indicator.MACDValue{Line: -12, Signal: -8, Histogram: -4},
		PrevMACD: indicator.MACDValue{Line: -6, Signal: -8, Histogram: 2},
		Bollinger: indicator.BollingerValue{
			Upper: 50200, Middle: 49800, Lower: 49000, Position: 0.95,
		},
		EMA:         indicator.EMAValue{Fast: 50100, Mid: 50300, Slow: 50600},
		VolumeRatio: 1.5,
	}
	got := NewScorer().Evaluate("ETHUSDT", snap, snap, snap)

	assert.Equal(t, types.SideShort, got.Direction)
	assert.Equal(t, 10, got.Total)
}

func TestEvaluateNoDirectionNoTrade(t *testing.T) {
	// 价格夹在均线中间：基准与慢周期都判不出方向
	flat := &indicator.Snapshot{
		Price: 50000,
		EMA:   indicator.EMAValue{Fast: 50100, Mid: 50000, Slow: 49900},
	}
	got := NewScorer().Evaluate("BTCUSDT", flat, flat, flat)

	assert.Equal(t, types.SideNone, got.Direction)
	assert.Equal(t, 0, got.Total)
	assert.False(t, got.Tradeable())
}

func TestEvaluateSlowFallbackDirection(t *testing.T) {
	neutral := &indicator.Snapshot{
		Price: 50000,
		EMA:   indicator.EMAValue{Fast: 50100, Mid: 50000, Slow: 49900},
	}
	bull := bullishSnapshot()

	got := NewScorer().Evaluate("BTCUSDT", nil, neutral, bull)

	// 基准周期中性时方向由慢周期兜底
	assert.Equal(t, types.SideLong, got.Direction)
	assert.Equal(t, 1, got.Breakdown[LayerTrend])
	assert.Equal(t, 0, got.Breakdown[LayerTiming])
}

func TestEvaluateMissingLayersDegrade(t *testing.T) {
	base := bullishSnapshot()
	base.RSI = 0                                // RSI 缺数据
	base.VolumeRatio = 0                        // 量能缺数据
	base.Bollinger = indicator.BollingerValue{} // 布林带缺数据

	got := NewScorer().Evaluate("BTCUSDT", nil, base, nil)

	assert.Equal(t, types.SideLong, got.Direction)
	assert.Equal(t, 0, got.Breakdown[LayerRSI])
	assert.Equal(t, 0, got.Breakdown[LayerVolume])
	assert.Equal(t, 0, got.Breakdown[LayerBollinger])
	assert.Equal(t, 0, got.Breakdown[LayerTiming])
	// 趋势层只有基准周期贡献
	assert.Equal(t, 1, got.Breakdown[LayerTrend])
	assert.Equal(t, 2, got.Breakdown[LayerMACD])
	assert.Equal(t, 1, got.Breakdown[LayerEMA])
}

func TestEvaluateWeakRSIOneBand(t *testing.T) {
	base := bullishSnapshot()
	base.RSI = 30 // 弱超卖只给 1 分

	got := NewScorer().Evaluate("BTCUSDT", base, base, base)
	assert.Equal(t, 1, got.Breakdown[LayerRSI])
}
