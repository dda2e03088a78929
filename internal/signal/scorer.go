package signal

import (
	"helmsman/internal/indicator"
	"helmsman/internal/types"
)

// 固定阈值：分层打分使用写死的经验阈值而非连续函数，便于审计与复现。
const (
	rsiStrongLong  = 25
	rsiWeakLong    = 35
	rsiStrongShort = 75
	rsiWeakShort   = 65

	bollingerLowZone  = 0.1
	bollingerHighZone = 0.9

	volumeActiveRatio = 1.3
)

// Scorer 将快/基准/慢三个周期的指标快照聚合成 0~10 的方向评分。
//
// 方向取基准周期趋势；基准中性时退用慢周期；仍无方向则判为不交易。
// 任一层缺数据（快照为 nil 或相应指标为 0 值）时该层记 0 分，
// 其余层照常计算——数据残缺是降级而不是失败。
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

// Evaluate 产出评分。fast/base/slow 任一可为 nil。
func (sc *Scorer) Evaluate(symbol string, fast, base, slow *indicator.Snapshot) Score {
	out := Score{
		Symbol:    symbol,
		Breakdown: make(map[string]int, 7),
	}

	dir := trendDirection(base)
	if dir == types.SideNone {
		dir = trendDirection(slow)
	}
	if dir == types.SideNone {
		return out
	}
	out.Direction = dir

	out.Breakdown[LayerTrend] = scoreTrend(dir, base, slow)
	out.Breakdown[LayerRSI] = scoreRSI(dir, base)
	out.Breakdown[LayerMACD] = scoreMACD(dir, base)
	out.Breakdown[LayerBollinger] = scoreBollinger(dir, base)
	out.Breakdown[LayerEMA] = scoreEMAStack(dir, base)
	out.Breakdown[LayerVolume] = scoreVolume(base)
	out.Breakdown[LayerTiming] = scoreTiming(dir, fast)

	for _, v := range out.Breakdown {
		out.Total += v
	}
	return out
}

// trendDirection 判定单周期趋势：价格与 EMA21 的相对位置须与 EMA9/EMA21
// 的排列一致才算有方向，否则视为中性。
func trendDirection(s *indicator.Snapshot) types.Side {
	if s == nil || s.Price <= 0 || s.EMA.Fast <= 0 || s.EMA.Mid <= 0 {
		return types.SideNone
	}
	switch {
	case s.Price > s.EMA.Mid && s.EMA.Fast > s.EMA.Mid:
		return types.SideLong
	case s.Price < s.EMA.Mid && s.EMA.Fast < s.EMA.Mid:
		return types.SideShort
	default:
		return types.SideNone
	}
}

// scoreTrend（≤2）：基准与慢周期趋势各贡献 1 分。
func scoreTrend(dir types.Side, base, slow *indicator.Snapshot) int {
	score := 0
	if trendDirection(base) == dir {
		score++
	}
	if trendDirection(slow) == dir {
		score++
	}
	return score
}

// scoreRSI（≤2）：深度超卖/超买 2 分，一般区域 1 分。
func scoreRSI(dir types.Side, base *indicator.Snapshot) int {
	if base == nil || base.RSI <= 0 {
		return 0
	}
	switch dir {
	case types.SideLong:
		if base.RSI < rsiStrongLong {
			return 2
		}
		if base.RSI < rsiWeakLong {
			return 1
		}
	case types.SideShort:
		if base.RSI > rsiStrongShort {
			return 2
		}
		if base.RSI > rsiWeakShort {
			return 1
		}
	}
	return 0
}

// scoreMACD（≤2）：本周期发生同向金叉/死叉 2 分，否则柱状图同向 1 分。
func scoreMACD(dir types.Side, base *indicator.Snapshot) int {
	if base == nil {
		return 0
	}
	cur, prev := base.MACD, base.PrevMACD
	if cur == (indicator.MACDValue{}) && prev == (indicator.MACDValue{}) {
		return 0
	}
	switch dir {
	case types.SideLong:
		if prev.Line <= prev.Signal && cur.Line > cur.Signal {
			return 2
		}
		if cur.Histogram > 0 {
			return 1
		}
	case types.SideShort:
		if prev.Line >= prev.Signal && cur.Line < cur.Signal {
			return 2
		}
		if cur.Histogram < 0 {
			return 1
		}
	}
	return 0
}

// scoreBollinger（≤1）：贴近同向轨道 1 分；否则挤压状态 1 分。
func scoreBollinger(dir types.Side, base *indicator.Snapshot) int {
	if base == nil || !base.HasBollinger() {
		return 0
	}
	pos := base.Bollinger.Position
	if (dir == types.SideLong && pos < bollingerLowZone) ||
		(dir == types.SideShort && pos > bollingerHighZone) {
		return 1
	}
	if base.Bollinger.Squeeze {
		return 1
	}
	return 0
}

// scoreEMAStack（≤1）：EMA9/21/50 完整同向排列 1 分。
func scoreEMAStack(dir types.Side, base *indicator.Snapshot) int {
	if base == nil || base.EMA.Fast <= 0 || base.EMA.Mid <= 0 || base.EMA.Slow <= 0 {
		return 0
	}
	e := base.EMA
	switch dir {
	case types.SideLong:
		if e.Fast > e.Mid && e.Mid > e.Slow {
			return 1
		}
	case types.SideShort:
		if e.Fast < e.Mid && e.Mid < e.Slow {
			return 1
		}
	}
	return 0
}

// scoreVolume（≤1）：量能放大 1 分。
func scoreVolume(base *indicator.Snapshot) int {
	if base == nil || base.VolumeRatio <= 0 {
		return 0
	}
	if base.VolumeRatio >= volumeActiveRatio {
		return 1
	}
	return 0
}

// scoreTiming（≤1）：快周期方向与交易方向一致 1 分（入场时机确认）。
func scoreTiming(dir types.Side, fast *indicator.Snapshot) int {
	if fast == nil {
		return 0
	}
	if trendDirection(fast) == dir {
		return 1
	}
	return 0
}
