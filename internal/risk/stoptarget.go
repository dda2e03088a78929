package risk

import (
	"fmt"
	"math"

	"helmsman/internal/config"
	"helmsman/internal/indicator"
	"helmsman/internal/types"
)

// StopTarget 是初始止损/止盈对，保证盈亏比不低于配置下限。
type StopTarget struct {
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
}

// ComputeStopTarget 同时生成 ATR 距离与百分比距离两组候选：
// 止损取更紧的（min），止盈取更远的（max）。布林带可用时把两者都
// 向带边收一收（留少量缓冲），避免把目标放在明显的反压位之外。
// 若收敛后的盈亏比跌破下限，只向外推止盈补足——止损从不为凑比值而收紧。
func ComputeStopTarget(side types.Side, entry float64, snap *indicator.Snapshot, cfg config.ExitConfig, minRewardRisk float64) (StopTarget, error) {
	if side != types.SideLong && side != types.SideShort {
		return StopTarget{}, fmt.Errorf("stoptarget: 无效方向 %q", side)
	}
	if entry <= 0 {
		return StopTarget{}, fmt.Errorf("stoptarget: 入场价无效 %.4f", entry)
	}

	stopDist := entry * cfg.StopPct
	targetDist := entry * cfg.TargetPct
	if snap != nil && snap.ATR > 0 {
		atrStop := snap.ATR * cfg.StopATRMult
		atrTarget := snap.ATR * cfg.TargetATRMult
		stopDist = math.Min(stopDist, atrStop)
		targetDist = math.Max(targetDist, atrTarget)
	}

	var stop, target float64
	if side == types.SideLong {
		stop = entry - stopDist
		target = entry + targetDist
	} else {
		stop = entry + stopDist
		target = entry - targetDist
	}

	if snap != nil && snap.HasBollinger() {
		buffer := entry * cfg.BollingerBufferPct
		bb := snap.Bollinger
		if side == types.SideLong {
			if lowBound := bb.Lower - buffer; stop < lowBound && lowBound < entry {
				stop = lowBound
			}
			if highBound := bb.Upper + buffer; target > highBound && highBound > entry {
				target = highBound
			}
		} else {
			if highBound := bb.Upper + buffer; stop > highBound && highBound > entry {
				stop = highBound
			}
			if lowBound := bb.Lower - buffer; target < lowBound && lowBound < entry {
				target = lowBound
			}
		}
	}

	if stop <= 0 {
		return StopTarget{}, fmt.Errorf("stoptarget: 止损价无效 %.4f (entry=%.4f)", stop, entry)
	}

	// 盈亏比兜底：只动止盈
	if rr := RewardRisk(entry, stop, target); rr < minRewardRisk {
		need := math.Abs(entry-stop) * minRewardRisk
		if side == types.SideLong {
			target = entry + need
		} else {
			target = entry - need
		}
	}
	if target <= 0 {
		return StopTarget{}, fmt.Errorf("stoptarget: 止盈价无效 %.4f (entry=%.4f)", target, entry)
	}

	return StopTarget{StopLoss: stop, TakeProfit: target}, nil
}
