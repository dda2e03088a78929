package risk

import (
	"helmsman/internal/config"
)

// 杠杆档位标签。
const (
	LeverageModeBoosted = "boosted"
	LeverageModeNormal  = "normal"
	LeverageModeFloor   = "floor"
)

// LeverageDecision 是杠杆决策表的输出。
type LeverageDecision struct {
	Leverage float64 `json:"leverage"`
	Mode     string  `json:"mode"`
}

// DetermineLeverage 按固定决策表选档：
//   - 高波动（ATR% > 3）无条件落到最低档；
//   - 满分信号且低波动（score ≥ 9 且 ATR% < 2）才允许加速档；
//   - 其余情况一律默认档。
//
// 结果始终被夹在 [min, max] 之内。
func DetermineLeverage(score int, atrPct float64, cfg config.LeverageConfig) LeverageDecision {
	switch {
	case atrPct > 3:
		return LeverageDecision{Leverage: clampLeverage(cfg.Min, cfg), Mode: LeverageModeFloor}
	case score >= 9 && atrPct < 2:
		return LeverageDecision{Leverage: clampLeverage(cfg.Boosted, cfg), Mode: LeverageModeBoosted}
	default:
		return LeverageDecision{Leverage: clampLeverage(cfg.Default, cfg), Mode: LeverageModeNormal}
	}
}

func clampLeverage(v float64, cfg config.LeverageConfig) float64 {
	if v < cfg.Min {
		return cfg.Min
	}
	if v > cfg.Max {
		return cfg.Max
	}
	return v
}
