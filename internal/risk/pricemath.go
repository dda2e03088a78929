package risk

import (
	"math"

	"github.com/shopspring/decimal"

	"helmsman/internal/types"
)

// 价格比较统一走 decimal，避免 float 直接比较在边界价位上抖动。

var (
	decOne     = decimal.NewFromInt(1)
	decimalEps = decimal.NewFromFloat(1e-8)
)

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}

func decimalCompare(a, b float64) int {
	return decFromFloat(a).Cmp(decFromFloat(b))
}

func decimalLTE(a, b float64) bool { return decimalCompare(a, b) <= 0 }
func decimalGTE(a, b float64) bool { return decimalCompare(a, b) >= 0 }

// RelativePrice 返回从 base 出发按方向偏移 pct 的价格（多头向上为正）。
func RelativePrice(base, pct float64, side types.Side) float64 {
	if base <= 0 {
		return 0
	}
	pctDec := decFromFloat(pct)
	var factor decimal.Decimal
	switch side {
	case types.SideShort:
		factor = decOne.Sub(pctDec)
	default:
		factor = decOne.Add(pctDec)
	}
	return decToFloat(decFromFloat(base).Mul(factor))
}

// StopBreached 报告价格是否触及止损（含等于）。
func StopBreached(side types.Side, price, stop float64) bool {
	if stop <= 0 || price <= 0 {
		return false
	}
	switch side {
	case types.SideShort:
		return decimalGTE(price, stop)
	default:
		return decimalLTE(price, stop)
	}
}

// TargetReached 报告价格是否触及止盈（含等于）。
func TargetReached(side types.Side, price, target float64) bool {
	if target <= 0 || price <= 0 {
		return false
	}
	switch side {
	case types.SideShort:
		return decimalLTE(price, target)
	default:
		return decimalGTE(price, target)
	}
}

// TrailingStopFor 由锚点价与距离比例推出移动止损价。
func TrailingStopFor(side types.Side, anchor, pct float64) float64 {
	if anchor <= 0 || pct <= 0 {
		return 0
	}
	pctDec := decFromFloat(pct)
	var factor decimal.Decimal
	switch side {
	case types.SideShort:
		factor = decOne.Add(pctDec)
	default:
		factor = decOne.Sub(pctDec)
	}
	return decToFloat(decFromFloat(anchor).Mul(factor))
}

// StopImproves 报告 candidate 是否严格优于 current（多头更高 / 空头更低）。
// 止损只允许向有利方向收紧，放宽一律拒绝。
func StopImproves(side types.Side, candidate, current float64) bool {
	if candidate <= 0 {
		return false
	}
	if current <= 0 {
		return true
	}
	cand := decFromFloat(candidate)
	curr := decFromFloat(current)
	switch side {
	case types.SideShort:
		return cand.Cmp(curr.Sub(decimalEps)) < 0
	default:
		return cand.Cmp(curr.Add(decimalEps)) > 0
	}
}
