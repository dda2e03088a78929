package risk

import (
	"fmt"
	"math"
)

// PositionSizing 是仓位计算的完整结果。
type PositionSizing struct {
	RiskBudget float64 `json:"risk_budget"` // balance × riskPct
	Notional   float64 `json:"notional"`    // 名义价值
	MarginUsed float64 `json:"margin_used"` // 占用保证金
	Quantity   float64 `json:"quantity"`    // 成交数量（标的计）
}

// ComputeSizing 由余额、入场价与止损价推出仓位。
//
// 核心等式：notional × stopDistancePct = riskBudget，即止损打掉时恰好损失
// 风险预算。保证金超出 balance × maxMarginPct 时按上限回算 notional 与数量，
// 此时实际风险会低于预算——风险只允许向下偏离，保证金上限从不突破。
func ComputeSizing(balance, entry, stopLoss, leverage, riskPct, maxMarginPct float64) (PositionSizing, error) {
	if balance <= 0 {
		return PositionSizing{}, fmt.Errorf("sizing: 余额无效 balance=%.4f", balance)
	}
	if entry <= 0 || stopLoss <= 0 {
		return PositionSizing{}, fmt.Errorf("sizing: 价格无效 entry=%.4f stop=%.4f", entry, stopLoss)
	}
	if leverage < 1 {
		return PositionSizing{}, fmt.Errorf("sizing: 杠杆无效 leverage=%.2f", leverage)
	}

	entryDec := decFromFloat(entry)
	stopDist := decFromFloat(math.Abs(entry - stopLoss)).Div(entryDec)
	if stopDist.IsZero() {
		return PositionSizing{}, fmt.Errorf("sizing: 止损距离为零, 无法定仓")
	}

	riskBudget := decFromFloat(balance).Mul(decFromFloat(riskPct))
	notional := riskBudget.Div(stopDist)
	margin := notional.Div(decFromFloat(leverage))

	marginCap := decFromFloat(balance).Mul(decFromFloat(maxMarginPct))
	if margin.Cmp(marginCap) > 0 {
		margin = marginCap
		notional = margin.Mul(decFromFloat(leverage))
	}

	quantity := notional.Div(entryDec)
	out := PositionSizing{
		RiskBudget: decToFloat(riskBudget),
		Notional:   decToFloat(notional),
		MarginUsed: decToFloat(margin),
		Quantity:   decToFloat(quantity),
	}
	if out.Quantity <= 0 {
		return PositionSizing{}, fmt.Errorf("sizing: 数量计算结果无效 qty=%.8f", out.Quantity)
	}
	return out, nil
}

// RewardRisk 返回止盈距离与止损距离之比；止损距离为零时返回 0。
func RewardRisk(entry, stopLoss, takeProfit float64) float64 {
	risk := math.Abs(entry - stopLoss)
	if risk == 0 {
		return 0
	}
	return math.Abs(takeProfit-entry) / risk
}
