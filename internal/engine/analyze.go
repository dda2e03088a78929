package engine

import (
	"context"
	"errors"
	"time"

	"helmsman/internal/risk"
	"helmsman/internal/signal"
	"helmsman/internal/types"
)

// AnalyzeReport 是一次按需分析的完整输出：评分、杠杆、止损止盈、
// 仓位与准入判定。纯演算，不下单不写状态。
type AnalyzeReport struct {
	Symbol      string                 `json:"symbol"`
	Score       signal.Score           `json:"score"`
	Direction   types.Side             `json:"direction"`
	Tradeable   bool                   `json:"tradeable"`
	Leverage    *risk.LeverageDecision `json:"leverage,omitempty"`
	StopTarget  *risk.StopTarget       `json:"stop_target,omitempty"`
	Sizing      *risk.PositionSizing   `json:"sizing,omitempty"`
	RewardRisk  float64                `json:"reward_risk,omitempty"`
	KellySize   float64                `json:"kelly_size,omitempty"`
	Admission   string                 `json:"admission"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// Analyze 对单个币种跑一遍完整决策链路的演算版本。
func (e *Engine) Analyze(ctx context.Context, symbol string) (*AnalyzeReport, error) {
	ev, err := e.evaluateSymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	params := e.paramsFor(symbol)
	report := &AnalyzeReport{
		Symbol:      symbol,
		Score:       ev.score,
		Direction:   ev.score.Direction,
		Tradeable:   ev.score.Direction.Sign() != 0 && ev.score.Total >= params.MinScore,
		Admission:   "not_evaluated",
		GeneratedAt: e.nowFn(),
	}
	if ev.score.Direction.Sign() == 0 || ev.base == nil || ev.base.Price <= 0 {
		report.Admission = "no_direction"
		return report, nil
	}

	lev := risk.DetermineLeverage(ev.score.Total, ev.base.ATRPct, e.cfg.Risk.Leverage)
	report.Leverage = &lev
	st, err := risk.ComputeStopTarget(ev.score.Direction, ev.base.Price, ev.base, e.cfg.Exit, e.cfg.Risk.MinRewardRisk)
	if err != nil {
		return nil, err
	}
	report.StopTarget = &st
	report.RewardRisk = risk.RewardRisk(ev.base.Price, st.StopLoss, st.TakeProfit)

	bal := e.lastBalance()
	if bal.Total <= 0 {
		bal = e.refreshBalance(ctx)
	}
	if bal.Total > 0 {
		sizing, err := risk.ComputeSizing(bal.Total, ev.base.Price, st.StopLoss, lev.Leverage, params.RiskPct, e.cfg.Risk.MaxMarginPct)
		if err != nil {
			return nil, err
		}
		report.Sizing = &sizing
		report.KellySize = e.governor.KellyAdvisorySize(bal.Total)
		admitErr := e.governor.CanAdmit(ctx, risk.AdmissionContext{
			Symbol:         symbol,
			Balance:        bal.Total,
			MarginRequired: sizing.MarginUsed,
			RewardRisk:     report.RewardRisk,
		})
		switch {
		case admitErr == nil:
			report.Admission = "admit"
		case errors.Is(admitErr, risk.ErrAdmissionDenied):
			report.Admission = admitErr.Error()
		default:
			return nil, admitErr
		}
	} else {
		report.Admission = "no_balance"
	}
	return report, nil
}
