package engine

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"helmsman/internal/gateway/exchange"
	"helmsman/internal/indicator"
	"helmsman/internal/logger"
	"helmsman/internal/pkg/circuit"
	"helmsman/internal/position"
	"helmsman/internal/risk"
	"helmsman/internal/signal"
)

// evaluation 是一个候选币种的只读评估结果。
type evaluation struct {
	symbol string
	score  signal.Score
	base   *indicator.Snapshot
}

// scanPass 执行一轮扫描：并发评估无仓位的币种，然后串行走准入与开仓。
// 评估阶段只读，准入与仓位簿写入全部在单协程内完成。
func (e *Engine) scanPass(ctx context.Context) {
	e.mu.Lock()
	halted := e.halted
	e.mu.Unlock()
	if halted {
		return
	}
	if e.breaker != nil && e.breaker.CurrentState() == circuit.StateOpen {
		logger.Warnf("scan: 网关熔断中，本轮跳过")
		return
	}
	if e.governor.Locked() {
		logger.Debugf("scan: 风控锁定中，本轮跳过")
		return
	}
	if e.book.Len() >= e.cfg.Scan.MaxOpenPositions {
		logger.Debugf("scan: 持仓已达上限 %d，本轮跳过", e.cfg.Scan.MaxOpenPositions)
		return
	}
	bal := e.refreshBalance(ctx)
	if bal.Total <= 0 {
		logger.Warnf("scan: 无可用余额快照，本轮跳过")
		return
	}

	candidates := make([]string, 0, len(e.cfg.Scan.Symbols))
	for _, sym := range e.cfg.Scan.Symbols {
		if !e.book.Has(sym) {
			candidates = append(candidates, sym)
		}
	}
	if len(candidates) == 0 {
		return
	}

	evals := make([]*evaluation, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	for i, sym := range candidates {
		g.Go(func() error {
			ev, err := e.evaluateSymbol(gctx, sym)
			if err != nil {
				logger.Warnf("scan: 评估失败 symbol=%s: %v", sym, err)
				return nil // 单币种失败不拖垮整轮
			}
			evals[i] = ev
			return nil
		})
	}
	_ = g.Wait()

	for _, ev := range evals {
		if ev == nil {
			continue
		}
		e.admitAndOpen(ctx, ev, bal.Total)
	}
}

// evaluateSymbol 拉取三个周期的快照并打分。纯读操作。
func (e *Engine) evaluateSymbol(ctx context.Context, symbol string) (*evaluation, error) {
	var fast, base, slow *indicator.Snapshot
	var err error
	if fast, err = e.provider.SnapshotFor(ctx, symbol, e.cfg.Scan.FastInterval); err != nil {
		if !errors.Is(err, indicator.ErrInsufficientData) {
			return nil, err
		}
		fast = nil
	}
	if base, err = e.provider.SnapshotFor(ctx, symbol, e.cfg.Scan.BaseInterval); err != nil {
		return nil, err
	}
	if slow, err = e.provider.SnapshotFor(ctx, symbol, e.cfg.Scan.SlowInterval); err != nil {
		if !errors.Is(err, indicator.ErrInsufficientData) {
			return nil, err
		}
		slow = nil
	}
	score := e.scorer.Evaluate(symbol, fast, base, slow)
	return &evaluation{symbol: symbol, score: score, base: base}, nil
}

// admitAndOpen 对单个候选执行门槛、杠杆、止损止盈、仓位、准入、下单的完整链路。
// 任何一步失败都只记日志放弃本轮，下一轮扫描自然重试。
func (e *Engine) admitAndOpen(ctx context.Context, ev *evaluation, balance float64) {
	params := e.paramsFor(ev.symbol)
	score := ev.score
	if score.Direction.Sign() == 0 || score.Total < params.MinScore {
		logger.Debugf("scan: %s 评分 %d/%d 方向=%s，不开仓", ev.symbol, score.Total, params.MinScore, score.Direction)
		return
	}
	if e.book.Len() >= e.cfg.Scan.MaxOpenPositions {
		return
	}
	if ev.base == nil || ev.base.Price <= 0 {
		return
	}

	lev := risk.DetermineLeverage(score.Total, ev.base.ATRPct, e.cfg.Risk.Leverage)
	st, err := risk.ComputeStopTarget(score.Direction, ev.base.Price, ev.base, e.cfg.Exit, e.cfg.Risk.MinRewardRisk)
	if err != nil {
		logger.Warnf("scan: %s 止损止盈计算失败: %v", ev.symbol, err)
		return
	}
	sizing, err := risk.ComputeSizing(balance, ev.base.Price, st.StopLoss, lev.Leverage, params.RiskPct, e.cfg.Risk.MaxMarginPct)
	if err != nil {
		logger.Warnf("scan: %s 仓位计算失败: %v", ev.symbol, err)
		return
	}
	rr := risk.RewardRisk(ev.base.Price, st.StopLoss, st.TakeProfit)

	if err := e.governor.CanAdmit(ctx, risk.AdmissionContext{
		Symbol:         ev.symbol,
		Balance:        balance,
		MarginRequired: sizing.MarginUsed,
		RewardRisk:     rr,
	}); err != nil {
		logger.Infof("scan: %s 准入拒绝: %v", ev.symbol, err)
		return
	}

	fill, err := e.gateway.OpenPosition(ctx, exchange.OpenRequest{
		Symbol:   ev.symbol,
		Side:     score.Direction,
		Quantity: sizing.Quantity,
		Leverage: lev.Leverage,
	})
	if err != nil {
		logger.Warnf("scan: %s 开仓失败，下一轮重试: %v", ev.symbol, err)
		return
	}

	entry := fill.Price
	if entry <= 0 {
		entry = ev.base.Price
	}
	qty := fill.Quantity
	if qty <= 0 {
		qty = sizing.Quantity
	}
	pos := position.New(ev.symbol, score.Direction, entry, qty, lev.Leverage, st.StopLoss, st.TakeProfit, score.Total, e.nowFn())

	// 入簿后监控轮随时可能接手该仓位，登记与快照须在 opMu 下完成
	e.opMu.Lock()
	defer e.opMu.Unlock()
	if !e.book.Put(pos) {
		// 理论上不可达：同一币种的候选在本轮一开始就被过滤了
		logger.Errorf("scan: %s 仓位簿已存在同币种仓位，放弃登记", ev.symbol)
		return
	}
	meta := map[string]any{
		"score":         score.Total,
		"breakdown":     score.Breakdown,
		"leverage_mode": lev.Mode,
		"risk_budget":   sizing.RiskBudget,
		"margin_used":   sizing.MarginUsed,
		"reward_risk":   rr,
		"kelly_size":    e.governor.KellyAdvisorySize(balance),
	}
	if err := e.store.SavePosition(ctx, pos, meta); err != nil {
		logger.Errorf("scan: %s 检查点落库失败: %v", ev.symbol, err)
	}
	logger.Infof("scan: 开仓 %s %s score=%d lev=%.1f(%s) entry=%.6f stop=%.6f target=%.6f qty=%.6f",
		ev.symbol, score.Direction, score.Total, lev.Leverage, lev.Mode, entry, st.StopLoss, st.TakeProfit, qty)
	e.emit(Event{Type: EventOpened, Position: pos.Snapshot(e.nowFn()), At: e.nowFn()})
}
