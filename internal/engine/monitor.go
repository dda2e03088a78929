package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"helmsman/internal/gateway/exchange"
	"helmsman/internal/logger"
	"helmsman/internal/pkg/trading"
	"helmsman/internal/position"
	"helmsman/internal/risk"
	"helmsman/internal/types"
)

// monitorPass 对每个持仓并发执行一轮检查。不同仓位互不相关，
// 单个仓位内部的读改写都在各自的协程里顺序完成。
func (e *Engine) monitorPass(ctx context.Context) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	positions := e.book.List()
	if len(positions) == 0 {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range positions {
		g.Go(func() error {
			e.monitorOne(gctx, p)
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Engine) monitorOne(ctx context.Context, p *position.Position) {
	// 上一轮平仓没得到确认的仓位优先重试，直到网关确认为止
	if p.Status == position.StatusClosing {
		_ = e.attemptClose(ctx, p, p.CloseReason)
		return
	}

	price, err := e.gateway.LatestPrice(ctx, p.Symbol)
	if err != nil || price <= 0 {
		logger.Warnf("monitor: %s 取价失败，本轮跳过: %v", p.Symbol, err)
		return
	}
	p.CurrentPrice = price
	params := e.paramsFor(p.Symbol)

	// 离场判定：固定止损 > 止盈 > 移动止损
	switch {
	case risk.StopBreached(p.Side, price, p.StopLoss):
		_ = e.attemptClose(ctx, p, types.CloseReasonStopLoss)
		return
	case risk.TargetReached(p.Side, price, p.TakeProfit):
		_ = e.attemptClose(ctx, p, types.CloseReasonTakeProfit)
		return
	case p.TrailingActive && p.TrailingStop > 0 && risk.StopBreached(p.Side, price, p.TrailingStop):
		_ = e.attemptClose(ctx, p, types.CloseReasonTrailingStop)
		return
	}

	dirty := false
	pnlPct := p.PnLPct(price)

	// 移动止损：达到激活阈值后只向有利方向棘轮
	if !p.TrailingActive && params.TrailingActivatePct > 0 && pnlPct >= params.TrailingActivatePct {
		p.TrailingActive = true
		p.TrailingStop = risk.TrailingStopFor(p.Side, price, params.TrailingDistancePct)
		dirty = true
		logger.Infof("monitor: %s 移动止损激活 anchor=%.6f stop=%.6f", p.Symbol, price, p.TrailingStop)
		e.emit(Event{Type: EventTrailingActivated, Position: p.Snapshot(e.nowFn()), At: e.nowFn()})
	} else if p.TrailingActive {
		candidate := risk.TrailingStopFor(p.Side, price, params.TrailingDistancePct)
		if p.RatchetTrailing(candidate) {
			dirty = true
		}
	}

	// 一次性分批止盈，之后止损移至保本
	if !p.PartialClosed && params.PartialClosePct > 0 && pnlPct >= params.PartialClosePct {
		if e.partialClose(ctx, p, params.PartialCloseRatio) {
			dirty = true
		}
	}

	if dirty {
		if err := e.store.SavePosition(ctx, p, nil); err != nil {
			logger.Errorf("monitor: %s 检查点更新失败: %v", p.Symbol, err)
		}
	}
}

// partialClose 按初始仓位比例减仓一次，成功后把止损棘轮到保本位。
func (e *Engine) partialClose(ctx context.Context, p *position.Position, ratio float64) bool {
	qty := trading.CalcReduceAmount(p.Quantity, p.InitialQuantity, ratio, true)
	if qty <= 0 {
		return false
	}
	fill, err := e.gateway.ReducePosition(ctx, exchange.ReduceRequest{
		Symbol:   p.Symbol,
		Side:     p.Side,
		Quantity: qty,
		Reason:   types.CloseReasonPartialClose,
	})
	if err != nil {
		logger.Warnf("monitor: %s 分批止盈失败，下一轮重试: %v", p.Symbol, err)
		return false
	}
	filled := fill.Quantity
	if filled <= 0 {
		filled = qty
	}
	exitPrice := fill.Price
	if exitPrice <= 0 {
		exitPrice = p.CurrentPrice
	}
	legPnL := (exitPrice - p.EntryPrice) * p.Side.Sign() * filled
	p.Reduce(filled)
	p.PartialClosed = true
	p.RealizedPnL += legPnL
	p.RatchetStop(p.EntryPrice) // 保本
	logger.Infof("monitor: %s 分批止盈 qty=%.6f price=%.6f pnl=%.4f 止损=%.6f",
		p.Symbol, filled, exitPrice, legPnL, p.StopLoss)
	e.emit(Event{Type: EventPartialClosed, Position: p.Snapshot(e.nowFn()), PnL: legPnL, At: e.nowFn()})
	return true
}

// attemptClose 尝试平掉整个仓位。网关失败时仓位保持 Closing 状态留在簿内，
// 由监控轮继续重试，直到确认成交才出簿并上报治理器。
func (e *Engine) attemptClose(ctx context.Context, p *position.Position, reason types.CloseReason) error {
	p.Status = position.StatusClosing
	p.CloseReason = reason

	fill, err := e.gateway.ClosePosition(ctx, p.Symbol, p.Side, p.Quantity, reason)
	if err != nil {
		logger.Warnf("monitor: %s 平仓未确认 (reason=%s)，下一轮重试: %v", p.Symbol, reason, err)
		if saveErr := e.store.SavePosition(ctx, p, nil); saveErr != nil {
			logger.Errorf("monitor: %s Closing 状态落库失败: %v", p.Symbol, saveErr)
		}
		return err
	}

	exitPrice := fill.Price
	if exitPrice <= 0 {
		exitPrice = p.CurrentPrice
	}
	legPnL := p.UnrealizedPnL(exitPrice)
	p.RealizedPnL += legPnL
	p.Status = position.StatusClosed

	e.book.Remove(p.Symbol)
	if err := e.store.DeletePosition(ctx, p.Symbol); err != nil {
		logger.Errorf("monitor: %s 检查点删除失败: %v", p.Symbol, err)
	}
	bal := e.lastBalance()
	e.governor.RecordOutcome(ctx, p.RealizedPnL, bal.Total)
	logger.Infof("monitor: 平仓 %s %s reason=%s exit=%.6f pnl=%.4f", p.Symbol, p.Side, reason, exitPrice, p.RealizedPnL)
	e.emit(Event{Type: EventClosed, Position: p.Snapshot(e.nowFn()), Reason: reason, PnL: p.RealizedPnL, At: e.nowFn()})
	return nil
}
