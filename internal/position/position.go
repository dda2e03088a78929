package position

import (
	"time"

	"github.com/google/uuid"

	"helmsman/internal/risk"
	"helmsman/internal/types"
)

// Status 是持仓生命周期状态。Scanning 不建模为状态：无持仓即扫描。
type Status string

const (
	StatusOpening Status = "opening"
	StatusOpen    Status = "open"
	StatusClosing Status = "closing"
	StatusClosed  Status = "closed"
)

// Position 是单标的持仓聚合，一个 symbol 至多一个。
// 仅生命周期管理器持有写权；其余组件通过 Snapshot 读取。
type Position struct {
	ID              string
	Symbol          string
	Side            types.Side
	EntryPrice      float64
	CurrentPrice    float64
	Quantity        float64 // 持仓期间单调不增
	InitialQuantity float64
	Leverage        float64
	StopLoss        float64 // 只向有利方向收紧
	TakeProfit      float64
	TrailingActive  bool
	TrailingStop    float64
	PartialClosed   bool // 一次性标志
	Score           int
	Status          Status
	CloseReason     types.CloseReason
	RealizedPnL     float64
	OpenedAt        time.Time
}

// New 在开仓成交后构建聚合。
func New(symbol string, side types.Side, entry, qty, leverage, stopLoss, takeProfit float64, score int, openedAt time.Time) *Position {
	return &Position{
		ID:              uuid.NewString(),
		Symbol:          symbol,
		Side:            side,
		EntryPrice:      entry,
		CurrentPrice:    entry,
		Quantity:        qty,
		InitialQuantity: qty,
		Leverage:        leverage,
		StopLoss:        stopLoss,
		TakeProfit:      takeProfit,
		Score:           score,
		Status:          StatusOpen,
		OpenedAt:        openedAt,
	}
}

// UnrealizedPnL 计算未实现盈亏（计价货币）。
func (p *Position) UnrealizedPnL(price float64) float64 {
	if price <= 0 || p.EntryPrice <= 0 {
		return 0
	}
	return p.Side.Sign() * (price - p.EntryPrice) * p.Quantity
}

// PnLPct 返回按杠杆放大的收益率（0.05 = 5%）。
func (p *Position) PnLPct(price float64) float64 {
	if price <= 0 || p.EntryPrice <= 0 {
		return 0
	}
	raw := p.Side.Sign() * (price - p.EntryPrice) / p.EntryPrice
	return raw * p.Leverage
}

// RatchetStop 尝试把止损收紧到 candidate。只接受更有利的价位，
// 放宽方向的候选一律丢弃。返回是否发生了更新。
func (p *Position) RatchetStop(candidate float64) bool {
	if !risk.StopImproves(p.Side, candidate, p.StopLoss) {
		return false
	}
	p.StopLoss = candidate
	return true
}

// RatchetTrailing 同理收紧移动止损（只向有利方向）。
func (p *Position) RatchetTrailing(candidate float64) bool {
	if !risk.StopImproves(p.Side, candidate, p.TrailingStop) {
		return false
	}
	p.TrailingStop = candidate
	return true
}

// Reduce 按已成交的减仓量缩减持仓。数量只减不增。
func (p *Position) Reduce(filledQty float64) {
	if filledQty <= 0 {
		return
	}
	p.Quantity -= filledQty
	if p.Quantity < 0 {
		p.Quantity = 0
	}
}

// Snapshot 产出只读快照。
func (p *Position) Snapshot(now time.Time) types.PositionSnapshot {
	snap := types.PositionSnapshot{
		ID:              p.ID,
		Symbol:          p.Symbol,
		Side:            p.Side,
		EntryPrice:      p.EntryPrice,
		CurrentPrice:    p.CurrentPrice,
		Quantity:        p.Quantity,
		InitialQuantity: p.InitialQuantity,
		Leverage:        p.Leverage,
		StopLoss:        p.StopLoss,
		TakeProfit:      p.TakeProfit,
		TrailingActive:  p.TrailingActive,
		TrailingStop:    p.TrailingStop,
		PartialClosed:   p.PartialClosed,
		Score:           p.Score,
		RealizedPn:      p.RealizedPnL,
		Status:          string(p.Status),
		OpenedAt:        p.OpenedAt,
	}
	if p.CurrentPrice > 0 {
		snap.UnrealizedPn = p.UnrealizedPnL(p.CurrentPrice)
		snap.UnrealizedPnPct = p.PnLPct(p.CurrentPrice)
	}
	if !p.OpenedAt.IsZero() {
		snap.HoldingMs = now.Sub(p.OpenedAt).Milliseconds()
	}
	return snap
}
