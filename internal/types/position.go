package types

import (
	"time"
)

// Side 表示持仓方向。
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
	SideNone  Side = ""
)

// Sign 返回方向系数：多头 +1，空头 -1，无方向 0。
func (s Side) Sign() float64 {
	switch s {
	case SideLong:
		return 1
	case SideShort:
		return -1
	default:
		return 0
	}
}

// Opposite 返回对侧方向。
func (s Side) Opposite() Side {
	switch s {
	case SideLong:
		return SideShort
	case SideShort:
		return SideLong
	default:
		return SideNone
	}
}

// CloseReason 标记平仓触发来源。
type CloseReason string

const (
	CloseReasonStopLoss     CloseReason = "STOP_LOSS"
	CloseReasonTakeProfit   CloseReason = "TAKE_PROFIT"
	CloseReasonTrailingStop CloseReason = "TRAILING_STOP"
	CloseReasonPartialClose CloseReason = "PARTIAL_CLOSE"
	CloseReasonManual       CloseReason = "MANUAL"
	CloseReasonCloseAll     CloseReason = "CLOSE_ALL"
)

// PositionSnapshot 是对外暴露的持仓只读快照（状态接口与通知使用）。
type PositionSnapshot struct {
	ID              string    `json:"id"`
	Symbol          string    `json:"symbol"`
	Side            Side      `json:"side"`
	EntryPrice      float64   `json:"entry_price"`
	CurrentPrice    float64   `json:"current_price,omitempty"`
	Quantity        float64   `json:"quantity"`
	InitialQuantity float64   `json:"initial_quantity,omitempty"`
	Leverage        float64   `json:"leverage"`
	StopLoss        float64   `json:"stop_loss"`
	TakeProfit      float64   `json:"take_profit"`
	TrailingActive  bool      `json:"trailing_active"`
	TrailingStop    float64   `json:"trailing_stop,omitempty"`
	PartialClosed   bool      `json:"partial_closed"`
	Score           int       `json:"score"`
	UnrealizedPn    float64   `json:"unrealized_pn"`
	UnrealizedPnPct float64   `json:"unrealized_pn_pct"`
	RealizedPn      float64   `json:"realized_pn"`
	Status          string    `json:"status"`
	OpenedAt        time.Time `json:"opened_at"`
	HoldingMs       int64     `json:"holding_ms"`
}

// AccountSnapshot 描述最近一次成功刷新的账户余额。
type AccountSnapshot struct {
	Total     float64   `json:"total"`
	Available float64   `json:"available"`
	Currency  string    `json:"currency"`
	UpdatedAt time.Time `json:"updated_at"`
	Stale     bool      `json:"stale"`
}
