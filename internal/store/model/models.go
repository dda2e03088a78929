package model

import (
	"time"

	"gorm.io/datatypes"
)

// RiskStateModel 单行存储风控治理器状态（固定主键 1）。
type RiskStateModel struct {
	ID          uint   `gorm:"primaryKey"`
	Day         string `gorm:"size:16"`
	DailyPnL    float64
	LockedUntil *time.Time
	PeakBalance float64
	MaxDrawdown float64
	UpdatedAt   time.Time
}

func (RiskStateModel) TableName() string { return "risk_state" }

// TradeOutcomeModel 是胜负窗口的一条记录。
type TradeOutcomeModel struct {
	ID  uint `gorm:"primaryKey;autoIncrement"`
	PnL float64
	Win bool
	At  time.Time `gorm:"index"`
}

func (TradeOutcomeModel) TableName() string { return "trade_outcomes" }

// PositionModel 是持仓检查点：重启后据此恢复监控。
type PositionModel struct {
	ID              string `gorm:"primaryKey;size:40"`
	Symbol          string `gorm:"uniqueIndex;size:32"`
	Side            string `gorm:"size:8"`
	EntryPrice      float64
	Quantity        float64
	InitialQuantity float64
	Leverage        float64
	StopLoss        float64
	TakeProfit      float64
	TrailingActive  bool
	TrailingStop    float64
	PartialClosed   bool
	Score           int
	Status          string `gorm:"size:16"`
	RealizedPnL     float64
	OpenedAt        time.Time
	Meta            datatypes.JSON
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (PositionModel) TableName() string { return "positions" }
