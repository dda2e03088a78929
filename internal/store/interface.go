package store

import (
	"context"

	"helmsman/internal/position"
	"helmsman/internal/risk"
)

// Store 是引擎的持久化入口：风控状态 + 持仓检查点。
// 持仓检查点只为重启续管服务——恢复后继续监控，绝不重复开仓。
type Store interface {
	risk.StateStore

	// SavePosition 写入/更新持仓检查点。meta 为开仓时的决策附注
	// （杠杆档位、仓位计算、评分明细等），更新时传 nil 保留原值。
	SavePosition(ctx context.Context, p *position.Position, meta map[string]any) error
	DeletePosition(ctx context.Context, symbol string) error
	ListOpenPositions(ctx context.Context) ([]*position.Position, error)

	Close() error
}
