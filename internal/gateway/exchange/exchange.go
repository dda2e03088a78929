package exchange

import (
	"context"

	"helmsman/internal/types"
)

// Exchange 是执行网关抽象：开仓、减仓、平仓、询价、查余额。
// 实现方需对每次调用施加超时，并保证 reduce/close 不会反向开仓。
type Exchange interface {
	Name() string

	OpenPosition(ctx context.Context, req OpenRequest) (*Fill, error)

	ReducePosition(ctx context.Context, req ReduceRequest) (*Fill, error)

	ClosePosition(ctx context.Context, symbol string, side types.Side, quantity float64, reason types.CloseReason) (*Fill, error)

	LatestPrice(ctx context.Context, symbol string) (float64, error)

	GetBalance(ctx context.Context) (Balance, error)
}
