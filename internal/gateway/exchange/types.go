package exchange

import (
	"errors"

	"helmsman/internal/types"
)

// ErrExecutionFailed 标记网关侧下单/平仓失败，调用方据此决定重试策略。
var ErrExecutionFailed = errors.New("execution failed")

// OpenRequest 描述一笔市价开仓。
type OpenRequest struct {
	Symbol   string
	Side     types.Side
	Quantity float64
	Leverage float64
}

// ReduceRequest 描述一笔只减仓的市价单。
type ReduceRequest struct {
	Symbol   string
	Side     types.Side
	Quantity float64
	Reason   types.CloseReason
}

// Fill 是网关返回的成交回执。
type Fill struct {
	OrderID  int64
	Symbol   string
	Price    float64
	Quantity float64
}

// Balance 是账户合约钱包的余额快照。
type Balance struct {
	Total     float64
	Available float64
	Currency  string
}
