package market

import "context"

// Source 提供评分所需的历史K线与最新价。
// 实现方需保证每次调用受调用方传入的 ctx 超时约束，不做内部无限重试。
type Source interface {
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)

	LatestPrice(ctx context.Context, symbol string) (float64, error)
}
