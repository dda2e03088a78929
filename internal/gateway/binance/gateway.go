package binance

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"helmsman/internal/gateway/exchange"
	"helmsman/internal/logger"
	"helmsman/internal/market"
	"helmsman/internal/pkg/circuit"
	"helmsman/internal/pkg/convert"
	"helmsman/internal/types"
)

const (
	maxHistoryLimit = 1500
	balanceAsset    = "USDT"
)

// Gateway 基于 go-binance SDK 的 USD-M 合约执行网关，
// 同时实现 market.Source（历史K线 + 最新标记价）。
// 所有调用都带超时并经过失败计数熔断器；平仓路径不受熔断拦截，
// 避免仓位因网关抖动被放弃。
type Gateway struct {
	cfg     Config
	client  *futures.Client
	breaker *circuit.Breaker

	levMu       sync.Mutex
	leverageSet map[string]int
}

func New(cfg Config) *Gateway {
	final := cfg.withDefaults()
	client := futures.NewClient(final.APIKey, final.APISecret)
	client.BaseURL = final.RESTBaseURL
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Gateway{
		cfg:         final,
		client:      client,
		breaker:     circuit.NewBreaker("binance", final.BreakerThreshold, final.BreakerCooldown),
		leverageSet: make(map[string]int),
	}
}

func (g *Gateway) Name() string { return "binance" }

// Breaker 暴露熔断器，引擎据此在 OPEN 期间跳过扫描准入。
func (g *Gateway) Breaker() *circuit.Breaker { return g.breaker }

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.cfg.HTTPTimeout)
}

// guard 包裹一次可熔断的调用。OPEN 状态直接快速失败。
func (g *Gateway) guard(fn func() error) error {
	if !g.breaker.Allow() {
		return fmt.Errorf("binance breaker %s: %w", g.breaker.CurrentState(), exchange.ErrExecutionFailed)
	}
	if err := fn(); err != nil {
		g.breaker.RecordFailure()
		return err
	}
	g.breaker.RecordSuccess()
	return nil
}

// record 只记录调用结果，不做熔断拦截（平仓路径）。
func (g *Gateway) record(fn func() error) error {
	if err := fn(); err != nil {
		g.breaker.RecordFailure()
		return err
	}
	g.breaker.RecordSuccess()
	return nil
}

func (g *Gateway) ensureLeverage(ctx context.Context, symbol string, leverage float64) error {
	lev := int(math.Round(leverage))
	if lev < 1 {
		lev = 1
	}
	g.levMu.Lock()
	already := g.leverageSet[symbol] == lev
	g.levMu.Unlock()
	if already {
		return nil
	}
	_, err := g.client.NewChangeLeverageService().
		Symbol(symbol).Leverage(lev).Do(ctx)
	if err != nil {
		return fmt.Errorf("set leverage %s x%d: %w", symbol, lev, err)
	}
	g.levMu.Lock()
	g.leverageSet[symbol] = lev
	g.levMu.Unlock()
	return nil
}

func orderSide(side types.Side, reduce bool) futures.SideType {
	entry := side
	if reduce {
		entry = side.Opposite()
	}
	if entry == types.SideLong {
		return futures.SideTypeBuy
	}
	return futures.SideTypeSell
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func (g *Gateway) OpenPosition(ctx context.Context, req exchange.OpenRequest) (*exchange.Fill, error) {
	if req.Symbol == "" || req.Quantity <= 0 {
		return nil, fmt.Errorf("open %s: 无效的下单参数: %w", req.Symbol, exchange.ErrExecutionFailed)
	}
	var fill *exchange.Fill
	err := g.guard(func() error {
		callCtx, cancel := g.withTimeout(ctx)
		defer cancel()
		if err := g.ensureLeverage(callCtx, req.Symbol, req.Leverage); err != nil {
			return err
		}
		resp, err := g.client.NewCreateOrderService().
			Symbol(req.Symbol).
			Side(orderSide(req.Side, false)).
			Type(futures.OrderTypeMarket).
			Quantity(formatQuantity(req.Quantity)).
			NewOrderResponseType(futures.NewOrderRespTypeRESULT).
			Do(callCtx)
		if err != nil {
			return fmt.Errorf("open %s: %w", req.Symbol, err)
		}
		fill = fillFromOrder(req.Symbol, resp)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", exchange.ErrExecutionFailed, err)
	}
	logger.Infof("[binance] 开仓成交 %s %s qty=%s price=%.6f", req.Symbol, req.Side, formatQuantity(fill.Quantity), fill.Price)
	return fill, nil
}

func (g *Gateway) ReducePosition(ctx context.Context, req exchange.ReduceRequest) (*exchange.Fill, error) {
	return g.reduceOnly(ctx, req.Symbol, req.Side, req.Quantity, req.Reason)
}

func (g *Gateway) ClosePosition(ctx context.Context, symbol string, side types.Side, quantity float64, reason types.CloseReason) (*exchange.Fill, error) {
	return g.reduceOnly(ctx, symbol, side, quantity, reason)
}

// reduceOnly 以 reduceOnly 市价单减仓/平仓，绝不反向开仓。
func (g *Gateway) reduceOnly(ctx context.Context, symbol string, side types.Side, quantity float64, reason types.CloseReason) (*exchange.Fill, error) {
	if symbol == "" || quantity <= 0 {
		return nil, fmt.Errorf("reduce %s: 无效的减仓参数: %w", symbol, exchange.ErrExecutionFailed)
	}
	var fill *exchange.Fill
	err := g.record(func() error {
		callCtx, cancel := g.withTimeout(ctx)
		defer cancel()
		resp, err := g.client.NewCreateOrderService().
			Symbol(symbol).
			Side(orderSide(side, true)).
			Type(futures.OrderTypeMarket).
			Quantity(formatQuantity(quantity)).
			ReduceOnly(true).
			NewOrderResponseType(futures.NewOrderRespTypeRESULT).
			Do(callCtx)
		if err != nil {
			return fmt.Errorf("reduce %s: %w", symbol, err)
		}
		fill = fillFromOrder(symbol, resp)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", exchange.ErrExecutionFailed, err)
	}
	logger.Infof("[binance] 减仓成交 %s %s qty=%s price=%.6f reason=%s", symbol, side, formatQuantity(fill.Quantity), fill.Price, reason)
	return fill, nil
}

func fillFromOrder(symbol string, resp *futures.CreateOrderResponse) *exchange.Fill {
	if resp == nil {
		return &exchange.Fill{Symbol: symbol}
	}
	price, _ := convert.ParseFloat(resp.AvgPrice)
	qty, _ := convert.ParseFloat(resp.ExecutedQuantity)
	return &exchange.Fill{
		OrderID:  resp.OrderID,
		Symbol:   symbol,
		Price:    price,
		Quantity: qty,
	}
}

// LatestPrice 返回标记价，用于监控止损/止盈判定。
func (g *Gateway) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	var price float64
	err := g.guard(func() error {
		callCtx, cancel := g.withTimeout(ctx)
		defer cancel()
		idx, err := g.client.NewPremiumIndexService().Symbol(symbol).Do(callCtx)
		if err != nil {
			return fmt.Errorf("premium index %s: %w", symbol, err)
		}
		for _, it := range idx {
			if it == nil || it.Symbol != symbol {
				continue
			}
			p, ok := convert.ParseFloat(it.MarkPrice)
			if !ok || p <= 0 {
				return fmt.Errorf("premium index %s: 无效标记价 %q", symbol, it.MarkPrice)
			}
			price = p
			return nil
		}
		return fmt.Errorf("premium index %s: 响应缺少该交易对", symbol)
	})
	if err != nil {
		return 0, err
	}
	return price, nil
}

func (g *Gateway) GetBalance(ctx context.Context) (exchange.Balance, error) {
	var out exchange.Balance
	err := g.guard(func() error {
		callCtx, cancel := g.withTimeout(ctx)
		defer cancel()
		balances, err := g.client.NewGetBalanceService().Do(callCtx)
		if err != nil {
			return fmt.Errorf("get balance: %w", err)
		}
		for _, b := range balances {
			if b == nil || !strings.EqualFold(b.Asset, balanceAsset) {
				continue
			}
			total, _ := convert.ParseFloat(b.Balance)
			avail, _ := convert.ParseFloat(b.AvailableBalance)
			out = exchange.Balance{Total: total, Available: avail, Currency: balanceAsset}
			return nil
		}
		return fmt.Errorf("get balance: 响应缺少 %s 资产", balanceAsset)
	})
	if err != nil {
		return exchange.Balance{}, err
	}
	return out, nil
}

// FetchCandles 实现 market.Source，丢弃尚未收盘的最后一根K线。
func (g *Gateway) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	var out []market.Candle
	err := g.guard(func() error {
		callCtx, cancel := g.withTimeout(ctx)
		defer cancel()
		kls, err := g.client.NewKlinesService().
			Symbol(symbol).Interval(interval).Limit(limit).Do(callCtx)
		if err != nil {
			return fmt.Errorf("fetch klines %s %s: %w", symbol, interval, err)
		}
		out = make([]market.Candle, 0, len(kls))
		for _, kl := range kls {
			if kl == nil {
				continue
			}
			o, _ := convert.ParseFloat(kl.Open)
			h, _ := convert.ParseFloat(kl.High)
			l, _ := convert.ParseFloat(kl.Low)
			c, _ := convert.ParseFloat(kl.Close)
			v, _ := convert.ParseFloat(kl.Volume)
			out = append(out, market.Candle{
				OpenTime:  kl.OpenTime,
				CloseTime: kl.CloseTime,
				Open:      o,
				High:      h,
				Low:       l,
				Close:     c,
				Volume:    v,
			})
		}
		out = dropUnclosed(out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func dropUnclosed(candles []market.Candle) []market.Candle {
	if len(candles) == 0 {
		return candles
	}
	last := candles[len(candles)-1]
	if last.CloseTime > time.Now().UnixMilli() {
		return candles[:len(candles)-1]
	}
	return candles
}
