package indicator

import (
	"context"
	"fmt"

	"github.com/markcheno/go-talib"

	"helmsman/internal/market"
)

const (
	rsiPeriod     = 14
	atrPeriod     = 14
	bbPeriod      = 20
	volSMAPeriod  = 20
	emaFastPeriod = 9
	emaMidPeriod  = 21
	emaSlowPeriod = 50

	// MACD(12,26,9) 需要 35 根K线才有首个信号值；取 EMA50 与之的较大者再留余量。
	minBars = 60

	// 带宽低于中轨的 4% 视为挤压（窄幅蓄势）。
	squeezeBandwidth = 0.04
)

// Compute 由K线序列构建指标快照。K线应按时间升序且最后一根为最新。
func Compute(symbol, interval string, candles []market.Candle) (*Snapshot, error) {
	if len(candles) < minBars {
		return nil, fmt.Errorf("%w: %s %s got=%d want>=%d", ErrInsufficientData, symbol, interval, len(candles), minBars)
	}
	n := len(candles)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}
	price := closes[n-1]
	if price <= 0 {
		return nil, fmt.Errorf("%w: %s %s 最新收盘价无效", ErrInsufficientData, symbol, interval)
	}

	snap := &Snapshot{Symbol: symbol, Interval: interval, Price: price}

	snap.RSI = sanitize(lastValid(talib.Rsi(closes, rsiPeriod)))

	macd, signal, hist := talib.Macd(closes, 12, 26, 9)
	snap.MACD = MACDValue{Line: at(macd, n-1), Signal: at(signal, n-1), Histogram: at(hist, n-1)}
	snap.PrevMACD = MACDValue{Line: at(macd, n-2), Signal: at(signal, n-2), Histogram: at(hist, n-2)}

	upper, middle, lower := talib.BBands(closes, bbPeriod, 2, 2, talib.SMA)
	bb := BollingerValue{Upper: at(upper, n-1), Middle: at(middle, n-1), Lower: at(lower, n-1)}
	if width := bb.Upper - bb.Lower; width > 0 {
		pos := (price - bb.Lower) / width
		if pos < 0 {
			pos = 0
		}
		if pos > 1 {
			pos = 1
		}
		bb.Position = pos
		if bb.Middle > 0 && width/bb.Middle < squeezeBandwidth {
			bb.Squeeze = true
		}
	}
	snap.Bollinger = bb

	snap.EMA = EMAValue{
		Fast: sanitize(lastValid(talib.Ema(closes, emaFastPeriod))),
		Mid:  sanitize(lastValid(talib.Ema(closes, emaMidPeriod))),
		Slow: sanitize(lastValid(talib.Ema(closes, emaSlowPeriod))),
	}

	snap.ATR = sanitize(lastValid(talib.Atr(highs, lows, closes, atrPeriod)))
	if snap.ATR > 0 {
		snap.ATRPct = snap.ATR / price * 100
	}

	if avg := at(talib.Sma(volumes, volSMAPeriod), n-1); avg > 0 {
		snap.VolumeRatio = volumes[n-1] / avg
	}

	return snap, nil
}

// Provider 拉取K线并产出指标快照。
type Provider struct {
	src   market.Source
	limit int
}

func NewProvider(src market.Source, candleLimit int) *Provider {
	if candleLimit < minBars {
		candleLimit = minBars * 2
	}
	return &Provider{src: src, limit: candleLimit}
}

// SnapshotFor 获取指定 symbol+interval 的最新快照。
// K线不足时返回 ErrInsufficientData（包装后），供上层降级处理。
func (p *Provider) SnapshotFor(ctx context.Context, symbol, interval string) (*Snapshot, error) {
	candles, err := p.src.FetchCandles(ctx, symbol, interval, p.limit)
	if err != nil {
		return nil, fmt.Errorf("fetch candles %s %s: %w", symbol, interval, err)
	}
	return Compute(symbol, interval, candles)
}
