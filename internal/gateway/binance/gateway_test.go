package binance

import (
	"testing"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/assert"

	"helmsman/internal/market"
	"helmsman/internal/types"
)

func TestOrderSide(t *testing.T) {
	assert.Equal(t, futures.SideTypeBuy, orderSide(types.SideLong, false))
	assert.Equal(t, futures.SideTypeSell, orderSide(types.SideShort, false))
	// 减仓方向与持仓方向相反
	assert.Equal(t, futures.SideTypeSell, orderSide(types.SideLong, true))
	assert.Equal(t, futures.SideTypeBuy, orderSide(types.SideShort, true))
}

func TestFormatQuantity(t *testing.T) {
	assert.Equal(t, "0.003", formatQuantity(0.003))
	assert.Equal(t, "150", formatQuantity(150))
}

func TestDropUnclosed(t *testing.T) {
	now := time.Now().UnixMilli()
	closed := market.Candle{CloseTime: now - 1000}
	open := market.Candle{CloseTime: now + 60_000}

	out := dropUnclosed([]market.Candle{closed, open})
	assert.Len(t, out, 1)

	out = dropUnclosed([]market.Candle{closed, closed})
	assert.Len(t, out, 2)

	assert.Empty(t, dropUnclosed(nil))
}

func TestConfigDefaults(t *testing.T) {
	cfg := (&Config{}).withDefaults()
	assert.Equal(t, "https://fapi.binance.com", cfg.RESTBaseURL)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 5, cfg.BreakerThreshold)
	assert.Equal(t, 60*time.Second, cfg.BreakerCooldown)
}
