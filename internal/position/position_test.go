package position

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"helmsman/internal/types"
)

func newLong() *Position {
	return New("BTCUSDT", types.SideLong, 50000, 0.003, 2, 49000, 52000, 8, time.Now())
}

func TestUnrealizedPnL(t *testing.T) {
	p := newLong()
	assert.InDelta(t, 3.0, p.UnrealizedPnL(51000), 1e-9)
	assert.InDelta(t, -3.0, p.UnrealizedPnL(49000), 1e-9)

	short := New("ETHUSDT", types.SideShort, 3000, 0.1, 3, 3100, 2800, 7, time.Now())
	assert.InDelta(t, 10.0, short.UnrealizedPnL(2900), 1e-9)
}

func TestPnLPctScaledByLeverage(t *testing.T) {
	p := newLong()
	// 价格 +2%, 杠杆 2 → 收益率 4%
	assert.InDelta(t, 0.04, p.PnLPct(51000), 1e-9)
}

func TestRatchetStopNeverLoosens(t *testing.T) {
	p := newLong()
	assert.True(t, p.RatchetStop(49500))
	assert.Equal(t, 49500.0, p.StopLoss)

	// 放宽方向被拒绝
	assert.False(t, p.RatchetStop(49000))
	assert.Equal(t, 49500.0, p.StopLoss)

	// 空头镜像: 止损只向下收
	short := New("ETHUSDT", types.SideShort, 3000, 0.1, 3, 3100, 2800, 7, time.Now())
	assert.True(t, short.RatchetStop(3050))
	assert.False(t, short.RatchetStop(3080))
	assert.Equal(t, 3050.0, short.StopLoss)
}

func TestTrailingMonotonic(t *testing.T) {
	p := newLong()
	p.TrailingActive = true
	assert.True(t, p.RatchetTrailing(50500))
	assert.True(t, p.RatchetTrailing(50800))
	assert.False(t, p.RatchetTrailing(50600)) // 回撤不跟
	assert.Equal(t, 50800.0, p.TrailingStop)
}

func TestReduceMonotonic(t *testing.T) {
	p := newLong()
	p.Reduce(0.001)
	assert.InDelta(t, 0.002, p.Quantity, 1e-12)
	p.Reduce(-1) // 非法入参不生效
	assert.InDelta(t, 0.002, p.Quantity, 1e-12)
	p.Reduce(1) // 超量减仓钳到 0
	assert.Equal(t, 0.0, p.Quantity)
	assert.InDelta(t, 0.003, p.InitialQuantity, 1e-12)
}

func TestBookOnePositionPerSymbol(t *testing.T) {
	b := NewBook()
	assert.True(t, b.Put(newLong()))
	assert.False(t, b.Put(newLong())) // 同 symbol 第二仓被拒
	assert.Equal(t, 1, b.Len())

	b.Remove("BTCUSDT")
	assert.False(t, b.Has("BTCUSDT"))
	assert.True(t, b.Put(newLong()))
}
