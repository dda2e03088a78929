package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helmsman/internal/config"
	"helmsman/internal/indicator"
	"helmsman/internal/types"
)

func exitCfg() config.ExitConfig {
	return config.ExitConfig{
		StopATRMult:        1.5,
		TargetATRMult:      3,
		StopPct:            0.02,
		TargetPct:          0.04,
		BollingerBufferPct: 0.001,
	}
}

func TestComputeStopTargetUsesTighterStopWiderTarget(t *testing.T) {
	snap := &indicator.Snapshot{Price: 50000, ATR: 400} // ATR 止损距离 600 < 2% 的 1000
	got, err := ComputeStopTarget(types.SideLong, 50000, snap, exitCfg(), 1.5)
	require.NoError(t, err)

	assert.InDelta(t, 49400.0, got.StopLoss, 1e-6)   // min(1000, 600)
	assert.InDelta(t, 52000.0, got.TakeProfit, 1e-6) // max(2000, 1200)
}

func TestComputeStopTargetRewardRiskFloorPushesTargetOnly(t *testing.T) {
	// ATR 很大: 止损走 2% (1000), 目标走 ATR×3 但被下限抬高
	snap := &indicator.Snapshot{Price: 50000, ATR: 300}
	cfg := exitCfg()
	cfg.TargetPct = 0.01 // 故意给一个过近的目标
	got, err := ComputeStopTarget(types.SideLong, 50000, snap, cfg, 3)
	require.NoError(t, err)

	stopDist := 50000 - got.StopLoss
	rr := RewardRisk(50000, got.StopLoss, got.TakeProfit)
	assert.GreaterOrEqual(t, rr, 3.0)
	// 止损不允许为凑盈亏比而收紧: 距离仍是候选里较紧的那个
	assert.InDelta(t, 450.0, stopDist, 1e-6) // ATR×1.5 = 450 < 1000
}

func TestComputeStopTargetRewardRiskFloorAlwaysMet(t *testing.T) {
	snaps := []*indicator.Snapshot{
		nil,
		{Price: 50000, ATR: 100},
		{Price: 50000, ATR: 2000},
		{Price: 50000, ATR: 500, Bollinger: indicator.BollingerValue{Upper: 50800, Middle: 50000, Lower: 49200}},
	}
	for _, side := range []types.Side{types.SideLong, types.SideShort} {
		for i, snap := range snaps {
			got, err := ComputeStopTarget(side, 50000, snap, exitCfg(), 2)
			require.NoError(t, err, "case %d %s", i, side)
			rr := RewardRisk(50000, got.StopLoss, got.TakeProfit)
			assert.GreaterOrEqual(t, rr, 2.0, "case %d %s", i, side)
		}
	}
}

func TestComputeStopTargetShortMirrors(t *testing.T) {
	snap := &indicator.Snapshot{Price: 50000, ATR: 400}
	got, err := ComputeStopTarget(types.SideShort, 50000, snap, exitCfg(), 1.5)
	require.NoError(t, err)

	assert.Greater(t, got.StopLoss, 50000.0)
	assert.Less(t, got.TakeProfit, 50000.0)
}

func TestComputeStopTargetInvalidInputs(t *testing.T) {
	_, err := ComputeStopTarget(types.SideNone, 50000, nil, exitCfg(), 1.5)
	assert.Error(t, err)
	_, err = ComputeStopTarget(types.SideLong, 0, nil, exitCfg(), 1.5)
	assert.Error(t, err)
}
