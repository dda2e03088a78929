package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helmsman/internal/config"
)

// memStore 是测试用的内存持久化实现。
type memStore struct {
	state    *RiskState
	outcomes []Outcome
}

func (m *memStore) LoadRiskState(context.Context) (*RiskState, error) { return m.state, nil }
func (m *memStore) SaveRiskState(_ context.Context, st RiskState) error {
	m.state = &st
	return nil
}
func (m *memStore) AppendOutcome(_ context.Context, o Outcome, keep int) error {
	m.outcomes = append(m.outcomes, o)
	if len(m.outcomes) > keep {
		m.outcomes = m.outcomes[len(m.outcomes)-keep:]
	}
	return nil
}
func (m *memStore) ListOutcomes(_ context.Context, limit int) ([]Outcome, error) {
	if len(m.outcomes) > limit {
		return m.outcomes[len(m.outcomes)-limit:], nil
	}
	return m.outcomes, nil
}

func riskCfg() config.RiskConfig {
	return config.RiskConfig{
		RiskPct:         0.03,
		MaxMarginPct:    0.3,
		MaxDailyLossPct: 0.05,
		MinRewardRisk:   1.5,
		Leverage:        config.LeverageConfig{Min: 1, Max: 10, Default: 3, Boosted: 5},
	}
}

func newTestGovernor(t *testing.T, store StateStore) *Governor {
	t.Helper()
	g, err := NewGovernor(context.Background(), riskCfg(), store)
	require.NoError(t, err)
	return g
}

func admit(balance float64) AdmissionContext {
	return AdmissionContext{Symbol: "BTCUSDT", Balance: balance, MarginRequired: 10, RewardRisk: 2}
}

func TestCanAdmitHappyPath(t *testing.T) {
	g := newTestGovernor(t, &memStore{})
	assert.NoError(t, g.CanAdmit(context.Background(), admit(100)))
}

func TestCanAdmitDenialReasons(t *testing.T) {
	g := newTestGovernor(t, &memStore{})
	ctx := context.Background()

	ac := admit(100)
	ac.MarginRequired = 31 // > 100×30%
	err := g.CanAdmit(ctx, ac)
	assert.ErrorIs(t, err, ErrAdmissionDenied)

	ac = admit(100)
	ac.RewardRisk = 1.2 // < 1.5
	err = g.CanAdmit(ctx, ac)
	assert.ErrorIs(t, err, ErrAdmissionDenied)

	ac = admit(0)
	err = g.CanAdmit(ctx, ac)
	assert.ErrorIs(t, err, ErrAdmissionDenied)
}

func TestCircuitBreakerTripsAndExpires(t *testing.T) {
	store := &memStore{}
	g := newTestGovernor(t, store)
	ctx := context.Background()

	now := time.Date(2026, 8, 31, 15, 0, 0, 0, time.Local)
	g.nowFn = func() time.Time { return now }

	// 亏掉 6% (> 5% 限额) → 熔断
	g.RecordOutcome(ctx, -6, 100)
	assert.True(t, g.Locked())

	// 锁定期内任何准入都被拒, 即使信号本身完全合格
	err := g.CanAdmit(ctx, admit(100))
	assert.ErrorIs(t, err, ErrAdmissionDenied)

	// 重复触发是空操作: 解锁时间不变
	first := *g.Snapshot().LockedUntil
	g.RecordOutcome(ctx, -1, 93)
	assert.Equal(t, first, *g.Snapshot().LockedUntil)

	// 锁应在次日零点过期, 过期后准入自动恢复（新的一天盈亏清零）
	now = first.Add(time.Minute)
	assert.False(t, g.Locked())
	assert.NoError(t, g.CanAdmit(ctx, admit(100)))
}

func TestBreakerSurvivesRestart(t *testing.T) {
	store := &memStore{}
	g := newTestGovernor(t, store)
	ctx := context.Background()
	g.RecordOutcome(ctx, -10, 100)
	require.True(t, g.Locked())

	// 用同一存储重建 → 锁仍然生效
	g2 := newTestGovernor(t, store)
	assert.True(t, g2.Locked())
	assert.ErrorIs(t, g2.CanAdmit(ctx, admit(100)), ErrAdmissionDenied)
}

func TestManualUnlock(t *testing.T) {
	g := newTestGovernor(t, &memStore{})
	ctx := context.Background()
	g.RecordOutcome(ctx, -10, 100)
	require.True(t, g.Locked())

	g.ManualUnlock(ctx)
	assert.False(t, g.Locked())
	// 当日亏损不清零: 限额仍然顶着, 准入依旧被拒（并重新挂锁）
	assert.ErrorIs(t, g.CanAdmit(ctx, admit(100)), ErrAdmissionDenied)
}

func TestOutcomeWindowBounded(t *testing.T) {
	g := newTestGovernor(t, &memStore{})
	ctx := context.Background()
	for i := 0; i < OutcomeWindowSize+20; i++ {
		g.RecordOutcome(ctx, 0.01, 1000)
	}
	assert.Len(t, g.outcomes, OutcomeWindowSize)
}

func TestKellyAdvisorySize(t *testing.T) {
	g := newTestGovernor(t, &memStore{})
	ctx := context.Background()

	// 样本不足 → 平推 3%
	assert.InDelta(t, 3.0, g.KellyAdvisorySize(100), 1e-9)

	// 6 胜 4 负, 均赢 2 均亏 1 → p=0.6 r=2 → kelly=0.4 → half=0.2 → 夹到 10%
	for i := 0; i < 6; i++ {
		g.RecordOutcome(ctx, 2, 1000)
	}
	for i := 0; i < 4; i++ {
		g.RecordOutcome(ctx, -1, 1000)
	}
	assert.InDelta(t, 10.0, g.KellyAdvisorySize(100), 1e-9)

	// 全输窗口 → 回退到平推
	g2 := newTestGovernor(t, &memStore{})
	for i := 0; i < 12; i++ {
		g2.RecordOutcome(ctx, -1, 1000)
	}
	assert.InDelta(t, 3.0, g2.KellyAdvisorySize(100), 1e-9)
}

func TestPeakAndDrawdownRatchet(t *testing.T) {
	g := newTestGovernor(t, &memStore{})
	ctx := context.Background()

	g.RecordOutcome(ctx, 5, 105)
	g.RecordOutcome(ctx, -21, 84)
	st := g.Snapshot()
	assert.InDelta(t, 105.0, st.PeakBalance, 1e-9)
	assert.InDelta(t, 0.2, st.MaxDrawdown, 1e-9)

	// 回撤只增不减
	g.RecordOutcome(ctx, 10, 94)
	assert.InDelta(t, 0.2, g.Snapshot().MaxDrawdown, 1e-9)
}
