package risk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"helmsman/internal/config"
	"helmsman/internal/logger"
)

// ErrAdmissionDenied 是所有准入拒绝的哨兵错误；具体原因在包装消息中。
// 拒绝是预期内的控制流而非故障：调用方记日志后跳到下一个标的即可。
var ErrAdmissionDenied = errors.New("admission denied")

// OutcomeWindowSize 是胜负记录窗口的上限（FIFO，最旧的先淘汰）。
const OutcomeWindowSize = 50

// kelly 估算参数：样本不足用平推比例，样本充足用半 Kelly 并夹顶。
const (
	kellyMinSamples   = 10
	kellyFallbackFrac = 0.03
	kellyMaxFrac      = 0.10
)

// Outcome 是一笔已平仓交易的结果。
type Outcome struct {
	PnL float64   `json:"pnl"`
	Win bool      `json:"win"`
	At  time.Time `json:"at"`
}

// RiskState 是治理器的可持久化状态。熔断锁必须跨重启生效，
// 否则进程重启就能绕过日亏损限制。
type RiskState struct {
	Day         string     `json:"day"` // 本地日 2006-01-02
	DailyPnL    float64    `json:"daily_pnl"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
	PeakBalance float64    `json:"peak_balance"`
	MaxDrawdown float64    `json:"max_drawdown"`
}

// StateStore 是治理器的持久化契约，由 gormstore 实现。
type StateStore interface {
	LoadRiskState(ctx context.Context) (*RiskState, error)
	SaveRiskState(ctx context.Context, state RiskState) error
	AppendOutcome(ctx context.Context, o Outcome, keep int) error
	ListOutcomes(ctx context.Context, limit int) ([]Outcome, error)
}

// AdmissionContext 是一次准入判定的完整输入。
// 门禁总是收到全量上下文并执行全部条件——不存在只查部分条件的弱化路径。
type AdmissionContext struct {
	Symbol         string
	Balance        float64
	MarginRequired float64
	RewardRisk     float64
}

// Governor 是横切的风控治理器：准入门禁 + 日亏损熔断 + 资金规模建议。
// 状态仅由 RecordOutcome / 熔断逻辑修改，互斥锁保证单写者纪律。
type Governor struct {
	mu       sync.Mutex
	cfg      config.RiskConfig
	store    StateStore
	state    RiskState
	outcomes []Outcome

	nowFn func() time.Time
}

// NewGovernor 构建治理器并从存储恢复状态（含未到期的熔断锁）。
func NewGovernor(ctx context.Context, cfg config.RiskConfig, store StateStore) (*Governor, error) {
	g := &Governor{cfg: cfg, store: store, nowFn: time.Now}
	if store != nil {
		st, err := store.LoadRiskState(ctx)
		if err != nil {
			return nil, fmt.Errorf("governor: 恢复风控状态失败: %w", err)
		}
		if st != nil {
			g.state = *st
		}
		outs, err := store.ListOutcomes(ctx, OutcomeWindowSize)
		if err != nil {
			return nil, fmt.Errorf("governor: 恢复交易记录失败: %w", err)
		}
		g.outcomes = outs
	}
	g.rollDayLocked()
	if g.state.LockedUntil != nil {
		logger.Warnf("governor: 恢复到熔断锁定状态, 解锁时间=%s", g.state.LockedUntil.Format(time.RFC3339))
	}
	return g, nil
}

// CanAdmit 判定能否放行一笔新开仓。返回 nil 表示放行；
// 否则返回包装了 ErrAdmissionDenied 的具体原因。
// 除了在日亏损已越线时补触发熔断之外没有副作用。
func (g *Governor) CanAdmit(ctx context.Context, ac AdmissionContext) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollDayLocked()

	now := g.nowFn()
	if g.state.LockedUntil != nil && now.Before(*g.state.LockedUntil) {
		return fmt.Errorf("%w: 熔断锁定至 %s", ErrAdmissionDenied, g.state.LockedUntil.Format(time.RFC3339))
	}
	if ac.Balance <= 0 {
		return fmt.Errorf("%w: 余额无效 %.4f", ErrAdmissionDenied, ac.Balance)
	}
	limit := ac.Balance * g.cfg.MaxDailyLossPct
	if g.state.DailyPnL <= -limit {
		// 亏损已越线但锁还没挂上（如限额被调低）：此处补触发，幂等
		g.tripLocked(ctx, now)
		return fmt.Errorf("%w: 当日亏损 %.4f 已触及限额 %.4f", ErrAdmissionDenied, g.state.DailyPnL, -limit)
	}
	if maxMargin := ac.Balance * g.cfg.MaxMarginPct; ac.MarginRequired > maxMargin {
		return fmt.Errorf("%w: 保证金 %.4f 超出上限 %.4f", ErrAdmissionDenied, ac.MarginRequired, maxMargin)
	}
	if ac.RewardRisk < g.cfg.MinRewardRisk {
		return fmt.Errorf("%w: 盈亏比 %.2f 低于下限 %.2f", ErrAdmissionDenied, ac.RewardRisk, g.cfg.MinRewardRisk)
	}
	return nil
}

// RecordOutcome 记录一笔平仓结果：更新当日盈亏、胜负窗口、余额峰值与回撤，
// 并在日亏损越线时触发熔断（重复触发为空操作）。
func (g *Governor) RecordOutcome(ctx context.Context, pnl, balance float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollDayLocked()

	now := g.nowFn()
	g.state.DailyPnL += pnl

	o := Outcome{PnL: pnl, Win: pnl > 0, At: now}
	g.outcomes = append(g.outcomes, o)
	if len(g.outcomes) > OutcomeWindowSize {
		g.outcomes = g.outcomes[len(g.outcomes)-OutcomeWindowSize:]
	}

	if balance > g.state.PeakBalance {
		g.state.PeakBalance = balance
	}
	if g.state.PeakBalance > 0 {
		if dd := (g.state.PeakBalance - balance) / g.state.PeakBalance; dd > g.state.MaxDrawdown {
			g.state.MaxDrawdown = dd
		}
	}

	if balance > 0 && g.state.DailyPnL <= -(balance*g.cfg.MaxDailyLossPct) {
		g.tripLocked(ctx, now)
	}

	g.persistLocked(ctx)
	if g.store != nil {
		if err := g.store.AppendOutcome(ctx, o, OutcomeWindowSize); err != nil {
			logger.Errorf("governor: 交易记录落库失败: %v", err)
		}
	}
}

// KellyAdvisorySize 给出建议本金规模。仅供参考，从不参与准入判定。
func (g *Governor) KellyAdvisorySize(balance float64) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if balance <= 0 {
		return 0
	}
	if len(g.outcomes) < kellyMinSamples {
		return balance * kellyFallbackFrac
	}

	wins, losses := 0, 0
	grossWin, grossLoss := 0.0, 0.0
	for _, o := range g.outcomes {
		if o.Win {
			wins++
			grossWin += o.PnL
		} else {
			losses++
			grossLoss += -o.PnL
		}
	}
	total := wins + losses
	if wins == 0 || losses == 0 || grossLoss <= 0 {
		return balance * kellyFallbackFrac
	}
	p := float64(wins) / float64(total)
	avgWin := grossWin / float64(wins)
	avgLoss := grossLoss / float64(losses)
	r := avgWin / avgLoss

	frac := (p - (1-p)/r) / 2 // half-Kelly
	if frac < 0 {
		frac = 0
	}
	if frac > kellyMaxFrac {
		frac = kellyMaxFrac
	}
	return balance * frac
}

// ManualUnlock 由操作员显式清除熔断锁。当日盈亏不清零。
func (g *Governor) ManualUnlock(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.LockedUntil == nil {
		return
	}
	logger.Warnf("governor: 熔断锁被人工解除 (原解锁时间=%s)", g.state.LockedUntil.Format(time.RFC3339))
	g.state.LockedUntil = nil
	g.persistLocked(ctx)
}

// Snapshot 返回当前风控状态副本（状态接口展示用）。
func (g *Governor) Snapshot() RiskState {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollDayLocked()
	out := g.state
	if g.state.LockedUntil != nil {
		t := *g.state.LockedUntil
		out.LockedUntil = &t
	}
	return out
}

// Locked 报告熔断锁当前是否生效。
func (g *Governor) Locked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollDayLocked()
	return g.state.LockedUntil != nil && g.nowFn().Before(*g.state.LockedUntil)
}

// tripLocked 挂上熔断锁，到期时间为下一个本地日零点。幂等。
// 调用方必须已持有 g.mu。
func (g *Governor) tripLocked(ctx context.Context, now time.Time) {
	if g.state.LockedUntil != nil && now.Before(*g.state.LockedUntil) {
		return
	}
	until := nextLocalMidnight(now)
	g.state.LockedUntil = &until
	g.persistLocked(ctx)
	logger.Warnf("governor: 日亏损熔断触发 dailyPnL=%.4f, 锁定至 %s", g.state.DailyPnL, until.Format(time.RFC3339))
}

// rollDayLocked 跨日时重置当日盈亏并清掉已过期的锁。调用方必须已持有 g.mu。
func (g *Governor) rollDayLocked() {
	now := g.nowFn()
	day := now.Format("2006-01-02")
	if g.state.Day != day {
		g.state.Day = day
		g.state.DailyPnL = 0
	}
	if g.state.LockedUntil != nil && !now.Before(*g.state.LockedUntil) {
		logger.Infof("governor: 熔断锁到期, 恢复准入")
		g.state.LockedUntil = nil
	}
}

func (g *Governor) persistLocked(ctx context.Context) {
	if g.store == nil {
		return
	}
	if err := g.store.SaveRiskState(ctx, g.state); err != nil {
		logger.Errorf("governor: 风控状态落库失败: %v", err)
	}
}

func nextLocalMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).Add(24 * time.Hour)
}
