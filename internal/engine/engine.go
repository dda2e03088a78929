package engine

import (
	"context"
	"sync"
	"time"

	"helmsman/internal/config"
	"helmsman/internal/gateway/exchange"
	"helmsman/internal/indicator"
	"helmsman/internal/logger"
	"helmsman/internal/pkg/circuit"
	"helmsman/internal/position"
	"helmsman/internal/profile"
	"helmsman/internal/risk"
	"helmsman/internal/scheduler"
	"helmsman/internal/signal"
	"helmsman/internal/store"
	"helmsman/internal/types"
)

// balanceStaleAfter 之内没有成功刷新过余额就标记 stale。
const balanceStaleAfter = 5 * time.Minute

// Engine 是仓位生命周期管理器：扫描开仓、监控调整、平仓上报。
// 仓位簿只有引擎这一个写者；风控治理器自理并发。
type Engine struct {
	cfg      config.Config
	gateway  exchange.Exchange
	provider *indicator.Provider
	scorer   *signal.Scorer
	governor *risk.Governor
	store    store.Store
	book     *position.Book
	profiles *profile.Registry
	breaker  *circuit.Breaker

	mu         sync.Mutex
	running    bool
	halted     bool // Stop 之后为真：扫描与准入停摆，监控继续
	scanCancel context.CancelFunc

	balMu   sync.Mutex
	balance types.AccountSnapshot

	obsMu     sync.RWMutex
	observers []Observer

	// opMu 保护仓位对象的字段访问：监控轮、CloseAll、开仓登记与状态快照
	// 都在此锁下进行，避免同一仓位被并发处置或读到写了一半的字段
	opMu sync.Mutex

	nowFn func() time.Time
}

type Options struct {
	Config   config.Config
	Gateway  exchange.Exchange
	Provider *indicator.Provider
	Scorer   *signal.Scorer
	Governor *risk.Governor
	Store    store.Store
	Profiles *profile.Registry // 可为 nil
	Breaker  *circuit.Breaker  // 可为 nil，网关未提供熔断时留空
}

func New(opts Options) *Engine {
	return &Engine{
		cfg:      opts.Config,
		gateway:  opts.Gateway,
		provider: opts.Provider,
		scorer:   opts.Scorer,
		governor: opts.Governor,
		store:    opts.Store,
		book:     position.NewBook(),
		profiles: opts.Profiles,
		breaker:  opts.Breaker,
		nowFn:    time.Now,
	}
}

// Start 恢复检查点并启动扫描/监控两条周期任务。重复调用只告警不报错。
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		logger.Warnf("engine: 已在运行，忽略重复 Start")
		return nil
	}
	e.running = true
	e.halted = false
	scanCtx, cancel := context.WithCancel(ctx)
	e.scanCancel = cancel
	e.mu.Unlock()

	if err := e.resume(ctx); err != nil {
		// 启动失败必须回滚 running，否则重试 Start 会被误判为重复启动
		cancel()
		e.mu.Lock()
		e.running = false
		e.scanCancel = nil
		e.mu.Unlock()
		return err
	}
	e.refreshBalance(ctx)

	scanEvery := time.Duration(e.cfg.Scan.ScanSeconds) * time.Second
	monitorEvery := time.Duration(e.cfg.Scan.MonitorSeconds) * time.Second
	go scheduler.NewIntervalRunner("scan", scanEvery).Start(scanCtx, e.scanPass)
	go scheduler.NewIntervalRunner("monitor", monitorEvery).Start(ctx, e.monitorPass)
	logger.Infof("engine: started symbols=%v scan=%s monitor=%s", e.cfg.Scan.Symbols, scanEvery, monitorEvery)
	return nil
}

// Stop 停止扫描与新仓准入；监控循环继续照看存量仓位。幂等。
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running || e.halted {
		return
	}
	e.halted = true
	if e.scanCancel != nil {
		e.scanCancel()
	}
	logger.Infof("engine: 扫描与准入已停止，存量仓位继续监控")
}

// resume 从存储恢复未了结的仓位检查点。只恢复监控，绝不重复开仓。
func (e *Engine) resume(ctx context.Context) error {
	positions, err := e.store.ListOpenPositions(ctx)
	if err != nil {
		return err
	}
	for _, p := range positions {
		if !e.book.Put(p) {
			logger.Warnf("engine: 检查点重复 symbol=%s，丢弃", p.Symbol)
			continue
		}
		logger.Infof("engine: 恢复仓位 %s %s qty=%.6f status=%s", p.Symbol, p.Side, p.Quantity, p.Status)
	}
	if len(positions) > 0 {
		logger.Infof("engine: 共恢复 %d 个仓位", len(positions))
	}
	return nil
}

func (e *Engine) refreshBalance(ctx context.Context) types.AccountSnapshot {
	bal, err := e.gateway.GetBalance(ctx)
	e.balMu.Lock()
	defer e.balMu.Unlock()
	if err != nil {
		logger.Warnf("engine: 余额刷新失败，沿用旧值: %v", err)
		e.balance.Stale = true
		return e.balance
	}
	e.balance = types.AccountSnapshot{
		Total:     bal.Total,
		Available: bal.Available,
		Currency:  bal.Currency,
		UpdatedAt: e.nowFn(),
		Stale:     false,
	}
	return e.balance
}

func (e *Engine) lastBalance() types.AccountSnapshot {
	e.balMu.Lock()
	defer e.balMu.Unlock()
	out := e.balance
	if !out.UpdatedAt.IsZero() && e.nowFn().Sub(out.UpdatedAt) > balanceStaleAfter {
		out.Stale = true
	}
	return out
}

// StatusReport 是 GetStatus 的返回载体。
type StatusReport struct {
	Running      bool                     `json:"running"`
	Halted       bool                     `json:"halted"`
	Positions    []types.PositionSnapshot `json:"positions"`
	OpenCount    int                      `json:"open_count"`
	DailyPnL     float64                  `json:"daily_pnl"`
	Locked       bool                     `json:"locked"`
	LockedUntil  *time.Time               `json:"locked_until,omitempty"`
	MaxDrawdown  float64                  `json:"max_drawdown"`
	Balance      types.AccountSnapshot    `json:"balance"`
	BreakerState string                   `json:"breaker_state,omitempty"`
}

func (e *Engine) GetStatus() StatusReport {
	e.mu.Lock()
	running, halted := e.running, e.halted
	e.mu.Unlock()

	// 仓位字段由监控轮/CloseAll 在 opMu 下修改，快照读取同样持锁
	now := e.nowFn()
	e.opMu.Lock()
	snaps := make([]types.PositionSnapshot, 0, e.book.Len())
	for _, p := range e.book.List() {
		snaps = append(snaps, p.Snapshot(now))
	}
	e.opMu.Unlock()
	rs := e.governor.Snapshot()
	report := StatusReport{
		Running:     running && !halted,
		Halted:      halted,
		Positions:   snaps,
		OpenCount:   len(snaps),
		DailyPnL:    rs.DailyPnL,
		Locked:      e.governor.Locked(),
		LockedUntil: rs.LockedUntil,
		MaxDrawdown: rs.MaxDrawdown,
		Balance:     e.lastBalance(),
	}
	if e.breaker != nil {
		report.BreakerState = e.breaker.CurrentState().String()
	}
	return report
}

// CloseAll 强制平掉所有仓位。失败的留在簿内等监控轮重试。
func (e *Engine) CloseAll(ctx context.Context, reason types.CloseReason) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	var firstErr error
	for _, p := range e.book.List() {
		price, err := e.gateway.LatestPrice(ctx, p.Symbol)
		if err == nil && price > 0 {
			p.CurrentPrice = price
		}
		if err := e.attemptClose(ctx, p, reason); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ManualUnlock 透传到治理器（HTTP 解锁入口用）。
func (e *Engine) ManualUnlock(ctx context.Context) {
	e.governor.ManualUnlock(ctx)
}
