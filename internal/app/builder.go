package app

import (
	"context"
	"fmt"
	"time"

	"helmsman/internal/config"
	"helmsman/internal/engine"
	"helmsman/internal/gateway/binance"
	"helmsman/internal/indicator"
	"helmsman/internal/logger"
	"helmsman/internal/notifier"
	"helmsman/internal/profile"
	"helmsman/internal/risk"
	"helmsman/internal/signal"
	"helmsman/internal/store/gormstore"
	enginehttp "helmsman/internal/transport/http"
)

// buildApp 手工装配依赖图：store → governor → gateway → provider → engine → http。
func buildApp(cfg *config.Config) (*App, error) {
	st, err := gormstore.NewGormStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	gov, err := risk.NewGovernor(context.Background(), cfg.Risk, st)
	if err != nil {
		return nil, fmt.Errorf("init governor: %w", err)
	}

	gw := binance.New(binance.Config{
		APIKey:           cfg.Market.APIKey,
		APISecret:        cfg.Market.APISecret,
		RESTBaseURL:      cfg.Market.RESTBaseURL,
		HTTPTimeout:      time.Duration(cfg.Market.TimeoutSeconds) * time.Second,
		BreakerThreshold: cfg.Market.BreakerThreshold,
		BreakerCooldown:  time.Duration(cfg.Market.BreakerCooldownS) * time.Second,
	})

	provider := indicator.NewProvider(gw, cfg.Scan.CandleLimit)

	var profiles *profile.Registry
	if cfg.Profile.Path != "" {
		profiles, err = profile.NewRegistry(cfg.Profile.Path)
		if err != nil {
			return nil, fmt.Errorf("init profile registry: %w", err)
		}
	}

	eng := engine.New(engine.Options{
		Config:   *cfg,
		Gateway:  gw,
		Provider: provider,
		Scorer:   signal.NewScorer(),
		Governor: gov,
		Store:    st,
		Profiles: profiles,
		Breaker:  gw.Breaker(),
	})

	// 生命周期事件：日志观察者永远在场，Telegram 按配置挂载
	eng.Subscribe(engine.ObserverFunc(func(evt engine.Event) {
		logger.Infof("event: %s %s status=%s pnl=%.4f", evt.Type, evt.Position.Symbol, evt.Position.Status, evt.PnL)
	}))
	if cfg.Notify.Telegram.Enabled {
		tg := notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
		eng.Subscribe(engine.NewNotifierObserver(tg))
	}

	httpSrv, err := enginehttp.NewServer(enginehttp.ServerConfig{
		Addr:   cfg.App.HTTPAddr,
		Engine: eng,
	})
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, engine: eng, http: httpSrv, store: st}, nil
}
