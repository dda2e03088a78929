package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"helmsman/internal/config"
	"helmsman/internal/engine"
	"helmsman/internal/logger"
	"helmsman/internal/store"
	enginehttp "helmsman/internal/transport/http"
	"helmsman/internal/types"
)

// App 负责应用级编排：加载配置→初始化依赖→启动引擎与 HTTP 服务。
type App struct {
	cfg    *config.Config
	engine *engine.Engine
	http   *enginehttp.Server
	store  store.Store
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildApp(cfg)
}

// Run 启动引擎与 HTTP 服务，直到收到退出信号或组件失败。
// 退出流程：先停扫描，再强平由操作员决定，这里只停进程内组件。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	if a.http != nil {
		group.Go(func() error {
			if err := a.http.Start(ctx); err != nil {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		if err := a.engine.Start(ctx); err != nil {
			return fmt.Errorf("engine start error: %w", err)
		}
		<-ctx.Done()
		a.engine.Stop()
		return nil
	})

	err := group.Wait()
	if closeErr := a.store.Close(); closeErr != nil {
		logger.Warnf("app: 存储关闭失败: %v", closeErr)
	}
	logger.Infof("app: 退出")
	return err
}

// Engine 暴露底层引擎实例（测试与回放用）。
func (a *App) Engine() *engine.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}

// CloseAllOnExit 供外部在退出前强平所有仓位（默认不启用）。
func (a *App) CloseAllOnExit(ctx context.Context) error {
	if a == nil || a.engine == nil {
		return nil
	}
	return a.engine.CloseAll(ctx, types.CloseReasonCloseAll)
}
