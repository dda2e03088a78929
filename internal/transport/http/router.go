package enginehttp

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"helmsman/internal/engine"
	"helmsman/internal/indicator"
	"helmsman/internal/logger"
	"helmsman/internal/types"
)

// EngineAPI 是 HTTP 层对引擎的依赖面。
type EngineAPI interface {
	GetStatus() engine.StatusReport
	Analyze(ctx context.Context, symbol string) (*engine.AnalyzeReport, error)
	CloseAll(ctx context.Context, reason types.CloseReason) error
	ManualUnlock(ctx context.Context)
}

// Router 暴露引擎的操作接口。
type Router struct {
	engine EngineAPI
}

func NewRouter(e EngineAPI) *Router {
	return &Router{engine: e}
}

// Register 将 /api 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/status", r.handleStatus)
	group.GET("/analyze/:symbol", r.handleAnalyze)
	group.POST("/positions/close-all", r.handleCloseAll)
	group.POST("/risk/unlock", r.handleRiskUnlock)
}

func (r *Router) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, r.engine.GetStatus())
}

func (r *Router) handleAnalyze(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol 不能为空"})
		return
	}
	callCtx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()
	report, err := r.engine.Analyze(callCtx, symbol)
	if err != nil {
		if errors.Is(err, indicator.ErrInsufficientData) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		logger.Errorf("[api] analyze failed ip=%s symbol=%s err=%v", c.ClientIP(), symbol, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (r *Router) handleCloseAll(c *gin.Context) {
	logger.Warnf("[api] close-all requested ip=%s", c.ClientIP())
	callCtx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()
	if err := r.engine.CloseAll(callCtx, types.CloseReasonCloseAll); err != nil {
		logger.Errorf("[api] close-all failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) handleRiskUnlock(c *gin.Context) {
	logger.Warnf("[api] risk unlock requested ip=%s", c.ClientIP())
	r.engine.ManualUnlock(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
