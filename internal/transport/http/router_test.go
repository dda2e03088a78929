package enginehttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helmsman/internal/engine"
	"helmsman/internal/types"
)

type fakeEngine struct {
	status     engine.StatusReport
	analyzeErr error
	closeAllN  int
	unlockN    int
	lastReason types.CloseReason
}

func (f *fakeEngine) GetStatus() engine.StatusReport { return f.status }

func (f *fakeEngine) Analyze(ctx context.Context, symbol string) (*engine.AnalyzeReport, error) {
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return &engine.AnalyzeReport{Symbol: symbol, Admission: "admit"}, nil
}

func (f *fakeEngine) CloseAll(ctx context.Context, reason types.CloseReason) error {
	f.closeAllN++
	f.lastReason = reason
	return nil
}

func (f *fakeEngine) ManualUnlock(ctx context.Context) { f.unlockN++ }

func newTestRouter(f *fakeEngine) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewRouter(f).Register(r.Group("/api"))
	return r
}

func TestHandleStatus(t *testing.T) {
	f := &fakeEngine{status: engine.StatusReport{Running: true, DailyPnL: -1.5, OpenCount: 2}}
	router := newTestRouter(f)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got engine.StatusReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Running)
	assert.Equal(t, 2, got.OpenCount)
	assert.Equal(t, -1.5, got.DailyPnL)
}

func TestHandleAnalyzeNormalizesSymbol(t *testing.T) {
	f := &fakeEngine{}
	router := newTestRouter(f)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/analyze/btcusdt", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got engine.AnalyzeReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "BTCUSDT", got.Symbol)
	assert.Equal(t, "admit", got.Admission)
}

func TestHandleAnalyzeError(t *testing.T) {
	f := &fakeEngine{analyzeErr: assert.AnError}
	router := newTestRouter(f)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/analyze/BTCUSDT", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleCloseAll(t *testing.T) {
	f := &fakeEngine{}
	router := newTestRouter(f)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/positions/close-all", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.closeAllN)
	assert.Equal(t, types.CloseReasonCloseAll, f.lastReason)
}

func TestHandleRiskUnlock(t *testing.T) {
	f := &fakeEngine{}
	router := newTestRouter(f)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/risk/unlock", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.unlockN)
}
