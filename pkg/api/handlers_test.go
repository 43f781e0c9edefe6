package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"StockPulse/pkg/config"
	"StockPulse/pkg/model"
	"StockPulse/pkg/monitor"
	"StockPulse/pkg/pipeline"
	"StockPulse/pkg/repository"
)

type stubRunner struct {
	summary *model.CycleSummary
	err     error
	last    *model.CycleSummary
}

func (s *stubRunner) Run(context.Context) (*model.CycleSummary, error) { return s.summary, s.err }
func (s *stubRunner) Last() *model.CycleSummary                        { return s.last }

func newTestRouter(t *testing.T, runner CycleRunner, mon *monitor.Monitor, ready func(context.Context) error) *gin.Engine {
	t.Helper()
	return newTestRouterWithStore(t, runner, repository.NewRepository(), mon, ready)
}

func newTestRouterWithStore(t *testing.T, runner CycleRunner, store NotificationLister, mon *monitor.Monitor, ready func(context.Context) error) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := NewServer(config.Default(), zaptest.NewLogger(t))
	srv.SetupRoutes(NewHandlers(runner, store, mon, ready))
	return srv.Router()
}

func do(router http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRunCycleSuccess(t *testing.T) {
	runner := &stubRunner{summary: &model.CycleSummary{
		Success:            true,
		Status:             model.StatusCompleted,
		FavoritesProcessed: 3,
		SymbolsQueried:     2,
		AlertsSent:         1,
	}}
	w := do(newTestRouter(t, runner, nil, nil), http.MethodPost, "/api/v1/cycles/run")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, true, body["success"])
	require.EqualValues(t, 3, body["favorites_processed"])
	require.EqualValues(t, 2, body["symbols_queried"])
	require.EqualValues(t, 1, body["alerts_sent"])
	require.NotContains(t, body, "error")
}

func TestRunCycleFailureIncludesError(t *testing.T) {
	runner := &stubRunner{summary: &model.CycleSummary{
		Success: false,
		Status:  model.StatusFailed,
		Error:   "缺少外部服务凭证: quote_provider.api_key",
	}}
	w := do(newTestRouter(t, runner, nil, nil), http.MethodPost, "/api/v1/cycles/run")

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, false, body["success"])
	require.Contains(t, body["error"], "quote_provider.api_key")
}

func TestRunCycleConflict(t *testing.T) {
	w := do(newTestRouter(t, &stubRunner{err: pipeline.ErrCycleRunning}, nil, nil), http.MethodPost, "/api/v1/cycles/run")
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestLastCycle(t *testing.T) {
	w := do(newTestRouter(t, &stubRunner{}, nil, nil), http.MethodGet, "/api/v1/cycles/last")
	require.Equal(t, http.StatusNotFound, w.Code)

	runner := &stubRunner{last: &model.CycleSummary{Success: true, AlertsSent: 4}}
	w = do(newTestRouter(t, runner, nil, nil), http.MethodGet, "/api/v1/cycles/last")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"alerts_sent":4`)
}

func TestHealthReadyStatusMetrics(t *testing.T) {
	mon := monitor.NewMonitor(nil)
	mon.UpdateStatus(monitor.ComponentPipeline, monitor.StatusHealthy, "")
	router := newTestRouter(t, &stubRunner{}, mon, func(context.Context) error { return errors.New("db unreachable") })

	require.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health").Code)

	ready := do(router, http.MethodGet, "/ready")
	require.Equal(t, http.StatusServiceUnavailable, ready.Code)
	require.Contains(t, ready.Body.String(), "db unreachable")

	status := do(router, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, status.Code)
	require.Contains(t, status.Body.String(), monitor.ComponentPipeline)

	metrics := do(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, metrics.Code)
	require.True(t, strings.Contains(metrics.Body.String(), "go_goroutines"))
}

func TestUserNotificationsNewestFirst(t *testing.T) {
	repo := repository.NewRepository()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.SeedNotification("u1", "AAPL", base.Add(-2*time.Hour))
	repo.SeedNotification("u1", "MSFT", base.Add(-time.Hour))
	repo.SeedNotification("u2", "TSLA", base)
	router := newTestRouterWithStore(t, &stubRunner{}, repo, nil, nil)

	w := do(router, http.MethodGet, "/api/v1/users/u1/notifications?limit=1")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		UserID        string                     `json:"user_id"`
		Notifications []model.NotificationRecord `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "u1", body.UserID)
	require.Len(t, body.Notifications, 1)
	require.Equal(t, "MSFT", body.Notifications[0].Symbol)

	empty := do(router, http.MethodGet, "/api/v1/users/nobody/notifications")
	require.Equal(t, http.StatusOK, empty.Code)
	require.Contains(t, empty.Body.String(), `"notifications":[]`)
}

func TestUserNotificationsRejectsBadLimit(t *testing.T) {
	router := newTestRouter(t, &stubRunner{}, nil, nil)
	w := do(router, http.MethodGet, "/api/v1/users/u1/notifications?limit=abc")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserNotificationsStoreError(t *testing.T) {
	router := newTestRouterWithStore(t, &stubRunner{}, failingLister{}, nil, nil)
	w := do(router, http.MethodGet, "/api/v1/users/u1/notifications")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "connection reset")
}

type failingLister struct{}

func (failingLister) RecentNotifications(context.Context, string, int) ([]model.NotificationRecord, error) {
	return nil, errors.New("connection reset")
}
