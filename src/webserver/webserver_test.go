package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opspulse/background-agents/src/config"
	"github.com/opspulse/background-agents/src/types"
)

type stubStatus struct {
	st map[string]interface{}
}

func (s stubStatus) Status(context.Context) map[string]interface{} { return s.st }

type stubHealth struct {
	h   types.Health
	err error
}

func (s stubHealth) GetSystemHealth(context.Context) (types.Health, error) { return s.h, s.err }

func newTestRouter(cfg config.Config, status StatusSource, health HealthSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(cfg, status, health, nil)
}

func doGet(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSnapshotOK(t *testing.T) {
	r := newTestRouter(config.Config{}, stubStatus{st: map[string]interface{}{
		"system_running":    true,
		"agents_configured": 4,
	}}, stubHealth{})

	w := doGet(r, "/v1/status")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["system_running"])
	assert.EqualValues(t, 4, body["agents_configured"])
}

func TestSnapshotInternalError(t *testing.T) {
	r := newTestRouter(config.Config{}, stubStatus{st: map[string]interface{}{
		"system_running": false,
		"status":         "error",
		"error":          "aggregation broken",
	}}, stubHealth{})

	w := doGet(r, "/v1/status")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
}

func TestHealthHealthy(t *testing.T) {
	r := newTestRouter(config.Config{}, stubStatus{}, stubHealth{
		h: types.Health{OverallScore: 85, ActiveAgents: 4, TotalAgents: 4},
	})

	w := doGet(r, "/v1/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestHealthBoundaryScore(t *testing.T) {
	r := newTestRouter(config.Config{}, stubStatus{}, stubHealth{
		h: types.Health{OverallScore: 70, ActiveAgents: 3, TotalAgents: 4},
	})

	w := doGet(r, "/v1/health")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthDegraded(t *testing.T) {
	r := newTestRouter(config.Config{}, stubStatus{}, stubHealth{
		h: types.Health{OverallScore: 55, ActiveAgents: 2, TotalAgents: 4},
	})

	w := doGet(r, "/v1/health")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status string       `json:"status"`
		Health types.Health `json:"health"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, 55.0, body.Health.OverallScore)
}

func TestHealthFetchError(t *testing.T) {
	r := newTestRouter(config.Config{}, stubStatus{}, stubHealth{
		err: errors.New("aggregation offline"),
	})

	w := doGet(r, "/v1/health")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "aggregation offline")
}

func TestAgentsWithoutStorage(t *testing.T) {
	r := newTestRouter(config.Config{}, stubStatus{}, stubHealth{})
	w := doGet(r, "/v1/agents")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestEventsWithoutStorage(t *testing.T) {
	r := newTestRouter(config.Config{}, stubStatus{}, stubHealth{})
	w := doGet(r, "/v1/events")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestClampLimit(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"", defaultEventLimit},
		{"abc", defaultEventLimit},
		{"0", defaultEventLimit},
		{"-5", defaultEventLimit},
		{"17", 17},
		{"9999", maxEventLimit},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, clampLimit(tc.raw), "limit %q", tc.raw)
	}
}

func TestCORSHeaders(t *testing.T) {
	cfg := config.Config{
		CORSEnabled: true,
		CORSOrigins: []string{"http://localhost:3000"},
	}
	r := newTestRouter(cfg, stubStatus{}, stubHealth{
		h: types.Health{OverallScore: 100, ActiveAgents: 1, TotalAgents: 1},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
