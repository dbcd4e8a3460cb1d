package langsmith

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opspulse/background-agents/src/agents/core"
)

func TestConversationFromRun(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)

	r := Run{
		ID:               "run-1",
		Name:             "chat",
		SessionName:      "support",
		Inputs:           map[string]any{"prompt": "how do I reset?"},
		Outputs:          map[string]any{"answer": "use the reset endpoint"},
		StartTime:        start,
		EndTime:          &end,
		PromptTokens:     12,
		CompletionTokens: 40,
		Extra: map[string]any{
			"invocation_params": map[string]any{"model": "claude-3-haiku"},
		},
	}

	conv := ConversationFromRun(r)
	assert.Equal(t, "run-1", conv.TraceID)
	assert.Equal(t, "support", conv.SessionName)
	assert.Equal(t, "claude-3-haiku", conv.Model)
	assert.Equal(t, "how do I reset?", conv.Prompt)
	assert.Equal(t, "use the reset endpoint", conv.Completion)
	assert.Equal(t, 12, conv.InputTokens)
	assert.Equal(t, 40, conv.OutputTokens)
	assert.Equal(t, int64(1500), conv.LatencyMS)
	assert.Equal(t, start, conv.RecordedAt)
}

func TestConversationFromRunFallbacks(t *testing.T) {
	r := Run{
		ID:        "run-2",
		Name:      "llm_call",
		Inputs:    map[string]any{"input": "hello"},
		StartTime: time.Now().UTC(),
	}
	conv := ConversationFromRun(r)
	assert.Equal(t, "llm_call", conv.Model, "model falls back to the run name")
	assert.Equal(t, "hello", conv.Prompt)
	assert.Empty(t, conv.Completion)
	assert.Zero(t, conv.LatencyMS, "no end time means no latency")
}

func TestFirstStringPriority(t *testing.T) {
	m := map[string]any{"question": "later", "input": "first", "n": 3}
	assert.Equal(t, "first", firstString(m, "input", "question"))
	assert.Equal(t, "later", firstString(m, "missing", "question"))
	assert.Empty(t, firstString(m, "n", "missing"))
}

func TestClientRecentRuns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/runs/query", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))

		var q map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		assert.EqualValues(t, 25, q["limit"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"runs": []map[string]any{
				{"id": "r1", "name": "chat", "start_time": "2026-03-01T10:00:00Z"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient("secret", srv.Client())
	c.baseURL = srv.URL

	runs, err := c.RecentRuns(context.Background(), time.Now().Add(-time.Hour), 25)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].ID)
}

func TestClientRecentRunsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient("bad", srv.Client())
	c.baseURL = srv.URL

	_, err := c.RecentRuns(context.Background(), time.Now(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestNewWithoutKeyIdles(t *testing.T) {
	a := New(Config{}, core.RuntimeDeps{})
	assert.Nil(t, a.client)
	assert.Equal(t, 5*time.Minute, a.Interval())
}
