package langsmith

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opspulse/background-agents/src/webclient"
)

const defaultBaseURL = "https://api.smith.langchain.com"

// Client is a minimal LangSmith REST consumer covering what the bridge
// needs: listing recent runs.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = webclient.NewDefault(30 * time.Second)
	}
	return &Client{baseURL: defaultBaseURL, apiKey: apiKey, http: httpClient}
}

// Run is the subset of a LangSmith run the bridge stores.
type Run struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	SessionName      string         `json:"session_name"`
	RunType          string         `json:"run_type"`
	Inputs           map[string]any `json:"inputs"`
	Outputs          map[string]any `json:"outputs"`
	StartTime        time.Time      `json:"start_time"`
	EndTime          *time.Time     `json:"end_time"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	Extra            map[string]any `json:"extra"`
}

// RecentRuns queries runs started after since, newest first.
func (c *Client) RecentRuns(ctx context.Context, since time.Time, limit int) ([]Run, error) {
	reqBody, err := json.Marshal(map[string]any{
		"start_time": since.UTC().Format(time.RFC3339),
		"limit":      limit,
		"order":      "desc",
	})
	if err != nil {
		return nil, err
	}

	status, raw, err := webclient.DoWithRetry(ctx, 3, time.Second, func() (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/runs/query", bytes.NewReader(reqBody))
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return 0, nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		return resp.StatusCode, body, err
	})
	if err != nil {
		return nil, fmt.Errorf("langsmith query: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("langsmith query: status %d: %s", status, snippet(raw))
	}

	var out struct {
		Runs []Run `json:"runs"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("langsmith decode: %w", err)
	}
	return out.Runs, nil
}

func snippet(b []byte) string {
	if len(b) > 200 {
		b = b[:200]
	}
	return string(b)
}
