package aihelp

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

const anthropicURL = "https://api.anthropic.com/v1/messages"

const systemPrompt = "You are the help desk for a fleet of background agents. " +
	"Answer operator questions concisely and point at concrete remediation steps."

// ClaudeClient answers help requests through the Anthropic messages API.
type ClaudeClient struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client

	retryAttempts int
	retryDelay    time.Duration
}

func NewClaudeClient(apiKey, model string, httpClient *http.Client) *ClaudeClient {
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &ClaudeClient{
		baseURL:       anthropicURL,
		apiKey:        apiKey,
		model:         model,
		http:          httpClient,
		retryAttempts: 3,
		retryDelay:    2 * time.Second,
	}
}

func (c *ClaudeClient) Model() string { return c.model }

func (c *ClaudeClient) Answer(ctx context.Context, subject, body string) (string, error) {
	reqBody := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": fmt.Sprintf("Subject: %s\n\n%s", subject, body),
			},
		},
		"system":     systemPrompt,
		"max_tokens": 1000,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	_, raw, err := webclient.DoWithRetry(ctx, c.retryAttempts, c.retryDelay, func() (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(jsonBody))
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := c.http.Do(req)
		if err != nil {
			return 0, nil, err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, b, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
		}
		return resp.StatusCode, b, nil
	})
	if err != nil {
		return "", fmt.Errorf("claude api error: %w", err)
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", err
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("no response from claude")
	}
	return result.Content[0].Text, nil
}
