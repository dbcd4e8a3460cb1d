package langsmith

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/opspulse/background-agents/src/agents/core"
	"github.com/opspulse/background-agents/src/logging"
	"github.com/opspulse/background-agents/src/types"
)

// ID is the worker id this agent registers under.
const ID = "langsmith_bridge"

// Config exposes the bridge's knobs. An empty APIKey leaves the bridge
// idle: it keeps beating but syncs nothing.
type Config struct {
	Interval time.Duration
	APIKey   string
	PageSize int
}

// Agent mirrors recent LangSmith runs into the llm_conversations table so
// traces survive the retention window of the hosted service.
type Agent struct {
	*core.Base
	cfg    Config
	deps   core.RuntimeDeps
	client *Client

	// high-water mark of synced run start times; touched only by the
	// run-loop goroutine.
	since time.Time
}

func New(cfg Config, deps core.RuntimeDeps) *Agent {
	if cfg.Interval <= 0 {
		cfg.Interval = 300 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	a := &Agent{
		Base: core.NewBase(ID, "Syncs LangSmith traces into local storage.", cfg.Interval, deps.Log),
		cfg:  cfg,
		deps: deps,
	}
	if cfg.APIKey != "" {
		a.client = NewClient(cfg.APIKey, deps.HTTP)
	}
	return a
}

func (a *Agent) Start(ctx context.Context) error {
	if a.deps.DB == nil {
		return fmt.Errorf("%s: database required", ID)
	}
	if a.client == nil {
		a.Log().Infow("langsmith api key not configured, bridge idles", "agent", ID)
	}
	a.since = time.Now().UTC().Add(-a.cfg.Interval)
	return nil
}

func (a *Agent) Run(ctx context.Context) error {
	return a.Loop(ctx, a.tick)
}

func (a *Agent) tick(ctx context.Context) error {
	if err := core.Beat(ctx, a.deps.DB, ID, nil); err != nil {
		return err
	}
	if a.client == nil {
		return nil
	}

	runs, err := a.client.RecentRuns(ctx, a.since, a.cfg.PageSize)
	if err != nil {
		// Upstream pressure is not worth a recovery cycle, catch up next tick.
		if logging.Transient(err) {
			a.Log().Warnw("langsmith under pressure, skipping sync", "err", err)
			return nil
		}
		return fmt.Errorf("fetch runs: %w", err)
	}
	if len(runs) == 0 {
		return nil
	}

	rows := make([]types.LLMConversation, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, ConversationFromRun(r))
		if r.StartTime.After(a.since) {
			a.since = r.StartTime
		}
	}

	err = a.deps.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trace_id"}},
		DoNothing: true,
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("store conversations: %w", err)
	}
	a.Log().Infow("synced llm runs", "count", len(rows))
	return nil
}

// ConversationFromRun flattens a LangSmith run into a conversation row.
func ConversationFromRun(r Run) types.LLMConversation {
	conv := types.LLMConversation{
		TraceID:      r.ID,
		SessionName:  r.SessionName,
		Model:        modelOf(r),
		Prompt:       firstString(r.Inputs, "input", "prompt", "question"),
		Completion:   firstString(r.Outputs, "output", "completion", "answer"),
		InputTokens:  r.PromptTokens,
		OutputTokens: r.CompletionTokens,
		RecordedAt:   r.StartTime,
	}
	if r.EndTime != nil {
		conv.LatencyMS = r.EndTime.Sub(r.StartTime).Milliseconds()
	}
	return conv
}

func modelOf(r Run) string {
	if params, ok := r.Extra["invocation_params"].(map[string]any); ok {
		if m, ok := params["model"].(string); ok && m != "" {
			return m
		}
	}
	return r.Name
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
