package aihelp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opspulse/background-agents/src/agents/core"
	"github.com/opspulse/background-agents/src/logging"
	"github.com/opspulse/background-agents/src/types"
)

// ID is the worker id this agent registers under.
const ID = "ai_help_agent"

// Config exposes the help responder's knobs. Without an APIKey the agent
// still drains the queue using templated answers.
type Config struct {
	Interval  time.Duration
	APIKey    string
	Model     string
	BatchSize int
}

// Agent drains pending help requests and files a response for each.
type Agent struct {
	*core.Base
	cfg  Config
	deps core.RuntimeDeps
	ai   *ClaudeClient
}

func New(cfg Config, deps core.RuntimeDeps) *Agent {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	a := &Agent{
		Base: core.NewBase(ID, "Answers queued help requests.", cfg.Interval, deps.Log),
		cfg:  cfg,
		deps: deps,
	}
	if cfg.APIKey != "" {
		a.ai = NewClaudeClient(cfg.APIKey, cfg.Model, deps.HTTP)
	}
	return a
}

func (a *Agent) Start(ctx context.Context) error {
	if a.deps.DB == nil {
		return fmt.Errorf("%s: database required", ID)
	}
	if a.ai == nil {
		a.Log().Infow("anthropic api key not configured, using templated answers", "agent", ID)
	}
	return nil
}

func (a *Agent) Run(ctx context.Context) error {
	return a.Loop(ctx, a.tick)
}

func (a *Agent) tick(ctx context.Context) error {
	if err := core.Beat(ctx, a.deps.DB, ID, nil); err != nil {
		return err
	}

	var pending []types.HelpRequest
	err := a.deps.DB.WithContext(ctx).
		Where("status = ?", types.HelpStatusPending).
		Order("created_at ASC").
		Limit(a.cfg.BatchSize).
		Find(&pending).Error
	if err != nil {
		return fmt.Errorf("load help requests: %w", err)
	}

	for i := range pending {
		req := &pending[i]
		if err := a.answer(ctx, req); err != nil {
			// One bad request must not take the whole agent down.
			a.Log().Errorw("help request failed", "request", req.ID, "err", err)
			_ = a.markStatus(ctx, req, types.HelpStatusFailed)
		}
	}
	return nil
}

func (a *Agent) answer(ctx context.Context, req *types.HelpRequest) error {
	if err := a.markStatus(ctx, req, types.HelpStatusInProgress); err != nil {
		return err
	}

	body, model := a.compose(ctx, req)
	resp := types.HelpResponse{
		ID:        uuid.NewString(),
		RequestID: req.ID,
		Responder: ID,
		Body:      body,
		Model:     model,
	}
	if err := a.deps.DB.WithContext(ctx).Create(&resp).Error; err != nil {
		return fmt.Errorf("store response: %w", err)
	}
	return a.markStatus(ctx, req, types.HelpStatusCompleted)
}

// compose produces the answer text, falling back to a templated reply when
// no AI client is configured or the call fails.
func (a *Agent) compose(ctx context.Context, req *types.HelpRequest) (body, model string) {
	if a.ai != nil {
		text, err := a.ai.Answer(ctx, req.Subject, req.Body)
		if err == nil {
			return text, a.ai.Model()
		}
		if logging.Transient(err) {
			a.Log().Warnw("anthropic under pressure, using fallback",
				"request", req.ID, "rate_limited", logging.IsRateLimit(err), "err", err)
		} else {
			a.Log().Warnw("ai answer failed, using fallback", "request", req.ID, "err", err)
		}
	}
	return FallbackAnswer(req.Subject), "template"
}

func (a *Agent) markStatus(ctx context.Context, req *types.HelpRequest, status string) error {
	err := a.deps.DB.WithContext(ctx).Model(req).Update("status", status).Error
	if err != nil {
		return fmt.Errorf("mark %s: %w", status, err)
	}
	return nil
}

// FallbackAnswer acknowledges a request when no model is reachable.
func FallbackAnswer(subject string) string {
	return fmt.Sprintf("Your request %q was received. No AI responder is configured, "+
		"so an operator will follow up. Consult the operations runbook for common fixes.", subject)
}
