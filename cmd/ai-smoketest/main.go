package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/opspulse/background-agents/src/agents/aihelp"
	"github.com/opspulse/background-agents/src/agents/langsmith"
	"github.com/opspulse/background-agents/src/config"
	"github.com/opspulse/background-agents/src/logging"
	"github.com/opspulse/background-agents/src/webclient"
)

var (
	targetsFlag = flag.String("targets", "anthropic", "Comma-separated integration list or 'all'")
	subjectFlag = flag.String("subject", defaultSubject, "Help request subject for the anthropic probe")
	bodyFlag    = flag.String("body", defaultBody, "Help request body for the anthropic probe")
	modelFlag   = flag.String("model", "", "Override the Anthropic model name")
	sinceFlag   = flag.Duration("since", time.Hour, "LangSmith lookback window")
	limitFlag   = flag.Int("limit", 5, "Maximum LangSmith runs to fetch")
	timeoutFlag = flag.Duration("timeout", 45*time.Second, "Per-integration timeout")
	maxLenFlag  = flag.Int("max-bytes", 1200, "Maximum bytes of output to print per response (0=unlimited)")
)

var allTargets = []string{"anthropic", "langsmith"}

const (
	defaultSubject = "heartbeat agent keeps restarting"
	defaultBody    = "The heartbeat agent has restarted four times in the last hour. " +
		"Recovery attempts are exhausted and the agent is now marked error. " +
		"What should I check first?"
)

func main() {
	log.SetFlags(0)
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	targets := resolveTargets(*targetsFlag)
	if len(targets) == 0 {
		log.Fatal("no targets specified")
	}

	for _, target := range targets {
		if err := runTarget(target, cfg); err != nil {
			if logging.IsRateLimit(err) {
				log.Printf("[%s] rate limited, retry later: %v", target, err)
				continue
			}
			log.Printf("[%s] ERROR: %v", target, err)
		}
	}
}

func runTarget(target string, cfg config.Config) error {
	fmt.Printf("=== %s ===\n", target)
	switch target {
	case "anthropic":
		return probeAnthropic(cfg)
	case "langsmith":
		return probeLangsmith(cfg)
	default:
		return fmt.Errorf("unknown target %q (expected anthropic or langsmith)", target)
	}
}

func probeAnthropic(cfg config.Config) error {
	if cfg.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	model := pickFirst(*modelFlag, cfg.AnthropicModel)
	client := aihelp.NewClaudeClient(cfg.AnthropicAPIKey, model, webclient.NewDefault(*timeoutFlag))

	start := time.Now()
	reply, err := client.Answer(ctx, *subjectFlag, *bodyFlag)
	if err != nil {
		fmt.Printf("answer ❌ %v\n", err)
		return err
	}
	fmt.Printf("answer ✅ %s (%.1fs)\n%s\n", client.Model(), time.Since(start).Seconds(), truncate(reply, *maxLenFlag))
	return nil
}

func probeLangsmith(cfg config.Config) error {
	if cfg.LangsmithAPIKey == "" {
		return fmt.Errorf("LANGSMITH_API_KEY not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	client := langsmith.NewClient(cfg.LangsmithAPIKey, webclient.NewDefault(*timeoutFlag))

	start := time.Now()
	runs, err := client.RecentRuns(ctx, time.Now().UTC().Add(-*sinceFlag), *limitFlag)
	if err != nil {
		fmt.Printf("query ❌ %v\n", err)
		return err
	}
	fmt.Printf("query ✅ %d runs in the last %s (%.1fs)\n", len(runs), *sinceFlag, time.Since(start).Seconds())
	for _, r := range runs {
		fmt.Printf("  %s  %s  %s\n", r.StartTime.Format(time.RFC3339), r.ID, truncate(r.Name, 60))
	}
	return nil
}

func resolveTargets(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.EqualFold(raw, "all") {
		return append([]string{}, allTargets...)
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	var out []string
	seen := map[string]struct{}{}
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func pickFirst(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:limit]) + "...(truncated)"
}
