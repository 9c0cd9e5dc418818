package analysis

import (
	"context"
	"strings"

	"viralvision/internal/stage"
)

// HealthChecker verifies the analysis engine is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Stage runs the Invoker inside the workflow.
type Stage struct {
	invoker *Invoker
	health  HealthChecker
	apiKey  string
}

// NewStage wraps an Invoker. health may be nil, in which case HealthCheck
// only verifies that an API key is configured.
func NewStage(invoker *Invoker, health HealthChecker, apiKey string) *Stage {
	return &Stage{invoker: invoker, health: health, apiKey: strings.TrimSpace(apiKey)}
}

// Execute analyzes the item and stores the report on it.
func (s *Stage) Execute(ctx context.Context, item *stage.Item) error {
	if err := stage.RequireLoaded("analyze", item); err != nil {
		return err
	}
	report, err := s.invoker.Analyze(ctx, item.Media, item.Account)
	if err != nil {
		return err
	}
	item.Report = &report
	return nil
}

// HealthCheck reports analysis readiness.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if s.apiKey == "" {
		return stage.Unhealthy("analyze", "analysis api key not configured")
	}
	if s.health != nil {
		if err := s.health.HealthCheck(ctx); err != nil {
			return stage.Unhealthy("analyze", err.Error())
		}
	}
	return stage.Healthy("analyze")
}
