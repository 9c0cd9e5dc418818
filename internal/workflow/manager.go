package workflow

import (
	"context"
	"log/slog"
	"sync"

	"viralvision/internal/config"
	"viralvision/internal/logging"
	"viralvision/internal/queue"
)

// Manager coordinates job execution using registered stage handlers.
type Manager struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger

	stages []pipelineStage

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	runCtx  context.Context
	jobs    chan int64
	wg      sync.WaitGroup
	lastErr error
	lastJob *queue.Job
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "workflow"),
	}
}

func (m *Manager) workerCount() int {
	if m.cfg == nil || m.cfg.Workflow.Workers <= 0 {
		return 1
	}
	return m.cfg.Workflow.Workers
}

func (m *Manager) queueDepth() int {
	if m.cfg == nil || m.cfg.Workflow.QueueDepth <= 0 {
		return 1
	}
	return m.cfg.Workflow.QueueDepth
}
