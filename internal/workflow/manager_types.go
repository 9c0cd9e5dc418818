package workflow

import (
	"viralvision/internal/queue"
	"viralvision/internal/stage"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Acquire stage.Handler
	Charge  stage.Handler
	Analyze stage.Handler
}

// pipelineStage runs handler while the job is in status. The manager moves
// the job into status before the handler executes.
type pipelineStage struct {
	name    string
	handler stage.Handler
	status  queue.Status
}
