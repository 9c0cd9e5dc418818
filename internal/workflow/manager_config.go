package workflow

import "viralvision/internal/queue"

// ConfigureStages registers the concrete stage handlers the workflow will run.
// Stages run in a fixed order: acquire and charge while processing, then
// analyze while analyzing.
func (m *Manager) ConfigureStages(set StageSet) {
	stages := make([]pipelineStage, 0, 3)
	if set.Acquire != nil {
		stages = append(stages, pipelineStage{name: "acquire", handler: set.Acquire, status: queue.StatusProcessing})
	}
	if set.Charge != nil {
		stages = append(stages, pipelineStage{name: "charge", handler: set.Charge, status: queue.StatusProcessing})
	}
	if set.Analyze != nil {
		stages = append(stages, pipelineStage{name: "analyze", handler: set.Analyze, status: queue.StatusAnalyzing})
	}

	m.mu.Lock()
	m.stages = stages
	m.mu.Unlock()
}

func (m *Manager) stageSnapshot() []pipelineStage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]pipelineStage(nil), m.stages...)
}
