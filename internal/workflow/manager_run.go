package workflow

import (
	"context"
	"errors"

	"viralvision/internal/logging"
	"viralvision/internal/queue"
)

// Start begins background processing. Jobs a previous process left in
// flight are failed as interrupted and jobs still queued are re-dispatched.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.stages) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	interrupted, err := m.store.FailInterrupted(ctx, KindInterrupted, "job was in flight when the service stopped")
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if interrupted > 0 {
		m.logger.Warn("failed interrupted jobs",
			logging.Int64("count", interrupted),
			logging.String(logging.FieldEventType, "jobs_interrupted"),
			logging.String(logging.FieldErrorHint, "resubmit the affected jobs"),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.runCtx = runCtx
	m.cancel = cancel
	m.jobs = make(chan int64, m.queueDepth())
	m.running = true

	workers := m.workerCount()
	m.wg.Add(workers)
	jobs := m.jobs
	m.mu.Unlock()

	for i := 0; i < workers; i++ {
		go m.worker(runCtx, jobs)
	}

	pending, err := m.store.ListByStatus(ctx, queue.StatusQueued)
	if err != nil {
		m.setLastError(err)
		m.logger.Error("failed to list queued jobs",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_fetch_failed"),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
		return nil
	}
	for _, job := range pending {
		m.Dispatch(job.ID)
	}
	if len(pending) > 0 {
		m.logger.Info("re-dispatched queued jobs", logging.Int("count", len(pending)))
	}
	return nil
}

// Stop terminates background processing and waits for in-flight jobs to
// record their final state.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Dispatch schedules a job. It never blocks: when the queue is full a
// detached goroutine waits for capacity. Jobs dispatched while the manager
// is stopped stay queued and are picked up by the next Start.
func (m *Manager) Dispatch(jobID int64) {
	m.mu.RLock()
	running := m.running
	jobs := m.jobs
	runCtx := m.runCtx
	m.mu.RUnlock()

	if !running {
		m.logger.Debug("dispatch deferred until start", logging.JobID(jobID))
		return
	}

	select {
	case jobs <- jobID:
	default:
		m.logger.Debug("dispatch queue full; waiting for capacity", logging.JobID(jobID))
		go func() {
			select {
			case jobs <- jobID:
			case <-runCtx.Done():
			}
		}()
	}
}

func (m *Manager) worker(ctx context.Context, jobs <-chan int64) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-jobs:
			_ = m.Run(ctx, jobID)
		}
	}
}
