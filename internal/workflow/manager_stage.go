package workflow

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"viralvision/internal/logging"
	"viralvision/internal/queue"
	"viralvision/internal/services"
	"viralvision/internal/stage"
)

var errMissingReport = errors.New("pipeline finished without a report")

// Run drives one job end to end: acquire, charge, analyze, complete. Every
// exit after the job leaves QUEUED writes a terminal state. A job that is no
// longer queued when picked up, or that another worker claims first, is
// skipped.
func (m *Manager) Run(ctx context.Context, jobID int64) error {
	ctx = services.WithJobID(ctx, jobID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, m.logger)

	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		m.setLastError(err)
		logging.ErrorWithContext(logger, "failed to load job", "job_load_failed", logging.Error(err))
		return err
	}
	if job.Status != queue.StatusQueued {
		logger.Debug("job already picked up", logging.String("status", string(job.Status)))
		return nil
	}

	ctx = services.WithAccountID(ctx, job.AccountID)
	item := &stage.Item{Job: job}
	if err := m.loadRelated(ctx, item); err != nil {
		return m.fail(ctx, item, "load", err)
	}

	started := time.Now()
	status := queue.StatusQueued
	for _, stg := range m.stageSnapshot() {
		if stg.status != status {
			if err := m.store.Transition(ctx, job.ID, status, stg.status); err != nil {
				if status == queue.StatusQueued && errors.Is(err, queue.ErrInvalidTransition) {
					// Another worker claimed the job between the load and the move.
					logger.Debug("job already picked up", logging.Error(err))
					return nil
				}
				return m.fail(ctx, item, stg.name, err)
			}
			logging.WithContext(ctx, m.logger).Info("job state changed",
				logging.String("from", string(status)),
				logging.String("to", string(stg.status)),
				logging.String(logging.FieldEventType, "job_state"),
			)
			status = stg.status
			item.Job.Status = status
		}
		if err := m.executeStage(ctx, stg, item); err != nil {
			return m.fail(ctx, item, stg.name, err)
		}
	}

	if item.Report == nil {
		return m.fail(ctx, item, "complete", errMissingReport)
	}
	if err := m.store.CompleteJob(ctx, job.ID, *item.Report); err != nil {
		return m.fail(ctx, item, "complete", err)
	}

	logging.WithContext(ctx, m.logger).Info("job completed",
		logging.Int("overall_score", item.Report.OverallScore),
		logging.Credits("cost", item.Quote.Amount),
		logging.Credits("balance_after", item.Balance),
		logging.Duration("job_duration", time.Since(started)),
		logging.String(logging.FieldEventType, "job_completed"),
	)
	m.recordLastJob(ctx, job.ID)
	return nil
}

func (m *Manager) loadRelated(ctx context.Context, item *stage.Item) error {
	media, err := m.store.GetMedia(ctx, item.Job.MediaID)
	if err != nil {
		return fmt.Errorf("load media: %w", err)
	}
	account, err := m.store.GetAccount(ctx, item.Job.AccountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	item.Media = media
	item.Account = account
	return nil
}

// executeStage runs one handler. A panic is recovered into an error so the
// job still reaches FAILED.
func (m *Manager) executeStage(ctx context.Context, stg pipelineStage, item *stage.Item) (err error) {
	stageCtx := services.WithStage(ctx, stg.name)
	logger := logging.WithContext(stageCtx, m.logger)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", errStagePanic, stg.name, r)
			logger.Error("stage panicked",
				logging.String("panic", fmt.Sprint(r)),
				logging.String("stack", string(debug.Stack())),
				logging.Alert("stage_panic"),
			)
		}
	}()

	start := time.Now()
	logger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))
	if err := stg.handler.Execute(stageCtx, item); err != nil {
		return err
	}
	logger.Debug("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(start)),
	)
	return nil
}
