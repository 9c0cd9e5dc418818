package api

import (
	"context"
	"errors"
	"fmt"

	"viralvision/internal/queue"
)

const defaultListLimit = 50

// Poll returns the current state of a job owned by accountID.
func (s *Service) Poll(ctx context.Context, accountID, jobID int64) (JobView, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			return JobView{}, fmt.Errorf("%w: %d", ErrJobNotFound, jobID)
		}
		return JobView{}, err
	}
	if job.AccountID != accountID {
		return JobView{}, fmt.Errorf("%w: %d", ErrJobNotFound, jobID)
	}
	media, err := s.store.GetMedia(ctx, job.MediaID)
	if err != nil {
		return JobView{}, err
	}
	return FromJob(job, media), nil
}

// ListJobs returns the account's jobs, newest first.
func (s *Service) ListJobs(ctx context.Context, accountID int64, limit int) ([]JobSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	records, err := s.store.ListJobs(ctx, accountID, limit)
	if err != nil {
		return nil, err
	}
	return FromJobRecords(records), nil
}

// Stats summarizes the account's completed analyses.
func (s *Service) Stats(ctx context.Context, accountID int64) (StatsView, error) {
	stats, err := s.store.ScoreStats(ctx, accountID)
	if err != nil {
		return StatsView{}, err
	}
	return FromScoreStats(stats), nil
}

// Account returns the acting account's profile and balance.
func (s *Service) Account(ctx context.Context, accountID int64) (AccountView, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			return AccountView{}, fmt.Errorf("%w: %d", ErrUnknownAccount, accountID)
		}
		return AccountView{}, err
	}
	return FromAccount(account), nil
}
