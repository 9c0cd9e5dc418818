package api

import (
	"encoding/json"
	"math"
	"slices"
	"strings"
	"time"

	"viralvision/internal/analysis"
	"viralvision/internal/deps"
	"viralvision/internal/queue"
	"viralvision/internal/stage"
	"viralvision/internal/workflow"
)

const untitled = "Untitled"

// Growth potential buckets derived from the average score.
const (
	GrowthHigh   = "High"
	GrowthMedium = "Medium"
	GrowthLow    = "Low"
)

// FromJob converts a job and its media item to the polling payload. Report
// sections are only attached to completed jobs.
func FromJob(job *queue.Job, media *queue.Media) JobView {
	if job == nil {
		return JobView{}
	}
	view := JobView{
		ID:        job.ID,
		State:     string(job.Status),
		CreatedAt: FormatTime(job.CreatedAt),
		ErrorKind: job.ErrorKind,
	}
	if job.CompletedAt != nil {
		view.CompletedAt = FormatTime(*job.CompletedAt)
	}
	if job.Cost != nil {
		cost := job.Cost.Credits()
		view.Cost = &cost
	}
	if media != nil {
		view.SourceKind = string(media.Kind)
		view.Platform = media.PlatformLabel
		view.DurationSeconds = media.DurationSeconds
	}
	view.Title = DisplayTitle(job, media)
	if job.Status == queue.StatusCompleted {
		view.OverallScore = job.OverallScore
		view.Subscores = rawOrNil(job.SubscoresJSON)
		view.Insights = rawOrNil(job.InsightsJSON)
		view.OptimizedAssets = rawOrNil(job.OptimizedAssetsJSON)
		view.Checklist = rawOrNil(job.ChecklistJSON)
	}
	return view
}

// FromJobRecord converts a listing row.
func FromJobRecord(rec queue.JobRecord) JobSummary {
	if rec.Job == nil {
		return JobSummary{}
	}
	summary := JobSummary{
		ID:        rec.Job.ID,
		State:     string(rec.Job.Status),
		Title:     DisplayTitle(rec.Job, rec.Media),
		CreatedAt: FormatTime(rec.Job.CreatedAt),
	}
	if rec.Media != nil {
		summary.SourceKind = string(rec.Media.Kind)
		summary.Platform = rec.Media.PlatformLabel
	}
	if rec.Job.Status == queue.StatusCompleted {
		summary.OverallScore = rec.Job.OverallScore
	}
	return summary
}

// FromJobRecords converts a listing, preserving order.
func FromJobRecords(records []queue.JobRecord) []JobSummary {
	out := make([]JobSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, FromJobRecord(rec))
	}
	return out
}

// DisplayTitle picks the first optimized title, then the media title, then
// "Untitled".
func DisplayTitle(job *queue.Job, media *queue.Media) string {
	if job != nil {
		if assets, ok := analysis.DecodeOptimizedAssets(job.OptimizedAssetsJSON); ok {
			for _, title := range assets.Titles {
				if title = strings.TrimSpace(title); title != "" {
					return title
				}
			}
		}
	}
	if media != nil {
		if title := strings.TrimSpace(media.Title); title != "" {
			return title
		}
	}
	return untitled
}

// FromScoreStats converts the aggregate into the stats payload.
func FromScoreStats(stats queue.ScoreStats) StatsView {
	avg := int(math.Round(stats.AverageScore))
	return StatsView{
		TotalAnalyzed:   stats.Completed,
		AvgScore:        avg,
		GrowthPotential: GrowthPotential(avg),
	}
}

// GrowthPotential buckets an average score: High at 80 and above, Medium at
// 50 and above, Low otherwise.
func GrowthPotential(avg int) string {
	switch {
	case avg >= 80:
		return GrowthHigh
	case avg >= 50:
		return GrowthMedium
	default:
		return GrowthLow
	}
}

// FromAccount converts an account record.
func FromAccount(account *queue.Account) AccountView {
	if account == nil {
		return AccountView{}
	}
	return AccountView{
		ID:              account.ID,
		Email:           account.Email,
		Balance:         account.Balance.Credits(),
		Plan:            account.Plan,
		PrimaryPlatform: account.PrimaryPlatform,
		PrimaryCategory: account.PrimaryCategory,
		CreatedAt:       FormatTime(account.CreatedAt),
	}
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:     summary.Running,
		QueueStats:  MergeQueueStats(summary.QueueStats),
		StageHealth: StageHealthSlice(summary.StageHealth),
		LastError:   summary.LastError,
	}
	if summary.LastJob != nil {
		wf.LastJobID = summary.LastJob.ID
		wf.LastJobKind = summary.LastJob.ErrorKind
	}
	return wf
}

// MergeQueueStats produces a string-keyed representation of queue stats.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// StageHealthSlice converts a stage health map into a deterministic slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FromDependencies converts binary availability reports.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Version:     dep.Version,
			Detail:      dep.Detail,
		}
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func rawOrNil(value string) json.RawMessage {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return json.RawMessage(value)
}
