package queue

import (
	"encoding/json"
	"strings"
	"time"

	"viralvision/internal/credits"
)

// SourceKind identifies how a submission's media arrives.
type SourceKind string

const (
	SourceUpload SourceKind = "upload"
	SourceLink   SourceKind = "link"
	SourceScript SourceKind = "script"
)

// ParseSourceKind normalizes a textual source kind.
func ParseSourceKind(value string) (SourceKind, bool) {
	switch SourceKind(strings.ToLower(strings.TrimSpace(value))) {
	case SourceUpload:
		return SourceUpload, true
	case SourceLink:
		return SourceLink, true
	case SourceScript:
		return SourceScript, true
	default:
		return "", false
	}
}

// EntryType classifies a credit ledger history row.
type EntryType string

const (
	EntryGrant          EntryType = "grant"
	EntryAnalysisCharge EntryType = "analysis_charge"
)

// Account is a credit-holding identity.
type Account struct {
	ID              int64
	Email           string
	Balance         credits.Amount
	Plan            string
	PrimaryPlatform string
	PrimaryCategory string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewAccount describes an account to create.
type NewAccount struct {
	Email           string
	Balance         credits.Amount
	Plan            string
	PrimaryPlatform string
	PrimaryCategory string
}

// CreditEntry is one append-only ledger history row.
type CreditEntry struct {
	ID           int64
	AccountID    int64
	JobID        *int64
	Type         EntryType
	Amount       credits.Amount
	BalanceAfter credits.Amount
	CreatedAt    time.Time
}

// Media is the submitted material for one job. Acquisition fields move from
// unknown to known exactly once.
type Media struct {
	ID              int64
	AccountID       int64
	Kind            SourceKind
	SourceURL       string
	StoragePath     string
	ScriptText      string
	DurationSeconds *float64
	PlatformLabel   string
	Title           string
	Acquired        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Acquisition carries the fields a completed acquisition fills in.
type Acquisition struct {
	StoragePath     string
	DurationSeconds *float64
	PlatformLabel   string
	Title           string
}

// Job is one analysis request moving through the pipeline.
type Job struct {
	ID                  int64
	AccountID           int64
	MediaID             int64
	Status              Status
	OverallScore        *int
	SubscoresJSON       string
	InsightsJSON        string
	OptimizedAssetsJSON string
	ChecklistJSON       string
	Cost                *credits.Amount
	ErrorKind           string
	ErrorMessage        string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	CompletedAt         *time.Time
}

// IsTerminal reports whether the job can no longer change.
func (j *Job) IsTerminal() bool {
	return j != nil && j.Status.IsTerminal()
}

// Report is the terminal payload written exactly once on completion.
type Report struct {
	OverallScore    int
	Subscores       json.RawMessage
	Insights        json.RawMessage
	OptimizedAssets json.RawMessage
	Checklist       json.RawMessage
}

// Submission describes the media half of a new job.
type Submission struct {
	AccountID  int64
	Kind       SourceKind
	SourceURL  string
	LocalPath  string
	ScriptText string
	Title      string

	// PlatformLabel is the caller's stated platform, used for scripts.
	PlatformLabel string
}

// JobRecord pairs a job with its media item for listings.
type JobRecord struct {
	Job   *Job
	Media *Media
}

// ScoreStats aggregates completed jobs for one account.
type ScoreStats struct {
	Completed    int
	AverageScore float64
}
