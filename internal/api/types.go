package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SubmissionResponse is returned synchronously by every submission call.
type SubmissionResponse struct {
	JobID int64  `json:"job_id"`
	State string `json:"state"`
}

// ScriptRequest submits a text script.
type ScriptRequest struct {
	Script   string `json:"script"`
	Title    string `json:"title,omitempty"`
	Platform string `json:"platform,omitempty"`
}

// LinkRequest submits a remote video link.
type LinkRequest struct {
	URL string `json:"url"`
}

// JobView is the polling read for one job.
type JobView struct {
	ID              int64           `json:"id"`
	State           string          `json:"state"`
	SourceKind      string          `json:"source_kind"`
	Title           string          `json:"title,omitempty"`
	Platform        string          `json:"platform,omitempty"`
	DurationSeconds *float64        `json:"duration_seconds,omitempty"`
	Cost            *float64        `json:"cost,omitempty"`
	OverallScore    *int            `json:"overall_score,omitempty"`
	Subscores       json.RawMessage `json:"subscores,omitempty"`
	Insights        json.RawMessage `json:"insights,omitempty"`
	OptimizedAssets json.RawMessage `json:"optimized_assets,omitempty"`
	Checklist       json.RawMessage `json:"checklist,omitempty"`
	CreatedAt       string          `json:"created_at,omitempty"`
	CompletedAt     string          `json:"completed_at,omitempty"`

	// Operator-only failure label; never serialized to end users. The failure
	// message stays in the job row and the logs.
	ErrorKind string `json:"-"`
}

// JobSummary is one row of the job listing.
type JobSummary struct {
	ID           int64  `json:"id"`
	State        string `json:"state"`
	SourceKind   string `json:"source_kind"`
	Title        string `json:"title"`
	Platform     string `json:"platform,omitempty"`
	OverallScore *int   `json:"overall_score,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// JobListResponse wraps the job listing.
type JobListResponse struct {
	Jobs []JobSummary `json:"jobs"`
}

// StatsView summarizes an account's completed analyses.
type StatsView struct {
	TotalAnalyzed   int    `json:"total_analyzed"`
	AvgScore        int    `json:"avg_score"`
	GrowthPotential string `json:"growth_potential"`
}

// AccountView describes the acting account.
type AccountView struct {
	ID              int64   `json:"id"`
	Email           string  `json:"email"`
	Balance         float64 `json:"balance"`
	Plan            string  `json:"plan,omitempty"`
	PrimaryPlatform string  `json:"primary_platform,omitempty"`
	PrimaryCategory string  `json:"primary_category,omitempty"`
	CreatedAt       string  `json:"created_at,omitempty"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queue_stats"`
	LastError   string         `json:"last_error,omitempty"`
	LastJobID   int64          `json:"last_job_id,omitempty"`
	LastJobKind string         `json:"last_job_error_kind,omitempty"`
	StageHealth []StageHealth  `json:"stage_health"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Version     string `json:"version,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	DatabasePath string             `json:"database_path"`
	LockFilePath string             `json:"lock_file_path"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// ErrorResponse is the body of every non-2xx HTTP reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
