package queue

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"viralvision/internal/credits"
)

const accountColumns = "id, email, credits_milli, plan, primary_platform, primary_category, created_at, updated_at"

const mediaColumns = "id, account_id, source_kind, source_url, storage_path, script_text, duration_seconds, platform_label, title, acquired, created_at, updated_at"

const jobColumns = "id, account_id, media_id, status, overall_score, subscores_json, insights_json, optimized_assets_json, checklist_json, cost_milli, error_kind, error_message, created_at, updated_at, completed_at"

type rowScanner interface{ Scan(dest ...any) error }

func scanAccount(scanner rowScanner) (*Account, error) {
	var (
		account    Account
		balance    int64
		plan       sql.NullString
		platform   sql.NullString
		category   sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(&account.ID, &account.Email, &balance, &plan, &platform, &category, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	account.Balance = credits.Amount(balance)
	account.Plan = plan.String
	account.PrimaryPlatform = platform.String
	account.PrimaryCategory = category.String
	account.CreatedAt = parseTimeOrZero(createdRaw.String)
	account.UpdatedAt = parseTimeOrZero(updatedRaw.String)
	return &account, nil
}

type mediaScan struct {
	media       Media
	kind        string
	sourceURL   sql.NullString
	storagePath sql.NullString
	script      sql.NullString
	platform    sql.NullString
	title       sql.NullString
	duration    sql.NullFloat64
	acquired    int64
	createdRaw  sql.NullString
	updatedRaw  sql.NullString
}

func (m *mediaScan) dest() []any {
	return []any{
		&m.media.ID, &m.media.AccountID, &m.kind, &m.sourceURL, &m.storagePath, &m.script,
		&m.duration, &m.platform, &m.title, &m.acquired, &m.createdRaw, &m.updatedRaw,
	}
}

func (m *mediaScan) result() *Media {
	out := m.media
	out.Kind = SourceKind(m.kind)
	out.SourceURL = m.sourceURL.String
	out.StoragePath = m.storagePath.String
	out.ScriptText = m.script.String
	out.PlatformLabel = m.platform.String
	out.Title = m.title.String
	if m.duration.Valid {
		d := m.duration.Float64
		out.DurationSeconds = &d
	}
	out.Acquired = m.acquired != 0
	out.CreatedAt = parseTimeOrZero(m.createdRaw.String)
	out.UpdatedAt = parseTimeOrZero(m.updatedRaw.String)
	return &out
}

type jobScan struct {
	job          Job
	status       string
	score        sql.NullInt64
	subscores    sql.NullString
	insights     sql.NullString
	assets       sql.NullString
	checklist    sql.NullString
	cost         sql.NullInt64
	errorKind    sql.NullString
	errorMessage sql.NullString
	createdRaw   sql.NullString
	updatedRaw   sql.NullString
	completedRaw sql.NullString
}

func (j *jobScan) dest() []any {
	return []any{
		&j.job.ID, &j.job.AccountID, &j.job.MediaID, &j.status, &j.score,
		&j.subscores, &j.insights, &j.assets, &j.checklist, &j.cost,
		&j.errorKind, &j.errorMessage, &j.createdRaw, &j.updatedRaw, &j.completedRaw,
	}
}

func (j *jobScan) result() *Job {
	out := j.job
	out.Status = Status(j.status)
	if j.score.Valid {
		score := int(j.score.Int64)
		out.OverallScore = &score
	}
	out.SubscoresJSON = j.subscores.String
	out.InsightsJSON = j.insights.String
	out.OptimizedAssetsJSON = j.assets.String
	out.ChecklistJSON = j.checklist.String
	if j.cost.Valid {
		cost := credits.Amount(j.cost.Int64)
		out.Cost = &cost
	}
	out.ErrorKind = j.errorKind.String
	out.ErrorMessage = j.errorMessage.String
	out.CreatedAt = parseTimeOrZero(j.createdRaw.String)
	out.UpdatedAt = parseTimeOrZero(j.updatedRaw.String)
	if j.completedRaw.Valid {
		if ts, err := parseTimeString(j.completedRaw.String); err == nil {
			out.CompletedAt = &ts
		}
	}
	return &out
}

func scanJob(scanner rowScanner) (*Job, error) {
	var js jobScan
	if err := scanner.Scan(js.dest()...); err != nil {
		return nil, err
	}
	return js.result(), nil
}

func scanMedia(scanner rowScanner) (*Media, error) {
	var ms mediaScan
	if err := scanner.Scan(ms.dest()...); err != nil {
		return nil, err
	}
	return ms.result(), nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableJSON(value json.RawMessage) any {
	trimmed := strings.TrimSpace(string(value))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	return trimmed
}

// timestampLayout is fixed width so stored timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func nowString() string {
	return time.Now().UTC().Format(timestampLayout)
}

func parseTimeString(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
}

func parseTimeOrZero(value string) time.Time {
	ts, err := parseTimeString(value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func statusArgs(statuses []Status) (string, []any) {
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		placeholders[i] = "?"
		args[i] = string(status)
	}
	return strings.Join(placeholders, ","), args
}
