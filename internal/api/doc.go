// Package api implements the produced interface of the job pipeline:
// admission-controlled submission and the polling read, plus the listing,
// stats, and account views the HTTP daemon and CLI render.
//
// # Admission
//
// Every Submit* call checks the account's balance against the admission
// minimum for its source kind (1.0 for uploads and links, 0.5 for scripts)
// before anything is persisted. The check holds no funds; the authoritative
// charge happens later in the workflow. A denied submission returns
// ErrAdmissionDenied and creates no job. Accepted submissions are recorded
// and handed to the Dispatcher, and the call returns the new job id with
// state "queued" without waiting on acquisition or analysis.
//
// # Views
//
// JobView is the polling payload. Score sections are only present once the
// job is completed, and failures expose no error detail to end users.
// JobSummary rows carry a display title resolved from the first optimized
// title, then the media title, then "Untitled". StatsView reports completed
// job counts, the rounded average score, and a growth potential bucket.
//
// DTOs use snake_case JSON tags. Timestamps use RFC3339 with milliseconds.
// Report sections pass through as json.RawMessage to avoid double-encoding.
package api
