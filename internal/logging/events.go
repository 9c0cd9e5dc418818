package logging

import (
	"context"
	"log/slog"
)

const fallbackHint = "check logs for details"

// eventHints is the operator hint attached to an event when the caller
// does not supply one.
var eventHints = map[string]string{
	"job_failed":            "inspect error_kind; failed jobs are terminal and must be resubmitted",
	"job_load_failed":       "check queue database access",
	"analysis_unconfigured": "set analysis.api_key or VIRALVISION_ANALYSIS_API_KEY",
	"api_request_failed":    "the wrapped error is in this record; the client saw a generic 500",
	"probe_failed":          "verify the ffprobe binary; the job is priced at the unknown-duration tier",
	"discard_failed":        "remove the file from upload_dir manually",
	"lock_release_failed":   "remove the stale lock file before restarting",
}

// HintFor returns the default operator hint for an event type.
func HintFor(eventType string) string {
	if hint, ok := eventHints[eventType]; ok {
		return hint
	}
	return fallbackHint
}

// WarnWithContext logs a warning with enforced event_type and error_hint fields.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	logEvent(logger, slog.LevelWarn, msg, eventType, attrs)
}

// ErrorWithContext logs an error with enforced event_type and error_hint fields.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	logEvent(logger, slog.LevelError, msg, eventType, attrs)
}

func logEvent(logger *slog.Logger, level slog.Level, msg, eventType string, attrs []Attr) {
	if logger == nil {
		return
	}
	if !hasKey(attrs, FieldEventType) {
		attrs = append(attrs, String(FieldEventType, eventType))
	}
	if !hasKey(attrs, FieldErrorHint) {
		attrs = append(attrs, String(FieldErrorHint, HintFor(eventType)))
	}
	logger.LogAttrs(context.Background(), level, msg, attrs...)
}
