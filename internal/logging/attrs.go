package logging

import (
	"log/slog"
	"time"

	"viralvision/internal/credits"
)

type Attr = slog.Attr

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

// JobID tags a record with an analysis job id outside a job-scoped context.
func JobID(id int64) Attr { return slog.Int64(FieldJobID, id) }

// AccountID tags a record with the owning account.
func AccountID(id int64) Attr { return slog.Int64(FieldAccountID, id) }

// Credits renders an amount at ledger precision so log lines match balances.
func Credits(key string, amount credits.Amount) Attr { return slog.String(key, amount.String()) }

// ErrorKind carries the failure taxonomy label persisted on the job.
func ErrorKind(kind string) Attr { return slog.String(FieldErrorKind, kind) }

func Alert(value string) Attr { return slog.String(FieldAlert, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

func Args(attrs ...Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

func hasKey(attrs []Attr, key string) bool {
	for _, a := range attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}
