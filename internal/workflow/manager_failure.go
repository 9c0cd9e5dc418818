package workflow

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"viralvision/internal/acquire"
	"viralvision/internal/analysis"
	"viralvision/internal/logging"
	"viralvision/internal/queue"
	"viralvision/internal/services"
	"viralvision/internal/services/ytdlp"
	"viralvision/internal/stage"
)

// Failure kinds persisted in analysis_jobs.error_kind.
const (
	KindAcquisitionFailed       = "acquisition_failed"
	KindInsufficientCredits     = "insufficient_credits"
	KindAnalysisRejected        = "analysis_rejected"
	KindAnalysisResponseInvalid = "analysis_response_invalid"
	KindAnalysisTransport       = "analysis_transport"
	KindInterrupted             = "interrupted"
	KindInternal                = "internal"
)

const maxErrorMessage = 500

var errStagePanic = errors.New("stage panicked")

// ErrorKind maps a pipeline error to its taxonomy label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, errStagePanic):
		return KindInternal
	case errors.Is(err, context.Canceled):
		return KindInterrupted
	case errors.Is(err, acquire.ErrAcquisitionFailed):
		return KindAcquisitionFailed
	case errors.Is(err, queue.ErrInsufficientCredits):
		return KindInsufficientCredits
	case errors.Is(err, analysis.ErrRejected):
		return KindAnalysisRejected
	case errors.Is(err, analysis.ErrResponseInvalid):
		return KindAnalysisResponseInvalid
	case errors.Is(err, analysis.ErrTransport):
		return KindAnalysisTransport
	default:
		return KindInternal
	}
}

// acquisitionCause narrows an acquisition failure for operators.
func acquisitionCause(err error) string {
	switch {
	case errors.Is(err, acquire.ErrDurationExceeded):
		return "duration_exceeded"
	case errors.Is(err, acquire.ErrUnsupportedUpload):
		return "unsupported_upload"
	case errors.Is(err, acquire.ErrUploadTooLarge):
		return "upload_too_large"
	case errors.Is(err, ytdlp.ErrPrivate):
		return "private"
	case errors.Is(err, ytdlp.ErrInvalid):
		return "invalid"
	case errors.Is(err, ytdlp.ErrUnreachable):
		return "unreachable"
	default:
		return services.MarkerKind(err)
	}
}

var kindHints = map[string]string{
	KindAcquisitionFailed:       "check the source url or uploaded file",
	KindInsufficientCredits:     "grant credits to the account and resubmit",
	KindAnalysisRejected:        "content was refused by the analysis engine; no retry will help",
	KindAnalysisResponseInvalid: "inspect the raw response snippet in the error message",
	KindAnalysisTransport:       "check analysis endpoint reachability and api key",
	KindInterrupted:             "resubmit the job",
	KindInternal:                "check logs for the stack trace",
}

// fail records a terminal failure for the item's job and returns cause.
// The write survives cancellation of ctx so shutdown never strands a job in
// flight.
func (m *Manager) fail(ctx context.Context, item *stage.Item, stageName string, cause error) error {
	kind := ErrorKind(cause)
	if ctx.Err() != nil && kind != KindInternal {
		kind = KindInterrupted
	}
	writeCtx := context.WithoutCancel(ctx)
	logger := logging.WithContext(services.WithStage(ctx, stageName), m.logger)

	attrs := []logging.Attr{
		logging.ErrorKind(kind),
		logging.String(logging.FieldErrorHint, kindHints[kind]),
		logging.Error(cause),
	}
	if kind == KindAcquisitionFailed {
		if detail := acquisitionCause(cause); detail != "" {
			attrs = append(attrs, logging.String("error_cause", detail))
		}
	}
	if item.Quote.Amount > 0 {
		attrs = append(attrs, logging.String("charged", item.Quote.Amount.String()))
	}
	if kind == KindInternal {
		attrs = append(attrs, logging.Alert("job_internal_failure"))
	}
	logging.ErrorWithContext(logger, "job failed", "job_failed", attrs...)

	if err := m.store.FailJob(writeCtx, item.Job.ID, kind, failureMessage(stageName, cause)); err != nil {
		logger.Error("failed to persist job failure",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_fail_persist_failed"),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
	}
	m.setLastError(cause)
	m.recordLastJob(writeCtx, item.Job.ID)
	return cause
}

func failureMessage(stageName string, cause error) string {
	message := strings.TrimSpace(cause.Error())
	if message == "" {
		message = "failed without error detail"
	}
	if stageName != "" {
		message = stageName + ": " + message
	}
	if len(message) > maxErrorMessage {
		cut := maxErrorMessage
		for cut > 0 && !utf8.RuneStart(message[cut]) {
			cut--
		}
		message = message[:cut] + "..."
	}
	return message
}
