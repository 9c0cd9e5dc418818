package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"unicode/utf8"

	"viralvision/internal/acquire"
	"viralvision/internal/config"
	"viralvision/internal/credits"
	"viralvision/internal/logging"
	"viralvision/internal/queue"
	"viralvision/internal/services"
)

const maxScriptRunes = 20000

var (
	// ErrAdmissionDenied reports a balance below the admission minimum. No
	// job is created.
	ErrAdmissionDenied = errors.New("admission denied: insufficient credits")
	// ErrInvalidInput reports a malformed submission.
	ErrInvalidInput = errors.New("invalid submission")
	// ErrUnknownAccount reports an acting account that does not exist.
	ErrUnknownAccount = errors.New("unknown account")
	// ErrJobNotFound reports a job that does not exist or belongs to another account.
	ErrJobNotFound = errors.New("job not found")
)

// Store is the persistence the service needs.
type Store interface {
	Reserve(ctx context.Context, accountID int64, minCost credits.Amount) (bool, error)
	CreateSubmission(ctx context.Context, sub queue.Submission) (*queue.Job, error)
	GetJob(ctx context.Context, id int64) (*queue.Job, error)
	GetMedia(ctx context.Context, id int64) (*queue.Media, error)
	GetAccount(ctx context.Context, id int64) (*queue.Account, error)
	ListJobs(ctx context.Context, accountID int64, limit int) ([]queue.JobRecord, error)
	ScoreStats(ctx context.Context, accountID int64) (queue.ScoreStats, error)
}

// Dispatcher schedules an accepted job. It must not block.
type Dispatcher interface {
	Dispatch(jobID int64)
}

// LinkChecker validates a submitted link before it is accepted.
type LinkChecker interface {
	CheckURL(raw string) (*url.URL, error)
}

// Service is the submission and read surface shared by the HTTP daemon and
// the CLI.
type Service struct {
	store      Store
	dispatcher Dispatcher
	links      LinkChecker
	uploadDir  string
	maxUpload  int64
	logger     *slog.Logger
}

// NewService wires the service. links may be nil, in which case only the
// URL scheme is checked at admission.
func NewService(cfg *config.Config, store Store, dispatcher Dispatcher, links LinkChecker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		links:      links,
		uploadDir:  cfg.Paths.UploadDir,
		maxUpload:  int64(cfg.API.MaxUploadMB) << 20,
		logger:     logging.NewComponentLogger(logger, "api"),
	}
}

// SubmitScript admits a script submission.
func (s *Service) SubmitScript(ctx context.Context, accountID int64, req ScriptRequest) (SubmissionResponse, error) {
	script := strings.TrimSpace(req.Script)
	if script == "" {
		return SubmissionResponse{}, fmt.Errorf("%w: script is empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(script) > maxScriptRunes {
		return SubmissionResponse{}, fmt.Errorf("%w: script exceeds %d characters", ErrInvalidInput, maxScriptRunes)
	}
	if err := s.admit(ctx, accountID, true); err != nil {
		return SubmissionResponse{}, err
	}
	return s.accept(ctx, queue.Submission{
		AccountID:     accountID,
		Kind:          queue.SourceScript,
		ScriptText:    script,
		Title:         strings.TrimSpace(req.Title),
		PlatformLabel: strings.TrimSpace(req.Platform),
	})
}

// SubmitLink admits a remote link submission.
func (s *Service) SubmitLink(ctx context.Context, accountID int64, req LinkRequest) (SubmissionResponse, error) {
	normalized, err := s.checkLink(req.URL)
	if err != nil {
		return SubmissionResponse{}, err
	}
	if err := s.admit(ctx, accountID, false); err != nil {
		return SubmissionResponse{}, err
	}
	return s.accept(ctx, queue.Submission{
		AccountID: accountID,
		Kind:      queue.SourceLink,
		SourceURL: normalized,
	})
}

// SubmitUpload admits an uploaded file. Admission runs before the body is
// stored so a denied caller never leaves a file behind.
func (s *Service) SubmitUpload(ctx context.Context, accountID int64, filename string, body io.Reader) (SubmissionResponse, error) {
	if _, err := acquire.CheckUploadName(filename); err != nil {
		return SubmissionResponse{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := s.admit(ctx, accountID, false); err != nil {
		return SubmissionResponse{}, err
	}
	path, err := acquire.SaveUpload(s.uploadDir, filename, body, s.maxUpload)
	if err != nil {
		if errors.Is(err, acquire.ErrUnsupportedUpload) || errors.Is(err, acquire.ErrUploadTooLarge) {
			return SubmissionResponse{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return SubmissionResponse{}, err
	}
	resp, err := s.accept(ctx, queue.Submission{
		AccountID: accountID,
		Kind:      queue.SourceUpload,
		LocalPath: path,
		Title:     uploadTitle(filename),
	})
	if err != nil {
		_ = os.Remove(path)
	}
	return resp, err
}

func (s *Service) checkLink(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: url is empty", ErrInvalidInput)
	}
	if s.links != nil {
		parsed, err := s.links.CheckURL(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return parsed.String(), nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("%w: %q is not an http(s) url", ErrInvalidInput, raw)
	}
	return parsed.String(), nil
}

// admit runs the balance pre-check. It holds no funds.
func (s *Service) admit(ctx context.Context, accountID int64, script bool) error {
	minimum := credits.AdmissionMinimum(script)
	ok, err := s.store.Reserve(ctx, accountID, minimum)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrUnknownAccount, accountID)
		}
		return err
	}
	if !ok {
		logging.WithContext(services.WithAccountID(ctx, accountID), s.logger).Info("submission denied",
			logging.Credits("minimum", minimum),
			logging.String(logging.FieldEventType, "admission_denied"),
		)
		return fmt.Errorf("%w: at least %s credits required", ErrAdmissionDenied, minimum)
	}
	return nil
}

func (s *Service) accept(ctx context.Context, sub queue.Submission) (SubmissionResponse, error) {
	job, err := s.store.CreateSubmission(ctx, sub)
	if err != nil {
		return SubmissionResponse{}, err
	}
	ctx = services.WithJobID(services.WithAccountID(ctx, sub.AccountID), job.ID)
	logging.WithContext(ctx, s.logger).Info("submission accepted",
		logging.String("source_kind", string(sub.Kind)),
		logging.String(logging.FieldEventType, "job_submitted"),
	)
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(job.ID)
	}
	return SubmissionResponse{JobID: job.ID, State: string(job.Status)}, nil
}

func uploadTitle(filename string) string {
	name := strings.TrimSpace(filename)
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}
	if dot := strings.LastIndex(name, "."); dot > 0 {
		name = name[:dot]
	}
	return strings.TrimSpace(name)
}
