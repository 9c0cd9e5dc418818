package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"viralvision/internal/config"
	"viralvision/internal/logging"
	"viralvision/internal/media/ffprobe"
	"viralvision/internal/queue"
	"viralvision/internal/services"
	"viralvision/internal/services/ytdlp"
)

// Fetcher is the remote fetch capability.
type Fetcher interface {
	Probe(ctx context.Context, rawURL string) (ytdlp.Metadata, error)
	Download(ctx context.Context, rawURL string, meta ytdlp.Metadata) (ytdlp.Result, error)
}

// Prober inspects local media.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

type ffprobeProber struct {
	binary string
}

func (p ffprobeProber) Inspect(ctx context.Context, path string) (ffprobe.Result, error) {
	return ffprobe.Inspect(ctx, p.binary, path)
}

// Descriptor is the outcome of acquisition.
type Descriptor struct {
	Kind            queue.SourceKind
	LocalPath       string
	DurationSeconds *float64
	Title           string
	PlatformLabel   string
	ScriptText      string
}

// Acquisition converts the descriptor into the fields stored on the media item.
func (d Descriptor) Acquisition() queue.Acquisition {
	return queue.Acquisition{
		StoragePath:     d.LocalPath,
		DurationSeconds: d.DurationSeconds,
		PlatformLabel:   d.PlatformLabel,
		Title:           d.Title,
	}
}

// Acquirer resolves media items.
type Acquirer struct {
	fetcher     Fetcher
	prober      Prober
	maxDuration float64
	logger      *slog.Logger
}

// Option customizes an Acquirer.
type Option func(*Acquirer)

// WithProber replaces the ffprobe-backed prober.
func WithProber(p Prober) Option {
	return func(a *Acquirer) {
		a.prober = p
	}
}

// New builds an Acquirer from configuration.
func New(cfg *config.Config, fetcher Fetcher, logger *slog.Logger, opts ...Option) *Acquirer {
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &Acquirer{
		fetcher:     fetcher,
		prober:      ffprobeProber{binary: cfg.Probe.FFprobeBinary},
		maxDuration: float64(cfg.Fetch.MaxDurationSeconds),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire resolves the media item according to its source kind.
func (a *Acquirer) Acquire(ctx context.Context, media *queue.Media) (Descriptor, error) {
	if media == nil {
		return Descriptor{}, failed(services.Wrap(services.ErrValidation, "acquire", "load media", "media record missing", nil))
	}
	switch media.Kind {
	case queue.SourceScript:
		return a.acquireScript(media)
	case queue.SourceUpload:
		return a.acquireUpload(ctx, media)
	case queue.SourceLink:
		return a.acquireLink(ctx, media)
	default:
		return Descriptor{}, failed(fmt.Errorf("unknown source kind %q", media.Kind))
	}
}

func (a *Acquirer) acquireScript(media *queue.Media) (Descriptor, error) {
	if strings.TrimSpace(media.ScriptText) == "" {
		return Descriptor{}, failed(services.Wrap(services.ErrValidation, "acquire", "script", "script text is empty", nil))
	}
	return Descriptor{
		Kind:          queue.SourceScript,
		ScriptText:    media.ScriptText,
		Title:         media.Title,
		PlatformLabel: media.PlatformLabel,
	}, nil
}

func (a *Acquirer) acquireUpload(ctx context.Context, media *queue.Media) (Descriptor, error) {
	path := strings.TrimSpace(media.StoragePath)
	if path == "" {
		return Descriptor{}, failed(services.Wrap(services.ErrValidation, "acquire", "upload", "upload has no storage path", nil))
	}
	if _, err := os.Stat(path); err != nil {
		return Descriptor{}, failed(services.Wrap(services.ErrNotFound, "acquire", "upload", "uploaded file missing", err))
	}

	desc := Descriptor{
		Kind:          queue.SourceUpload,
		LocalPath:     path,
		Title:         media.Title,
		PlatformLabel: media.PlatformLabel,
	}
	duration, title := a.probe(ctx, path)
	desc.DurationSeconds = duration
	if desc.Title == "" {
		desc.Title = title
	}
	if err := a.enforceCeiling(duration); err != nil {
		a.discard(path)
		return Descriptor{}, failed(err)
	}
	return desc, nil
}

func (a *Acquirer) acquireLink(ctx context.Context, media *queue.Media) (Descriptor, error) {
	if a.fetcher == nil {
		return Descriptor{}, failed(services.Wrap(services.ErrConfiguration, "acquire", "link", "no fetcher configured", nil))
	}
	source := strings.TrimSpace(media.SourceURL)
	if source == "" {
		return Descriptor{}, failed(fmt.Errorf("%w: link submission without URL", ytdlp.ErrInvalid))
	}

	meta, err := a.fetcher.Probe(ctx, source)
	if err != nil {
		return Descriptor{}, failed(err)
	}
	// Refuse before transferring anything when the length is already known.
	if err := a.enforceCeiling(meta.Duration); err != nil {
		return Descriptor{}, failed(err)
	}

	result, err := a.fetcher.Download(ctx, source, meta)
	if err != nil {
		return Descriptor{}, failed(err)
	}
	duration := result.Duration
	title := result.Title
	if duration == nil {
		var probedTitle string
		duration, probedTitle = a.probe(ctx, result.Path)
		if title == "" {
			title = probedTitle
		}
	}
	if err := a.enforceCeiling(duration); err != nil {
		a.discard(result.Path)
		return Descriptor{}, failed(err)
	}
	return Descriptor{
		Kind:            queue.SourceLink,
		LocalPath:       result.Path,
		DurationSeconds: duration,
		Title:           title,
		PlatformLabel:   result.Platform,
	}, nil
}

// probe is best-effort: any failure leaves the duration unknown.
func (a *Acquirer) probe(ctx context.Context, path string) (*float64, string) {
	if a.prober == nil {
		return nil, ""
	}
	result, err := a.prober.Inspect(ctx, path)
	if err != nil {
		hint := "duration unknown; the unknown-duration cost applies"
		if errors.Is(err, ffprobe.ErrNoMedia) {
			hint = "file has no audio or video stream"
		}
		logging.WarnWithContext(a.logger, "media probe failed", "probe_failed",
			logging.String(logging.FieldErrorHint, hint),
			logging.String("path", path),
			logging.Error(err),
		)
		return nil, ""
	}
	return result.DurationPtr(), result.Title()
}

func (a *Acquirer) enforceCeiling(duration *float64) error {
	if duration == nil || a.maxDuration <= 0 {
		return nil
	}
	if *duration > a.maxDuration {
		return fmt.Errorf("%w: %.0fs exceeds %.0fs", ErrDurationExceeded, *duration, a.maxDuration)
	}
	return nil
}

func (a *Acquirer) discard(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(a.logger, "failed to discard rejected media", "discard_failed",
			logging.String(logging.FieldErrorHint, "remove the file manually"),
			logging.String("path", path),
			logging.Error(err),
		)
	}
}
