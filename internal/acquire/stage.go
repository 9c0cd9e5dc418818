package acquire

import (
	"context"
	"fmt"
	"log/slog"

	"viralvision/internal/deps"
	"viralvision/internal/logging"
	"viralvision/internal/queue"
	"viralvision/internal/stage"
)

// MediaRecorder persists acquisition results.
type MediaRecorder interface {
	RecordAcquisition(ctx context.Context, mediaID int64, acq queue.Acquisition) error
}

// Stage runs acquisition inside the workflow.
type Stage struct {
	acquirer *Acquirer
	store    MediaRecorder
	binaries []string
	logger   *slog.Logger
}

// NewStage wires an Acquirer to the media store. binaries names the external
// tools reported by HealthCheck.
func NewStage(acquirer *Acquirer, store MediaRecorder, logger *slog.Logger, binaries ...string) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{acquirer: acquirer, store: store, binaries: binaries, logger: logger}
}

// Execute acquires the item's media and records the acquired fields once.
func (s *Stage) Execute(ctx context.Context, item *stage.Item) error {
	if err := stage.RequireLoaded("acquire", item); err != nil {
		return err
	}
	desc, err := s.acquirer.Acquire(ctx, item.Media)
	if err != nil {
		return err
	}
	if item.Media.Kind != queue.SourceScript {
		if err := s.store.RecordAcquisition(ctx, item.Media.ID, desc.Acquisition()); err != nil {
			return fmt.Errorf("acquire: %w", err)
		}
		item.Media.StoragePath = desc.LocalPath
		item.Media.DurationSeconds = desc.DurationSeconds
		item.Media.Title = desc.Title
		item.Media.PlatformLabel = desc.PlatformLabel
		item.Media.Acquired = true
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "media_acquired"),
		logging.String("source_kind", string(desc.Kind)),
	}
	if desc.DurationSeconds != nil {
		attrs = append(attrs, logging.Float64("duration_seconds", *desc.DurationSeconds))
	} else if desc.Kind != queue.SourceScript {
		attrs = append(attrs, logging.Bool("duration_unknown", true))
	}
	if desc.PlatformLabel != "" {
		attrs = append(attrs, logging.String("platform", desc.PlatformLabel))
	}
	logging.WithContext(ctx, s.logger).Info("media acquired", logging.Args(attrs...)...)
	return nil
}

// HealthCheck reports whether the external tools resolve.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	for _, binary := range s.binaries {
		if binary == "" {
			continue
		}
		if _, ok := deps.Resolve(binary); !ok {
			return stage.Unhealthy("acquire", fmt.Sprintf("%s not found on PATH", binary))
		}
	}
	return stage.Healthy("acquire")
}
