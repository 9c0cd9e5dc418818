package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"viralvision/internal/acquire"
	"viralvision/internal/config"
	"viralvision/internal/logging"
	"viralvision/internal/queue"
	"viralvision/internal/services/llm"
)

const (
	defaultPlatform = "Unknown"
	defaultCategory = "General"
)

// Completer is the analysis engine transport.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Context is the framing sent with every request.
type Context struct {
	Platform string
	Category string
}

// BuildContext derives the request context from the media item and its owner.
func BuildContext(media *queue.Media, account *queue.Account) Context {
	c := Context{Platform: defaultPlatform, Category: defaultCategory}
	if media != nil && strings.TrimSpace(media.PlatformLabel) != "" {
		c.Platform = strings.TrimSpace(media.PlatformLabel)
	} else if account != nil && strings.TrimSpace(account.PrimaryPlatform) != "" {
		c.Platform = strings.TrimSpace(account.PrimaryPlatform)
	}
	if account != nil && strings.TrimSpace(account.PrimaryCategory) != "" {
		c.Category = strings.TrimSpace(account.PrimaryCategory)
	}
	return c
}

// ModeFor picks the invocation mode for a source kind.
func ModeFor(kind queue.SourceKind) Mode {
	if kind == queue.SourceScript {
		return ModeScript
	}
	return ModeVideo
}

// Invoker calls the analysis engine once per job.
type Invoker struct {
	client         Completer
	maxInlineBytes int64
	logger         *slog.Logger
}

// NewInvoker builds an Invoker from configuration.
func NewInvoker(cfg *config.Config, client Completer, logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Invoker{
		client:         client,
		maxInlineBytes: int64(cfg.Analysis.MaxInlineMB) << 20,
		logger:         logger,
	}
}

// NewClient builds the llm transport described by cfg.
func NewClient(cfg *config.Config) *llm.Client {
	return llm.NewClient(llm.Config{
		APIKey:         cfg.Analysis.APIKey,
		BaseURL:        cfg.Analysis.BaseURL,
		Model:          cfg.Analysis.Model,
		Referer:        cfg.Analysis.Referer,
		Title:          cfg.Analysis.Title,
		TimeoutSeconds: cfg.Analysis.TimeoutSeconds,
		RetryAttempts:  cfg.Analysis.RetryAttempts,
	})
}

// Analyze scores the media item and returns the parsed report.
func (inv *Invoker) Analyze(ctx context.Context, media *queue.Media, account *queue.Account) (queue.Report, error) {
	if inv.client == nil {
		return queue.Report{}, fmt.Errorf("%w: analysis engine not configured", ErrTransport)
	}
	if media == nil {
		return queue.Report{}, fmt.Errorf("%w: media record missing", ErrTransport)
	}
	mode := ModeFor(media.Kind)
	analysisCtx := BuildContext(media, account)

	parts, err := inv.payload(mode, media)
	if err != nil {
		return queue.Report{}, err
	}
	started := time.Now()
	raw, err := inv.client.Complete(ctx, llm.Request{
		System: SystemPrompt(mode, analysisCtx),
		Parts:  parts,
		JSON:   true,
	})
	if err != nil {
		if errors.Is(err, llm.ErrRejected) {
			return queue.Report{}, fmt.Errorf("%w: %w", ErrRejected, err)
		}
		return queue.Report{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	report, err := DecodeReport(raw)
	if err != nil {
		return queue.Report{}, err
	}
	logging.WithContext(ctx, inv.logger).Info("analysis reply parsed",
		logging.String(logging.FieldEventType, "analysis_parsed"),
		logging.String("mode", string(mode)),
		logging.String("platform", analysisCtx.Platform),
		logging.Int("overall_score", report.OverallScore),
		logging.Duration("elapsed", time.Since(started)),
	)
	return report, nil
}

func (inv *Invoker) payload(mode Mode, media *queue.Media) ([]llm.Part, error) {
	if mode == ModeScript {
		text := strings.TrimSpace(media.ScriptText)
		if text == "" {
			return nil, fmt.Errorf("%w: script text is empty", ErrTransport)
		}
		return []llm.Part{llm.TextPart("Analyze this script:\n\n" + text)}, nil
	}

	data, err := inv.readMedia(media.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	intro := "Analyze the attached video."
	if title := strings.TrimSpace(media.Title); title != "" {
		intro += " Its current title is: " + title
	}
	return []llm.Part{
		llm.TextPart(intro),
		llm.VideoPart(acquire.MIMEType(media.StoragePath), data),
	}, nil
}

func (inv *Invoker) readMedia(path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("media has no local file")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open media: %w", err)
	}
	defer file.Close()

	var src io.Reader = file
	if inv.maxInlineBytes > 0 {
		src = io.LimitReader(file, inv.maxInlineBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read media: %w", err)
	}
	if inv.maxInlineBytes > 0 && int64(len(data)) > inv.maxInlineBytes {
		return nil, fmt.Errorf("media larger than the %d MB inline limit", inv.maxInlineBytes>>20)
	}
	return data, nil
}
