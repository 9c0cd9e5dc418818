package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"viralvision/internal/logging"
)

const defaultTimeout = 10 * time.Minute

// Config controls how yt-dlp is invoked.
type Config struct {
	Binary       string
	Format       string
	OutputDir    string
	Timeout      time.Duration
	AllowedHosts []string
}

// Metadata is the subset of yt-dlp's info JSON the pipeline uses.
type Metadata struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Duration     *float64   `json:"duration"`
	Extractor    string     `json:"extractor"`
	ExtractorKey string     `json:"extractor_key"`
	WebpageURL   string     `json:"webpage_url"`
	IsLive       bool       `json:"is_live"`
	Entries      []Metadata `json:"entries"`
}

// Result describes downloaded media.
type Result struct {
	Path     string
	Title    string
	Duration *float64
	Platform string
}

// Fetcher runs yt-dlp.
type Fetcher struct {
	cfg    Config
	logger *slog.Logger
}

// New constructs a fetcher.
func New(cfg Config, logger *slog.Logger) *Fetcher {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = "yt-dlp"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Fetcher{cfg: cfg, logger: logger.With(logging.String(logging.FieldComponent, "ytdlp"))}
}

// Binary returns the configured executable name.
func (f *Fetcher) Binary() string {
	return f.cfg.Binary
}

// CheckURL validates the link and its host against the allow list.
func (f *Fetcher) CheckURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalid, parsed.Scheme)
	}
	host := normalizeHost(parsed.Hostname())
	if host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalid)
	}
	if len(f.cfg.AllowedHosts) > 0 && !hostAllowed(host, f.cfg.AllowedHosts) {
		return nil, fmt.Errorf("%w: host %s is not allowed", ErrInvalid, host)
	}
	return parsed, nil
}

// Probe reads metadata without downloading.
func (f *Fetcher) Probe(ctx context.Context, rawURL string) (Metadata, error) {
	target, err := f.CheckURL(rawURL)
	if err != nil {
		return Metadata{}, err
	}
	args := []string{"-J", "--skip-download", "--no-playlist", "--no-warnings"}
	args = append(args, refererArgs(target)...)
	args = append(args, "--", target.String())

	stdout, stderr, err := f.run(ctx, args)
	if err != nil {
		return Metadata{}, fetchError("probe", stderr, err)
	}
	var meta Metadata
	if err := json.Unmarshal(stdout, &meta); err != nil {
		return Metadata{}, fmt.Errorf("yt-dlp probe: decode metadata: %w", err)
	}
	if len(meta.Entries) > 0 {
		meta = meta.Entries[0]
	}
	if meta.IsLive {
		return Metadata{}, fmt.Errorf("%w: live streams cannot be analyzed", ErrInvalid)
	}
	return meta, nil
}

// Download saves the media into the output directory.
func (f *Fetcher) Download(ctx context.Context, rawURL string, meta Metadata) (Result, error) {
	target, err := f.CheckURL(rawURL)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(f.cfg.OutputDir) == "" {
		return Result{}, errors.New("yt-dlp download: output directory required")
	}
	if err := os.MkdirAll(f.cfg.OutputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("yt-dlp download: create output dir: %w", err)
	}

	args := []string{
		"--no-playlist", "--no-progress", "--no-warnings", "--no-part",
		"-o", filepath.Join(f.cfg.OutputDir, uuid.NewString()+"-%(extractor)s-%(id)s.%(ext)s"),
		"--print", "after_move:filepath",
	}
	if format := strings.TrimSpace(f.cfg.Format); format != "" {
		args = append(args, "-f", format)
	}
	args = append(args, refererArgs(target)...)
	args = append(args, "--", target.String())

	started := time.Now()
	stdout, stderr, err := f.run(ctx, args)
	if err != nil {
		return Result{}, fetchError("download", stderr, err)
	}
	path := lastLine(string(stdout))
	if path == "" {
		return Result{}, fmt.Errorf("yt-dlp download: %w: no output file reported", ErrUnreachable)
	}
	if _, err := os.Stat(path); err != nil {
		return Result{}, fmt.Errorf("yt-dlp download: %w: %v", ErrUnreachable, err)
	}
	f.logger.Info("media downloaded",
		logging.String(logging.FieldEventType, "media_downloaded"),
		logging.String("path", path),
		logging.Duration("elapsed", time.Since(started)),
	)
	return Result{
		Path:     path,
		Title:    strings.TrimSpace(meta.Title),
		Duration: positiveDuration(meta.Duration),
		Platform: PlatformLabel(meta, target.Hostname()),
	}, nil
}

func (f *Fetcher) run(ctx context.Context, args []string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.cfg.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	f.logger.Debug("running yt-dlp", logging.String("args", strings.Join(args, " ")))
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, stderr.String(), fmt.Errorf("timed out after %s: %w", f.cfg.Timeout, ctx.Err())
		}
		return nil, stderr.String(), err
	}
	return stdout.Bytes(), stderr.String(), nil
}

var platformNames = map[string]string{
	"youtube":   "YouTube",
	"tiktok":    "TikTok",
	"instagram": "Instagram",
	"facebook":  "Facebook",
	"twitter":   "X",
	"vimeo":     "Vimeo",
	"twitch":    "Twitch",
}

var hostPlatforms = map[string]string{
	"youtube.com":   "YouTube",
	"youtu.be":      "YouTube",
	"tiktok.com":    "TikTok",
	"instagram.com": "Instagram",
	"facebook.com":  "Facebook",
	"fb.watch":      "Facebook",
	"x.com":         "X",
	"twitter.com":   "X",
	"vimeo.com":     "Vimeo",
	"twitch.tv":     "Twitch",
}

// PlatformLabel derives a display label from the extractor, falling back to
// the link host.
func PlatformLabel(meta Metadata, host string) string {
	key := strings.ToLower(firstNonEmpty(meta.ExtractorKey, meta.Extractor))
	if base, _, found := strings.Cut(key, ":"); found {
		key = base
	}
	for prefix, label := range platformNames {
		if strings.HasPrefix(key, prefix) {
			return label
		}
	}
	host = normalizeHost(host)
	for suffix, label := range hostPlatforms {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return label
		}
	}
	if key != "" && key != "generic" {
		return cases.Title(language.English).String(key)
	}
	return ""
}

// refererArgs mimics a browser arriving from the platform itself, which some
// short-form hosts require.
func refererArgs(target *url.URL) []string {
	host := normalizeHost(target.Hostname())
	switch {
	case host == "instagram.com" || strings.HasSuffix(host, ".instagram.com"):
		return []string{"--add-header", "Referer:https://www.instagram.com/"}
	case host == "tiktok.com" || strings.HasSuffix(host, ".tiktok.com"):
		return []string{"--add-header", "Referer:https://www.tiktok.com/"}
	}
	return nil
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(host, "www.")
}

func hostAllowed(host string, allowed []string) bool {
	for _, candidate := range allowed {
		candidate = normalizeHost(candidate)
		if candidate == "" {
			continue
		}
		if host == candidate || strings.HasSuffix(host, "."+candidate) {
			return true
		}
	}
	return false
}

func positiveDuration(value *float64) *float64 {
	if value == nil || *value <= 0 {
		return nil
	}
	out := *value
	return &out
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
