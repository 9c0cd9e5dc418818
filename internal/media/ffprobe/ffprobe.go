package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNoMedia reports a file ffprobe could read but that holds no audio or
// video stream.
var ErrNoMedia = errors.New("no audio or video stream")

// Result is the decoded ffprobe report.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes one elementary stream.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Format holds container-level fields.
type Format struct {
	Filename   string            `json:"filename"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	FormatName string            `json:"format_name"`
	Tags       map[string]string `json:"tags"`
}

// Inspect runs ffprobe against path and decodes the report.
func Inspect(ctx context.Context, binary, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	if !result.HasVideo() && !result.HasAudio() {
		return result, ErrNoMedia
	}
	return result, nil
}

// HasVideo reports whether any stream is video. Cover art attached as a
// single-frame mjpeg/png stream does not count.
func (r Result) HasVideo() bool {
	for _, stream := range r.Streams {
		if !strings.EqualFold(stream.CodecType, "video") {
			continue
		}
		switch strings.ToLower(stream.CodecName) {
		case "mjpeg", "png", "bmp":
			continue
		}
		return true
	}
	return false
}

// HasAudio reports whether any stream is audio.
func (r Result) HasAudio() bool {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			return true
		}
	}
	return false
}

// Duration returns the running time in seconds. The container value wins;
// otherwise the longest stream duration is used. ok is false when nothing
// usable was reported.
func (r Result) Duration() (seconds float64, ok bool) {
	if value, valid := parsePositive(r.Format.Duration); valid {
		return value, true
	}
	for _, stream := range r.Streams {
		if value, valid := parsePositive(stream.Duration); valid && value > seconds {
			seconds = value
			ok = true
		}
	}
	return seconds, ok
}

// DurationPtr is Duration shaped for nullable storage columns.
func (r Result) DurationPtr() *float64 {
	seconds, ok := r.Duration()
	if !ok {
		return nil
	}
	return &seconds
}

// Title returns the container title tag, if any.
func (r Result) Title() string {
	for key, value := range r.Format.Tags {
		if strings.EqualFold(key, "title") {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func parsePositive(value string) (float64, bool) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" || strings.EqualFold(cleaned, "N/A") {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}
