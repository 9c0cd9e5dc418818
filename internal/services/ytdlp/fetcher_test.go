package ytdlp_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"viralvision/internal/services/ytdlp"
)

func writeStub(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yt-dlp")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckURLEnforcesAllowList(t *testing.T) {
	fetcher := ytdlp.New(ytdlp.Config{AllowedHosts: []string{"youtube.com", "youtu.be", "tiktok.com"}}, nil)

	for _, raw := range []string{
		"https://www.youtube.com/shorts/abc",
		"https://m.youtube.com/watch?v=abc",
		"https://youtu.be/abc",
		"http://vm.tiktok.com/xyz",
	} {
		if _, err := fetcher.CheckURL(raw); err != nil {
			t.Fatalf("CheckURL(%q): %v", raw, err)
		}
	}
	for _, raw := range []string{
		"https://evil.example.com/video",
		"https://notyoutube.com/watch",
		"ftp://youtube.com/file",
		"not a url",
	} {
		if _, err := fetcher.CheckURL(raw); !errors.Is(err, ytdlp.ErrInvalid) {
			t.Fatalf("CheckURL(%q) expected ErrInvalid, got %v", raw, err)
		}
	}
}

func TestProbeDecodesMetadata(t *testing.T) {
	stub := writeStub(t, `echo '{"id":"abc","title":"Day in my life","duration":45.5,"extractor":"youtube","extractor_key":"Youtube"}'`)
	fetcher := ytdlp.New(ytdlp.Config{Binary: stub}, nil)

	meta, err := fetcher.Probe(context.Background(), "https://youtube.com/shorts/abc")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if meta.Title != "Day in my life" || meta.Duration == nil || *meta.Duration != 45.5 {
		t.Fatalf("unexpected metadata %#v", meta)
	}
}

func TestProbeUsesFirstPlaylistEntry(t *testing.T) {
	stub := writeStub(t, `echo '{"id":"list","entries":[{"id":"one","title":"First","duration":12}]}'`)
	fetcher := ytdlp.New(ytdlp.Config{Binary: stub}, nil)

	meta, err := fetcher.Probe(context.Background(), "https://youtube.com/playlist?list=x")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if meta.ID != "one" || meta.Title != "First" {
		t.Fatalf("expected first entry, got %#v", meta)
	}
}

func TestProbeClassifiesFailures(t *testing.T) {
	cases := []struct {
		stderr string
		want   error
	}{
		{"ERROR: [youtube] abc: Private video. Sign in if you've been granted access", ytdlp.ErrPrivate},
		{"ERROR: [youtube] abc: Video unavailable", ytdlp.ErrUnreachable},
		{"ERROR: Unsupported URL: https://youtube.com/nothing", ytdlp.ErrInvalid},
		{"something odd happened", ytdlp.ErrUnreachable},
	}
	for _, tc := range cases {
		stub := writeStub(t, "echo \""+tc.stderr+"\" >&2; exit 1")
		fetcher := ytdlp.New(ytdlp.Config{Binary: stub}, nil)
		_, err := fetcher.Probe(context.Background(), "https://youtube.com/watch?v=abc")
		if !errors.Is(err, tc.want) {
			t.Fatalf("stderr %q: expected %v, got %v", tc.stderr, tc.want, err)
		}
	}
}

func TestDownloadReportsFinalPath(t *testing.T) {
	outDir := t.TempDir()
	final := filepath.Join(outDir, "tiktok-123.mp4")
	stub := writeStub(t, `
case "$*" in
  *after_move:filepath*) : > "`+final+`"; echo "`+final+`" ;;
  *) exit 2 ;;
esac`)
	fetcher := ytdlp.New(ytdlp.Config{Binary: stub, OutputDir: outDir, Format: "best"}, nil)
	duration := 30.0
	result, err := fetcher.Download(context.Background(), "https://www.tiktok.com/@me/video/123", ytdlp.Metadata{
		Title:        "Dance",
		Duration:     &duration,
		ExtractorKey: "TikTok",
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if result.Path != final {
		t.Fatalf("expected path %s, got %s", final, result.Path)
	}
	if result.Platform != "TikTok" || result.Title != "Dance" || result.Duration == nil || *result.Duration != 30 {
		t.Fatalf("unexpected result %#v", result)
	}
}

func TestDownloadPathsAreUniquePerCall(t *testing.T) {
	outDir := t.TempDir()
	stub := writeStub(t, `
out=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "-o" ]; then out="$arg"; fi
  prev="$arg"
done
out=$(printf '%s' "$out" | sed -e 's/%(extractor)s/youtube/' -e 's/%(id)s/abc/' -e 's/%(ext)s/mp4/')
: > "$out"
echo "$out"`)
	fetcher := ytdlp.New(ytdlp.Config{Binary: stub, OutputDir: outDir}, nil)
	url := "https://youtube.com/watch?v=abc"

	first, err := fetcher.Download(context.Background(), url, ytdlp.Metadata{})
	if err != nil {
		t.Fatalf("first Download: %v", err)
	}
	second, err := fetcher.Download(context.Background(), url, ytdlp.Metadata{})
	if err != nil {
		t.Fatalf("second Download: %v", err)
	}
	if first.Path == second.Path {
		t.Fatalf("expected distinct paths for the same video, both were %s", first.Path)
	}
	if filepath.Dir(first.Path) != outDir || !strings.HasSuffix(first.Path, "-youtube-abc.mp4") {
		t.Fatalf("unexpected download path %s", first.Path)
	}
	if err := os.Remove(first.Path); err != nil {
		t.Fatalf("remove first: %v", err)
	}
	if _, err := os.Stat(second.Path); err != nil {
		t.Fatalf("second download should survive removal of the first: %v", err)
	}
}

func TestDownloadMissingFileIsUnreachable(t *testing.T) {
	stub := writeStub(t, `echo "/nonexistent/file.mp4"`)
	fetcher := ytdlp.New(ytdlp.Config{Binary: stub, OutputDir: t.TempDir()}, nil)
	_, err := fetcher.Download(context.Background(), "https://youtube.com/watch?v=abc", ytdlp.Metadata{})
	if !errors.Is(err, ytdlp.ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}

func TestPlatformLabel(t *testing.T) {
	cases := []struct {
		meta ytdlp.Metadata
		host string
		want string
	}{
		{ytdlp.Metadata{ExtractorKey: "Youtube"}, "youtube.com", "YouTube"},
		{ytdlp.Metadata{Extractor: "instagram:story"}, "", "Instagram"},
		{ytdlp.Metadata{Extractor: "generic"}, "www.youtu.be", "YouTube"},
		{ytdlp.Metadata{Extractor: "dailymotion"}, "dailymotion.com", "Dailymotion"},
		{ytdlp.Metadata{}, "example.com", ""},
	}
	for _, tc := range cases {
		if got := ytdlp.PlatformLabel(tc.meta, tc.host); got != tc.want {
			t.Fatalf("PlatformLabel(%#v, %q) = %q, want %q", tc.meta, tc.host, got, tc.want)
		}
	}
	if !strings.EqualFold(ytdlp.PlatformLabel(ytdlp.Metadata{ExtractorKey: "TikTok"}, ""), "tiktok") {
		t.Fatal("expected TikTok label")
	}
}
