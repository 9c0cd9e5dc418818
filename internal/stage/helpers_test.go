package stage

import (
	"errors"
	"testing"

	"viralvision/internal/queue"
	"viralvision/internal/services"
)

func TestRequireLoaded(t *testing.T) {
	if err := RequireLoaded("acquire", nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for nil item, got %v", err)
	}
	item := &Item{Job: &queue.Job{ID: 7}}
	if err := RequireLoaded("acquire", item); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing media, got %v", err)
	}
	item.Media = &queue.Media{Kind: queue.SourceScript}
	item.Account = &queue.Account{ID: 1}
	if err := RequireLoaded("acquire", item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !item.IsScript() {
		t.Fatal("expected script item")
	}
}

func TestHealthConstructors(t *testing.T) {
	if h := Healthy("analyze"); !h.Ready || h.Name != "analyze" {
		t.Fatalf("unexpected healthy record %#v", h)
	}
	if h := Unhealthy("acquire", "yt-dlp missing"); h.Ready || h.Detail != "yt-dlp missing" {
		t.Fatalf("unexpected unhealthy record %#v", h)
	}
}
