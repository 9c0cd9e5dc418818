package analysis

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestExtractJSONStrategies(t *testing.T) {
	cases := map[string]string{
		"plain":         `{"overall_score": 70}`,
		"fenced":        "```json\n{\"overall_score\": 70}\n```",
		"fenced no tag": "```\n{\"overall_score\": 70}\n```",
		"prose":         "Sure! Here is the analysis:\n{\"overall_score\": 70}\nLet me know if you need more.",
		"control chars": "{\"overall_score\": 70, \"note\": \"line one\nline two\ttab\x01\"}\x00",
		"truncated":     `{"overall_score": 70, "insights": {"strengths": ["pacing", "hoo`,
		"dangling key":  `{"overall_score": 70, "checklist": {"next_steps": ["a"]}, "subs`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			payload, err := ExtractJSON(input)
			if err != nil {
				t.Fatalf("ExtractJSON: %v", err)
			}
			var doc map[string]any
			if err := json.Unmarshal(payload, &doc); err != nil {
				t.Fatalf("payload not valid JSON: %v (%s)", err, payload)
			}
			if doc["overall_score"] != float64(70) {
				t.Fatalf("unexpected overall_score %v", doc["overall_score"])
			}
		})
	}
}

func TestExtractJSONKeepsFencesInsideStrings(t *testing.T) {
	input := `{"overall_score": 70, "optimized_assets": {"full_script_rewrite": "use ` + "```" + ` sparingly"}}`
	payload, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if string(payload) != input {
		t.Fatalf("expected valid input to pass through untouched, got %s", payload)
	}
}

func TestExtractJSONFailures(t *testing.T) {
	for _, input := range []string{"", "   ", "I cannot analyze this video.", "[1, 2, 3]", "```\nnot json\n```"} {
		if _, err := ExtractJSON(input); !errors.Is(err, ErrResponseInvalid) {
			t.Fatalf("ExtractJSON(%q) expected ErrResponseInvalid, got %v", input, err)
		}
	}
}

func TestRemoveControlCharsEscapesInsideStrings(t *testing.T) {
	got := removeControlChars("{\"a\":\n\"x\ny\"}")
	if got != "{\"a\":\n\"x\\ny\"}" {
		t.Fatalf("unexpected sanitized output %q", got)
	}
}

func TestDecodeReport(t *testing.T) {
	raw := "```json\n" + `{
  "overall_score": "104",
  "subscores": {"hook": {"score": 88.6, "analysis": "Strong open", "tips": "Cut the pause"}},
  "insights": {"executive_summary": "Solid", "strengths": ["pace"], "weaknesses": []},
  "optimized_assets": {"titles": ["Best title", "Second"], "hashtags": ["#fyp"]},
  "checklist": "not an object"
}` + "\n```"
	report, err := DecodeReport(raw)
	if err != nil {
		t.Fatalf("DecodeReport: %v", err)
	}
	if report.OverallScore != 100 {
		t.Fatalf("expected clamped score 100, got %d", report.OverallScore)
	}
	if report.Checklist != nil {
		t.Fatalf("expected non-object checklist to be dropped, got %s", report.Checklist)
	}
	subs := DecodeSubscores(string(report.Subscores))
	hook, ok := subs["hook"]
	if !ok || hook.Score != 89 || len(hook.Tips) != 1 || hook.Tips[0] != "Cut the pause" {
		t.Fatalf("unexpected hook subscore %#v", hook)
	}
	assets, ok := DecodeOptimizedAssets(string(report.OptimizedAssets))
	if !ok || assets.Titles[0] != "Best title" {
		t.Fatalf("unexpected assets %#v", assets)
	}
}

func TestDecodeReportRequiresScore(t *testing.T) {
	if _, err := DecodeReport(`{"subscores": {}}`); !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid, got %v", err)
	}
	if _, err := DecodeReport(`{"overall_score": "high"}`); !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid for non-numeric score, got %v", err)
	}
	report, err := DecodeReport(`{"overall_score": -3}`)
	if err != nil || report.OverallScore != 0 {
		t.Fatalf("expected negative score clamped to 0, got %d, %v", report.OverallScore, err)
	}
}

func TestSystemPromptModes(t *testing.T) {
	ctx := Context{Platform: "TikTok", Category: "Comedy"}
	script := SystemPrompt(ModeScript, ctx)
	video := SystemPrompt(ModeVideo, ctx)
	if !strings.Contains(script, "full_script_rewrite") || strings.Contains(video, "full_script_rewrite") {
		t.Fatal("full_script_rewrite belongs to script mode only")
	}
	for _, key := range SubscoreKeys(ModeScript) {
		if !strings.Contains(script, `"`+key+`"`) {
			t.Fatalf("script prompt missing subscore %s", key)
		}
	}
	for _, key := range SubscoreKeys(ModeVideo) {
		if !strings.Contains(video, `"`+key+`"`) {
			t.Fatalf("video prompt missing subscore %s", key)
		}
	}
	if !strings.Contains(video, "Platform: TikTok") || !strings.Contains(video, "Category: Comedy") {
		t.Fatal("expected context in prompt")
	}
}
