package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"viralvision/internal/queue"
)

// Score is a 0-100 rating that tolerates numbers, numeric strings and
// fractional values in model output.
type Score int

// UnmarshalJSON accepts 87, 87.4 and "87".
func (s *Score) UnmarshalJSON(data []byte) error {
	text := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if text == "" || text == "null" {
		return fmt.Errorf("score: empty value")
	}
	value, err := strconv.ParseFloat(strings.TrimSuffix(text, "/100"), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("score: invalid value %s", data)
	}
	*s = clampScore(value)
	return nil
}

func clampScore(value float64) Score {
	rounded := math.Round(value)
	switch {
	case rounded < 0:
		return 0
	case rounded > 100:
		return 100
	default:
		return Score(rounded)
	}
}

// StringList accepts either a JSON list of strings or a single string.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var single string
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return err
		}
		*l = StringList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(trimmed, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// Subscore is one named category of the report.
type Subscore struct {
	Score    Score      `json:"score"`
	Analysis string     `json:"analysis"`
	Tips     StringList `json:"tips"`
}

// Insights summarizes the report.
type Insights struct {
	ExecutiveSummary            string     `json:"executive_summary"`
	Strengths                   StringList `json:"strengths"`
	Weaknesses                  StringList `json:"weaknesses"`
	AudienceRetentionPrediction string     `json:"audience_retention_prediction"`
	EmotionalImpact             string     `json:"emotional_impact"`
}

// OptimizedAssets holds suggested rewrites. FullScriptRewrite is only
// produced in script mode.
type OptimizedAssets struct {
	Titles             StringList `json:"titles"`
	ImprovedHook       StringList `json:"improved_hook"`
	ScriptRewriteStart string     `json:"script_rewrite_start"`
	FullScriptRewrite  string     `json:"full_script_rewrite,omitempty"`
	CaptionSuggestion  string     `json:"caption_suggestion"`
	Hashtags           StringList `json:"hashtags"`
}

// Checklist lists follow-up actions.
type Checklist struct {
	NextSteps StringList `json:"next_steps"`
}

// DecodeReport extracts the report object from a reply. Only overall_score
// is required; the remaining sections are kept as opaque JSON objects when
// present and well-formed.
func DecodeReport(raw string) (queue.Report, error) {
	payload, err := ExtractJSON(raw)
	if err != nil {
		return queue.Report{}, err
	}
	var doc struct {
		OverallScore    *Score          `json:"overall_score"`
		Subscores       json.RawMessage `json:"subscores"`
		Insights        json.RawMessage `json:"insights"`
		OptimizedAssets json.RawMessage `json:"optimized_assets"`
		Checklist       json.RawMessage `json:"checklist"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return queue.Report{}, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if doc.OverallScore == nil {
		return queue.Report{}, fmt.Errorf("%w: overall_score missing", ErrResponseInvalid)
	}
	return queue.Report{
		OverallScore:    int(*doc.OverallScore),
		Subscores:       objectOrNil(doc.Subscores),
		Insights:        objectOrNil(doc.Insights),
		OptimizedAssets: objectOrNil(doc.OptimizedAssets),
		Checklist:       objectOrNil(doc.Checklist),
	}, nil
}

func objectOrNil(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return nil
	}
	return compact.Bytes()
}

// DecodeSubscores reads a stored subscores payload. Entries that do not
// decode are skipped.
func DecodeSubscores(raw string) map[string]Subscore {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil
	}
	out := make(map[string]Subscore, len(entries))
	for name, entry := range entries {
		var sub Subscore
		if err := json.Unmarshal(entry, &sub); err != nil {
			continue
		}
		out[name] = sub
	}
	return out
}

// DecodeInsights reads a stored insights payload.
func DecodeInsights(raw string) (Insights, bool) {
	var out Insights
	ok := decodeStored(raw, &out)
	return out, ok
}

// DecodeOptimizedAssets reads a stored optimized assets payload.
func DecodeOptimizedAssets(raw string) (OptimizedAssets, bool) {
	var out OptimizedAssets
	ok := decodeStored(raw, &out)
	return out, ok
}

// DecodeChecklist reads a stored checklist payload.
func DecodeChecklist(raw string) (Checklist, bool) {
	var out Checklist
	ok := decodeStored(raw, &out)
	return out, ok
}

func decodeStored(raw string, target any) bool {
	if strings.TrimSpace(raw) == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), target) == nil
}
