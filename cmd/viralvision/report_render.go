package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"viralvision/internal/analysis"
	"viralvision/internal/api"
	"viralvision/internal/queue"
)

var labelCaser = cases.Title(language.English)

// subscoreLabel turns "visual_quality" into "Visual Quality".
func subscoreLabel(key string) string {
	return labelCaser.String(strings.ReplaceAll(strings.TrimSpace(key), "_", " "))
}

func renderJob(out io.Writer, view api.JobView, colorize bool) {
	fmt.Fprintf(out, "Job %d [%s]\n", view.ID, view.State)
	fmt.Fprintf(out, "  Title:    %s\n", view.Title)
	fmt.Fprintf(out, "  Source:   %s\n", sourceDetail(view))
	if view.Cost != nil {
		fmt.Fprintf(out, "  Cost:     %.3f credits\n", *view.Cost)
	}
	if view.CreatedAt != "" {
		fmt.Fprintf(out, "  Created:  %s\n", view.CreatedAt)
	}
	if view.OverallScore == nil {
		return
	}
	score := *view.OverallScore
	fmt.Fprintf(out, "  Score:    %s\n", paint(fmt.Sprintf("%d/100", score), statusKindColor(scoreKind(score)), colorize))

	renderSubscores(out, view, colorize)
	renderInsights(out, string(view.Insights), colorize)
	renderAssets(out, string(view.OptimizedAssets), colorize)
	if checklist, ok := analysis.DecodeChecklist(string(view.Checklist)); ok && len(checklist.NextSteps) > 0 {
		writeSection(out, "Next steps", colorize)
		writeBullets(out, "  ", checklist.NextSteps)
	}
}

func sourceDetail(view api.JobView) string {
	parts := []string{view.SourceKind}
	if view.Platform != "" {
		parts = append(parts, view.Platform)
	}
	if view.DurationSeconds != nil {
		parts = append(parts, fmt.Sprintf("%.0fs", *view.DurationSeconds))
	}
	return strings.Join(parts, ", ")
}

func renderSubscores(out io.Writer, view api.JobView, colorize bool) {
	subscores := analysis.DecodeSubscores(string(view.Subscores))
	if len(subscores) == 0 {
		return
	}
	mode := analysis.ModeVideo
	if view.SourceKind == string(queue.SourceScript) {
		mode = analysis.ModeScript
	}
	writeSection(out, "Subscores", colorize)
	for _, key := range orderedKeys(subscores, analysis.SubscoreKeys(mode)) {
		sub := subscores[key]
		value := paint(fmt.Sprintf("%3d", int(sub.Score)), statusKindColor(scoreKind(int(sub.Score))), colorize)
		fmt.Fprintf(out, "%s%-*s %s  %s\n", statusIndent, statusLabelWidth, subscoreLabel(key)+":", value, strings.TrimSpace(sub.Analysis))
		writeBullets(out, "      ", sub.Tips)
	}
}

// orderedKeys lists the preferred keys first, then any extras alphabetically.
func orderedKeys(subscores map[string]analysis.Subscore, preferred []string) []string {
	keys := make([]string, 0, len(subscores))
	for _, key := range preferred {
		if _, ok := subscores[key]; ok {
			keys = append(keys, key)
		}
	}
	var extra []string
	for key := range subscores {
		if !slices.Contains(preferred, key) {
			extra = append(extra, key)
		}
	}
	slices.Sort(extra)
	return append(keys, extra...)
}

func renderInsights(out io.Writer, raw string, colorize bool) {
	insights, ok := analysis.DecodeInsights(raw)
	if !ok {
		return
	}
	writeSection(out, "Insights", colorize)
	if insights.ExecutiveSummary != "" {
		fmt.Fprintf(out, "  %s\n", insights.ExecutiveSummary)
	}
	writeLabeledList(out, "Strengths", insights.Strengths)
	writeLabeledList(out, "Weaknesses", insights.Weaknesses)
	if insights.AudienceRetentionPrediction != "" {
		fmt.Fprintf(out, "  Retention: %s\n", insights.AudienceRetentionPrediction)
	}
	if insights.EmotionalImpact != "" {
		fmt.Fprintf(out, "  Emotional impact: %s\n", insights.EmotionalImpact)
	}
}

func renderAssets(out io.Writer, raw string, colorize bool) {
	assets, ok := analysis.DecodeOptimizedAssets(raw)
	if !ok {
		return
	}
	writeSection(out, "Optimized assets", colorize)
	writeLabeledList(out, "Titles", assets.Titles)
	writeLabeledList(out, "Hooks", assets.ImprovedHook)
	if assets.CaptionSuggestion != "" {
		fmt.Fprintf(out, "  Caption: %s\n", assets.CaptionSuggestion)
	}
	if len(assets.Hashtags) > 0 {
		fmt.Fprintf(out, "  Hashtags: %s\n", strings.Join(assets.Hashtags, " "))
	}
	if assets.FullScriptRewrite != "" {
		fmt.Fprintf(out, "  Rewrite:\n%s\n", indent(assets.FullScriptRewrite, "    "))
	} else if assets.ScriptRewriteStart != "" {
		fmt.Fprintf(out, "  Rewrite opening: %s\n", assets.ScriptRewriteStart)
	}
}

func writeSection(out io.Writer, title string, colorize bool) {
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
}

func writeLabeledList(out io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "  %s:\n", label)
	writeBullets(out, "    ", items)
}

func writeBullets(out io.Writer, prefix string, items []string) {
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			fmt.Fprintf(out, "%s- %s\n", prefix, item)
		}
	}
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
