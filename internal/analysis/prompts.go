package analysis

import (
	"fmt"
	"strings"
)

// Mode selects the prompt and schema used for a request.
type Mode string

const (
	ModeVideo  Mode = "video"
	ModeScript Mode = "script"
)

type subscoreSpec struct {
	key   string
	focus string
}

var videoSubscores = []subscoreSpec{
	{"hook", "The first three seconds: does the opening stop the scroll through visuals, audio or on-screen text?"},
	{"delivery", "Speaker energy, clarity, pacing and body language."},
	{"structure", "Narrative flow from hook to value to payoff to call to action. Where does it drag?"},
	{"visuals_and_editing", "Cuts, b-roll and text overlays. Is it dynamic enough to hold attention?"},
	{"trend_alignment", "Fit with current platform trends, formats and audio usage."},
}

var scriptSubscores = []subscoreSpec{
	{"hook", "The opening line: would it grab a scrolling viewer?"},
	{"story_arc", "Pacing and payoff. Does the middle sag?"},
	{"clarity", "Is the message instantly understood?"},
	{"emotion", "What the viewer will feel and whether that drives shares or saves."},
	{"cta", "Is the call to action clear and compelling?"},
}

// SubscoreKeys returns the category names requested for a mode, in order.
func SubscoreKeys(mode Mode) []string {
	defs := videoSubscores
	if mode == ModeScript {
		defs = scriptSubscores
	}
	keys := make([]string, len(defs))
	for i, def := range defs {
		keys[i] = def.key
	}
	return keys
}

const videoPersona = `You are an expert short-form video consultant who understands how platform ranking rewards watch time.
Score for retention above polish: a rough phone clip with a gripping hook and story beats a cinematic video with a slow start.
High energy, fast cuts and raw authenticity are strengths when they hold attention.`

const scriptPersona = `You are a seasoned short-form script writer and creative director.
Score honestly: a script with a strong hook, clear value and good pacing deserves 90 or more, and you should not lower a score just to make room for suggestions.
Write feedback that is direct and conversational, as one expert to another.`

// SystemPrompt renders the instructions for a mode and context.
func SystemPrompt(mode Mode, c Context) string {
	var b strings.Builder
	if mode == ModeScript {
		b.WriteString(scriptPersona)
	} else {
		b.WriteString(videoPersona)
	}
	b.WriteString("\n\nContext:\n")
	fmt.Fprintf(&b, "- Platform: %s\n", c.Platform)
	fmt.Fprintf(&b, "- Category: %s\n", c.Category)
	if mode == ModeVideo {
		b.WriteString("- Goal: viral growth and audience retention\n")
	}

	b.WriteString("\nRespond with one JSON object and nothing else, using exactly this shape:\n")
	b.WriteString("{\n  \"overall_score\": <integer 0-100>,\n  \"subscores\": {\n")
	defs := videoSubscores
	if mode == ModeScript {
		defs = scriptSubscores
	}
	for i, def := range defs {
		fmt.Fprintf(&b, "    %q: {\"score\": <integer 0-100>, \"analysis\": %q, \"tips\": [\"<actionable tip>\"]}", def.key, def.focus)
		if i < len(defs)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("  },\n")
	b.WriteString(`  "insights": {"executive_summary": "<two or three sentences>", "strengths": ["..."], "weaknesses": ["..."], "audience_retention_prediction": "<where viewers will scroll away and why>", "emotional_impact": "<primary emotion>"},` + "\n")
	b.WriteString(`  "optimized_assets": {"titles": ["<three options>"], "improved_hook": ["<two or three options>"], "script_rewrite_start": "<rewritten opening>", `)
	if mode == ModeScript {
		b.WriteString(`"full_script_rewrite": "<complete rewrite keeping the core message>", `)
	}
	b.WriteString(`"caption_suggestion": "<caption that invites comments>", "hashtags": ["#..."]},` + "\n")
	b.WriteString(`  "checklist": {"next_steps": ["<immediate fix>", "<strategic change>", "<posting or filming tip>"]}` + "\n}\n")
	b.WriteString("Do not wrap the JSON in markdown code fences.")
	return b.String()
}
