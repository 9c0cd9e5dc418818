package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ExtractJSON recovers a single JSON object from model output.
func ExtractJSON(raw string) ([]byte, error) {
	if trimmed := strings.TrimSpace(raw); isObject(trimmed) {
		return []byte(trimmed), nil
	}
	text := stripFences(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrResponseInvalid)
	}
	if isObject(text) {
		return []byte(text), nil
	}

	span, hasSpan := outerObject(text)
	if hasSpan && isObject(span) {
		return []byte(span), nil
	}

	candidate := text
	if hasSpan {
		candidate = span
	}
	if cleaned := removeControlChars(candidate); isObject(cleaned) {
		return []byte(cleaned), nil
	}

	if start := strings.IndexByte(text, '{'); start >= 0 {
		if repaired := repairTruncated(removeControlChars(text[start:])); isObject(repaired) {
			return []byte(repaired), nil
		}
	}
	return nil, fmt.Errorf("%w: no JSON object found (reply snippet: %s)", ErrResponseInvalid, snippet(raw))
}

func isObject(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed))
}

// stripFences removes a surrounding ``` block, with or without a language tag.
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	open := strings.Index(text, "```")
	if open < 0 {
		return text
	}
	body := text[open+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.Contains(body[:nl], "{") {
		body = body[nl+1:]
	} else {
		body = strings.TrimPrefix(strings.TrimLeft(body, " \t"), "json")
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

func outerObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return strings.TrimSpace(text[start : end+1]), true
}

// removeControlChars drops raw control characters outside strings and
// escapes or drops them inside strings, which is the usual way model output
// breaks an otherwise valid object.
func removeControlChars(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	inString := false
	escaped := false
	for _, r := range text {
		if r == utf8.RuneError {
			continue
		}
		if inString {
			switch {
			case escaped:
				escaped = false
				b.WriteRune(r)
			case r == '\\':
				escaped = true
				b.WriteRune(r)
			case r == '"':
				inString = false
				b.WriteRune(r)
			case r == '\n':
				b.WriteString(`\n`)
			case r == '\r':
				b.WriteString(`\r`)
			case r == '\t':
				b.WriteString(`\t`)
			case r < 0x20 || r == 0x7f:
			default:
				b.WriteRune(r)
			}
			continue
		}
		if r == '"' {
			inString = true
			b.WriteRune(r)
			continue
		}
		if (r < 0x20 && r != '\n' && r != '\r' && r != '\t') || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// repairTruncated closes an object that was cut off mid-stream: an open
// string is terminated, a dangling key or separator is dropped and the
// open containers are closed in order.
func repairTruncated(text string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if len(stack) == 0 && !inString {
		return text
	}

	out := text
	if escaped {
		out = out[:len(out)-1]
	}
	if inString {
		out += `"`
	}
	var closers strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		closers.WriteByte(stack[i])
	}
	repaired := trimDangling(out) + closers.String()
	if !inString || json.Valid([]byte(repaired)) {
		return repaired
	}
	// The cut may have landed inside a key rather than a value.
	return trimDangling(dropDanglingKey(out)) + closers.String()
}

// trimDangling strips trailing separators and keys left without a value.
func trimDangling(text string) string {
	out := strings.TrimRight(text, " \t\r\n")
	for {
		switch {
		case strings.HasSuffix(out, ","):
			out = strings.TrimRight(strings.TrimSuffix(out, ","), " \t\r\n")
		case strings.HasSuffix(out, ":"):
			out = dropDanglingKey(strings.TrimSuffix(out, ":"))
		default:
			return out
		}
	}
}

// dropDanglingKey removes a trailing "key" left without a value.
func dropDanglingKey(text string) string {
	trimmed := strings.TrimRight(text, " \t\r\n")
	if !strings.HasSuffix(trimmed, `"`) {
		return trimmed
	}
	open := strings.LastIndex(trimmed[:len(trimmed)-1], `"`)
	if open < 0 {
		return trimmed
	}
	return strings.TrimRight(trimmed[:open], " \t\r\n")
}

func snippet(text string) string {
	clean := strings.Join(strings.Fields(text), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 120
	if runes := []rune(clean); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return clean
}
