package queue

import (
	"fmt"
	"strings"
)

// Status is the closed set of analysis job states.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusAnalyzing  Status = "analyzing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusQueued,
	StatusProcessing,
	StatusAnalyzing,
	StatusCompleted,
	StatusFailed,
}

// transitions is the exhaustive table of legal moves. Anything absent is rejected.
var transitions = map[Status][]Status{
	StatusQueued:     {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusAnalyzing, StatusFailed},
	StatusAnalyzing:  {StatusCompleted, StatusFailed},
	StatusCompleted:  nil,
	StatusFailed:     nil,
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a string into a Status, reporting whether it is known.
func ParseStatus(value string) (Status, bool) {
	candidate := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := transitions[candidate]; ok {
		return candidate, true
	}
	return "", false
}

// IsTerminal reports whether no transition leaves the status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsInFlight reports whether a pipeline step is running for the status.
func (s Status) IsInFlight() bool {
	return s == StatusProcessing || s == StatusAnalyzing
}

// CanTransition answers from the transition table.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// sourcesOf lists the statuses that may move to target.
func sourcesOf(target Status) []Status {
	var out []Status
	for _, from := range allStatuses {
		if CanTransition(from, target) {
			out = append(out, from)
		}
	}
	return out
}

func validateTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
