package stage

import (
	"context"

	"viralvision/internal/credits"
	"viralvision/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Execute(context.Context, *Item) error
	HealthCheck(context.Context) Health
}

// Item is the in-memory state of one job as it moves through the stages.
// Each stage reads what earlier stages filled in and adds its own result.
type Item struct {
	Job     *queue.Job
	Media   *queue.Media
	Account *queue.Account

	// Set by the charge stage.
	Quote   credits.Quote
	Balance credits.Amount

	// Set by the analysis stage.
	Report *queue.Report
}

// IsScript reports whether the item carries a script rather than media.
func (i *Item) IsScript() bool {
	return i != nil && i.Media != nil && i.Media.Kind == queue.SourceScript
}
