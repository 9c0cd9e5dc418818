package stage

import (
	"fmt"

	"viralvision/internal/services"
)

// RequireLoaded returns a services.ErrValidation when the item is missing the
// records every stage depends on.
func RequireLoaded(name string, item *Item) error {
	switch {
	case item == nil || item.Job == nil:
		return services.Wrap(services.ErrValidation, name, "load item", "Job record missing", nil)
	case item.Media == nil:
		return services.Wrap(services.ErrValidation, name, "load item",
			fmt.Sprintf("Media record missing for job %d", item.Job.ID), nil)
	case item.Account == nil:
		return services.Wrap(services.ErrValidation, name, "load item",
			fmt.Sprintf("Account record missing for job %d", item.Job.ID), nil)
	}
	return nil
}
