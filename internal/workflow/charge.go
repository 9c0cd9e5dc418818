package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"viralvision/internal/credits"
	"viralvision/internal/logging"
	"viralvision/internal/stage"
)

// Ledger is the slice of the store the charge stage needs.
type Ledger interface {
	Deduct(ctx context.Context, accountID, jobID int64, amount credits.Amount) (credits.Amount, error)
	Ping(ctx context.Context) error
}

// ChargeStage prices an acquired job and deducts the cost from the owning
// account. Insufficient funds surface as queue.ErrInsufficientCredits and
// leave the balance untouched.
type ChargeStage struct {
	ledger Ledger
	logger *slog.Logger
}

// NewChargeStage constructs the charge stage.
func NewChargeStage(ledger Ledger, logger *slog.Logger) *ChargeStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ChargeStage{ledger: ledger, logger: logger}
}

// Execute computes the quote from the acquired duration and deducts it.
func (c *ChargeStage) Execute(ctx context.Context, item *stage.Item) error {
	if err := stage.RequireLoaded("charge", item); err != nil {
		return err
	}
	quote := credits.Cost(item.IsScript(), item.Media.DurationSeconds)
	after, err := c.ledger.Deduct(ctx, item.Job.AccountID, item.Job.ID, quote.Amount)
	if err != nil {
		return fmt.Errorf("charge %s (%s): %w", quote.Amount, quote.Basis, err)
	}
	item.Quote = quote
	item.Balance = after
	cost := quote.Amount
	item.Job.Cost = &cost

	logging.WithContext(ctx, c.logger).Info("credits deducted",
		logging.Credits("amount", quote.Amount),
		logging.String("basis", string(quote.Basis)),
		logging.Credits("balance_after", after),
		logging.String(logging.FieldEventType, "credits_deducted"),
	)
	return nil
}

// HealthCheck verifies the ledger database answers.
func (c *ChargeStage) HealthCheck(ctx context.Context) stage.Health {
	if err := c.ledger.Ping(ctx); err != nil {
		return stage.Unhealthy("charge", err.Error())
	}
	return stage.Healthy("charge")
}
