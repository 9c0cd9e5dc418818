package testsupport

import (
	"context"
	"testing"

	"viralvision/internal/config"
	"viralvision/internal/credits"
	"viralvision/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewAccount creates an account holding balance credits.
func NewAccount(t testing.TB, store *queue.Store, email string, balance float64) *queue.Account {
	t.Helper()

	account, err := store.CreateAccount(context.Background(), queue.NewAccount{
		Email:   email,
		Balance: credits.FromCredits(balance),
	})
	if err != nil {
		t.Fatalf("store.CreateAccount: %v", err)
	}
	return account
}

// NewJob creates a queued submission for the account.
func NewJob(t testing.TB, store *queue.Store, sub queue.Submission) *queue.Job {
	t.Helper()

	job, err := store.CreateSubmission(context.Background(), sub)
	if err != nil {
		t.Fatalf("store.CreateSubmission: %v", err)
	}
	return job
}

// Balance reads the current balance of an account.
func Balance(t testing.TB, store *queue.Store, accountID int64) credits.Amount {
	t.Helper()

	account, err := store.GetAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("store.GetAccount: %v", err)
	}
	return account.Balance
}
