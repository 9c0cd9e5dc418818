package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"

	"viralvision/internal/credits"
	"viralvision/internal/queue"
	"viralvision/internal/testsupport"
)

func TestCreateSubmissionStartsQueued(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	account := testsupport.NewAccount(t, store, "creator@example.com", 3)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, queue.Submission{
		AccountID:  account.ID,
		Kind:       queue.SourceScript,
		ScriptText: "Stop scrolling. Here's why.",
	})
	if job.ID == 0 || job.MediaID == 0 {
		t.Fatalf("expected ids to be assigned, got %#v", job)
	}
	if job.Status != queue.StatusQueued {
		t.Fatalf("expected queued, got %s", job.Status)
	}
	media, err := store.GetMedia(ctx, job.MediaID)
	if err != nil {
		t.Fatalf("GetMedia: %v", err)
	}
	if media.Kind != queue.SourceScript || media.ScriptText == "" || media.Acquired {
		t.Fatalf("unexpected media %#v", media)
	}

	again := testsupport.NewJob(t, store, queue.Submission{
		AccountID:  account.ID,
		Kind:       queue.SourceScript,
		ScriptText: "Stop scrolling. Here's why.",
	})
	if again.ID == job.ID || again.MediaID == job.MediaID {
		t.Fatal("expected identical submissions to produce independent jobs")
	}
}

func TestCreateSubmissionRejectsUnknownKind(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	account := testsupport.NewAccount(t, store, "a@example.com", 1)
	if _, err := store.CreateSubmission(context.Background(), queue.Submission{AccountID: account.ID, Kind: "fax"}); err == nil {
		t.Fatal("expected unknown kind to be rejected")
	}
}

func TestTransitionTableIsExhaustive(t *testing.T) {
	legal := map[[2]queue.Status]bool{
		{queue.StatusQueued, queue.StatusProcessing}:    true,
		{queue.StatusQueued, queue.StatusFailed}:        true,
		{queue.StatusProcessing, queue.StatusAnalyzing}: true,
		{queue.StatusProcessing, queue.StatusFailed}:    true,
		{queue.StatusAnalyzing, queue.StatusCompleted}:  true,
		{queue.StatusAnalyzing, queue.StatusFailed}:     true,
	}
	for _, from := range queue.AllStatuses() {
		for _, to := range queue.AllStatuses() {
			want := legal[[2]queue.Status{from, to}]
			if got := queue.CanTransition(from, to); got != want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
	if _, ok := queue.ParseStatus(" Analyzing "); !ok {
		t.Fatal("expected status to parse case-insensitively")
	}
	if _, ok := queue.ParseStatus("review"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestJobLifecycleIsMonotonic(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	account := testsupport.NewAccount(t, store, "b@example.com", 3)
	job := testsupport.NewJob(t, store, queue.Submission{AccountID: account.ID, Kind: queue.SourceScript, ScriptText: "x"})
	ctx := context.Background()

	if err := store.Transition(ctx, job.ID, queue.StatusQueued, queue.StatusAnalyzing); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected skipped state to be rejected, got %v", err)
	}
	if err := store.Transition(ctx, job.ID, queue.StatusQueued, queue.StatusProcessing); err != nil {
		t.Fatalf("queued -> processing: %v", err)
	}
	if err := store.Transition(ctx, job.ID, queue.StatusQueued, queue.StatusProcessing); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected stale transition to be rejected, got %v", err)
	}
	if err := store.CompleteJob(ctx, job.ID, queue.Report{OverallScore: 80}); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected completion outside analyzing to be rejected, got %v", err)
	}
	if err := store.Transition(ctx, job.ID, queue.StatusProcessing, queue.StatusAnalyzing); err != nil {
		t.Fatalf("processing -> analyzing: %v", err)
	}

	report := queue.Report{
		OverallScore: 82,
		Subscores:    json.RawMessage(`{"hook":{"score":90,"analysis":"strong","tips":[]}}`),
		Insights:     json.RawMessage(`{"executive_summary":"good"}`),
		Checklist:    json.RawMessage(`{"next_steps":["post"]}`),
	}
	if err := store.CompleteJob(ctx, job.ID, report); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}

	if err := store.CompleteJob(ctx, job.ID, queue.Report{OverallScore: 10}); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected second completion to be rejected, got %v", err)
	}
	if err := store.FailJob(ctx, job.ID, "late", "too late"); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected failing a completed job to be rejected, got %v", err)
	}

	stored, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if stored.Status != queue.StatusCompleted || stored.OverallScore == nil || *stored.OverallScore != 82 {
		t.Fatalf("unexpected stored job %#v", stored)
	}
	if stored.SubscoresJSON == "" || stored.OptimizedAssetsJSON != "" || stored.CompletedAt == nil {
		t.Fatalf("unexpected payload columns %#v", stored)
	}
}

func TestFailJobFromQueuedAndTerminal(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	account := testsupport.NewAccount(t, store, "c@example.com", 3)
	job := testsupport.NewJob(t, store, queue.Submission{AccountID: account.ID, Kind: queue.SourceLink, SourceURL: "https://youtu.be/x"})
	ctx := context.Background()

	if err := store.FailJob(ctx, job.ID, "acquisition_failed", "unreachable"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}
	stored, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if stored.Status != queue.StatusFailed || stored.ErrorKind != "acquisition_failed" || stored.OverallScore != nil {
		t.Fatalf("unexpected failed job %#v", stored)
	}
	if err := store.Transition(ctx, job.ID, queue.StatusFailed, queue.StatusProcessing); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected no retry from failed, got %v", err)
	}
	if _, err := store.GetJob(ctx, 9999); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordAcquisitionIsWriteOnce(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	account := testsupport.NewAccount(t, store, "d@example.com", 3)
	job := testsupport.NewJob(t, store, queue.Submission{AccountID: account.ID, Kind: queue.SourceLink, SourceURL: "https://youtu.be/x"})
	ctx := context.Background()

	duration := 42.5
	if err := store.RecordAcquisition(ctx, job.MediaID, queue.Acquisition{
		StoragePath:     "/tmp/x.mp4",
		DurationSeconds: &duration,
		PlatformLabel:   "YouTube",
		Title:           "My clip",
	}); err != nil {
		t.Fatalf("RecordAcquisition: %v", err)
	}
	other := 99.0
	if err := store.RecordAcquisition(ctx, job.MediaID, queue.Acquisition{DurationSeconds: &other}); !errors.Is(err, queue.ErrAlreadyAcquired) {
		t.Fatalf("expected ErrAlreadyAcquired, got %v", err)
	}
	media, err := store.GetMedia(ctx, job.MediaID)
	if err != nil {
		t.Fatalf("GetMedia: %v", err)
	}
	if !media.Acquired || media.DurationSeconds == nil || *media.DurationSeconds != 42.5 || media.Title != "My clip" {
		t.Fatalf("unexpected media %#v", media)
	}
}

func TestReserveHoldsNoFunds(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	account := testsupport.NewAccount(t, store, "e@example.com", 1)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := store.Reserve(ctx, account.ID, credits.FromCredits(1))
		if err != nil || !ok {
			t.Fatalf("Reserve = %v, %v", ok, err)
		}
	}
	ok, err := store.Reserve(ctx, account.ID, credits.FromCredits(1.5))
	if err != nil || ok {
		t.Fatalf("expected reserve to decline, got %v, %v", ok, err)
	}
	if got := testsupport.Balance(t, store, account.ID); got != credits.FromCredits(1) {
		t.Fatalf("reserve changed balance to %s", got)
	}
	if _, err := store.Reserve(ctx, 4242, 1); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown account, got %v", err)
	}
}

func TestDeductRejectsWithoutClamping(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	account := testsupport.NewAccount(t, store, "f@example.com", 0.5)
	job := testsupport.NewJob(t, store, queue.Submission{AccountID: account.ID, Kind: queue.SourceLink, SourceURL: "https://youtu.be/x"})
	ctx := context.Background()

	if _, err := store.Deduct(ctx, account.ID, job.ID, credits.FromCredits(2)); !errors.Is(err, queue.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if got := testsupport.Balance(t, store, account.ID); got != credits.FromCredits(0.5) {
		t.Fatalf("balance changed to %s", got)
	}
	after, err := store.Deduct(ctx, account.ID, job.ID, credits.FromCredits(0.5))
	if err != nil {
		t.Fatalf("Deduct: %v", err)
	}
	if after != 0 {
		t.Fatalf("expected zero balance, got %s", after)
	}
	stored, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if stored.Cost == nil || *stored.Cost != credits.FromCredits(0.5) {
		t.Fatalf("expected cost recorded on job, got %#v", stored.Cost)
	}

	history, err := store.CreditHistory(ctx, account.ID)
	if err != nil {
		t.Fatalf("CreditHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected grant + charge entries, got %d", len(history))
	}
	charge := history[1]
	if charge.Type != queue.EntryAnalysisCharge || charge.Amount != credits.FromCredits(-0.5) || charge.BalanceAfter != 0 {
		t.Fatalf("unexpected charge entry %#v", charge)
	}
	if charge.JobID == nil || *charge.JobID != job.ID {
		t.Fatalf("expected charge linked to job %d", job.ID)
	}
	if _, err := store.Deduct(ctx, account.ID, 0, 0); !errors.Is(err, credits.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount error, got %v", err)
	}
}

func TestConcurrentDeductsNeverOverdraw(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	account := testsupport.NewAccount(t, store, "race@example.com", 5)
	ctx := context.Background()

	const attempts = 24
	var succeeded atomic.Int64
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			_, err := store.Deduct(ctx, account.ID, 0, credits.FromCredits(1))
			switch {
			case err == nil:
				succeeded.Add(1)
				return nil
			case errors.Is(err, queue.ErrInsufficientCredits):
				return nil
			default:
				return err
			}
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected deduct error: %v", err)
	}

	if got := succeeded.Load(); got != 5 {
		t.Fatalf("expected exactly 5 successful deductions, got %d", got)
	}
	if got := testsupport.Balance(t, store, account.ID); got != 0 {
		t.Fatalf("expected zero balance, got %s", got)
	}

	history, err := store.CreditHistory(ctx, account.ID)
	if err != nil {
		t.Fatalf("CreditHistory: %v", err)
	}
	var charged credits.Amount
	for _, entry := range history {
		if entry.Type == queue.EntryAnalysisCharge {
			charged -= entry.Amount
		}
		if entry.BalanceAfter < 0 {
			t.Fatalf("ledger entry recorded a negative balance: %#v", entry)
		}
	}
	if charged != credits.FromCredits(5) {
		t.Fatalf("expected 5 credits charged in total, got %s", charged)
	}
}

func TestFailInterruptedOnlyTouchesInFlightJobs(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	account := testsupport.NewAccount(t, store, "g@example.com", 3)
	ctx := context.Background()

	queued := testsupport.NewJob(t, store, queue.Submission{AccountID: account.ID, Kind: queue.SourceScript, ScriptText: "a"})
	processing := testsupport.NewJob(t, store, queue.Submission{AccountID: account.ID, Kind: queue.SourceScript, ScriptText: "b"})
	analyzing := testsupport.NewJob(t, store, queue.Submission{AccountID: account.ID, Kind: queue.SourceScript, ScriptText: "c"})

	if err := store.Transition(ctx, processing.ID, queue.StatusQueued, queue.StatusProcessing); err != nil {
		t.Fatal(err)
	}
	if err := store.Transition(ctx, analyzing.ID, queue.StatusQueued, queue.StatusProcessing); err != nil {
		t.Fatal(err)
	}
	if err := store.Transition(ctx, analyzing.ID, queue.StatusProcessing, queue.StatusAnalyzing); err != nil {
		t.Fatal(err)
	}

	affected, err := store.FailInterrupted(ctx, "interrupted", "daemon restarted")
	if err != nil {
		t.Fatalf("FailInterrupted: %v", err)
	}
	if affected != 2 {
		t.Fatalf("expected 2 interrupted jobs, got %d", affected)
	}
	counts, err := store.StatusCounts(ctx)
	if err != nil {
		t.Fatalf("StatusCounts: %v", err)
	}
	if counts[queue.StatusFailed] != 2 || counts[queue.StatusQueued] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
	remaining, err := store.ListByStatus(ctx, queue.StatusQueued)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != queued.ID {
		t.Fatalf("expected queued job to remain, got %#v", remaining)
	}
}

func TestListJobsAndScoreStats(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	owner := testsupport.NewAccount(t, store, "owner@example.com", 3)
	other := testsupport.NewAccount(t, store, "other@example.com", 3)
	ctx := context.Background()

	complete := func(score int) *queue.Job {
		job := testsupport.NewJob(t, store, queue.Submission{AccountID: owner.ID, Kind: queue.SourceScript, ScriptText: "s"})
		if err := store.Transition(ctx, job.ID, queue.StatusQueued, queue.StatusProcessing); err != nil {
			t.Fatal(err)
		}
		if err := store.Transition(ctx, job.ID, queue.StatusProcessing, queue.StatusAnalyzing); err != nil {
			t.Fatal(err)
		}
		if err := store.CompleteJob(ctx, job.ID, queue.Report{OverallScore: score}); err != nil {
			t.Fatal(err)
		}
		return job
	}
	first := complete(70)
	second := complete(85)
	testsupport.NewJob(t, store, queue.Submission{AccountID: other.ID, Kind: queue.SourceScript, ScriptText: "t"})

	records, err := store.ListJobs(ctx, owner.ID, 0)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 jobs for owner, got %d", len(records))
	}
	if records[0].Job.ID != second.ID || records[1].Job.ID != first.ID {
		t.Fatalf("expected newest first, got %d then %d", records[0].Job.ID, records[1].Job.ID)
	}
	if records[0].Media == nil || records[0].Media.Kind != queue.SourceScript {
		t.Fatalf("expected media joined, got %#v", records[0].Media)
	}

	failed := testsupport.NewJob(t, store, queue.Submission{AccountID: owner.ID, Kind: queue.SourceScript, ScriptText: "f"})
	if err := store.Transition(ctx, failed.ID, queue.StatusQueued, queue.StatusProcessing); err != nil {
		t.Fatal(err)
	}
	if err := store.FailJob(ctx, failed.ID, "insufficient_credits", "charge: not enough"); err != nil {
		t.Fatal(err)
	}

	// Only completed jobs with a score feed the average.
	stats, err := store.ScoreStats(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ScoreStats: %v", err)
	}
	if stats.Completed != 2 || stats.AverageScore != 77.5 {
		t.Fatalf("unexpected stats %#v", stats)
	}
	empty, err := store.ScoreStats(ctx, other.ID)
	if err != nil {
		t.Fatalf("ScoreStats: %v", err)
	}
	if empty.Completed != 0 || empty.AverageScore != 0 {
		t.Fatalf("unexpected empty stats %#v", empty)
	}
}

func TestCreateAccountRejectsDuplicateEmail(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.NewAccount(t, store, "dup@example.com", 1)
	_, err := store.CreateAccount(context.Background(), queue.NewAccount{Email: "DUP@example.com"})
	if !errors.Is(err, queue.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	found, err := store.FindAccountByEmail(context.Background(), "dup@example.com")
	if err != nil || found.Balance != credits.FromCredits(1) {
		t.Fatalf("FindAccountByEmail = %#v, %v", found, err)
	}
}
