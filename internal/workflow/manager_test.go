package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"viralvision/internal/acquire"
	"viralvision/internal/analysis"
	"viralvision/internal/config"
	"viralvision/internal/credits"
	"viralvision/internal/media/ffprobe"
	"viralvision/internal/queue"
	"viralvision/internal/services/llm"
	"viralvision/internal/services/ytdlp"
	"viralvision/internal/stage"
	"viralvision/internal/testsupport"
	"viralvision/internal/workflow"
)

const validReply = `{"overall_score": 82, "subscores": {"hook": {"score": 80, "analysis": "ok", "tips": ["tighter"]}},
"insights": {"executive_summary": "solid"}, "optimized_assets": {"titles": ["Better title"]},
"checklist": {"next_steps": ["post it"]}}`

type fakeFetcher struct {
	meta        ytdlp.Metadata
	probeErr    error
	result      ytdlp.Result
	downloadErr error
	downloads   int
}

func (f *fakeFetcher) Probe(context.Context, string) (ytdlp.Metadata, error) {
	return f.meta, f.probeErr
}

func (f *fakeFetcher) Download(context.Context, string, ytdlp.Metadata) (ytdlp.Result, error) {
	f.downloads++
	return f.result, f.downloadErr
}

type unavailableProber struct{}

func (unavailableProber) Inspect(context.Context, string) (ffprobe.Result, error) {
	return ffprobe.Result{}, errors.New("exec: \"ffprobe\": executable file not found in $PATH")
}

type fakeCompleter struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(context.Context, llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.reply, f.err
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type stubStage struct {
	name        string
	executeHook func(*stage.Item) error
	health      stage.Health
}

func newStubStage(name string) *stubStage {
	return &stubStage{name: name, health: stage.Healthy(name)}
}

func (s *stubStage) Execute(_ context.Context, item *stage.Item) error {
	if s.executeHook != nil {
		return s.executeHook(item)
	}
	return nil
}

func (s *stubStage) HealthCheck(context.Context) stage.Health {
	return s.health
}

func reportingStage(name string) *stubStage {
	s := newStubStage(name)
	s.executeHook = func(item *stage.Item) error {
		item.Report = &queue.Report{OverallScore: 70}
		return nil
	}
	return s
}

type harness struct {
	cfg       *config.Config
	store     *queue.Store
	mgr       *workflow.Manager
	fetcher   *fakeFetcher
	completer *fakeCompleter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	h := &harness{
		cfg:       cfg,
		store:     store,
		fetcher:   &fakeFetcher{},
		completer: &fakeCompleter{reply: validReply},
	}
	acquirer := acquire.New(cfg, h.fetcher, nil, acquire.WithProber(unavailableProber{}))
	h.mgr = workflow.NewManager(cfg, store, nil)
	h.mgr.ConfigureStages(workflow.StageSet{
		Acquire: acquire.NewStage(acquirer, store, nil),
		Charge:  workflow.NewChargeStage(store, nil),
		Analyze: analysis.NewStage(analysis.NewInvoker(cfg, h.completer, nil), nil, cfg.Analysis.APIKey),
	})
	return h
}

func (h *harness) job(t *testing.T, id int64) *queue.Job {
	t.Helper()
	job, err := h.store.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	return job
}

func seconds(v float64) *float64 { return &v }

func TestScriptSubmissionCompletesAndCharges(t *testing.T) {
	h := newHarness(t)
	account := testsupport.NewAccount(t, h.store, "script@example.com", 3.0)
	job := testsupport.NewJob(t, h.store, queue.Submission{AccountID: account.ID, Kind: queue.SourceScript, ScriptText: "Stop scrolling."})

	if err := h.mgr.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := h.job(t, job.ID)
	if got.Status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", got.Status, got.ErrorMessage)
	}
	if got.OverallScore == nil || *got.OverallScore != 82 {
		t.Fatalf("unexpected score %v", got.OverallScore)
	}
	if got.Cost == nil || *got.Cost != credits.FromCredits(0.5) {
		t.Fatalf("expected cost 0.5, got %v", got.Cost)
	}
	if balance := testsupport.Balance(t, h.store, account.ID); balance != credits.FromCredits(2.5) {
		t.Fatalf("expected balance 2.5, got %s", balance)
	}
}

func TestLinkDeductionFailureSkipsAnalysis(t *testing.T) {
	h := newHarness(t)
	path := testsupport.WriteMedia(t, filepath.Join(h.cfg.Paths.UploadDir, "youtube-abc.mp4"), 64)
	h.fetcher.meta = ytdlp.Metadata{ID: "abc", Duration: seconds(120)}
	h.fetcher.result = ytdlp.Result{Path: path, Title: "Long one", Duration: seconds(120), Platform: "YouTube"}

	account := testsupport.NewAccount(t, h.store, "link@example.com", 0.5)
	job := testsupport.NewJob(t, h.store, queue.Submission{AccountID: account.ID, Kind: queue.SourceLink, SourceURL: "https://youtube.com/watch?v=abc"})

	err := h.mgr.Run(context.Background(), job.ID)
	if !errors.Is(err, queue.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}

	got := h.job(t, job.ID)
	if got.Status != queue.StatusFailed || got.ErrorKind != workflow.KindInsufficientCredits {
		t.Fatalf("expected failed/insufficient_credits, got %s/%s", got.Status, got.ErrorKind)
	}
	if got.OverallScore != nil || got.Cost != nil {
		t.Fatalf("failed job must carry no score or cost: %#v", got)
	}
	if balance := testsupport.Balance(t, h.store, account.ID); balance != credits.FromCredits(0.5) {
		t.Fatalf("expected balance 0.5, got %s", balance)
	}
	if h.completer.callCount() != 0 {
		t.Fatal("analysis must not run after a failed deduction")
	}
}

func TestUploadRejectionKeepsCharge(t *testing.T) {
	h := newHarness(t)
	h.completer.err = &llm.RejectionError{Reason: "content_filter"}
	path := testsupport.WriteMedia(t, filepath.Join(h.cfg.Paths.UploadDir, "clip.mp4"), 128)

	account := testsupport.NewAccount(t, h.store, "upload@example.com", 3.0)
	job := testsupport.NewJob(t, h.store, queue.Submission{AccountID: account.ID, Kind: queue.SourceUpload, LocalPath: path})

	err := h.mgr.Run(context.Background(), job.ID)
	if !errors.Is(err, analysis.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}

	got := h.job(t, job.ID)
	if got.Status != queue.StatusFailed || got.ErrorKind != workflow.KindAnalysisRejected {
		t.Fatalf("expected failed/analysis_rejected, got %s/%s", got.Status, got.ErrorKind)
	}
	if got.OverallScore != nil {
		t.Fatal("rejected job must not carry a score")
	}
	if got.Cost == nil || *got.Cost != credits.FromCredits(1.0) {
		t.Fatalf("expected unknown-duration cost 1.0, got %v", got.Cost)
	}
	if balance := testsupport.Balance(t, h.store, account.ID); balance != credits.FromCredits(2.0) {
		t.Fatalf("expected balance 2.0, got %s", balance)
	}
}

func TestAcquisitionFailureNeverChargesOrAnalyzes(t *testing.T) {
	h := newHarness(t)
	h.fetcher.probeErr = fmt.Errorf("%w: Private video", ytdlp.ErrPrivate)

	account := testsupport.NewAccount(t, h.store, "private@example.com", 3.0)
	job := testsupport.NewJob(t, h.store, queue.Submission{AccountID: account.ID, Kind: queue.SourceLink, SourceURL: "https://youtube.com/watch?v=private"})

	err := h.mgr.Run(context.Background(), job.ID)
	if !errors.Is(err, acquire.ErrAcquisitionFailed) || !errors.Is(err, ytdlp.ErrPrivate) {
		t.Fatalf("expected acquisition failure wrapping ErrPrivate, got %v", err)
	}

	got := h.job(t, job.ID)
	if got.Status != queue.StatusFailed || got.ErrorKind != workflow.KindAcquisitionFailed {
		t.Fatalf("expected failed/acquisition_failed, got %s/%s", got.Status, got.ErrorKind)
	}
	if balance := testsupport.Balance(t, h.store, account.ID); balance != credits.FromCredits(3.0) {
		t.Fatalf("balance changed after acquisition failure: %s", balance)
	}
	history, err := h.store.CreditHistory(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("CreditHistory: %v", err)
	}
	for _, entry := range history {
		if entry.Type == queue.EntryAnalysisCharge {
			t.Fatalf("unexpected charge entry %#v", entry)
		}
	}
	if h.completer.callCount() != 0 || h.fetcher.downloads != 0 {
		t.Fatal("nothing should run after a failed probe")
	}
}

func TestDurationCeilingRejectsBeforeDownload(t *testing.T) {
	h := newHarness(t)
	h.fetcher.meta = ytdlp.Metadata{ID: "long", Duration: seconds(3600)}

	account := testsupport.NewAccount(t, h.store, "long@example.com", 3.0)
	job := testsupport.NewJob(t, h.store, queue.Submission{AccountID: account.ID, Kind: queue.SourceLink, SourceURL: "https://youtube.com/watch?v=long"})

	err := h.mgr.Run(context.Background(), job.ID)
	if !errors.Is(err, acquire.ErrDurationExceeded) {
		t.Fatalf("expected ErrDurationExceeded, got %v", err)
	}
	if h.fetcher.downloads != 0 {
		t.Fatal("download should not start for over-limit content")
	}
	if balance := testsupport.Balance(t, h.store, account.ID); balance != credits.FromCredits(3.0) {
		t.Fatalf("balance changed: %s", balance)
	}
}

func TestInvalidResponseFailsCleanly(t *testing.T) {
	h := newHarness(t)
	h.completer.reply = "I cannot produce JSON today."

	account := testsupport.NewAccount(t, h.store, "invalid@example.com", 1.0)
	job := testsupport.NewJob(t, h.store, queue.Submission{AccountID: account.ID, Kind: queue.SourceScript, ScriptText: "hello"})

	err := h.mgr.Run(context.Background(), job.ID)
	if !errors.Is(err, analysis.ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid, got %v", err)
	}
	got := h.job(t, job.ID)
	if got.Status != queue.StatusFailed || got.ErrorKind != workflow.KindAnalysisResponseInvalid {
		t.Fatalf("expected failed/analysis_response_invalid, got %s/%s", got.Status, got.ErrorKind)
	}
	if balance := testsupport.Balance(t, h.store, account.ID); balance != credits.FromCredits(0.5) {
		t.Fatalf("expected the charge to stand, got %s", balance)
	}
}

func TestStagePanicFailsJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	panicking := newStubStage("analyze")
	panicking.executeHook = func(*stage.Item) error { panic("boom") }

	mgr := workflow.NewManager(cfg, store, nil)
	mgr.ConfigureStages(workflow.StageSet{
		Acquire: newStubStage("acquire"),
		Analyze: panicking,
	})

	account := testsupport.NewAccount(t, store, "panic@example.com", 1.0)
	job := testsupport.NewJob(t, store, queue.Submission{AccountID: account.ID, Kind: queue.SourceScript, ScriptText: "x"})

	if err := mgr.Run(context.Background(), job.ID); err == nil {
		t.Fatal("expected error from panicking stage")
	}
	got, err := store.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != queue.StatusFailed || got.ErrorKind != workflow.KindInternal {
		t.Fatalf("expected failed/internal, got %s/%s", got.Status, got.ErrorKind)
	}
}

func TestRunSkipsJobThatLeftQueued(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	acquireStage := newStubStage("acquire")
	calls := 0
	acquireStage.executeHook = func(*stage.Item) error {
		calls++
		return nil
	}
	mgr := workflow.NewManager(cfg, store, nil)
	mgr.ConfigureStages(workflow.StageSet{Acquire: acquireStage, Analyze: reportingStage("analyze")})

	account := testsupport.NewAccount(t, store, "dup@example.com", 1.0)
	job := testsupport.NewJob(t, store, queue.Submission{AccountID: account.ID, Kind: queue.SourceScript, ScriptText: "x"})

	if err := mgr.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := mgr.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected stages to run once, ran %d times", calls)
	}
}

// observingStage records the persisted job status each time it runs before
// delegating to next.
type observingStage struct {
	name  string
	store *queue.Store
	next  stage.Handler
	seen  *[]string
}

func (o *observingStage) Execute(ctx context.Context, item *stage.Item) error {
	job, err := o.store.GetJob(ctx, item.Job.ID)
	if err != nil {
		return err
	}
	*o.seen = append(*o.seen, o.name+"="+string(job.Status))
	if o.next == nil {
		return nil
	}
	return o.next.Execute(ctx, item)
}

func (o *observingStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(o.name)
}

func observedManager(t *testing.T, seen *[]string) (*queue.Store, *workflow.Manager) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManager(cfg, store, nil)
	mgr.ConfigureStages(workflow.StageSet{
		Acquire: &observingStage{name: "acquire", store: store, seen: seen},
		Charge:  &observingStage{name: "charge", store: store, next: workflow.NewChargeStage(store, nil), seen: seen},
		Analyze: &observingStage{name: "analyze", store: store, next: reportingStage("analyze"), seen: seen},
	})
	return store, mgr
}

func TestRunPersistsIntermediateStates(t *testing.T) {
	var seen []string
	store, mgr := observedManager(t, &seen)
	account := testsupport.NewAccount(t, store, "states@example.com", 1.0)
	job := testsupport.NewJob(t, store, queue.Submission{AccountID: account.ID, Kind: queue.SourceScript, ScriptText: "x"})

	if err := mgr.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"acquire=processing", "charge=processing", "analyze=analyzing"}
	if fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Fatalf("expected stages to observe %v, got %v", want, seen)
	}
	got, err := store.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
}

func TestInsufficientCreditsNeverReachesAnalyzing(t *testing.T) {
	var seen []string
	store, mgr := observedManager(t, &seen)
	account := testsupport.NewAccount(t, store, "broke@example.com", 0.25)
	job := testsupport.NewJob(t, store, queue.Submission{AccountID: account.ID, Kind: queue.SourceScript, ScriptText: "x"})

	if err := mgr.Run(context.Background(), job.ID); !errors.Is(err, queue.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	want := []string{"acquire=processing", "charge=processing"}
	if fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Fatalf("expected stages to observe %v, got %v", want, seen)
	}
	got, err := store.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != queue.StatusFailed || got.ErrorKind != workflow.KindInsufficientCredits {
		t.Fatalf("expected failed/insufficient_credits, got %s/%s", got.Status, got.ErrorKind)
	}
}

func TestConcurrentRunsLeaveClaimedJobAlone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	release := make(chan struct{})
	var mu sync.Mutex
	calls := 0
	gate := newStubStage("acquire")
	gate.executeHook = func(*stage.Item) error {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return nil
	}
	mgr := workflow.NewManager(cfg, store, nil)
	mgr.ConfigureStages(workflow.StageSet{Acquire: gate, Analyze: reportingStage("analyze")})

	account := testsupport.NewAccount(t, store, "race@example.com", 1.0)
	job := testsupport.NewJob(t, store, queue.Submission{AccountID: account.ID, Kind: queue.SourceScript, ScriptText: "x"})

	const runners = 8
	start := make(chan struct{})
	errs := make(chan error, runners)
	var wg sync.WaitGroup
	for i := 0; i < runners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs <- mgr.Run(context.Background(), job.ID)
		}()
	}
	close(start)

	claimed := waitForStatus(t, store, job.ID, queue.StatusProcessing)
	if claimed.ErrorKind != "" {
		t.Fatalf("claimed job carries error kind %q", claimed.ErrorKind)
	}
	// All runners except the claimant return without touching the job.
	for i := 0; i < runners-1; i++ {
		select {
		case err := <-errs:
			if err != nil {
				t.Fatalf("losing Run returned %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("losing Run did not return")
		}
	}
	if got := waitForStatus(t, store, job.ID, queue.StatusProcessing); got.Status != queue.StatusProcessing {
		t.Fatalf("expected job still processing, got %s", got.Status)
	}

	close(release)
	wg.Wait()
	if err := <-errs; err != nil {
		t.Fatalf("claimant Run: %v", err)
	}
	waitForStatus(t, store, job.ID, queue.StatusCompleted)
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected stages to run once, ran %d times", calls)
	}
}

func TestMissingReportFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManager(cfg, store, nil)
	mgr.ConfigureStages(workflow.StageSet{Acquire: newStubStage("acquire"), Analyze: newStubStage("analyze")})

	account := testsupport.NewAccount(t, store, "noreport@example.com", 1.0)
	job := testsupport.NewJob(t, store, queue.Submission{AccountID: account.ID, Kind: queue.SourceScript, ScriptText: "x"})

	if err := mgr.Run(context.Background(), job.ID); err == nil {
		t.Fatal("expected failure without report")
	}
	got, _ := store.GetJob(context.Background(), job.ID)
	if got.Status != queue.StatusFailed || got.ErrorKind != workflow.KindInternal {
		t.Fatalf("expected failed/internal, got %s/%s", got.Status, got.ErrorKind)
	}
}

func waitForStatus(t *testing.T, store *queue.Store, jobID int64, want queue.Status) *queue.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		job, err := store.GetJob(context.Background(), jobID)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if job.Status == want {
			return job
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %d stuck in %s, want %s", jobID, job.Status, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStartRecoversInterruptedAndQueuedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	account := testsupport.NewAccount(t, store, "restart@example.com", 3.0)
	stranded := testsupport.NewJob(t, store, queue.Submission{AccountID: account.ID, Kind: queue.SourceScript, ScriptText: "a"})
	if err := store.Transition(ctx, stranded.ID, queue.StatusQueued, queue.StatusProcessing); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	waiting := testsupport.NewJob(t, store, queue.Submission{AccountID: account.ID, Kind: queue.SourceScript, ScriptText: "b"})

	mgr := workflow.NewManager(cfg, store, nil)
	mgr.ConfigureStages(workflow.StageSet{Acquire: newStubStage("acquire"), Analyze: reportingStage("analyze")})
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(mgr.Stop)

	waitForStatus(t, store, waiting.ID, queue.StatusCompleted)
	got := waitForStatus(t, store, stranded.ID, queue.StatusFailed)
	if got.ErrorKind != workflow.KindInterrupted {
		t.Fatalf("expected interrupted, got %q", got.ErrorKind)
	}
	if err := mgr.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail")
	}
}

func TestDispatchNeverBlocksWhenQueueFull(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.Workers = 1
	cfg.Workflow.QueueDepth = 1
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	release := make(chan struct{})
	gate := newStubStage("acquire")
	gate.executeHook = func(*stage.Item) error {
		<-release
		return nil
	}
	mgr := workflow.NewManager(cfg, store, nil)
	mgr.ConfigureStages(workflow.StageSet{Acquire: gate, Analyze: reportingStage("analyze")})
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(mgr.Stop)

	account := testsupport.NewAccount(t, store, "burst@example.com", 10.0)
	ids := make([]int64, 0, 4)
	for i := 0; i < 4; i++ {
		job := testsupport.NewJob(t, store, queue.Submission{AccountID: account.ID, Kind: queue.SourceScript, ScriptText: "x"})
		ids = append(ids, job.ID)
	}
	done := make(chan struct{})
	go func() {
		for _, id := range ids {
			mgr.Dispatch(id)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}

	close(release)
	for _, id := range ids {
		waitForStatus(t, store, id, queue.StatusCompleted)
	}
}

func TestStatusReportsStageHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	broken := newStubStage("analyze")
	broken.health = stage.Unhealthy("analyze", "api key missing")

	mgr := workflow.NewManager(cfg, store, nil)
	mgr.ConfigureStages(workflow.StageSet{
		Acquire: newStubStage("acquire"),
		Charge:  workflow.NewChargeStage(store, nil),
		Analyze: broken,
	})

	account := testsupport.NewAccount(t, store, "status@example.com", 1.0)
	job := testsupport.NewJob(t, store, queue.Submission{AccountID: account.ID, Kind: queue.SourceScript, ScriptText: "x"})
	_ = mgr.Run(context.Background(), job.ID)

	status := mgr.Status(context.Background())
	if status.Running {
		t.Fatal("manager was never started")
	}
	if !status.StageHealth["acquire"].Ready || !status.StageHealth["charge"].Ready {
		t.Fatalf("expected acquire and charge ready: %#v", status.StageHealth)
	}
	if status.StageHealth["analyze"].Ready {
		t.Fatal("expected analyze unhealthy")
	}
	if status.QueueStats[queue.StatusFailed] != 1 {
		t.Fatalf("expected one failed job, got %#v", status.QueueStats)
	}
	if status.LastJob == nil || status.LastJob.ID != job.ID || status.LastError == "" {
		t.Fatalf("expected last job and error recorded: %#v", status)
	}
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: %w", acquire.ErrAcquisitionFailed, ytdlp.ErrUnreachable), workflow.KindAcquisitionFailed},
		{fmt.Errorf("charge: %w", queue.ErrInsufficientCredits), workflow.KindInsufficientCredits},
		{fmt.Errorf("%w: %w", analysis.ErrRejected, llm.ErrRejected), workflow.KindAnalysisRejected},
		{analysis.ErrResponseInvalid, workflow.KindAnalysisResponseInvalid},
		{fmt.Errorf("%w: timeout", analysis.ErrTransport), workflow.KindAnalysisTransport},
		{context.Canceled, workflow.KindInterrupted},
		{errors.New("disk full"), workflow.KindInternal},
	}
	for _, tc := range cases {
		if got := workflow.ErrorKind(tc.err); got != tc.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
