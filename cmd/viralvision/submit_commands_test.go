package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"viralvision/internal/queue"
	"viralvision/internal/testsupport"
)

func TestSubmitScriptQueuesJob(t *testing.T) {
	env := setupCLITestEnv(t)
	account := testsupport.NewAccount(t, env.store, "writer@example.com", 1)
	accountArg := strconv.FormatInt(account.ID, 10)

	out, err := env.run(t, "submit", "script", "--account", accountArg, "--title", "Draft", "Stop scrolling. Here is why.")
	if err != nil {
		t.Fatalf("submit script: %v", err)
	}
	requireContains(t, out, "queued")

	records, err := env.store.ListJobs(context.Background(), account.ID, 10)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(records) != 1 || records[0].Media.Kind != queue.SourceScript || records[0].Media.Title != "Draft" {
		t.Fatalf("unexpected jobs %#v", records)
	}
}

func TestSubmitScriptFromFileUsesAccountEnv(t *testing.T) {
	env := setupCLITestEnv(t)
	account := testsupport.NewAccount(t, env.store, "env@example.com", 1)
	t.Setenv(accountEnv, strconv.FormatInt(account.ID, 10))

	scriptPath := filepath.Join(t.TempDir(), "script.txt")
	if err := os.WriteFile(scriptPath, []byte("A hook from a file."), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	out, err := env.run(t, "submit", "script", "--file", scriptPath, "--json")
	if err != nil {
		t.Fatalf("submit script --file: %v", err)
	}
	requireContains(t, out, `"state": "queued"`)
}

func TestSubmitReportsDaemonErrors(t *testing.T) {
	env := setupCLITestEnv(t)
	poor := testsupport.NewAccount(t, env.store, "poor@example.com", 0.5)

	_, err := env.run(t, "submit", "link", "--account", strconv.FormatInt(poor.ID, 10), "https://www.youtube.com/watch?v=abc")
	if err == nil || !strings.Contains(err.Error(), "insufficient credits") {
		t.Fatalf("expected admission error, got %v", err)
	}
	if _, err := env.run(t, "submit", "script", "hello"); err == nil || !strings.Contains(err.Error(), accountEnv) {
		t.Fatalf("expected missing account error, got %v", err)
	}
}

func TestActingAccount(t *testing.T) {
	t.Setenv(accountEnv, "")
	if _, err := actingAccount(0); err == nil {
		t.Fatal("expected error without flag or env")
	}
	if id, err := actingAccount(7); err != nil || id != 7 {
		t.Fatalf("flag value: got %d, %v", id, err)
	}
	t.Setenv(accountEnv, "12")
	if id, err := actingAccount(0); err != nil || id != 12 {
		t.Fatalf("env value: got %d, %v", id, err)
	}
	t.Setenv(accountEnv, "twelve")
	if _, err := actingAccount(0); err == nil {
		t.Fatal("expected error for invalid env value")
	}
}
