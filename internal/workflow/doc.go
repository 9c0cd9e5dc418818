// Package workflow drives analysis jobs from QUEUED to a terminal state.
//
// The Manager owns a bounded dispatch channel feeding a fixed pool of
// workers. Each message is one job id and each job runs as an independent
// single pass through the registered stages (acquire, charge, analyze) with
// the job state persisted before every stage that changes it. There is no
// automatic retry: every failure, including a recovered panic, resolves to
// FAILED with a taxonomy label in error_kind for operators.
//
// On Start the manager fails jobs a previous process left in flight and
// re-dispatches jobs that were still queued. Status aggregates queue counts
// and stage health for the daemon's status endpoint.
package workflow
