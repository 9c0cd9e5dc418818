// Package queue persists accounts, media items, and analysis jobs in SQLite
// and exposes the only legal ways to mutate them.
//
// The Store owns the credit ledger (reserve pre-checks and atomic
// compare-and-subtract deductions), the job state machine (each transition is
// a guarded UPDATE that only succeeds from the expected prior state), and the
// write-once media acquisition fields. Every write is immediately visible to
// subsequent reads so polling clients observe a state at least as advanced as
// the last completed pipeline step.
//
// Schema changes bump the version in schema.go; operators clear the database
// to adopt the new schema.
package queue
