package queue

import "errors"

var (
	// ErrNotFound reports a missing account, job, or media row.
	ErrNotFound = errors.New("record not found")
	// ErrInsufficientCredits reports a deduction rejected because the balance
	// is below the amount. Nothing is charged.
	ErrInsufficientCredits = errors.New("insufficient credits at deduction")
	// ErrInvalidTransition reports a state change absent from the transition
	// table or attempted from a state the job is no longer in.
	ErrInvalidTransition = errors.New("invalid job state transition")
	// ErrAlreadyAcquired reports a second attempt to fill acquisition fields.
	ErrAlreadyAcquired = errors.New("media already acquired")
	// ErrAccountExists reports a duplicate account email.
	ErrAccountExists = errors.New("account already exists")
)
