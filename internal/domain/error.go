package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrConflictingPending is returned when a user with an open pending
	// subscription invoice asks for a second one.
	ErrConflictingPending = errors.New("user already has a pending subscription invoice")

	// ErrDuplicateInvoice marks an IPN whose invoice id is already recorded
	// in the idempotency registry. Handlers treat it as a silent success.
	ErrDuplicateInvoice = errors.New("invoice already processed")

	// ErrStoreUnavailable wraps transient store failures so HTTP handlers can
	// choose a retryable status code.
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrInvalidExecContext = errors.New("invalid executor context")
)
