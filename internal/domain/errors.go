package domain

import "errors"

// Ledger errors. Callers match them with errors.Is.
var (
	ErrInvalidAmount       = errors.New("amount must be a positive integer")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUserNotFound        = errors.New("user not found")
	ErrDeliveryNotFound    = errors.New("delivery not found")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrConcurrencyConflict = errors.New("concurrency conflict, retries exhausted")
	ErrInternalConsistency = errors.New("ledger consistency violation")
	ErrTestFundingDisabled = errors.New("test funding is disabled")
	ErrForbidden           = errors.New("not allowed for this user")
)
