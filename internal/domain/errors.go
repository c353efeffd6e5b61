package domain

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrRateLimited            = errors.New("rate limited")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInvalidInput           = errors.New("invalid input")
	ErrWalletNotConnected     = errors.New("wallet not connected")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrPriceUpdateUnavailable = errors.New("price update unavailable")
	ErrMalformedPool          = errors.New("malformed pool data")
	ErrInvalidPoolType        = errors.New("invalid pool type")
	ErrSimulationFailed       = errors.New("simulation failed")
	ErrFeatureDisabled        = errors.New("feature disabled")
	ErrSigningFailed          = errors.New("signing failed")
	ErrLockHeld               = errors.New("lock already held")
)

// ErrorKind classifies a failure for the user-facing layer.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindOracleUnavailable ErrorKind = "oracle_unavailable"
	KindContractRejection ErrorKind = "contract_rejection"
	KindDiscoveryDegraded ErrorKind = "discovery_degraded"
	KindMalformedPool     ErrorKind = "malformed_pool"
	KindNotFound          ErrorKind = "not_found"
	KindNetwork           ErrorKind = "network"
	KindConfig            ErrorKind = "config"
	KindInvalidPoolType   ErrorKind = "invalid_pool_type"
	KindSimulationFailed  ErrorKind = "simulation_failed"
	KindUnknown           ErrorKind = "unknown"
)

// ActionError is a classified failure carrying a readable message. The
// underlying error is kept for logging and errors.Is checks.
type ActionError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *ActionError) Error() string { return e.Message }

func (e *ActionError) Unwrap() error { return e.Err }
