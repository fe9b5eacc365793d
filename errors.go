package intents

import (
	"errors"
	"fmt"
)

// IntentError is the structured error for terminal failures in the signing
// and settlement pipeline. Transient transport errors inside poll loops are
// retried locally and never surface as IntentError.
type IntentError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *IntentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeUserRejected          = "user_rejected"
	ErrCodeNotConnected          = "not_connected"
	ErrCodeSolverFailure         = "solver_failure"
	ErrCodeTransactionNotFound   = "transaction_not_found"
	ErrCodeExecutionFailure      = "execution_failure"
	ErrCodeUnsupportedCapability = "unsupported_capability"
	ErrCodeInvalidIdentity       = "invalid_identity"
)

// NewIntentError creates a new intent error
func NewIntentError(code, message string, details map[string]interface{}) *IntentError {
	return &IntentError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewSolverFailure wraps a FAILED settlement status with the solver-reported
// reason.
func NewSolverFailure(reason string) *IntentError {
	if reason == "" {
		reason = "solver reported FAILED status"
	}
	return &IntentError{Code: ErrCodeSolverFailure, Message: reason}
}

// NewUserRejected reports an explicit decline at an approval step.
func NewUserRejected(step string) *IntentError {
	return &IntentError{
		Code:    ErrCodeUserRejected,
		Message: "user rejected the request",
		Details: map[string]interface{}{"step": step},
	}
}

// NewUnsupportedCapability reports that a wallet variant lacks a requested
// signing mode.
func NewUnsupportedCapability(variant, capability string) *IntentError {
	return &IntentError{
		Code:    ErrCodeUnsupportedCapability,
		Message: fmt.Sprintf("%s wallet does not support %s", variant, capability),
	}
}

// IsCode reports whether err is, or wraps, an IntentError with the given
// code.
func IsCode(err error, code string) bool {
	var ie *IntentError
	return errors.As(err, &ie) && ie.Code == code
}
