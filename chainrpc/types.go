// Package chainrpc queries chain-level transaction execution status and
// exposes the receipt tree terminal statuses are parsed from.
package chainrpc

import (
	"encoding/json"
	"errors"
)

// ErrUnknownTransaction marks a transaction the chain has not started
// executing yet (or does not know at all). Callers treat it as a retry
// condition inside bounded polls.
var ErrUnknownTransaction = errors.New("chainrpc: transaction not started")

// ExecutionStatus is the terminal status of one outcome. Exactly one field
// is set.
type ExecutionStatus struct {
	SuccessValue     *string         `json:"SuccessValue,omitempty"`
	SuccessReceiptID *string         `json:"SuccessReceiptId,omitempty"`
	Failure          *ExecutionError `json:"Failure,omitempty"`
}

// ExecutionError is a failed action. The structured contract-level message,
// when present, sits under ActionError.Kind.FunctionCallError.ExecutionError.
type ExecutionError struct {
	ActionError *ActionError    `json:"ActionError,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// ActionError identifies which action failed and how.
type ActionError struct {
	Index int             `json:"index"`
	Kind  ActionErrorKind `json:"kind"`
}

// ActionErrorKind carries the failure detail variants the SDK inspects.
type ActionErrorKind struct {
	FunctionCallError *FunctionCallError `json:"FunctionCallError,omitempty"`
	Other             json.RawMessage    `json:"-"`
}

// FunctionCallError is a contract-level execution failure.
type FunctionCallError struct {
	ExecutionError string `json:"ExecutionError,omitempty"`
}

// UnmarshalJSON keeps the raw form alongside the parsed structure so
// unstructured failures can be serialized back verbatim.
func (e *ExecutionError) UnmarshalJSON(data []byte) error {
	type alias ExecutionError
	var parsed alias
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	*e = ExecutionError(parsed)
	e.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON emits the original raw form when available.
func (e ExecutionError) MarshalJSON() ([]byte, error) {
	if len(e.Raw) > 0 {
		return e.Raw, nil
	}
	type alias ExecutionError
	return json.Marshal(alias(e))
}

// ExecutionErrorMessage returns the structured contract-level error string,
// or "" when the failure is unstructured.
func (e *ExecutionError) ExecutionErrorMessage() string {
	if e.ActionError != nil && e.ActionError.Kind.FunctionCallError != nil {
		return e.ActionError.Kind.FunctionCallError.ExecutionError
	}
	return ""
}

// Outcome is the result of executing one transaction or receipt.
type Outcome struct {
	Logs        []string        `json:"logs"`
	ReceiptIDs  []string        `json:"receipt_ids"`
	GasBurnt    uint64          `json:"gas_burnt"`
	TokensBurnt string          `json:"tokens_burnt"`
	ExecutorID  string          `json:"executor_id"`
	Status      ExecutionStatus `json:"status"`
}

// ReceiptOutcome pairs a receipt id with its outcome.
type ReceiptOutcome struct {
	ID      string  `json:"id"`
	Outcome Outcome `json:"outcome"`
}

// TransactionOutcome is the outcome of the transaction conversion itself.
type TransactionOutcome struct {
	ID      string  `json:"id"`
	Outcome Outcome `json:"outcome"`
}

// ExecutionOutcome is the full receipt tree for one transaction.
type ExecutionOutcome struct {
	Status             ExecutionStatus    `json:"status"`
	TransactionOutcome TransactionOutcome `json:"transaction_outcome"`
	ReceiptsOutcome    []ReceiptOutcome   `json:"receipts_outcome"`
}
