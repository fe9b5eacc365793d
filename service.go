package intents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/omnisdk/intents-go/chainrpc"
)

// DefaultPollInterval is the delay between settlement and chain status
// queries.
const DefaultPollInterval = 1 * time.Second

// DefaultMaxTxAttempts bounds the chain transaction-status poll.
const DefaultMaxTxAttempts = 30

// assetsPageSize is the fixed page size of the token-ownership query.
const assetsPageSize = 250

// Sleeper waits between poll attempts. Injectable so tests run without real
// delays and timing stays deterministic.
type Sleeper func(d time.Duration)

// ServiceConfig configures the intent service.
type ServiceConfig struct {
	// Solver is the solver network client (required).
	Solver SolverClient

	// Chain is the chain transaction-status client. Optional; only
	// WaitTransactionResult needs it.
	Chain ChainClient

	// PollInterval between status queries (optional, defaults to 1s).
	PollInterval time.Duration

	// Sleep is the wait primitive (optional, defaults to time.Sleep).
	Sleep Sleeper
}

// IntentService publishes signed intents to the solver network and observes
// settlement and chain-level execution.
type IntentService struct {
	solver       SolverClient
	chain        ChainClient
	pollInterval time.Duration
	sleep        Sleeper
}

// NewIntentService creates an intent service.
func NewIntentService(config ServiceConfig) *IntentService {
	pollInterval := config.PollInterval
	if pollInterval == 0 {
		pollInterval = DefaultPollInterval
	}

	sleep := config.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	return &IntentService{
		solver:       config.Solver,
		chain:        config.Chain,
		pollInterval: pollInterval,
		sleep:        sleep,
	}
}

// Publish submits signed intents once and polls the solver to a terminal
// status.
//
// A FAILED publish response rejects immediately with no status poll. After a
// successful submit the first reported intent hash is polled every interval
// until the solver reports SETTLED or FAILED; transient transport failures
// are treated as "not yet" and retried indefinitely. The poll deliberately
// outlives caller cancellation: settlement truth is awaited until the solver
// reports it.
func (s *IntentService) Publish(ctx context.Context, signed []SignedIntent, quoteHashes []string) (string, error) {
	result, err := s.solver.PublishIntents(ctx, signed, quoteHashes)
	if err != nil {
		return "", fmt.Errorf("failed to publish intents: %w", err)
	}
	if result.Status == StatusFailed {
		return "", NewSolverFailure(result.Reason)
	}
	if len(result.IntentHashes) == 0 {
		return "", fmt.Errorf("solver accepted intents but returned no intent hashes")
	}

	intentHash := result.IntentHashes[0]
	pollCtx := context.WithoutCancel(ctx)

	for {
		s.sleep(s.pollInterval)

		status, err := s.solver.GetStatus(pollCtx, intentHash)
		if err != nil {
			// Transient transport failure; the solver has not said anything
			// terminal yet.
			continue
		}

		switch status.Status {
		case StatusSettled:
			return status.Hash, nil
		case StatusFailed:
			return "", NewSolverFailure(status.Reason)
		}
	}
}

// WaitOptions tunes the bounded chain poll.
type WaitOptions struct {
	// MaxAttempts before giving up (defaults to DefaultMaxTxAttempts).
	MaxAttempts int
}

// WaitTransactionResult polls the chain for a transaction's execution
// outcome at the poll interval, up to MaxAttempts. ctx is checked before
// each request and again immediately after each response so an abort takes
// effect promptly. Not-yet-started transactions are retried; exhausting the
// bound rejects with transaction_not_found. A concrete outcome is handed to
// ParseReceipts before being returned.
func (s *IntentService) WaitTransactionResult(ctx context.Context, txHash, senderID string, opts *WaitOptions) (*chainrpc.ExecutionOutcome, error) {
	if s.chain == nil {
		return nil, fmt.Errorf("no chain client configured")
	}

	maxAttempts := DefaultMaxTxAttempts
	if opts != nil && opts.MaxAttempts > 0 {
		maxAttempts = opts.MaxAttempts
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outcome, err := s.chain.TxStatus(ctx, txHash, senderID)

		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		if err != nil {
			// Unknown transaction and transport failures are both retry
			// conditions inside the bound.
			s.sleep(s.pollInterval)
			continue
		}

		return s.ParseReceipts(outcome)
	}

	return nil, &IntentError{
		Code:    ErrCodeTransactionNotFound,
		Message: fmt.Sprintf("transaction %s not found after %d attempts", txHash, maxAttempts),
	}
}

// ParseReceipts scans every receipt's execution status for failures. The
// first structured contract-level execution error is surfaced with its text
// intact; unstructured failures are serialized together into one error. An
// all-success outcome is returned unchanged.
func (s *IntentService) ParseReceipts(outcome *chainrpc.ExecutionOutcome) (*chainrpc.ExecutionOutcome, error) {
	var failures []*chainrpc.ExecutionError
	for _, receipt := range outcome.ReceiptsOutcome {
		if receipt.Outcome.Status.Failure != nil {
			failures = append(failures, receipt.Outcome.Status.Failure)
		}
	}
	if len(failures) == 0 {
		return outcome, nil
	}

	for _, failure := range failures {
		if msg := failure.ExecutionErrorMessage(); msg != "" {
			return nil, &IntentError{Code: ErrCodeExecutionFailure, Message: msg}
		}
	}

	serialized, err := json.Marshal(failures)
	if err != nil {
		serialized = []byte(fmt.Sprintf("%v", failures))
	}
	return nil, &IntentError{Code: ErrCodeExecutionFailure, Message: string(serialized)}
}

// GetIntentsAssets returns every asset id the account owns on the
// settlement contract, paginating the ownership query in fixed pages and
// stopping at the first short page.
func (s *IntentService) GetIntentsAssets(ctx context.Context, accountID string) ([]string, error) {
	var assets []string
	offset := 0

	for {
		page, err := s.solver.MTTokensForOwner(ctx, accountID, offset, assetsPageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list owned assets: %w", err)
		}

		assets = append(assets, page...)
		if len(page) < assetsPageSize {
			return assets, nil
		}
		offset += assetsPageSize
	}
}

// GetIntentsBalances returns the smallest-unit balance for each requested
// asset id. Assets missing from the solver response default to zero.
func (s *IntentService) GetIntentsBalances(ctx context.Context, assetIDs []string, accountID string) (map[string]string, error) {
	balances, err := s.solver.MTBatchBalanceOf(ctx, accountID, assetIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}

	out := make(map[string]string, len(assetIDs))
	for _, id := range assetIDs {
		if balance, ok := balances[id]; ok {
			out[id] = balance
		} else {
			out[id] = "0"
		}
	}
	return out, nil
}

// SimulateIntents dry-runs signed intents against the settlement contract.
func (s *IntentService) SimulateIntents(ctx context.Context, signed []SignedIntent) (json.RawMessage, error) {
	return s.solver.SimulateIntents(ctx, signed)
}

// HasPublicKey reports whether the key is registered for the account.
func (s *IntentService) HasPublicKey(ctx context.Context, accountID, publicKey string) (bool, error) {
	return s.solver.HasPublicKey(ctx, accountID, publicKey)
}
