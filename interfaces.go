package intents

import (
	"context"
	"encoding/json"

	"github.com/omnisdk/intents-go/chainrpc"
)

// ============================================================================
// Solver network (settlement boundary)
// ============================================================================

// PublishResult is the solver's response to publish_intents.
type PublishResult struct {
	Status       SettlementStatus `json:"status"`
	IntentHashes []string         `json:"intent_hashes"`
	Reason       string           `json:"reason,omitempty"`
}

// StatusResult is the solver's response to get_status for one intent hash.
type StatusResult struct {
	Status SettlementStatus `json:"status"`
	Hash   string           `json:"hash,omitempty"`
	Reason string           `json:"reason,omitempty"`
}

// SolverClient talks to the solver network. The HTTP implementation lives in
// package solverrpc; tests substitute mocks.
type SolverClient interface {
	// PublishIntents submits signed intents with optional quote hashes.
	PublishIntents(ctx context.Context, signed []SignedIntent, quoteHashes []string) (*PublishResult, error)

	// GetStatus queries the settlement status of one published intent.
	GetStatus(ctx context.Context, intentHash string) (*StatusResult, error)

	// SimulateIntents dry-runs signed intents against the settlement
	// contract without publishing.
	SimulateIntents(ctx context.Context, signed []SignedIntent) (json.RawMessage, error)

	// MTBatchBalanceOf returns smallest-unit balances for the given token
	// ids. Tokens missing from the response are absent from the map.
	MTBatchBalanceOf(ctx context.Context, accountID string, tokenIDs []string) (map[string]string, error)

	// MTTokensForOwner returns one page of token ids owned by the account.
	MTTokensForOwner(ctx context.Context, accountID string, offset, limit int) ([]string, error)

	// HasPublicKey reports whether the key is registered for the account on
	// the settlement contract.
	HasPublicKey(ctx context.Context, accountID, publicKey string) (bool, error)
}

// ChainClient queries chain-level transaction execution. The RPC
// implementation lives in package chainrpc.
type ChainClient interface {
	// TxStatus fetches a transaction's execution outcome, requesting
	// execution to completion. A transaction the chain has not started
	// executing yet surfaces as chainrpc.ErrUnknownTransaction.
	TxStatus(ctx context.Context, txHash, senderID string) (*chainrpc.ExecutionOutcome, error)
}

// ============================================================================
// External UI collaborators
// ============================================================================

// ApprovalContext is what an approval provider shows the user before a
// domain-bound auth signature is produced.
type ApprovalContext struct {
	Domain  string
	Intents []Intent
	Wallet  WalletSession
}

// ApprovalProvider is the single-shot confirmation capability. How the
// prompt is rendered (popup, modal, terminal) is entirely the host's
// concern.
type ApprovalProvider interface {
	// Present shows the context and reports the user's decision. A false
	// return with nil error is an explicit decline.
	Present(ctx context.Context, approval ApprovalContext) (bool, error)
}

// ============================================================================
// Remote pairing (WalletConnect-style path)
// ============================================================================

// RemoteIdentity is what the remote counterpart reports once pairing
// completes.
type RemoteIdentity struct {
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"`
}

// PairingResult resolves a pairing handshake.
type PairingResult struct {
	Identity RemoteIdentity
	Err      error
}

// PairingSession is one in-flight pairing handshake. DisplayURI emits the
// displayable pairing URI as soon as the provider produces it, independent
// of (and before) final session establishment on Done.
type PairingSession interface {
	DisplayURI() <-chan string
	Done() <-chan PairingResult
	Close(ctx context.Context) error
}

// PairingProvider opens pairing handshakes against a relay configured with
// project and network settings.
type PairingProvider interface {
	Pair(ctx context.Context) (PairingSession, error)
}
