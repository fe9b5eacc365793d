package intents

import (
	"context"
	"fmt"

	"github.com/omnisdk/intents-go/tokens"
)

// Signer is the variant-specific signing capability behind a wallet. The
// identity accessors stay stable for the lifetime of the connection.
// Implementations live under signers/.
type Signer interface {
	// Address is the wallet's chain-level address.
	Address() string

	// PublicKey is the wallet's public key in its curve-tagged rendering.
	PublicKey() string

	// OmniAddress is the wallet's account id on the settlement contract.
	OmniAddress() string

	// SignIntents canonicalizes the intents into the normative message and
	// produces the signing envelope for this variant's standard.
	SignIntents(ctx context.Context, list []Intent, opts SignOptions) (*SignedIntent, error)

	// SignIntentsWithAuth produces a domain-bound auth commitment whose
	// nonce is the domain-scoped challenge. Variants without a domain-bound
	// proof return an unsupported_capability coded error.
	SignIntentsWithAuth(ctx context.Context, domain string, list []Intent) (*AuthCommitment, error)
}

// Disconnector is the owning-session surface a wallet detaches through.
type Disconnector interface {
	Disconnect(ctx context.Context) error
}

// WalletConfig configures a wallet.
type WalletConfig struct {
	// Type names the wallet variant (e.g. "nearkey", "webauthn").
	Type string

	// Signer is the variant-specific signing backend (required).
	Signer Signer

	// Service is the intent settlement service (required for execute,
	// transfer and query operations).
	Service *IntentService

	// Registry maps asset ids to metadata (optional, defaults to the
	// built-in table).
	Registry *tokens.Registry

	// Approval gates domain-bound auth signatures (optional; auth proceeds
	// unprompted when nil).
	Approval ApprovalProvider

	// Owner is the session this wallet disconnects through (optional).
	Owner Disconnector
}

// Wallet is the uniform operation surface over any signer variant.
type Wallet struct {
	walletType string
	signer     Signer
	service    *IntentService
	registry   *tokens.Registry
	approval   ApprovalProvider
	owner      Disconnector
}

// NewWallet creates a wallet over a signer backend.
func NewWallet(config WalletConfig) *Wallet {
	registry := config.Registry
	if registry == nil {
		registry = tokens.DefaultRegistry()
	}

	return &Wallet{
		walletType: config.Type,
		signer:     config.Signer,
		service:    config.Service,
		registry:   registry,
		approval:   config.Approval,
		owner:      config.Owner,
	}
}

// Session describes the wallet's connected identity.
func (w *Wallet) Session() WalletSession {
	return WalletSession{
		Type:        w.walletType,
		Address:     w.signer.Address(),
		PublicKey:   w.signer.PublicKey(),
		OmniAddress: w.signer.OmniAddress(),
	}
}

// SignIntents signs a batch of intents without publishing.
func (w *Wallet) SignIntents(ctx context.Context, list []Intent, opts SignOptions) (*SignedIntent, error) {
	return w.signer.SignIntents(ctx, list, opts)
}

// ExecuteIntents signs the intents and publishes the result, returning the
// settlement data hash. Signing strictly precedes publishing: a signing
// failure never reaches the solver.
func (w *Wallet) ExecuteIntents(ctx context.Context, list []Intent, quoteHashes ...string) (string, error) {
	signed, err := w.signer.SignIntents(ctx, list, SignOptions{})
	if err != nil {
		return "", err
	}
	return w.service.Publish(ctx, []SignedIntent{*signed}, quoteHashes)
}

// TransferArgs parameterizes a single-asset transfer.
type TransferArgs struct {
	// Token is the registry asset id (e.g. "usdc").
	Token string

	// Amount is the display amount; it is quantized through the registry.
	Amount float64

	// To is the receiving account id on the settlement contract.
	To string

	// PaymentID, when set, derives a deterministic nonce so retries of the
	// same payment cannot settle twice.
	PaymentID string

	// Memo is attached to the transfer intent (optional).
	Memo string
}

// Transfer quantizes the amount, builds a single transfer intent, signs and
// publishes it.
func (w *Wallet) Transfer(ctx context.Context, args TransferArgs) (string, error) {
	meta, ok := w.registry.Lookup(args.Token)
	if !ok {
		return "", fmt.Errorf("unknown asset: %s", args.Token)
	}

	units, err := w.registry.ToUnits(args.Token, args.Amount)
	if err != nil {
		return "", err
	}

	intent := NewTransferIntent(args.To, map[string]string{
		assetTokenID(meta): units,
	})
	intent.Memo = args.Memo

	var opts SignOptions
	if args.PaymentID != "" {
		opts.Nonce = PaymentNonce(args.PaymentID)
	}

	signed, err := w.signer.SignIntents(ctx, []Intent{intent}, opts)
	if err != nil {
		return "", err
	}
	return w.service.Publish(ctx, []SignedIntent{*signed}, nil)
}

// Auth produces a domain-bound auth commitment, gated behind the approval
// provider when one is configured. An explicit decline rejects with the
// user_rejected code and no signature is produced.
func (w *Wallet) Auth(ctx context.Context, domain string, list []Intent) (*AuthCommitment, error) {
	if w.approval != nil {
		approved, err := w.approval.Present(ctx, ApprovalContext{
			Domain:  domain,
			Intents: list,
			Wallet:  w.Session(),
		})
		if err != nil {
			return nil, fmt.Errorf("approval prompt failed: %w", err)
		}
		if !approved {
			return nil, NewUserRejected("auth")
		}
	}
	return w.signer.SignIntentsWithAuth(ctx, domain, list)
}

// GetAssets returns every asset id the wallet owns on the settlement
// contract.
func (w *Wallet) GetAssets(ctx context.Context) ([]string, error) {
	return w.service.GetIntentsAssets(ctx, w.signer.OmniAddress())
}

// GetTokenBalances returns display-unit balances for the given registry
// asset ids. Assets the solver does not report come back as zero.
func (w *Wallet) GetTokenBalances(ctx context.Context, assetIDs []string) (map[string]float64, error) {
	tokenIDs := make([]string, len(assetIDs))
	for i, id := range assetIDs {
		meta, ok := w.registry.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("unknown asset: %s", id)
		}
		tokenIDs[i] = assetTokenID(meta)
	}

	balances, err := w.service.GetIntentsBalances(ctx, tokenIDs, w.signer.OmniAddress())
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(assetIDs))
	for i, id := range assetIDs {
		display, err := w.registry.FromUnits(id, balances[tokenIDs[i]])
		if err != nil {
			return nil, err
		}
		out[id] = display
	}
	return out, nil
}

// Disconnect detaches the wallet through its owning session.
func (w *Wallet) Disconnect(ctx context.Context) error {
	if w.owner == nil {
		return &IntentError{Code: ErrCodeNotConnected, Message: "wallet has no owning session"}
	}
	return w.owner.Disconnect(ctx)
}

// assetTokenID is the multi-token id of an asset on the settlement contract.
func assetTokenID(meta tokens.Meta) string {
	return "nep141:" + meta.ContractID
}
