package intents

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// VerifyingContract is the settlement contract every canonical message is
// scoped to. Solvers reject signatures produced for any other contract.
const VerifyingContract = "intents.omni"

// DefaultDeadline is the far-future sentinel used when the caller does not
// supply an explicit deadline.
const DefaultDeadline = "2100-01-01T00:00:00.000Z"

// Signature standards produced by the wallet backends.
const (
	StandardRawEd25519 = "raw_ed25519"
	StandardNEP413     = "nep413"
	StandardERC191     = "erc191"
	StandardWebAuthn   = "webauthn"
)

// Intent is implemented by every intent variant. The Kind tag is the
// discriminator the solver dispatches on.
type Intent interface {
	Kind() string
}

var amountRe = regexp.MustCompile(`^[0-9]+$`)
var signedAmountRe = regexp.MustCompile(`^-?[0-9]+$`)

// TransferIntent moves tokens to a receiver inside the settlement contract.
// Amounts are decimal-string integers in the asset's smallest unit.
type TransferIntent struct {
	Intent     string            `json:"intent"`
	ReceiverID string            `json:"receiver_id"`
	Tokens     map[string]string `json:"tokens"`
	Memo       string            `json:"memo,omitempty"`
}

func (TransferIntent) Kind() string { return "transfer" }

// NewTransferIntent builds a transfer intent with the discriminator set.
func NewTransferIntent(receiverID string, tokens map[string]string) TransferIntent {
	return TransferIntent{Intent: "transfer", ReceiverID: receiverID, Tokens: tokens}
}

// TokenDiffIntent declares a signed balance delta per asset. This is the only
// variant whose amounts may be negative.
type TokenDiffIntent struct {
	Intent string            `json:"intent"`
	Diff   map[string]string `json:"diff"`
}

func (TokenDiffIntent) Kind() string { return "token_diff" }

// NewTokenDiffIntent builds a token_diff intent with the discriminator set.
func NewTokenDiffIntent(diff map[string]string) TokenDiffIntent {
	return TokenDiffIntent{Intent: "token_diff", Diff: diff}
}

// MTWithdrawIntent withdraws multi-token assets out of the settlement
// contract to a chain-level account.
type MTWithdrawIntent struct {
	Intent     string   `json:"intent"`
	Token      string   `json:"token"`
	ReceiverID string   `json:"receiver_id"`
	TokenIDs   []string `json:"token_ids"`
	Amounts    []string `json:"amounts"`
	Memo       string   `json:"memo,omitempty"`
}

func (MTWithdrawIntent) Kind() string { return "mt_withdraw" }

// NewMTWithdrawIntent builds an mt_withdraw intent with the discriminator set.
func NewMTWithdrawIntent(token, receiverID string, tokenIDs, amounts []string) MTWithdrawIntent {
	return MTWithdrawIntent{
		Intent:     "mt_withdraw",
		Token:      token,
		ReceiverID: receiverID,
		TokenIDs:   tokenIDs,
		Amounts:    amounts,
	}
}

// FTWithdrawIntent withdraws a fungible token out of the settlement contract.
type FTWithdrawIntent struct {
	Intent     string `json:"intent"`
	Token      string `json:"token"`
	ReceiverID string `json:"receiver_id"`
	Amount     string `json:"amount"`
	Memo       string `json:"memo,omitempty"`
	Msg        string `json:"msg,omitempty"`
}

func (FTWithdrawIntent) Kind() string { return "ft_withdraw" }

// NewFTWithdrawIntent builds an ft_withdraw intent with the discriminator set.
func NewFTWithdrawIntent(token, receiverID, amount string) FTWithdrawIntent {
	return FTWithdrawIntent{Intent: "ft_withdraw", Token: token, ReceiverID: receiverID, Amount: amount}
}

// AuthCallIntent invokes an authorization hook on a contract during
// settlement.
type AuthCallIntent struct {
	Intent     string `json:"intent"`
	ContractID string `json:"contract_id"`
	Msg        string `json:"msg"`
	Attach     string `json:"attached_deposit,omitempty"`
}

func (AuthCallIntent) Kind() string { return "auth_call" }

// NewAuthCallIntent builds an auth_call intent with the discriminator set.
func NewAuthCallIntent(contractID, msg string) AuthCallIntent {
	return AuthCallIntent{Intent: "auth_call", ContractID: contractID, Msg: msg}
}

// ValidateIntent checks the amount invariants: non-negative integer strings
// everywhere except token_diff, which may be signed.
func ValidateIntent(intent Intent) error {
	switch v := intent.(type) {
	case TransferIntent:
		for token, amount := range v.Tokens {
			if !amountRe.MatchString(amount) {
				return fmt.Errorf("transfer amount for %s must be a non-negative integer string, got %q", token, amount)
			}
		}
	case TokenDiffIntent:
		for token, amount := range v.Diff {
			if !signedAmountRe.MatchString(amount) {
				return fmt.Errorf("token_diff amount for %s must be an integer string, got %q", token, amount)
			}
		}
	case MTWithdrawIntent:
		if len(v.TokenIDs) != len(v.Amounts) {
			return fmt.Errorf("mt_withdraw token_ids and amounts length mismatch: %d != %d", len(v.TokenIDs), len(v.Amounts))
		}
		for _, amount := range v.Amounts {
			if !amountRe.MatchString(amount) {
				return fmt.Errorf("mt_withdraw amount must be a non-negative integer string, got %q", amount)
			}
		}
	case FTWithdrawIntent:
		if !amountRe.MatchString(v.Amount) {
			return fmt.Errorf("ft_withdraw amount must be a non-negative integer string, got %q", v.Amount)
		}
	case AuthCallIntent:
		if v.Attach != "" && !amountRe.MatchString(v.Attach) {
			return fmt.Errorf("auth_call attached_deposit must be a non-negative integer string, got %q", v.Attach)
		}
	default:
		return fmt.Errorf("unknown intent kind %q", intent.Kind())
	}
	return nil
}

// SignedIntent is the immutable signing envelope handed to the solver.
// Payload is the exact canonicalized message that was hashed and signed;
// verifiers re-derive the digest from it, so it must never be reformatted.
type SignedIntent struct {
	Standard  string `json:"standard"`
	Payload   string `json:"payload"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`

	// Authenticator metadata, present only for the webauthn standard.
	AuthenticatorData string `json:"authenticator_data,omitempty"`
	ClientDataJSON    string `json:"client_data_json,omitempty"`
}

// AuthCommitment binds a wallet identity to a domain-scoped challenge.
// Seed plus the domain deterministically re-derive the nonce server-side,
// which scopes the proof against replay.
type AuthCommitment struct {
	Signed    SignedIntent `json:"signed"`
	Address   string       `json:"address"`
	PublicKey string       `json:"public_key"`
	ChainID   string       `json:"chain_id"`
	Seed      string       `json:"seed"`
}

// WalletSession describes one connected wallet identity. Exactly one session
// occupies a connector's active slot at a time.
type WalletSession struct {
	Type        string `json:"type"`
	Address     string `json:"address"`
	PublicKey   string `json:"publicKey"`
	OmniAddress string `json:"omniAddress"`
}

// PersistedIdentity is the record written to storage on connect and read
// once at connector construction to attempt silent restoration.
type PersistedIdentity struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"`
}

// SettlementStatus values reported by the solver network.
type SettlementStatus string

const (
	StatusPending SettlementStatus = "PENDING"
	StatusSettled SettlementStatus = "SETTLED"
	StatusFailed  SettlementStatus = "FAILED"
)

// MarshalIntents serializes a slice of intent variants after checking the
// amount invariants, preserving each variant's field order.
func MarshalIntents(list []Intent) (json.RawMessage, error) {
	for _, intent := range list {
		if err := ValidateIntent(intent); err != nil {
			return nil, err
		}
	}
	return json.Marshal(list)
}
