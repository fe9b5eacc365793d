// Package webauthn signs intents through a hardware or platform
// authenticator. The authenticator asserts over the sha256 digest of the
// canonical payload; the raw signature is extracted from the assertion and,
// for P-256, canonicalized so two semantically equal signatures always
// serialize identically.
package webauthn

import (
	"context"
	"crypto/elliptic"
	"encoding/asn1"
	"encoding/base64"
	"fmt"
	"math/big"

	intents "github.com/omnisdk/intents-go"
)

// Curve families the authenticator path supports.
type Curve string

const (
	CurveP256    Curve = "p256"
	CurveEd25519 Curve = "ed25519"
)

// Assertion is what the authenticator returns for one signing request.
type Assertion struct {
	// Signature is the DER ECDSA container for p256 credentials, or the
	// raw 64-byte signature for ed25519 credentials.
	Signature []byte

	// AuthenticatorData and ClientDataJSON are the verifier-side metadata
	// carried alongside the signature.
	AuthenticatorData []byte
	ClientDataJSON    []byte
}

// Authenticator produces assertions over challenge digests. Hosts inject
// their platform binding (CTAP transport, browser bridge, enclave).
type Authenticator interface {
	GetAssertion(ctx context.Context, digest []byte) (*Assertion, error)
}

// Config configures an authenticator signer.
type Config struct {
	// AccountID is the account on the settlement contract (required).
	AccountID string

	// CredentialPublicKey is the raw public key blob of the credential
	// (required). 64 bytes of uncompressed coordinates for p256, 32 bytes
	// for ed25519.
	CredentialPublicKey []byte

	// Curve of the credential (required).
	Curve Curve

	// Authenticator performs the actual signing (required).
	Authenticator Authenticator

	// ChainID reported in auth commitments (optional).
	ChainID string
}

// Signer derives its identity from the credential public key blob and
// delegates signing to the injected authenticator.
type Signer struct {
	accountID     string
	publicKey     []byte
	curve         Curve
	authenticator Authenticator
	chainID       string
}

var _ intents.Signer = (*Signer)(nil)

// NewSigner creates an authenticator signer.
func NewSigner(config Config) (*Signer, error) {
	if config.AccountID == "" {
		return nil, fmt.Errorf("account id is required")
	}
	if len(config.CredentialPublicKey) == 0 {
		return nil, fmt.Errorf("credential public key is required")
	}
	if config.Authenticator == nil {
		return nil, fmt.Errorf("authenticator is required")
	}
	switch config.Curve {
	case CurveP256, CurveEd25519:
	default:
		return nil, fmt.Errorf("unsupported curve: %q", config.Curve)
	}

	chainID := config.ChainID
	if chainID == "" {
		chainID = "webauthn"
	}

	return &Signer{
		accountID:     config.AccountID,
		publicKey:     config.CredentialPublicKey,
		curve:         config.Curve,
		authenticator: config.Authenticator,
		chainID:       chainID,
	}, nil
}

func (s *Signer) Address() string { return s.accountID }

func (s *Signer) OmniAddress() string { return s.accountID }

func (s *Signer) PublicKey() string {
	if s.curve == CurveEd25519 {
		return intents.Ed25519PublicKey(s.publicKey)
	}
	return intents.P256PublicKey(s.publicKey)
}

// SignIntents canonicalizes the intents and asks the authenticator to
// assert over the payload digest.
func (s *Signer) SignIntents(ctx context.Context, list []intents.Intent, opts intents.SignOptions) (*intents.SignedIntent, error) {
	payload, err := intents.BuildPayload(s.accountID, list, opts)
	if err != nil {
		return nil, err
	}
	return s.sign(ctx, payload)
}

// SignIntentsWithAuth binds the assertion to a domain-scoped challenge
// nonce derived from a fresh seed.
func (s *Signer) SignIntentsWithAuth(ctx context.Context, domain string, list []intents.Intent) (*intents.AuthCommitment, error) {
	seed, err := intents.NewAuthSeed()
	if err != nil {
		return nil, err
	}
	nonce := intents.AuthChallenge(domain, seed)

	payload, err := intents.BuildPayload(s.accountID, list, intents.SignOptions{Nonce: nonce})
	if err != nil {
		return nil, err
	}
	signed, err := s.sign(ctx, payload)
	if err != nil {
		return nil, err
	}

	return &intents.AuthCommitment{
		Signed:    *signed,
		Address:   s.accountID,
		PublicKey: s.PublicKey(),
		ChainID:   s.chainID,
		Seed:      seed,
	}, nil
}

func (s *Signer) sign(ctx context.Context, payload string) (*intents.SignedIntent, error) {
	digest := intents.PayloadDigest(payload)

	assertion, err := s.authenticator.GetAssertion(ctx, digest)
	if err != nil {
		return nil, fmt.Errorf("authenticator assertion failed: %w", err)
	}

	var signature string
	switch s.curve {
	case CurveP256:
		raw, err := NormalizeP256Signature(assertion.Signature)
		if err != nil {
			return nil, err
		}
		signature = intents.P256Signature(raw)
	default:
		if len(assertion.Signature) != 64 {
			return nil, fmt.Errorf("ed25519 assertion signature must be 64 bytes, got %d", len(assertion.Signature))
		}
		signature = intents.Ed25519Signature(assertion.Signature)
	}

	return &intents.SignedIntent{
		Standard:          intents.StandardWebAuthn,
		Payload:           payload,
		PublicKey:         s.PublicKey(),
		Signature:         signature,
		AuthenticatorData: base64.RawURLEncoding.EncodeToString(assertion.AuthenticatorData),
		ClientDataJSON:    base64.RawURLEncoding.EncodeToString(assertion.ClientDataJSON),
	}, nil
}

type ecdsaContainer struct {
	R *big.Int
	S *big.Int
}

// NormalizeP256Signature decodes the DER ECDSA container into its two
// components (dropping the sign-guard zero byte DER prepends to high-bit
// values) and returns the fixed 64-byte r||s form with S folded into the
// lower half of the curve order. Without the fold, (r, s) and (r, N-s)
// would both verify and the same assertion could serialize two ways.
func NormalizeP256Signature(der []byte) ([]byte, error) {
	var sig ecdsaContainer
	rest, err := asn1.Unmarshal(der, &sig)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ECDSA signature container: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("trailing bytes after ECDSA signature container")
	}
	if sig.R.Sign() <= 0 || sig.S.Sign() <= 0 {
		return nil, fmt.Errorf("ECDSA signature components must be positive")
	}

	n := elliptic.P256().Params().N
	if sig.R.Cmp(n) >= 0 || sig.S.Cmp(n) >= 0 {
		return nil, fmt.Errorf("ECDSA signature component exceeds curve order")
	}

	halfN := new(big.Int).Rsh(n, 1)
	if sig.S.Cmp(halfN) > 0 {
		sig.S = new(big.Int).Sub(n, sig.S)
	}

	out := make([]byte, 64)
	sig.R.FillBytes(out[:32])
	sig.S.FillBytes(out[32:])
	return out, nil
}
