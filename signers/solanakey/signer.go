// Package solanakey signs intents with a Solana keypair. Signatures are
// ed25519 over the sha256 digest of the canonical payload.
package solanakey

import (
	"context"
	"fmt"

	solana "github.com/gagliardetto/solana-go"

	intents "github.com/omnisdk/intents-go"
)

// Config configures a Solana key signer.
type Config struct {
	// PrivateKey is the ed25519 keypair (required).
	PrivateKey solana.PrivateKey

	// ChainID reported in auth commitments (optional, defaults to
	// "solana:mainnet").
	ChainID string
}

// Signer wraps a Solana keypair. Its settlement account id is the base58
// public key.
type Signer struct {
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
	chainID    string
}

var _ intents.Signer = (*Signer)(nil)

// NewSigner creates a Solana key signer.
func NewSigner(config Config) (*Signer, error) {
	if len(config.PrivateKey) == 0 {
		return nil, fmt.Errorf("private key is required")
	}

	chainID := config.ChainID
	if chainID == "" {
		chainID = "solana:mainnet"
	}

	return &Signer{
		privateKey: config.PrivateKey,
		publicKey:  config.PrivateKey.PublicKey(),
		chainID:    chainID,
	}, nil
}

// NewSignerFromBase58 creates a signer from a base58-encoded private key.
func NewSignerFromBase58(key string) (*Signer, error) {
	privateKey, err := solana.PrivateKeyFromBase58(key)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewSigner(Config{PrivateKey: privateKey})
}

func (s *Signer) Address() string { return s.publicKey.String() }

func (s *Signer) OmniAddress() string { return s.publicKey.String() }

func (s *Signer) PublicKey() string {
	return intents.Ed25519PublicKey(s.publicKey.Bytes())
}

// SignIntents canonicalizes the intents and signs the payload digest.
func (s *Signer) SignIntents(ctx context.Context, list []intents.Intent, opts intents.SignOptions) (*intents.SignedIntent, error) {
	payload, err := intents.BuildPayload(s.OmniAddress(), list, opts)
	if err != nil {
		return nil, err
	}
	return s.sign(payload)
}

// SignIntentsWithAuth binds the signature to a domain-scoped challenge
// nonce derived from a fresh seed.
func (s *Signer) SignIntentsWithAuth(ctx context.Context, domain string, list []intents.Intent) (*intents.AuthCommitment, error) {
	seed, err := intents.NewAuthSeed()
	if err != nil {
		return nil, err
	}
	nonce := intents.AuthChallenge(domain, seed)

	payload, err := intents.BuildPayload(s.OmniAddress(), list, intents.SignOptions{Nonce: nonce})
	if err != nil {
		return nil, err
	}
	signed, err := s.sign(payload)
	if err != nil {
		return nil, err
	}

	return &intents.AuthCommitment{
		Signed:    *signed,
		Address:   s.Address(),
		PublicKey: s.PublicKey(),
		ChainID:   s.chainID,
		Seed:      seed,
	}, nil
}

func (s *Signer) sign(payload string) (*intents.SignedIntent, error) {
	digest := intents.PayloadDigest(payload)

	signature, err := s.privateKey.Sign(digest)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}

	return &intents.SignedIntent{
		Standard:  intents.StandardRawEd25519,
		Payload:   payload,
		PublicKey: s.PublicKey(),
		Signature: intents.Ed25519Signature(signature[:]),
	}, nil
}
