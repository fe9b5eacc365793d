// Package ethkey signs intents with a secp256k1 key using the ERC-191
// personal-sign envelope over the canonical payload bytes.
package ethkey

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	intents "github.com/omnisdk/intents-go"
)

// Config configures an EVM key signer.
type Config struct {
	// PrivateKeyHex is the hex-encoded secp256k1 private key, with or
	// without the 0x prefix (required).
	PrivateKeyHex string

	// ChainID reported in auth commitments (optional, defaults to
	// "eip155:1").
	ChainID string
}

// Signer wraps a secp256k1 key. Its settlement account id is the lowercase
// 0x address.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    string
}

var _ intents.Signer = (*Signer)(nil)

// NewSigner creates an EVM key signer from a hex-encoded private key.
func NewSigner(config Config) (*Signer, error) {
	keyHex := strings.TrimPrefix(config.PrivateKeyHex, "0x")
	privateKey, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	chainID := config.ChainID
	if chainID == "" {
		chainID = "eip155:1"
	}

	return &Signer{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:    chainID,
	}, nil
}

func (s *Signer) Address() string { return s.address.Hex() }

func (s *Signer) OmniAddress() string {
	return strings.ToLower(s.address.Hex())
}

func (s *Signer) PublicKey() string {
	return intents.Secp256k1PublicKey(crypto.CompressPubkey(&s.privateKey.PublicKey))
}

// SignIntents canonicalizes the intents and signs the payload bytes in the
// ERC-191 personal-sign envelope.
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
	// keccak256 of the prefixed message, per ERC-191 personal_sign.
	digest := accounts.TextHash([]byte(payload))

	signature, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}

	// Recovery id 0/1 becomes 27/28 on the wire.
	signature[64] += 27

	return &intents.SignedIntent{
		Standard:  intents.StandardERC191,
		Payload:   payload,
		PublicKey: s.PublicKey(),
		Signature: intents.Secp256k1Signature(signature),
	}, nil
}
