// Package nearkey signs intents with a local ed25519 key, either over the
// sha256 digest of the canonical payload (raw mode) or through a borsh
// message envelope (nep413 mode).
package nearkey

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"

	intents "github.com/omnisdk/intents-go"
)

// Mode selects the signature standard the signer produces.
type Mode string

const (
	// ModeRaw signs sha256(payload) directly (raw_ed25519 standard).
	ModeRaw Mode = "raw"

	// ModeNEP413 wraps the payload in a borsh envelope with a tagged
	// prefix before hashing (nep413 standard).
	ModeNEP413 Mode = "nep413"
)

// nep413Prefix tags the borsh envelope so its digest can never collide with
// a transaction digest: 2^31 + 413.
const nep413Prefix uint32 = 1<<31 + 413

// Config configures a key signer.
type Config struct {
	// AccountID is the account on the settlement contract (required).
	AccountID string

	// PrivateKey is the ed25519 signing key (required).
	PrivateKey ed25519.PrivateKey

	// Mode selects raw or envelope signing (optional, defaults to ModeRaw).
	Mode Mode

	// Recipient of the nep413 envelope (optional, defaults to the
	// settlement contract).
	Recipient string

	// ChainID reported in auth commitments (optional).
	ChainID string
}

// Signer holds an ed25519 key for one settlement account.
type Signer struct {
	accountID  string
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	mode       Mode
	recipient  string
	chainID    string
}

var _ intents.Signer = (*Signer)(nil)

// NewSigner creates a key signer.
func NewSigner(config Config) (*Signer, error) {
	if config.AccountID == "" {
		return nil, fmt.Errorf("account id is required")
	}
	if len(config.PrivateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(config.PrivateKey))
	}

	mode := config.Mode
	if mode == "" {
		mode = ModeRaw
	}

	recipient := config.Recipient
	if recipient == "" {
		recipient = intents.VerifyingContract
	}

	chainID := config.ChainID
	if chainID == "" {
		chainID = "near:mainnet"
	}

	return &Signer{
		accountID:  config.AccountID,
		privateKey: config.PrivateKey,
		publicKey:  config.PrivateKey.Public().(ed25519.PublicKey),
		mode:       mode,
		recipient:  recipient,
		chainID:    chainID,
	}, nil
}

// GenerateSigner creates a signer with a fresh random key, for tests and
// throwaway accounts.
func GenerateSigner(accountID string) (*Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return NewSigner(Config{AccountID: accountID, PrivateKey: priv})
}

func (s *Signer) Address() string { return s.accountID }

func (s *Signer) OmniAddress() string { return s.accountID }

func (s *Signer) PublicKey() string {
	return intents.Ed25519PublicKey(s.publicKey)
}

// SignIntents canonicalizes the intents and signs them in the configured
// mode.
func (s *Signer) SignIntents(ctx context.Context, list []intents.Intent, opts intents.SignOptions) (*intents.SignedIntent, error) {
	nonce := opts.Nonce
	if nonce == nil {
		n, err := intents.NewNonce()
		if err != nil {
			return nil, err
		}
		nonce = n
	}
	opts.Nonce = nonce

	payload, err := intents.BuildPayload(s.accountID, list, opts)
	if err != nil {
		return nil, err
	}
	return s.sign(payload, nonce)
}

// SignIntentsWithAuth binds the signature to a domain-scoped challenge
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
	signed, err := s.sign(payload, nonce)
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

func (s *Signer) sign(payload string, nonce []byte) (*intents.SignedIntent, error) {
	var digest []byte
	var standard string

	switch s.mode {
	case ModeNEP413:
		envelope, err := nep413Digest(payload, nonce, s.recipient)
		if err != nil {
			return nil, err
		}
		digest, standard = envelope, intents.StandardNEP413
	default:
		sum := sha256.Sum256([]byte(payload))
		digest, standard = sum[:], intents.StandardRawEd25519
	}

	signature := ed25519.Sign(s.privateKey, digest)
	return &intents.SignedIntent{
		Standard:  standard,
		Payload:   payload,
		PublicKey: s.PublicKey(),
		Signature: intents.Ed25519Signature(signature),
	}, nil
}

// nep413Envelope is the borsh message wrapper. CallbackURL stays nil for
// intent signing.
type nep413Envelope struct {
	Message     string
	Nonce       [32]byte
	Recipient   string
	CallbackURL *string `bin:"optional"`
}

// nep413Digest serializes the tagged envelope and hashes it.
func nep413Digest(payload string, nonce []byte, recipient string) ([]byte, error) {
	if len(nonce) != 32 {
		return nil, fmt.Errorf("nonce must be 32 bytes, got %d", len(nonce))
	}

	envelope := nep413Envelope{Message: payload, Recipient: recipient}
	copy(envelope.Nonce[:], nonce)

	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint32(nep413Prefix, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to write envelope prefix: %w", err)
	}
	if err := enc.Encode(envelope); err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}

	sum := sha256.Sum256(buf.Bytes())
	return sum[:], nil
}
