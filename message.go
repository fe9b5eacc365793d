package intents

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// IntentMessage is the canonical signing input. Field order and content are
// normative: the solver re-serializes this exact shape to verify signatures,
// so any deviation produces a signature it will reject.
type IntentMessage struct {
	Deadline          string          `json:"deadline"`
	Nonce             string          `json:"nonce"`
	VerifyingContract string          `json:"verifying_contract"`
	SignerID          string          `json:"signer_id"`
	Intents           json.RawMessage `json:"intents"`
}

// SignOptions carries the optional overrides for SignIntents.
type SignOptions struct {
	// Deadline is an ISO-8601 timestamp; the far-future sentinel is used
	// when empty.
	Deadline string

	// Nonce is a caller-supplied 32-byte nonce; a cryptographically random
	// one is generated when nil.
	Nonce []byte
}

// BuildPayload constructs the canonical message for a batch of intents and
// returns its exact serialized form. Callers sign these bytes (or their
// digest) without re-encoding.
func BuildPayload(signerID string, list []Intent, opts SignOptions) (string, error) {
	deadline := opts.Deadline
	if deadline == "" {
		deadline = DefaultDeadline
	}

	nonce := opts.Nonce
	if nonce == nil {
		n, err := NewNonce()
		if err != nil {
			return "", err
		}
		nonce = n
	}
	if len(nonce) != 32 {
		return "", fmt.Errorf("nonce must be 32 bytes, got %d", len(nonce))
	}

	raw, err := MarshalIntents(list)
	if err != nil {
		return "", err
	}

	msg := IntentMessage{
		Deadline:          deadline,
		Nonce:             base64.StdEncoding.EncodeToString(nonce),
		VerifyingContract: VerifyingContract,
		SignerID:          signerID,
		Intents:           raw,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal canonical message: %w", err)
	}
	return string(payload), nil
}

// NewNonce returns 32 cryptographically random bytes.
func NewNonce() ([]byte, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, nil
}

// PaymentNonce derives the deterministic 32-byte nonce for a payment id.
// Retrying the same payment id always yields the same nonce, which makes a
// retried transfer idempotent at the signing layer.
func PaymentNonce(paymentID string) []byte {
	sum := sha256.Sum256([]byte(paymentID))
	return sum[:]
}

// NewAuthSeed returns the random hex seed bound into an auth commitment.
func NewAuthSeed() (string, error) {
	seed := make([]byte, 16)
	if _, err := rand.Read(seed); err != nil {
		return "", fmt.Errorf("failed to generate auth seed: %w", err)
	}
	return hex.EncodeToString(seed), nil
}

// AuthChallenge derives the domain-scoped challenge used as the nonce of a
// signed auth proof. The server re-derives it from domain and seed to bind
// the proof against replay.
func AuthChallenge(domain, seed string) []byte {
	sum := sha256.Sum256([]byte(domain + "_" + seed))
	return sum[:]
}

// PayloadDigest is the sha256 digest of the canonical payload. Key-based
// signers sign this digest; for authenticator signers it is the value the
// authenticator asserts over.
func PayloadDigest(payload string) []byte {
	sum := sha256.Sum256([]byte(payload))
	return sum[:]
}
