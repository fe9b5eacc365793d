// Package remote signs intents by delegating every call across a request
// bridge to a separate execution context (popup, iframe, companion app).
// Identity fields are supplied by the remote context when the connection is
// established.
package remote

import (
	"context"
	"encoding/json"
	"fmt"

	intents "github.com/omnisdk/intents-go"
	"github.com/omnisdk/intents-go/bridge"
)

// Bridge methods the remote counterpart serves.
const (
	methodSignIntents         = "signIntents"
	methodSignIntentsWithAuth = "signIntentsWithAuth"
)

// Identity is reported by the remote context at connect time and stays
// fixed for the connection lifetime.
type Identity struct {
	Address     string `json:"address"`
	PublicKey   string `json:"publicKey"`
	OmniAddress string `json:"omniAddress"`
}

// Config configures a remote signer.
type Config struct {
	// Bridge carries the cross-context requests (required).
	Bridge *bridge.Bridge

	// Identity of the remote wallet (required).
	Identity Identity

	// SupportsAuth reports whether the remote context serves domain-bound
	// auth signatures. When false, SignIntentsWithAuth rejects with the
	// unsupported_capability code without a round trip.
	SupportsAuth bool
}

// Signer proxies signing requests to the remote context.
type Signer struct {
	bridge       *bridge.Bridge
	identity     Identity
	supportsAuth bool
}

var _ intents.Signer = (*Signer)(nil)

// NewSigner creates a remote signer.
func NewSigner(config Config) (*Signer, error) {
	if config.Bridge == nil {
		return nil, fmt.Errorf("bridge is required")
	}
	if config.Identity.Address == "" || config.Identity.PublicKey == "" {
		return nil, fmt.Errorf("remote identity is incomplete")
	}

	identity := config.Identity
	if identity.OmniAddress == "" {
		identity.OmniAddress = identity.Address
	}

	return &Signer{
		bridge:       config.Bridge,
		identity:     identity,
		supportsAuth: config.SupportsAuth,
	}, nil
}

func (s *Signer) Address() string { return s.identity.Address }

func (s *Signer) PublicKey() string { return s.identity.PublicKey }

func (s *Signer) OmniAddress() string { return s.identity.OmniAddress }

type signRequest struct {
	Intents  json.RawMessage `json:"intents"`
	Deadline string          `json:"deadline,omitempty"`
	Nonce    []byte          `json:"nonce,omitempty"`
	Domain   string          `json:"domain,omitempty"`
}

// SignIntents serializes the intents and waits for the remote context to
// return the signing envelope.
func (s *Signer) SignIntents(ctx context.Context, list []intents.Intent, opts intents.SignOptions) (*intents.SignedIntent, error) {
	raw, err := intents.MarshalIntents(list)
	if err != nil {
		return nil, err
	}

	payload, err := s.bridge.Call(ctx, methodSignIntents, signRequest{
		Intents:  raw,
		Deadline: opts.Deadline,
		Nonce:    opts.Nonce,
	})
	if err != nil {
		return nil, err
	}

	if err := intents.ValidateSignedIntent(payload); err != nil {
		return nil, err
	}
	var signed intents.SignedIntent
	if err := json.Unmarshal(payload, &signed); err != nil {
		return nil, fmt.Errorf("failed to decode remote signature: %w", err)
	}
	return &signed, nil
}

// SignIntentsWithAuth delegates the domain-bound auth signature to the
// remote context.
func (s *Signer) SignIntentsWithAuth(ctx context.Context, domain string, list []intents.Intent) (*intents.AuthCommitment, error) {
	if !s.supportsAuth {
		return nil, intents.NewUnsupportedCapability("remote", "signIntentsWithAuth")
	}

	raw, err := intents.MarshalIntents(list)
	if err != nil {
		return nil, err
	}

	payload, err := s.bridge.Call(ctx, methodSignIntentsWithAuth, signRequest{
		Intents: raw,
		Domain:  domain,
	})
	if err != nil {
		return nil, err
	}

	var commitment intents.AuthCommitment
	if err := json.Unmarshal(payload, &commitment); err != nil {
		return nil, fmt.Errorf("failed to decode remote auth commitment: %w", err)
	}
	return &commitment, nil
}
