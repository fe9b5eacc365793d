package connectors

import (
	"context"
	"fmt"

	intents "github.com/omnisdk/intents-go"
	"github.com/omnisdk/intents-go/signers/webauthn"
	"github.com/omnisdk/intents-go/storage"
	"github.com/omnisdk/intents-go/tokens"
)

// PasskeyConnectorConfig configures a platform-authenticator connector.
type PasskeyConnectorConfig struct {
	// ID identifies this connector instance (required).
	ID string

	// Authenticator performs assertions (required).
	Authenticator webauthn.Authenticator

	// Service is the intent settlement service (required).
	Service *intents.IntentService

	// Registry, Approval and Store configure the wallets this connector
	// builds (all optional).
	Registry *tokens.Registry
	Approval intents.ApprovalProvider
	Store    storage.Store
}

// PasskeyConnector connects a hardware or platform authenticator
// credential. The credential public key is captured at connect time; the
// curve tag in its persisted rendering is enough to rebuild the signer on
// restoration.
type PasskeyConnector struct {
	config  PasskeyConnectorConfig
	session *intents.Session
}

// NewPasskeyConnector creates the connector and attempts silent restoration
// of a previously connected credential.
func NewPasskeyConnector(config PasskeyConnectorConfig) (*PasskeyConnector, error) {
	if config.ID == "" {
		return nil, fmt.Errorf("connector id is required")
	}
	if config.Authenticator == nil {
		return nil, fmt.Errorf("authenticator is required")
	}

	c := &PasskeyConnector{config: config}
	c.session = intents.NewSession(intents.SessionConfig{
		ConnectorID: config.ID,
		Store:       config.Store,
		Restore:     c.restore,
	})
	return c, nil
}

// Session exposes the connector's lifecycle state and events.
func (c *PasskeyConnector) Session() *intents.Session { return c.session }

// Connect builds the wallet over a credential and persists its identity.
func (c *PasskeyConnector) Connect(ctx context.Context, accountID string, credentialPublicKey []byte, curve webauthn.Curve) (*intents.Wallet, error) {
	w, signer, err := c.buildWallet(accountID, credentialPublicKey, curve)
	if err != nil {
		return nil, err
	}

	identity := intents.PersistedIdentity{
		Type:      "passkey",
		ID:        c.config.ID,
		Address:   accountID,
		PublicKey: signer.PublicKey(),
	}
	if err := c.session.SetConnected(ctx, w, identity); err != nil {
		return nil, err
	}
	return w, nil
}

// restore rebuilds the signer from the curve-tagged persisted key.
func (c *PasskeyConnector) restore(ctx context.Context, identity intents.PersistedIdentity) (*intents.Wallet, error) {
	tag, blob, err := intents.DecodeCurveTagged(identity.PublicKey)
	if err != nil {
		return nil, err
	}

	var curve webauthn.Curve
	switch tag {
	case "p256":
		curve = webauthn.CurveP256
	case "ed25519":
		curve = webauthn.CurveEd25519
	default:
		return nil, fmt.Errorf("unsupported credential curve: %q", tag)
	}

	w, _, err := c.buildWallet(identity.Address, blob, curve)
	return w, err
}

func (c *PasskeyConnector) buildWallet(accountID string, credentialPublicKey []byte, curve webauthn.Curve) (*intents.Wallet, *webauthn.Signer, error) {
	signer, err := webauthn.NewSigner(webauthn.Config{
		AccountID:           accountID,
		CredentialPublicKey: credentialPublicKey,
		Curve:               curve,
		Authenticator:       c.config.Authenticator,
	})
	if err != nil {
		return nil, nil, err
	}

	w := intents.NewWallet(intents.WalletConfig{
		Type:     "passkey",
		Signer:   signer,
		Service:  c.config.Service,
		Registry: c.config.Registry,
		Approval: c.config.Approval,
		Owner:    c.session,
	})
	return w, signer, nil
}
