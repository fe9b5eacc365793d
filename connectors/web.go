package connectors

import (
	"context"
	"encoding/json"
	"fmt"

	intents "github.com/omnisdk/intents-go"
	"github.com/omnisdk/intents-go/bridge"
	"github.com/omnisdk/intents-go/signers/remote"
	"github.com/omnisdk/intents-go/storage"
	"github.com/omnisdk/intents-go/tokens"
)

// WebConnectorConfig configures a remote browser-bridge connector.
type WebConnectorConfig struct {
	// ID identifies this connector instance (required).
	ID string

	// Bridge carries requests to the wallet context (required).
	Bridge *bridge.Bridge

	// Service is the intent settlement service (required).
	Service *intents.IntentService

	// SupportsAuth reports whether the remote wallet serves domain-bound
	// auth signatures.
	SupportsAuth bool

	// Registry, Approval and Store configure the wallets this connector
	// builds (all optional).
	Registry *tokens.Registry
	Approval intents.ApprovalProvider
	Store    storage.Store
}

// WebConnector connects a wallet living in a separate browser context
// (popup or iframe) through the request bridge.
type WebConnector struct {
	config  WebConnectorConfig
	session *intents.Session
}

// NewWebConnector creates the connector and attempts silent restoration of
// a previously connected identity. Restoration rebuilds the remote signer
// from the persisted identity without a round trip: the remote context is
// only contacted again when the wallet next signs.
func NewWebConnector(config WebConnectorConfig) (*WebConnector, error) {
	if config.ID == "" {
		return nil, fmt.Errorf("connector id is required")
	}
	if config.Bridge == nil {
		return nil, fmt.Errorf("bridge is required")
	}

	c := &WebConnector{config: config}
	c.session = intents.NewSession(intents.SessionConfig{
		ConnectorID: config.ID,
		Store:       config.Store,
		Restore:     c.restore,
		Teardown:    c.teardown,
	})
	return c, nil
}

// Session exposes the connector's lifecycle state and events.
func (c *WebConnector) Session() *intents.Session { return c.session }

// Connect asks the remote context for its identity, builds the wallet and
// persists the identity record.
func (c *WebConnector) Connect(ctx context.Context) (*intents.Wallet, error) {
	c.session.SetConnecting()

	payload, err := c.config.Bridge.Call(ctx, "connect", struct{}{})
	if err != nil {
		c.session.SetDisconnected()
		return nil, fmt.Errorf("remote connect failed: %w", err)
	}

	var identity remote.Identity
	if err := json.Unmarshal(payload, &identity); err != nil {
		c.session.SetDisconnected()
		return nil, fmt.Errorf("failed to decode remote identity: %w", err)
	}

	w, err := c.buildWallet(identity)
	if err != nil {
		c.session.SetDisconnected()
		return nil, err
	}

	record := intents.PersistedIdentity{
		Type:      "web",
		ID:        c.config.ID,
		Address:   identity.Address,
		PublicKey: identity.PublicKey,
	}
	if err := c.session.SetConnected(ctx, w, record); err != nil {
		c.session.SetDisconnected()
		return nil, err
	}
	return w, nil
}

func (c *WebConnector) restore(ctx context.Context, identity intents.PersistedIdentity) (*intents.Wallet, error) {
	return c.buildWallet(remote.Identity{
		Address:   identity.Address,
		PublicKey: identity.PublicKey,
	})
}

// teardown tells the remote context the session ended. Failures are not
// surfaced: the local slot is already cleared and the remote side expires
// idle sessions on its own.
func (c *WebConnector) teardown(ctx context.Context) error {
	_, _ = c.config.Bridge.Call(ctx, "disconnect", struct{}{})
	return nil
}

func (c *WebConnector) buildWallet(identity remote.Identity) (*intents.Wallet, error) {
	signer, err := remote.NewSigner(remote.Config{
		Bridge:       c.config.Bridge,
		Identity:     identity,
		SupportsAuth: c.config.SupportsAuth,
	})
	if err != nil {
		return nil, err
	}

	return intents.NewWallet(intents.WalletConfig{
		Type:     "web",
		Signer:   signer,
		Service:  c.config.Service,
		Registry: c.config.Registry,
		Approval: c.config.Approval,
		Owner:    c.session,
	}), nil
}
