// Package connectors wires signer backends to connector sessions: the
// native key path, the remote browser-bridge path, the pairing
// (relay/QR) path and the platform-authenticator path.
package connectors

import (
	"context"
	"fmt"

	intents "github.com/omnisdk/intents-go"
	"github.com/omnisdk/intents-go/storage"
	"github.com/omnisdk/intents-go/tokens"
)

// KeyConnectorConfig configures a native key connector.
type KeyConnectorConfig struct {
	// ID identifies this connector instance (required).
	ID string

	// Signer is the local key backend (required).
	Signer intents.Signer

	// Service is the intent settlement service (required).
	Service *intents.IntentService

	// Registry, Approval and Store configure the wallets this connector
	// builds (all optional).
	Registry *tokens.Registry
	Approval intents.ApprovalProvider
	Store    storage.Store
}

// KeyConnector connects a locally held key synchronously: no pairing
// handshake, no remote counterpart.
type KeyConnector struct {
	config  KeyConnectorConfig
	session *intents.Session
}

// NewKeyConnector creates the connector and attempts silent restoration of
// a previously connected identity.
func NewKeyConnector(config KeyConnectorConfig) (*KeyConnector, error) {
	if config.ID == "" {
		return nil, fmt.Errorf("connector id is required")
	}
	if config.Signer == nil {
		return nil, fmt.Errorf("signer is required")
	}

	c := &KeyConnector{config: config}
	c.session = intents.NewSession(intents.SessionConfig{
		ConnectorID: config.ID,
		Store:       config.Store,
		Restore:     c.restore,
	})
	return c, nil
}

// Session exposes the connector's lifecycle state and events.
func (c *KeyConnector) Session() *intents.Session { return c.session }

// Connect builds the wallet over the local signer, persists its identity
// and emits the connect event.
func (c *KeyConnector) Connect(ctx context.Context) (*intents.Wallet, error) {
	w := c.buildWallet()
	identity := intents.PersistedIdentity{
		Type:      "key",
		ID:        c.config.ID,
		Address:   c.config.Signer.Address(),
		PublicKey: c.config.Signer.PublicKey(),
	}
	if err := c.session.SetConnected(ctx, w, identity); err != nil {
		return nil, err
	}
	return w, nil
}

// restore rebuilds the wallet over the held signer, provided the persisted
// record still names the same key.
func (c *KeyConnector) restore(ctx context.Context, identity intents.PersistedIdentity) (*intents.Wallet, error) {
	if identity.PublicKey != c.config.Signer.PublicKey() {
		return nil, fmt.Errorf("persisted identity does not match the configured key")
	}
	return c.buildWallet(), nil
}

func (c *KeyConnector) buildWallet() *intents.Wallet {
	return intents.NewWallet(intents.WalletConfig{
		Type:     "key",
		Signer:   c.config.Signer,
		Service:  c.config.Service,
		Registry: c.config.Registry,
		Approval: c.config.Approval,
		Owner:    c.session,
	})
}
