package connectors

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	intents "github.com/omnisdk/intents-go"
	"github.com/omnisdk/intents-go/storage"
	"github.com/omnisdk/intents-go/tokens"
)

// DefaultDeeplinkPrefix opens the pairing URI in a companion wallet app.
const DefaultDeeplinkPrefix = "omniwallet://wc?uri="

// SignerFactory builds the signer for a paired remote identity. The
// provider hands the factory whatever request channel the established
// session exposes; connectors stay agnostic of the relay protocol.
type SignerFactory func(identity intents.RemoteIdentity) (intents.Signer, error)

// ConnectResult resolves a remote pairing handshake.
type ConnectResult struct {
	Wallet *intents.Wallet
	Err    error
}

// RemoteConnection is handed to the caller as soon as the pairing URI is
// known, before the remote counterpart approves. Result delivers exactly
// one value when the handshake settles.
type RemoteConnection struct {
	URI      string
	Deeplink string
	Result   <-chan ConnectResult
}

// PairingConnectorConfig configures a relay pairing connector.
type PairingConnectorConfig struct {
	// ID identifies this connector instance (required).
	ID string

	// Provider opens pairing handshakes against the relay (required).
	Provider intents.PairingProvider

	// NewSigner builds the signer once pairing completes (required).
	NewSigner SignerFactory

	// Service is the intent settlement service (required).
	Service *intents.IntentService

	// DeeplinkPrefix overrides the companion-app deeplink scheme
	// (optional).
	DeeplinkPrefix string

	// Registry, Approval and Store configure the wallets this connector
	// builds (all optional).
	Registry *tokens.Registry
	Approval intents.ApprovalProvider
	Store    storage.Store
}

// PairingConnector connects wallets through a relay handshake: the caller
// shows the pairing URI (QR code or deeplink) and the wallet arrives
// asynchronously once the remote counterpart approves.
type PairingConnector struct {
	config  PairingConnectorConfig
	session *intents.Session

	mu   sync.Mutex
	live intents.PairingSession
}

// NewPairingConnector creates the connector and attempts silent restoration
// of a previously paired identity.
func NewPairingConnector(config PairingConnectorConfig) (*PairingConnector, error) {
	if config.ID == "" {
		return nil, fmt.Errorf("connector id is required")
	}
	if config.Provider == nil {
		return nil, fmt.Errorf("pairing provider is required")
	}
	if config.NewSigner == nil {
		return nil, fmt.Errorf("signer factory is required")
	}
	if config.DeeplinkPrefix == "" {
		config.DeeplinkPrefix = DefaultDeeplinkPrefix
	}

	c := &PairingConnector{config: config}
	c.session = intents.NewSession(intents.SessionConfig{
		ConnectorID: config.ID,
		Store:       config.Store,
		Restore:     c.restore,
		Teardown:    c.teardown,
	})
	return c, nil
}

// Session exposes the connector's lifecycle state and events.
func (c *PairingConnector) Session() *intents.Session { return c.session }

// ConnectRemote opens a pairing handshake and returns once the displayable
// URI is known. The wallet itself arrives later on Result, after the remote
// counterpart approves; callers surface the URI to the user immediately
// instead of waiting for approval.
func (c *PairingConnector) ConnectRemote(ctx context.Context) (*RemoteConnection, error) {
	c.session.SetConnecting()

	pairing, err := c.config.Provider.Pair(ctx)
	if err != nil {
		c.session.SetDisconnected()
		return nil, fmt.Errorf("failed to open pairing: %w", err)
	}

	var uri string
	select {
	case uri = <-pairing.DisplayURI():
	case <-ctx.Done():
		_ = pairing.Close(context.WithoutCancel(ctx))
		c.session.SetDisconnected()
		return nil, ctx.Err()
	}

	c.mu.Lock()
	c.live = pairing
	c.mu.Unlock()

	result := make(chan ConnectResult, 1)
	go c.awaitApproval(pairing, result)

	return &RemoteConnection{
		URI:      uri,
		Deeplink: c.config.DeeplinkPrefix + url.QueryEscape(uri),
		Result:   result,
	}, nil
}

func (c *PairingConnector) awaitApproval(pairing intents.PairingSession, result chan<- ConnectResult) {
	outcome := <-pairing.Done()
	if outcome.Err != nil {
		c.clearLive(pairing)
		c.session.SetDisconnected()
		result <- ConnectResult{Err: outcome.Err}
		return
	}

	w, err := c.buildWallet(outcome.Identity)
	if err == nil {
		record := intents.PersistedIdentity{
			Type:      "pairing",
			ID:        c.config.ID,
			Address:   outcome.Identity.Address,
			PublicKey: outcome.Identity.PublicKey,
		}
		err = c.session.SetConnected(context.Background(), w, record)
	}
	if err != nil {
		c.clearLive(pairing)
		c.session.SetDisconnected()
		result <- ConnectResult{Err: err}
		return
	}

	result <- ConnectResult{Wallet: w}
}

func (c *PairingConnector) restore(ctx context.Context, identity intents.PersistedIdentity) (*intents.Wallet, error) {
	return c.buildWallet(intents.RemoteIdentity{
		Address:   identity.Address,
		PublicKey: identity.PublicKey,
	})
}

// teardown closes the live relay session, if any.
func (c *PairingConnector) teardown(ctx context.Context) error {
	c.mu.Lock()
	pairing := c.live
	c.live = nil
	c.mu.Unlock()

	if pairing != nil {
		return pairing.Close(ctx)
	}
	return nil
}

func (c *PairingConnector) clearLive(pairing intents.PairingSession) {
	c.mu.Lock()
	if c.live == pairing {
		c.live = nil
	}
	c.mu.Unlock()
}

func (c *PairingConnector) buildWallet(identity intents.RemoteIdentity) (*intents.Wallet, error) {
	signer, err := c.config.NewSigner(identity)
	if err != nil {
		return nil, err
	}

	return intents.NewWallet(intents.WalletConfig{
		Type:     "pairing",
		Signer:   signer,
		Service:  c.config.Service,
		Registry: c.config.Registry,
		Approval: c.config.Approval,
		Owner:    c.session,
	}), nil
}
