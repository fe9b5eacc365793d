package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	intents "github.com/omnisdk/intents-go"
	"github.com/omnisdk/intents-go/bridge"
	"github.com/omnisdk/intents-go/storage"
)

// Mock signer for testing
type mockSigner struct {
	address   string
	publicKey string
}

func (m *mockSigner) Address() string     { return m.address }
func (m *mockSigner) PublicKey() string   { return m.publicKey }
func (m *mockSigner) OmniAddress() string { return m.address }

func (m *mockSigner) SignIntents(ctx context.Context, list []intents.Intent, opts intents.SignOptions) (*intents.SignedIntent, error) {
	return &intents.SignedIntent{Standard: intents.StandardRawEd25519, Payload: "{}"}, nil
}

func (m *mockSigner) SignIntentsWithAuth(ctx context.Context, domain string, list []intents.Intent) (*intents.AuthCommitment, error) {
	return &intents.AuthCommitment{Address: m.address}, nil
}

// Mock pairing session for testing
type mockPairingSession struct {
	uri    chan string
	done   chan intents.PairingResult
	closed bool
}

func newMockPairingSession() *mockPairingSession {
	return &mockPairingSession{
		uri:  make(chan string, 1),
		done: make(chan intents.PairingResult, 1),
	}
}

func (m *mockPairingSession) DisplayURI() <-chan string          { return m.uri }
func (m *mockPairingSession) Done() <-chan intents.PairingResult { return m.done }
func (m *mockPairingSession) Close(ctx context.Context) error    { m.closed = true; return nil }

type mockPairingProvider struct {
	session *mockPairingSession
}

func (m *mockPairingProvider) Pair(ctx context.Context) (intents.PairingSession, error) {
	return m.session, nil
}

// Transport whose sends always fail, for handshake failure paths.
type failingTransport struct{}

func (failingTransport) Send(ctx context.Context, env bridge.Envelope) error {
	return errors.New("relay unreachable")
}

func TestKeyConnectorConnectPersistsIdentity(t *testing.T) {
	store := storage.NewMemoryStore()
	connector, err := NewKeyConnector(KeyConnectorConfig{
		ID:     "key-1",
		Signer: &mockSigner{address: "alice.omni", publicKey: "ed25519:pk1"},
		Store:  store,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w, err := connector.Connect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Session().Address != "alice.omni" || w.Session().Type != "key" {
		t.Errorf("unexpected wallet session %+v", w.Session())
	}

	record, ok, _ := store.Get("omnisdk:key-1")
	if !ok {
		t.Fatal("expected persisted identity")
	}
	var identity intents.PersistedIdentity
	if err := json.Unmarshal(record, &identity); err != nil {
		t.Fatalf("failed to decode record: %v", err)
	}
	if identity.Type != "key" || identity.PublicKey != "ed25519:pk1" {
		t.Errorf("unexpected identity %+v", identity)
	}
}

func TestKeyConnectorSilentRestore(t *testing.T) {
	store := storage.NewMemoryStore()
	record, _ := json.Marshal(intents.PersistedIdentity{
		Type: "key", ID: "key-1", Address: "alice.omni", PublicKey: "ed25519:pk1",
	})
	if err := store.Set("omnisdk:key-1", record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	connector, err := NewKeyConnector(KeyConnectorConfig{
		ID:     "key-1",
		Signer: &mockSigner{address: "alice.omni", publicKey: "ed25519:pk1"},
		Store:  store,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if connector.Session().State() != intents.StateConnected {
		t.Fatalf("expected restored connection, got %s", connector.Session().State())
	}
	if w := connector.Session().Wallet(); w == nil || w.Session().Address != "alice.omni" {
		t.Error("expected restored wallet with the persisted address")
	}
}

func TestKeyConnectorRestoreRejectsForeignKey(t *testing.T) {
	store := storage.NewMemoryStore()
	record, _ := json.Marshal(intents.PersistedIdentity{
		Type: "key", ID: "key-1", Address: "mallory.omni", PublicKey: "ed25519:other",
	})
	if err := store.Set("omnisdk:key-1", record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	connector, err := NewKeyConnector(KeyConnectorConfig{
		ID:     "key-1",
		Signer: &mockSigner{address: "alice.omni", publicKey: "ed25519:pk1"},
		Store:  store,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if connector.Session().State() != intents.StateDisconnected {
		t.Error("a record for a different key must not restore")
	}
}

func TestWebConnectorFailedConnectLeavesDisconnected(t *testing.T) {
	connector, err := NewWebConnector(WebConnectorConfig{
		ID:     "web-1",
		Bridge: bridge.New("omni", failingTransport{}),
		Store:  storage.NewMemoryStore(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := connector.Connect(context.Background()); err == nil {
		t.Fatal("expected connect to fail")
	}
	if state := connector.Session().State(); state != intents.StateDisconnected {
		t.Errorf("after a failed connect the session must be disconnected, got %q", state)
	}
}

func TestPairingConnectorURIBeforeApproval(t *testing.T) {
	session := newMockPairingSession()
	session.uri <- "wc:pair@2?relay=irn"

	connector, err := NewPairingConnector(PairingConnectorConfig{
		ID:       "pair-1",
		Provider: &mockPairingProvider{session: session},
		NewSigner: func(identity intents.RemoteIdentity) (intents.Signer, error) {
			return &mockSigner{address: identity.Address, publicKey: identity.PublicKey}, nil
		},
		Store: storage.NewMemoryStore(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	conn, err := connector.ConnectRemote(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conn.URI != "wc:pair@2?relay=irn" {
		t.Errorf("expected pairing URI surfaced before approval, got %q", conn.URI)
	}
	if conn.Deeplink != DefaultDeeplinkPrefix+"wc%3Apair%402%3Frelay%3Dirn" {
		t.Errorf("unexpected deeplink %q", conn.Deeplink)
	}

	select {
	case <-conn.Result:
		t.Fatal("result must not resolve before the remote approves")
	case <-time.After(20 * time.Millisecond):
	}

	session.done <- intents.PairingResult{
		Identity: intents.RemoteIdentity{Address: "0xremote", PublicKey: "secp256k1:pk"},
	}

	select {
	case result := <-conn.Result:
		if result.Err != nil {
			t.Fatalf("unexpected error: %v", result.Err)
		}
		if result.Wallet.Session().Address != "0xremote" {
			t.Errorf("unexpected wallet %+v", result.Wallet.Session())
		}
	case <-time.After(time.Second):
		t.Fatal("result did not resolve after approval")
	}

	if connector.Session().State() != intents.StateConnected {
		t.Errorf("expected connected session, got %s", connector.Session().State())
	}
}

func TestPairingConnectorDisconnectClosesSession(t *testing.T) {
	session := newMockPairingSession()
	session.uri <- "wc:pair@2"

	connector, err := NewPairingConnector(PairingConnectorConfig{
		ID:       "pair-1",
		Provider: &mockPairingProvider{session: session},
		NewSigner: func(identity intents.RemoteIdentity) (intents.Signer, error) {
			return &mockSigner{address: identity.Address, publicKey: identity.PublicKey}, nil
		},
		Store: storage.NewMemoryStore(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	conn, err := connector.ConnectRemote(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	session.done <- intents.PairingResult{
		Identity: intents.RemoteIdentity{Address: "0xremote", PublicKey: "secp256k1:pk"},
	}
	<-conn.Result

	if err := connector.Session().Disconnect(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !session.closed {
		t.Error("disconnect must close the live pairing session")
	}
}
