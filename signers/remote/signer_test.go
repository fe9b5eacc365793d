package remote

import (
	"context"
	"encoding/json"
	"testing"

	intents "github.com/omnisdk/intents-go"
	"github.com/omnisdk/intents-go/bridge"
)

// Transport that answers every request from a handler func.
type replyTransport struct {
	b      *bridge.Bridge
	handle func(env bridge.Envelope) bridge.Response
}

func (t *replyTransport) Send(ctx context.Context, env bridge.Envelope) error {
	go t.b.Dispatch(t.handle(env))
	return nil
}

func newTestBridge(handle func(env bridge.Envelope) bridge.Response) *bridge.Bridge {
	transport := &replyTransport{handle: handle}
	b := bridge.New("omni", transport)
	transport.b = b
	return b
}

func testIdentity() Identity {
	return Identity{Address: "0xabc", PublicKey: "secp256k1:pk", OmniAddress: "0xabc"}
}

func TestSignIntentsDelegatesOverBridge(t *testing.T) {
	var gotMethod string
	b := newTestBridge(func(env bridge.Envelope) bridge.Response {
		gotMethod = env.Method
		payload, _ := json.Marshal(intents.SignedIntent{
			Standard:  intents.StandardERC191,
			Payload:   "{}",
			PublicKey: "secp256k1:pk",
			Signature: "secp256k1:sig",
		})
		return bridge.Response{ID: env.ID, Success: true, Payload: payload}
	})

	signer, err := NewSigner(Config{Bridge: b, Identity: testIdentity()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	signed, err := signer.SignIntents(context.Background(), nil, intents.SignOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != "signIntents" {
		t.Errorf("expected signIntents method, got %q", gotMethod)
	}
	if signed.Standard != intents.StandardERC191 || signed.Signature != "secp256k1:sig" {
		t.Errorf("unexpected envelope %+v", signed)
	}
}

func TestSignIntentsRejectsMalformedRemoteEnvelope(t *testing.T) {
	b := newTestBridge(func(env bridge.Envelope) bridge.Response {
		return bridge.Response{ID: env.ID, Success: true, Payload: json.RawMessage(`{"standard":"erc191"}`)}
	})

	signer, err := NewSigner(Config{Bridge: b, Identity: testIdentity()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = signer.SignIntents(context.Background(), nil, intents.SignOptions{})
	if !intents.IsCode(err, intents.ErrCodeInvalidIdentity) {
		t.Fatalf("expected schema rejection, got %v", err)
	}
}

func TestSignIntentsWithAuthUnsupported(t *testing.T) {
	called := false
	b := newTestBridge(func(env bridge.Envelope) bridge.Response {
		called = true
		return bridge.Response{ID: env.ID, Success: true}
	})

	signer, err := NewSigner(Config{Bridge: b, Identity: testIdentity(), SupportsAuth: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = signer.SignIntentsWithAuth(context.Background(), "app.example", nil)
	if !intents.IsCode(err, intents.ErrCodeUnsupportedCapability) {
		t.Fatalf("expected unsupported_capability, got %v", err)
	}
	if called {
		t.Error("an unsupported capability must not round-trip to the remote")
	}
}

func TestNewSignerRequiresIdentity(t *testing.T) {
	b := newTestBridge(func(env bridge.Envelope) bridge.Response {
		return bridge.Response{ID: env.ID, Success: true}
	})
	if _, err := NewSigner(Config{Bridge: b, Identity: Identity{Address: "0xabc"}}); err == nil {
		t.Fatal("expected error for incomplete identity")
	}
}
