package nearkey

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"strings"
	"testing"

	intents "github.com/omnisdk/intents-go"
)

func TestSignIntentsRawVerifies(t *testing.T) {
	signer, err := GenerateSigner("alice.omni")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	intent := intents.NewTransferIntent("bob.omni", map[string]string{"nep141:usdc.token.omni": "100"})
	signed, err := signer.SignIntents(context.Background(), []intents.Intent{intent}, intents.SignOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if signed.Standard != intents.StandardRawEd25519 {
		t.Errorf("expected raw_ed25519 standard, got %q", signed.Standard)
	}
	if !strings.HasPrefix(signed.PublicKey, "ed25519:") || !strings.HasPrefix(signed.Signature, "ed25519:") {
		t.Errorf("expected curve-tagged renderings, got %q / %q", signed.PublicKey, signed.Signature)
	}

	_, pub, err := intents.DecodeCurveTagged(signed.PublicKey)
	if err != nil {
		t.Fatalf("failed to decode public key: %v", err)
	}
	_, sig, err := intents.DecodeCurveTagged(signed.Signature)
	if err != nil {
		t.Fatalf("failed to decode signature: %v", err)
	}

	digest := sha256.Sum256([]byte(signed.Payload))
	if !ed25519.Verify(ed25519.PublicKey(pub), digest[:], sig) {
		t.Error("signature must verify over the payload digest")
	}
}

func TestSignIntentsDeterministicWithFixedNonce(t *testing.T) {
	signer, err := GenerateSigner("alice.omni")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	opts := intents.SignOptions{Nonce: intents.PaymentNonce("pay-1")}
	intent := intents.NewTransferIntent("bob.omni", map[string]string{"nep141:usdc.token.omni": "100"})

	first, err := signer.SignIntents(context.Background(), []intents.Intent{intent}, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := signer.SignIntents(context.Background(), []intents.Intent{intent}, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Payload != second.Payload || first.Signature != second.Signature {
		t.Error("fixed nonce must make signing deterministic")
	}
}

func TestSignIntentsNEP413Mode(t *testing.T) {
	_, priv, err := generateKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	signer, err := NewSigner(Config{AccountID: "alice.omni", PrivateKey: priv, Mode: ModeNEP413})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	nonce := intents.PaymentNonce("pay-1")
	intent := intents.NewTransferIntent("bob.omni", map[string]string{"nep141:usdc.token.omni": "100"})
	signed, err := signer.SignIntents(context.Background(), []intents.Intent{intent}, intents.SignOptions{Nonce: nonce})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if signed.Standard != intents.StandardNEP413 {
		t.Errorf("expected nep413 standard, got %q", signed.Standard)
	}

	digest, err := nep413Digest(signed.Payload, nonce, intents.VerifyingContract)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, sig, err := intents.DecodeCurveTagged(signed.Signature)
	if err != nil {
		t.Fatalf("failed to decode signature: %v", err)
	}
	if !ed25519.Verify(priv.Public().(ed25519.PublicKey), digest, sig) {
		t.Error("signature must verify over the envelope digest")
	}

	raw := sha256.Sum256([]byte(signed.Payload))
	if ed25519.Verify(priv.Public().(ed25519.PublicKey), raw[:], sig) {
		t.Error("nep413 signature must not verify as a raw payload signature")
	}
}

func TestSignIntentsWithAuthBindsSeed(t *testing.T) {
	signer, err := GenerateSigner("alice.omni")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	commitment, err := signer.SignIntentsWithAuth(context.Background(), "app.example", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if commitment.Seed == "" {
		t.Fatal("expected a seed in the commitment")
	}
	if commitment.Address != "alice.omni" || commitment.PublicKey != signer.PublicKey() {
		t.Errorf("commitment identity mismatch: %+v", commitment)
	}

	// The payload's nonce must re-derive from domain and seed.
	challenge := intents.AuthChallenge("app.example", commitment.Seed)
	payload, err := intents.BuildPayload("alice.omni", nil, intents.SignOptions{Nonce: challenge, Deadline: intents.DefaultDeadline})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if commitment.Signed.Payload != payload {
		t.Errorf("auth payload must embed the derived challenge nonce")
	}
}

func generateKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(nil)
}
