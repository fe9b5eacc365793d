package webauthn

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/asn1"
	"encoding/base64"
	"math/big"
	"strings"
	"testing"

	intents "github.com/omnisdk/intents-go"
)

// Mock authenticator for testing
type mockAuthenticator struct {
	getAssertion func(ctx context.Context, digest []byte) (*Assertion, error)
}

func (m *mockAuthenticator) GetAssertion(ctx context.Context, digest []byte) (*Assertion, error) {
	return m.getAssertion(ctx, digest)
}

func derSignature(t *testing.T, r, s *big.Int) []byte {
	t.Helper()
	der, err := asn1.Marshal(ecdsaContainer{R: r, S: s})
	if err != nil {
		t.Fatalf("failed to encode DER signature: %v", err)
	}
	return der
}

func TestNormalizeP256SignatureLowSCanonicalization(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	digest := intents.PayloadDigest("{}")

	r, s, err := ecdsa.Sign(rand.Reader, key, digest)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}

	n := elliptic.P256().Params().N
	highS := new(big.Int).Sub(n, s)

	low, err := NormalizeP256Signature(derSignature(t, r, s))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	high, err := NormalizeP256Signature(derSignature(t, r, highS))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !bytes.Equal(low, high) {
		t.Error("a high-S signature must canonicalize to the same bytes as its low-S twin")
	}
	if len(low) != 64 {
		t.Errorf("expected fixed 64-byte form, got %d", len(low))
	}
}

func TestNormalizeP256SignatureRejectsGarbage(t *testing.T) {
	if _, err := NormalizeP256Signature([]byte{0x30, 0x01, 0x00}); err == nil {
		t.Error("truncated DER must be rejected")
	}
	if _, err := NormalizeP256Signature(derSignature(t, big.NewInt(0), big.NewInt(1))); err == nil {
		t.Error("zero component must be rejected")
	}
}

func TestSignIntentsP256Envelope(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	pub := make([]byte, 64)
	key.PublicKey.X.FillBytes(pub[:32])
	key.PublicKey.Y.FillBytes(pub[32:])

	authData := []byte("auth-data")
	clientData := []byte(`{"type":"webauthn.get"}`)
	authenticator := &mockAuthenticator{
		getAssertion: func(ctx context.Context, digest []byte) (*Assertion, error) {
			r, s, err := ecdsa.Sign(rand.Reader, key, digest)
			if err != nil {
				return nil, err
			}
			return &Assertion{
				Signature:         derSignature(t, r, s),
				AuthenticatorData: authData,
				ClientDataJSON:    clientData,
			}, nil
		},
	}

	signer, err := NewSigner(Config{
		AccountID:           "alice.omni",
		CredentialPublicKey: pub,
		Curve:               CurveP256,
		Authenticator:       authenticator,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	signed, err := signer.SignIntents(context.Background(), nil, intents.SignOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if signed.Standard != intents.StandardWebAuthn {
		t.Errorf("expected webauthn standard, got %q", signed.Standard)
	}
	if !strings.HasPrefix(signed.PublicKey, "p256:") || !strings.HasPrefix(signed.Signature, "p256:") {
		t.Errorf("expected p256 renderings, got %q / %q", signed.PublicKey, signed.Signature)
	}
	if signed.AuthenticatorData != base64.RawURLEncoding.EncodeToString(authData) {
		t.Errorf("envelope must carry authenticator data")
	}
	if signed.ClientDataJSON != base64.RawURLEncoding.EncodeToString(clientData) {
		t.Errorf("envelope must carry client data")
	}

	// The extracted signature must verify against the payload digest.
	_, raw, err := intents.DecodeCurveTagged(signed.Signature)
	if err != nil {
		t.Fatalf("failed to decode signature: %v", err)
	}
	r := new(big.Int).SetBytes(raw[:32])
	s := new(big.Int).SetBytes(raw[32:])
	if !ecdsa.Verify(&key.PublicKey, intents.PayloadDigest(signed.Payload), r, s) {
		t.Error("normalized signature must still verify")
	}
}

func TestSignIntentsEd25519Family(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	authenticator := &mockAuthenticator{
		getAssertion: func(ctx context.Context, digest []byte) (*Assertion, error) {
			return &Assertion{
				Signature:         ed25519.Sign(priv, digest),
				AuthenticatorData: []byte("ad"),
				ClientDataJSON:    []byte("{}"),
			}, nil
		},
	}

	signer, err := NewSigner(Config{
		AccountID:           "alice.omni",
		CredentialPublicKey: pub,
		Curve:               CurveEd25519,
		Authenticator:       authenticator,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	signed, err := signer.SignIntents(context.Background(), nil, intents.SignOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(signed.PublicKey, "ed25519:") || !strings.HasPrefix(signed.Signature, "ed25519:") {
		t.Errorf("expected ed25519 renderings, got %q / %q", signed.PublicKey, signed.Signature)
	}

	_, sig, err := intents.DecodeCurveTagged(signed.Signature)
	if err != nil {
		t.Fatalf("failed to decode signature: %v", err)
	}
	if !ed25519.Verify(pub, intents.PayloadDigest(signed.Payload), sig) {
		t.Error("signature must verify over the payload digest")
	}
}

func TestNewSignerRejectsUnknownCurve(t *testing.T) {
	_, err := NewSigner(Config{
		AccountID:           "alice.omni",
		CredentialPublicKey: []byte{1},
		Curve:               Curve("secp256k1"),
		Authenticator:       &mockAuthenticator{},
	})
	if err == nil {
		t.Fatal("expected error for unsupported curve")
	}
}
