package ethkey

import (
	"context"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"

	intents "github.com/omnisdk/intents-go"
)

const testKeyHex = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestSignIntentsRecoversToSignerAddress(t *testing.T) {
	signer, err := NewSigner(Config{PrivateKeyHex: testKeyHex})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	intent := intents.NewTransferIntent("bob.omni", map[string]string{"nep141:usdc.token.omni": "100"})
	signed, err := signer.SignIntents(context.Background(), []intents.Intent{intent}, intents.SignOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if signed.Standard != intents.StandardERC191 {
		t.Errorf("expected erc191 standard, got %q", signed.Standard)
	}
	if !strings.HasPrefix(signed.Signature, "secp256k1:") {
		t.Errorf("expected secp256k1 rendering, got %q", signed.Signature)
	}

	_, sig, err := intents.DecodeCurveTagged(signed.Signature)
	if err != nil {
		t.Fatalf("failed to decode signature: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("expected 65-byte recoverable signature, got %d", len(sig))
	}
	if sig[64] != 27 && sig[64] != 28 {
		t.Errorf("expected wire-format recovery id 27/28, got %d", sig[64])
	}

	recoverable := make([]byte, 65)
	copy(recoverable, sig)
	recoverable[64] -= 27

	digest := accounts.TextHash([]byte(signed.Payload))
	pub, err := crypto.SigToPub(digest, recoverable)
	if err != nil {
		t.Fatalf("failed to recover public key: %v", err)
	}
	if crypto.PubkeyToAddress(*pub).Hex() != signer.Address() {
		t.Error("signature must recover to the signer's address")
	}
}

func TestOmniAddressIsLowercase(t *testing.T) {
	signer, err := NewSigner(Config{PrivateKeyHex: testKeyHex})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signer.OmniAddress() != strings.ToLower(signer.Address()) {
		t.Errorf("settlement account id must be the lowercase address, got %q", signer.OmniAddress())
	}
	if !strings.HasPrefix(signer.OmniAddress(), "0x") {
		t.Errorf("expected 0x address, got %q", signer.OmniAddress())
	}
}

func TestSignIntentsWithAuthSeedRederivesNonce(t *testing.T) {
	signer, err := NewSigner(Config{PrivateKeyHex: testKeyHex})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	commitment, err := signer.SignIntentsWithAuth(context.Background(), "app.example", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if commitment.ChainID != "eip155:1" {
		t.Errorf("expected default chain id, got %q", commitment.ChainID)
	}

	challenge := intents.AuthChallenge("app.example", commitment.Seed)
	payload, err := intents.BuildPayload(signer.OmniAddress(), nil, intents.SignOptions{Nonce: challenge})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if commitment.Signed.Payload != payload {
		t.Error("auth payload must embed the challenge derived from domain and seed")
	}
}

func TestNewSignerRejectsInvalidKey(t *testing.T) {
	if _, err := NewSigner(Config{PrivateKeyHex: "not-hex"}); err == nil {
		t.Fatal("expected error for invalid key")
	}
}
