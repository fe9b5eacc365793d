package intents

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func TestBuildPayloadByteStability(t *testing.T) {
	nonce := PaymentNonce("pay-123")
	intent := NewTransferIntent("bob.omni", map[string]string{"nep141:usdc.token.omni": "1500000"})

	payload, err := BuildPayload("alice.omni", []Intent{intent}, SignOptions{Nonce: nonce})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"deadline":"2100-01-01T00:00:00.000Z",` +
		`"nonce":"` + base64.StdEncoding.EncodeToString(nonce) + `",` +
		`"verifying_contract":"intents.omni",` +
		`"signer_id":"alice.omni",` +
		`"intents":[{"intent":"transfer","receiver_id":"bob.omni","tokens":{"nep141:usdc.token.omni":"1500000"}}]}`
	if payload != want {
		t.Errorf("canonical payload drifted:\n got %s\nwant %s", payload, want)
	}

	again, err := BuildPayload("alice.omni", []Intent{intent}, SignOptions{Nonce: nonce})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload != again {
		t.Errorf("same inputs must produce byte-identical payloads")
	}
}

func TestBuildPayloadRejectsShortNonce(t *testing.T) {
	_, err := BuildPayload("alice.omni", nil, SignOptions{Nonce: []byte{1, 2, 3}})
	if err == nil {
		t.Fatal("expected error for short nonce")
	}
}

func TestBuildPayloadRejectsInvalidAmount(t *testing.T) {
	intent := NewTransferIntent("bob.omni", map[string]string{"nep141:usdc.token.omni": "1.5"})
	_, err := BuildPayload("alice.omni", []Intent{intent}, SignOptions{})
	if err == nil {
		t.Fatal("expected error for non-integer transfer amount")
	}
}

func TestPaymentNonceDeterministic(t *testing.T) {
	first := PaymentNonce("payment-abc")
	second := PaymentNonce("payment-abc")
	if !bytes.Equal(first, second) {
		t.Errorf("same payment id must yield the same nonce")
	}
	if len(first) != 32 {
		t.Errorf("expected 32-byte nonce, got %d", len(first))
	}
	if bytes.Equal(first, PaymentNonce("payment-xyz")) {
		t.Errorf("different payment ids must yield different nonces")
	}
}

func TestNewNonceLength(t *testing.T) {
	nonce, err := NewNonce()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nonce) != 32 {
		t.Errorf("expected 32 bytes, got %d", len(nonce))
	}
}

func TestAuthChallengeBindsDomainAndSeed(t *testing.T) {
	a := AuthChallenge("app.example", "seed-1")
	b := AuthChallenge("app.example", "seed-1")
	if !bytes.Equal(a, b) {
		t.Errorf("challenge must be deterministic for the same domain and seed")
	}
	if bytes.Equal(a, AuthChallenge("other.example", "seed-1")) {
		t.Errorf("challenge must differ across domains")
	}
	if bytes.Equal(a, AuthChallenge("app.example", "seed-2")) {
		t.Errorf("challenge must differ across seeds")
	}
	if len(a) != 32 {
		t.Errorf("expected 32-byte challenge, got %d", len(a))
	}
}

func TestValidateIntentAmountRules(t *testing.T) {
	if err := ValidateIntent(NewTokenDiffIntent(map[string]string{"nep141:a": "-5"})); err != nil {
		t.Errorf("token_diff may carry signed amounts: %v", err)
	}
	if err := ValidateIntent(NewTransferIntent("bob.omni", map[string]string{"nep141:a": "-5"})); err == nil {
		t.Errorf("transfer amounts must be non-negative")
	}
	if err := ValidateIntent(NewMTWithdrawIntent("mt.omni", "bob.omni", []string{"a", "b"}, []string{"1"})); err == nil {
		t.Errorf("mt_withdraw must reject mismatched token/amount lengths")
	}
	if err := ValidateIntent(NewFTWithdrawIntent("usdc.token.omni", "bob.omni", "100")); err != nil {
		t.Errorf("valid ft_withdraw rejected: %v", err)
	}
}
