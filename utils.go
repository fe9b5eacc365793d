package intents

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
)

// Ed25519PublicKey renders raw ed25519 public key bytes in the curve-tagged
// base58 form verifiers expect.
func Ed25519PublicKey(raw []byte) string {
	return "ed25519:" + base58.Encode(raw)
}

// Ed25519Signature renders a raw ed25519 signature in curve-tagged base58.
func Ed25519Signature(raw []byte) string {
	return "ed25519:" + base58.Encode(raw)
}

// P256PublicKey renders a P-256 public key blob in curve-tagged base58.
func P256PublicKey(raw []byte) string {
	return "p256:" + base58.Encode(raw)
}

// P256Signature renders a normalized P-256 signature in curve-tagged base58.
func P256Signature(raw []byte) string {
	return "p256:" + base58.Encode(raw)
}

// Secp256k1PublicKey renders a compressed secp256k1 public key in
// curve-tagged base58.
func Secp256k1PublicKey(raw []byte) string {
	return "secp256k1:" + base58.Encode(raw)
}

// Secp256k1Signature renders a 65-byte recoverable signature in curve-tagged
// base58.
func Secp256k1Signature(raw []byte) string {
	return "secp256k1:" + base58.Encode(raw)
}

// DecodeCurveTagged splits a "curve:base58" value into curve tag and raw
// bytes.
func DecodeCurveTagged(value string) (curve string, raw []byte, err error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", nil, fmt.Errorf("invalid curve-tagged value: %q", value)
	}
	decoded := base58.Decode(parts[1])
	if len(decoded) == 0 {
		return "", nil, fmt.Errorf("invalid base58 data in %q", value)
	}
	return parts[0], decoded, nil
}
