package intents

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// persistedIdentitySchema guards the record read back from storage during
// silent restoration. A record that predates the current format (or was
// corrupted on disk) must fail here so restoration degrades to a normal
// disconnected start instead of rebuilding a broken wallet.
const persistedIdentitySchema = `{
	"type": "object",
	"required": ["type", "id", "address", "publicKey"],
	"properties": {
		"type":      {"type": "string", "minLength": 1},
		"id":        {"type": "string", "minLength": 1},
		"address":   {"type": "string", "minLength": 1},
		"publicKey": {"type": "string", "minLength": 1}
	}
}`

// signedIntentSchema validates the signing envelope shape before it leaves
// for the solver.
const signedIntentSchema = `{
	"type": "object",
	"required": ["standard", "payload", "public_key", "signature"],
	"properties": {
		"standard": {
			"type": "string",
			"enum": ["raw_ed25519", "nep413", "erc191", "webauthn"]
		},
		"payload":            {"type": "string", "minLength": 1},
		"public_key":         {"type": "string", "minLength": 1},
		"signature":          {"type": "string", "minLength": 1},
		"authenticator_data": {"type": "string"},
		"client_data_json":   {"type": "string"}
	}
}`

var (
	persistedIdentityLoader = gojsonschema.NewStringLoader(persistedIdentitySchema)
	signedIntentLoader      = gojsonschema.NewStringLoader(signedIntentSchema)
)

// ValidatePersistedIdentity checks a raw storage record against the
// persisted identity schema.
func ValidatePersistedIdentity(raw []byte) error {
	return validateAgainst(persistedIdentityLoader, raw, "persisted identity")
}

// ValidateSignedIntent checks a serialized signing envelope against the
// envelope schema.
func ValidateSignedIntent(raw []byte) error {
	return validateAgainst(signedIntentLoader, raw, "signed intent")
}

func validateAgainst(schema gojsonschema.JSONLoader, raw []byte, what string) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &IntentError{
			Code:    ErrCodeInvalidIdentity,
			Message: fmt.Sprintf("%s is not valid JSON: %v", what, err),
		}
	}
	if !result.Valid() {
		detail := ""
		if errs := result.Errors(); len(errs) > 0 {
			detail = ": " + errs[0].String()
		}
		return &IntentError{
			Code:    ErrCodeInvalidIdentity,
			Message: fmt.Sprintf("invalid %s record%s", what, detail),
		}
	}
	return nil
}
