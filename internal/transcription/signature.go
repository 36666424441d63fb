package transcription

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	// ErrMissingSecret is a server misconfiguration, not a client error.
	ErrMissingSecret = errors.New("callback secret not configured")

	ErrMissingSignature = errors.New("missing callback signature")
	ErrBadSignature     = errors.New("callback signature mismatch")
)

const signaturePrefix = "sha256="

// VerifySignature checks an HMAC-SHA256 signature over the raw request body.
//
// The header value may carry an optional "sha256=" prefix. Comparison is
// constant-time. Callers must not parse the body before this succeeds.
func VerifySignature(secret string, body []byte, header string) error {
	if secret == "" {
		return ErrMissingSecret
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissingSignature
	}
	header = strings.TrimPrefix(header, signaturePrefix)

	provided, err := hex.DecodeString(header)
	if err != nil {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	if !hmac.Equal(provided, expected) {
		return ErrBadSignature
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 digest of body. Used by tests and by
// local tooling that emits provider-shaped callbacks.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
