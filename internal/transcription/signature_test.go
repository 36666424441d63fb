package transcription

import (
	"errors"
	"testing"
)

func TestVerifySignature(t *testing.T) {
	secret := "topsecret"
	body := []byte(`{"call_id":42}`)
	sig := Sign(secret, body)

	if err := VerifySignature(secret, body, sig); err != nil {
		t.Fatalf("bare digest should verify, got %v", err)
	}
	if err := VerifySignature(secret, body, "sha256="+sig); err != nil {
		t.Fatalf("prefixed digest should verify, got %v", err)
	}
}

func TestVerifySignature_MissingSecretIsMisconfiguration(t *testing.T) {
	err := VerifySignature("", []byte("x"), "sha256=deadbeef")
	if !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}

func TestVerifySignature_MissingHeader(t *testing.T) {
	err := VerifySignature("s", []byte("x"), "")
	if !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature, got %v", err)
	}
}

func TestVerifySignature_Mismatch(t *testing.T) {
	secret := "topsecret"
	body := []byte(`{"call_id":42}`)

	bad := Sign("wrong-secret", body)
	if err := VerifySignature(secret, body, bad); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}

	tampered := Sign(secret, []byte(`{"call_id":43}`))
	if err := VerifySignature(secret, body, tampered); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature for tampered body, got %v", err)
	}

	if err := VerifySignature(secret, body, "sha256=not-hex"); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature for non-hex header, got %v", err)
	}
}
