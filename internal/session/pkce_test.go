package session

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
)

func TestGenerateVerifier(t *testing.T) {
	t.Run("length and alphabet", func(t *testing.T) {
		v, err := GenerateVerifier(rand.Reader)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(v) != VerifierLength {
			t.Errorf("expected length %d, got %d", VerifierLength, len(v))
		}
		for _, r := range v {
			if !strings.ContainsRune(verifierAlphabet, r) {
				t.Errorf("unexpected character %q in verifier", r)
			}
		}
	})

	t.Run("maps bytes modulo alphabet", func(t *testing.T) {
		buf := make([]byte, VerifierLength)
		for i := range buf {
			buf[i] = byte(i)
		}
		buf[0] = 62
		buf[1] = 255

		v, err := GenerateVerifier(bytes.NewReader(buf))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if v[0] != 'A' {
			t.Errorf("expected byte 62 to wrap to A, got %c", v[0])
		}
		if v[1] != verifierAlphabet[255%62] {
			t.Errorf("expected %c, got %c", verifierAlphabet[255%62], v[1])
		}
		if v[2] != 'C' || v[61] != '9' {
			t.Errorf("unexpected mapping %q", v)
		}
	})

	t.Run("short reader", func(t *testing.T) {
		if _, err := GenerateVerifier(bytes.NewReader([]byte{1, 2, 3})); err == nil {
			t.Error("expected error for short random source")
		}
	})
}

func TestChallenge(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	sum := sha256.Sum256([]byte(verifier))
	expected := base64.RawURLEncoding.EncodeToString(sum[:])

	got := Challenge(verifier)
	if got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
	if got != "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM" {
		t.Errorf("expected RFC 7636 example challenge, got %s", got)
	}
	if strings.ContainsAny(got, "=+/") {
		t.Errorf("expected unpadded url-safe encoding, got %s", got)
	}
}
