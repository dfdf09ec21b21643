package session

import (
	"fmt"
	"io"

	"golang.org/x/oauth2"
)

const (
	verifierAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// VerifierLength is the number of characters in a generated code verifier.
	VerifierLength = 64
)

// GenerateVerifier maps VerifierLength random bytes from r onto the verifier alphabet.
func GenerateVerifier(r io.Reader) (string, error) {
	buf := make([]byte, VerifierLength)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	out := make([]byte, VerifierLength)
	for i, b := range buf {
		out[i] = verifierAlphabet[int(b)%len(verifierAlphabet)]
	}
	return string(out), nil
}

// Challenge is base64url(SHA-256(verifier)) without padding.
func Challenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}
