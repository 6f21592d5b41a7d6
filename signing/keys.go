package signing

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Resolver maps a signer id to its Ed25519 public key. A nil key or an error
// both mean "not found"; verification treats resolver failures as missing
// keys rather than crashes.
type Resolver func(signerID string) (ed25519.PublicKey, error)

// MapResolver builds a Resolver over a static signer-id registry.
func MapResolver(keys map[string]ed25519.PublicKey) Resolver {
	registry := make(map[string]ed25519.PublicKey, len(keys))
	for id, pub := range keys {
		registry[id] = pub
	}
	return func(signerID string) (ed25519.PublicKey, error) {
		pub, ok := registry[signerID]
		if !ok {
			return nil, fmt.Errorf("no public key registered for signer %q", signerID)
		}
		return pub, nil
	}
}

const issuerKeyPrefix = "ed25519:"

// IssuerKey encodes an Ed25519 public key as "ed25519:" + base64.
func IssuerKey(pub ed25519.PublicKey) (string, error) {
	if err := checkPublicKey(pub); err != nil {
		return "", err
	}
	return issuerKeyPrefix + base64.StdEncoding.EncodeToString(pub), nil
}

// ParseIssuerKey decodes an issuer-key string back to a public key.
func ParseIssuerKey(s string) (ed25519.PublicKey, error) {
	if !strings.HasPrefix(s, issuerKeyPrefix) {
		return nil, fmt.Errorf("unsupported issuer key %q", s)
	}
	b, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, issuerKeyPrefix))
	if err != nil {
		return nil, fmt.Errorf("invalid issuer key encoding: %w", err)
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, errors.New("invalid issuer key length")
	}
	return ed25519.PublicKey(b), nil
}

// DeriveSignerSeed deterministically derives a signer-specific Ed25519 seed
// from a root seed. Intended for tooling and tests that manage a family of
// signer ids from one secret.
func DeriveSignerSeed(rootSeed []byte, signerID string) ([]byte, error) {
	if len(rootSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", ed25519.SeedSize)
	}
	if signerID == "" {
		return nil, errors.New("signer id must be non-empty")
	}

	h := sha256.New()
	_, _ = h.Write(rootSeed)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("encypher-kms-lite-v1"))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("signer:"))
	_, _ = h.Write([]byte(signerID))
	sum := h.Sum(nil)

	out := make([]byte, ed25519.SeedSize)
	copy(out, sum[:ed25519.SeedSize])
	return out, nil
}
