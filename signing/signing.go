// Package signing wraps the Ed25519 and COSE_Sign1 primitives consumed by the
// embedding and verification flows. Only Ed25519 keys are accepted; any other
// key material is rejected before reaching the cryptographic layer.
package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/veraison/go-cose"
)

// ErrInvalidSignature reports a cryptographically rejected signature, as
// opposed to malformed input.
var ErrInvalidSignature = errors.New("signature did not verify")

func checkPrivateKey(priv ed25519.PrivateKey) error {
	if l := len(priv); l != ed25519.PrivateKeySize {
		return fmt.Errorf("ed25519 private key must be %d bytes, got %d", ed25519.PrivateKeySize, l)
	}
	return nil
}

func checkPublicKey(pub ed25519.PublicKey) error {
	if l := len(pub); l != ed25519.PublicKeySize {
		return fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, l)
	}
	return nil
}

// Sign produces a 64-byte raw Ed25519 signature over message.
func Sign(priv ed25519.PrivateKey, message []byte) ([]byte, error) {
	if err := checkPrivateKey(priv); err != nil {
		return nil, err
	}
	return ed25519.Sign(priv, message), nil
}

// Verify checks a raw Ed25519 signature. ErrInvalidSignature is returned when
// the signature does not match; malformed keys or signatures get their own
// errors.
func Verify(pub ed25519.PublicKey, message, sig []byte) error {
	if err := checkPublicKey(pub); err != nil {
		return err
	}
	if l := len(sig); l != ed25519.SignatureSize {
		return fmt.Errorf("ed25519 signature must be %d bytes, got %d", ed25519.SignatureSize, l)
	}
	if !ed25519.Verify(pub, message, sig) {
		return ErrInvalidSignature
	}
	return nil
}

// SignCOSE wraps cborPayload in a COSE_Sign1 envelope signed with EdDSA.
func SignCOSE(priv ed25519.PrivateKey, cborPayload []byte) ([]byte, error) {
	if err := checkPrivateKey(priv); err != nil {
		return nil, err
	}
	signer, err := cose.NewSigner(cose.AlgorithmEdDSA, priv)
	if err != nil {
		return nil, fmt.Errorf("create COSE signer: %w", err)
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmEdDSA)
	msg.Payload = cborPayload
	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("COSE_Sign1 signing: %w", err)
	}
	out, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("encode COSE_Sign1: %w", err)
	}
	return out, nil
}

// VerifyCOSE checks a COSE_Sign1 envelope and returns its embedded CBOR
// payload. Cryptographic rejection surfaces as ErrInvalidSignature.
func VerifyCOSE(pub ed25519.PublicKey, coseBytes []byte) ([]byte, error) {
	if err := checkPublicKey(pub); err != nil {
		return nil, err
	}
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(coseBytes); err != nil {
		return nil, fmt.Errorf("decode COSE_Sign1: %w", err)
	}
	verifier, err := cose.NewVerifier(cose.AlgorithmEdDSA, pub)
	if err != nil {
		return nil, fmt.Errorf("create COSE verifier: %w", err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return msg.Payload, nil
}

// ExtractUnverifiedPayload decodes a COSE_Sign1 envelope without checking the
// signature and returns the carried payload bytes. Used for best-effort
// disclosure when no key is available.
func ExtractUnverifiedPayload(coseBytes []byte) ([]byte, bool) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(coseBytes); err != nil {
		return nil, false
	}
	if msg.Payload == nil {
		return nil, false
	}
	return msg.Payload, true
}
