package metadata

import (
	"crypto/ed25519"
	"encoding/base64"
	"strings"

	"encypher.dev/encypher/manifest"
	"encypher.dev/encypher/payload"
	"encypher.dev/encypher/signing"
	"encypher.dev/encypher/vscodec"
)

// VerifyOptions controls one verification call.
type VerifyOptions struct {
	// ReturnPayloadOnFailure attaches the best-effort decoded (but
	// unverified) payload to failing results for inspection.
	ReturnPayloadOnFailure bool

	// SkipHardBinding drops the content-hash requirement when validating
	// c2pa manifests.
	SkipHardBinding bool
}

// Result is the verification triple. SignerID is populated whenever the
// outer envelope parsed, even on failure; Payload is attached on success,
// and on failure only when requested.
type Result struct {
	Valid    bool
	SignerID string
	Payload  map[string]any
}

// Verify checks embedded metadata using the default configuration.
func Verify(text string, resolve signing.Resolver, opts VerifyOptions) Result {
	return NewConfig().Verify(text, resolve, opts)
}

// Verify extracts the embedded envelope from text, dispatches on its format
// and checks signatures and bindings. Failures are reported in the Result;
// arbitrary untrusted text never causes an error or panic.
func (c Config) Verify(text string, resolve signing.Resolver, opts VerifyOptions) Result {
	if text == "" {
		return Result{}
	}

	outerBytes := vscodec.ExtractBytes(text)
	if len(outerBytes) == 0 {
		c.Logger.Debug().Msg("no variation-selector bytes found in text")
		return Result{}
	}
	c.Logger.Debug().Int("bytes", len(outerBytes)).Msg("extracted embedded envelope bytes")

	outer, err := payload.DecodeOuter(outerBytes)
	if err != nil {
		c.Logger.Debug().Err(err).Msg("embedded bytes did not parse as an outer envelope")
		return Result{}
	}

	switch outer.Format {
	case payload.FormatC2PA:
		return c.verifyC2PA(vscodec.Strip(text), outer, resolve, opts)
	case payload.FormatBasic, payload.FormatManifest:
		return c.verifyJSONFormat(outer, resolve, opts)
	case payload.FormatCBORManifest:
		return c.verifyCBORManifest(outer, resolve, opts)
	case payload.FormatJUMBF:
		return c.verifyJUMBF(outer, resolve, opts)
	default:
		c.Logger.Warn().Str("format", string(outer.Format)).Msg("unknown payload format")
		res := Result{SignerID: outer.SignerID}
		if opts.ReturnPayloadOnFailure {
			if m, ok := outer.Payload.(map[string]any); ok {
				res.Payload = m
			}
		}
		return res
	}
}

// resolveKey applies the resolver contract: nil resolvers, errors, missing
// keys and wrong-size keys all count as "key not found".
func (c Config) resolveKey(resolve signing.Resolver, signerID string) (ed25519.PublicKey, bool) {
	if resolve == nil {
		c.Logger.Warn().Str("signer_id", signerID).Msg("no public key resolver supplied")
		return nil, false
	}
	pub, err := resolve(signerID)
	if err != nil {
		c.Logger.Warn().Err(err).Str("signer_id", signerID).Msg("public key resolver failed")
		return nil, false
	}
	if len(pub) != ed25519.PublicKeySize {
		c.Logger.Warn().Str("signer_id", signerID).Int("key_len", len(pub)).Msg("resolver returned non-Ed25519 key material")
		return nil, false
	}
	return pub, true
}

// decodeSignature accepts base64url with or without padding; embedded
// signatures travel unpadded, but padded forms are repaired rather than
// rejected.
func decodeSignature(s string) ([]byte, error) {
	if strings.Contains(s, "=") {
		return base64.URLEncoding.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}

func (c Config) verifyJSONFormat(outer *payload.Outer, resolve signing.Resolver, opts VerifyOptions) Result {
	signerID := outer.SignerID
	inner, ok := outer.Payload.(map[string]any)
	if !ok {
		c.Logger.Warn().Str("format", string(outer.Format)).Msg("JSON-format payload is not a mapping")
		return Result{SignerID: signerID}
	}
	onFailure := func() Result {
		res := Result{SignerID: signerID}
		if opts.ReturnPayloadOnFailure {
			res.Payload = inner
		}
		return res
	}

	pub, found := c.resolveKey(resolve, signerID)
	if !found {
		return onFailure()
	}

	toVerify, err := payload.MarshalCanonicalJSON(inner)
	if err != nil {
		c.Logger.Warn().Err(err).Msg("failed to re-serialize payload for verification")
		return onFailure()
	}
	sig, err := decodeSignature(outer.Signature)
	if err != nil {
		c.Logger.Warn().Err(err).Str("signer_id", signerID).Msg("signature is not valid base64url")
		return onFailure()
	}
	if err := signing.Verify(pub, toVerify, sig); err != nil {
		c.Logger.Warn().Err(err).Str("signer_id", signerID).Str("format", string(outer.Format)).Msg("signature verification failed")
		return onFailure()
	}
	return Result{Valid: true, SignerID: signerID, Payload: inner}
}

// verifyCBORManifest verifies the signature over the exact CBOR bytes
// carried in the envelope; re-encoding a decoded structure would not be
// byte-stable across implementations, so the original bytes are replayed.
func (c Config) verifyCBORManifest(outer *payload.Outer, resolve signing.Resolver, opts VerifyOptions) Result {
	signerID := outer.SignerID
	b64, ok := outer.Payload.(string)
	if !ok {
		c.Logger.Warn().Msg("cbor_manifest payload must be a base64 string")
		return Result{SignerID: signerID}
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		c.Logger.Warn().Err(err).Msg("cbor_manifest payload is not valid base64")
		return Result{SignerID: signerID}
	}
	decoded, err := payload.UnmarshalCBORMap(raw)
	if err != nil {
		c.Logger.Warn().Err(err).Msg("failed to decode CBOR manifest payload")
		return Result{SignerID: signerID}
	}
	inner := decoded
	if m, ok := decoded["manifest"].(map[string]any); ok {
		inner = m
	}
	onFailure := func() Result {
		res := Result{SignerID: signerID}
		if opts.ReturnPayloadOnFailure {
			res.Payload = inner
		}
		return res
	}

	pub, found := c.resolveKey(resolve, signerID)
	if !found {
		return onFailure()
	}
	sig, err := decodeSignature(outer.Signature)
	if err != nil {
		c.Logger.Warn().Err(err).Msg("signature is not valid base64url")
		return onFailure()
	}
	if err := signing.Verify(pub, raw, sig); err != nil {
		c.Logger.Warn().Err(err).Str("signer_id", signerID).Msg("cbor_manifest signature verification failed")
		return onFailure()
	}
	return Result{Valid: true, SignerID: signerID, Payload: inner}
}

func (c Config) verifyJUMBF(outer *payload.Outer, resolve signing.Resolver, opts VerifyOptions) Result {
	signerID := outer.SignerID
	b64, ok := outer.Payload.(string)
	if !ok {
		c.Logger.Warn().Msg("jumbf payload must be a base64 string")
		return Result{SignerID: signerID}
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		c.Logger.Warn().Err(err).Msg("jumbf payload is not valid base64")
		return Result{SignerID: signerID}
	}
	inner, err := payload.UnmarshalJUMBF(raw)
	if err != nil {
		c.Logger.Warn().Err(err).Msg("failed to decode JUMBF payload")
		return Result{SignerID: signerID}
	}
	onFailure := func() Result {
		res := Result{SignerID: signerID}
		if opts.ReturnPayloadOnFailure {
			res.Payload = inner
		}
		return res
	}

	pub, found := c.resolveKey(resolve, signerID)
	if !found {
		return onFailure()
	}
	sig, err := decodeSignature(outer.Signature)
	if err != nil {
		c.Logger.Warn().Err(err).Msg("signature is not valid base64url")
		return onFailure()
	}
	if err := signing.Verify(pub, raw, sig); err != nil {
		c.Logger.Warn().Err(err).Str("signer_id", signerID).Msg("jumbf signature verification failed")
		return onFailure()
	}
	return Result{Valid: true, SignerID: signerID, Payload: inner}
}

// verifyC2PA checks the COSE_Sign1 signature, then validates the manifest
// content: context URL, required assertions, soft binding recomputation and
// the hard binding over the selector-stripped text. After a successful
// signature check the manifest is attached to failing results
// unconditionally so callers can see what was rejected.
func (c Config) verifyC2PA(clean string, outer *payload.Outer, resolve signing.Resolver, opts VerifyOptions) Result {
	signerID := outer.SignerID

	coseBytes, err := base64.StdEncoding.DecodeString(outer.CoseSign1)
	if err != nil {
		c.Logger.Warn().Err(err).Msg("cose_sign1 is not valid base64")
		return Result{SignerID: signerID}
	}

	// Best-effort disclosure: when the signature cannot be checked, the
	// decoded manifest may still be returned unverified for inspection.
	disclose := func() Result {
		res := Result{SignerID: signerID}
		if !opts.ReturnPayloadOnFailure {
			return res
		}
		raw, ok := signing.ExtractUnverifiedPayload(coseBytes)
		if !ok {
			return res
		}
		if m, err := payload.UnmarshalCBORMap(raw); err == nil {
			res.Payload = m
		}
		return res
	}

	pub, found := c.resolveKey(resolve, signerID)
	if !found {
		return disclose()
	}

	cborPayload, err := signing.VerifyCOSE(pub, coseBytes)
	if err != nil {
		c.Logger.Warn().Err(err).Str("signer_id", signerID).Msg("COSE_Sign1 verification failed")
		return disclose()
	}
	m, err := payload.UnmarshalCBORMap(cborPayload)
	if err != nil {
		c.Logger.Warn().Err(err).Msg("COSE payload did not decode as a manifest")
		return disclose()
	}

	invalid := func() Result { return Result{SignerID: signerID, Payload: m} }

	if ctx, _ := m["@context"].(string); ctx != payload.ContextURL {
		c.Logger.Warn().Str("context", ctx).Msg("manifest @context mismatch")
		return invalid()
	}

	labels := manifest.AssertionLabels(m)
	required := []string{payload.LabelActions, payload.LabelSoftBinding}
	if !opts.SkipHardBinding {
		required = append(required, payload.LabelContentHash)
	}
	for _, label := range required {
		if !labels[label] {
			c.Logger.Warn().Str("assertion", label).Msg("manifest missing required assertion")
			return invalid()
		}
	}

	soft := manifest.FindAssertion(m, payload.LabelSoftBinding)
	softData, _ := soft["data"].(map[string]any)
	expectedSoft, _ := softData["hash"].(string)
	actualSoft, err := manifest.SoftBindingHash(m)
	if err != nil {
		c.Logger.Warn().Err(err).Msg("soft binding recomputation failed")
		return invalid()
	}
	if expectedSoft != actualSoft {
		c.Logger.Warn().
			Str("expected", expectedSoft).
			Str("actual", actualSoft).
			Msg("soft binding hash mismatch")
		return invalid()
	}

	if !opts.SkipHardBinding {
		hard := manifest.FindAssertion(m, payload.LabelContentHash)
		hardData, _ := hard["data"].(map[string]any)
		expectedHard, _ := hardData["hash"].(string)
		actualHard := manifest.HashText(clean)
		if expectedHard != actualHard {
			c.Logger.Warn().
				Str("expected", expectedHard).
				Str("actual", actualHard).
				Msg("hard binding hash mismatch: text may have been tampered with")
			return invalid()
		}
	}

	c.Logger.Debug().Str("signer_id", signerID).Msg("c2pa manifest verified")
	return Result{Valid: true, SignerID: signerID, Payload: m}
}
