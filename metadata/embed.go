package metadata

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"

	"encypher.dev/encypher/manifest"
	"encypher.dev/encypher/payload"
	"encypher.dev/encypher/signing"
	"encypher.dev/encypher/target"
	"encypher.dev/encypher/vscodec"
)

// EmbedOptions controls one embedding call. Timestamp is mandatory; there is
// deliberately no implicit "now" for signed payloads.
type EmbedOptions struct {
	// Format selects the payload family. Empty means payload.FormatManifest.
	Format payload.Format

	// Timestamp accepts an ISO 8601 string, epoch seconds, or time.Time.
	Timestamp any

	// Target selects the embedding-target class. Zero value is whitespace.
	Target target.Kind

	// ModelID is recorded in basic payloads and under ai_info in manifests.
	ModelID string

	// CustomMetadata merges into basic payloads under "custom_metadata".
	CustomMetadata map[string]any

	// ClaimGenerator overrides the configured claim generator for this call.
	ClaimGenerator string

	// Actions, AIInfo and CustomClaims populate manifest-family payloads.
	Actions      []map[string]any
	AIInfo       map[string]any
	CustomClaims map[string]any

	// OmitKeys names payload fields to strip before signing. Mandatory
	// fields (signer_id, timestamp, format) are rejected.
	OmitKeys []string

	// DistributeAcrossTargets spreads the selector run one selector per
	// target instead of inserting it at the first target.
	DistributeAcrossTargets bool

	// SkipHardBinding drops the content-hash assertion from c2pa manifests.
	SkipHardBinding bool
}

// Embed embeds signed metadata into text using the default configuration.
func Embed(text string, priv ed25519.PrivateKey, signerID string, opts EmbedOptions) (string, error) {
	return NewConfig().Embed(text, priv, signerID, opts)
}

// Embed constructs the requested payload, signs it, serializes the outer
// envelope as canonical JSON, converts the bytes to variation selectors and
// places them into text per the placement policy.
func (c Config) Embed(text string, priv ed25519.PrivateKey, signerID string, opts EmbedOptions) (string, error) {
	if signerID == "" {
		return "", newError(KindValidation, "ENC-VAL-001", "a non-empty signer_id must be provided")
	}
	if len(priv) != ed25519.PrivateKeySize {
		return "", newError(KindValidation, "ENC-VAL-002",
			fmt.Sprintf("private key must be a %d-byte Ed25519 key, got %d bytes", ed25519.PrivateKeySize, len(priv)))
	}

	format := opts.Format
	if format == "" {
		format = payload.FormatManifest
	}
	if _, err := payload.ParseFormat(string(format)); err != nil {
		return "", wrapError(KindValidation, "ENC-VAL-003", err.Error(), err)
	}
	if err := payload.CheckOmitKeys(opts.OmitKeys); err != nil {
		return "", wrapError(KindValidation, "ENC-VAL-004", err.Error(), err)
	}
	if opts.Timestamp == nil {
		return "", newError(KindValidation, "ENC-VAL-005", "a timestamp must be provided for metadata embedding")
	}
	timestamp, err := payload.FormatTimestamp(opts.Timestamp)
	if err != nil {
		return "", wrapError(KindValidation, "ENC-VAL-005", "timestamp error: "+err.Error(), err)
	}

	c.Logger.Debug().
		Str("signer_id", signerID).
		Str("format", string(format)).
		Str("target", opts.Target.String()).
		Bool("distribute", opts.DistributeAcrossTargets).
		Msg("embedding metadata")

	if format == payload.FormatC2PA {
		return c.embedC2PA(text, priv, signerID, timestamp, opts)
	}

	payloadData := c.buildPayloadData(format, signerID, timestamp, opts)
	if len(opts.OmitKeys) > 0 {
		if err := payload.OmitKeys(payloadData, opts.OmitKeys); err != nil {
			return "", wrapError(KindValidation, "ENC-VAL-004", err.Error(), err)
		}
	}

	outer, err := c.signAndPackage(format, payloadData, priv, signerID)
	if err != nil {
		return "", err
	}
	outerBytes, err := payload.MarshalCanonicalJSON(outer)
	if err != nil {
		return "", wrapError(KindSerialization, "ENC-SER-001", "failed to serialize outer payload", err)
	}
	return c.place(text, opts.Target, outerBytes, opts.DistributeAcrossTargets)
}

// buildPayloadData assembles the inner payload mapping for the JSON, CBOR
// and JUMBF families. The manifest-family payloads declare format "manifest"
// internally even when the outer envelope is tagged cbor_manifest or jumbf.
func (c Config) buildPayloadData(format payload.Format, signerID, timestamp string, opts EmbedOptions) map[string]any {
	if format == payload.FormatBasic {
		data := map[string]any{
			"signer_id": signerID,
			"timestamp": timestamp,
			"format":    string(payload.FormatBasic),
		}
		if opts.ModelID != "" {
			data["model_id"] = opts.ModelID
		}
		if len(opts.CustomMetadata) > 0 {
			standard := map[string]bool{"signer_id": true, "timestamp": true, "format": true, "model_id": true}
			custom := make(map[string]any, len(opts.CustomMetadata))
			for k, v := range opts.CustomMetadata {
				if standard[k] {
					c.Logger.Warn().Str("key", k).Msg("custom metadata key overlaps a standard key, dropped")
					continue
				}
				custom[k] = v
			}
			data["custom_metadata"] = custom
		}
		return data
	}

	inner := map[string]any{}
	if cg := opts.ClaimGenerator; cg != "" {
		inner["claim_generator"] = cg
	}
	if len(opts.Actions) > 0 {
		actions := make([]any, len(opts.Actions))
		for i, a := range opts.Actions {
			actions[i] = a
		}
		inner["actions"] = actions
	}
	if len(opts.AIInfo) > 0 {
		inner["ai_info"] = opts.AIInfo
	}
	if len(opts.CustomClaims) > 0 {
		inner["custom_claims"] = opts.CustomClaims
	}
	if opts.ModelID != "" {
		aiInfo, ok := inner["ai_info"].(map[string]any)
		if !ok {
			aiInfo = map[string]any{}
			inner["ai_info"] = aiInfo
		}
		aiInfo["model_id"] = opts.ModelID
	}
	return map[string]any{
		"signer_id": signerID,
		"timestamp": timestamp,
		"format":    string(payload.FormatManifest),
		"manifest":  inner,
	}
}

// signAndPackage signs the payload per its format and wraps it in the outer
// envelope. JSON-family payloads sign their canonical-JSON serialization and
// travel as mappings; CBOR/JUMBF payloads sign their raw encoded bytes and
// travel base64-encoded, so verifiers replay the exact signed bytes.
func (c Config) signAndPackage(format payload.Format, payloadData map[string]any, priv ed25519.PrivateKey, signerID string) (*payload.Outer, error) {
	var toSign []byte
	var payloadForOuter any
	var err error

	switch format {
	case payload.FormatCBORManifest:
		toSign, err = payload.MarshalCBOR(payloadData)
		if err != nil {
			return nil, wrapError(KindSerialization, "ENC-SER-002", "failed to encode CBOR manifest payload", err)
		}
		payloadForOuter = base64.StdEncoding.EncodeToString(toSign)
	case payload.FormatJUMBF:
		toSign, err = payload.MarshalJUMBF(payloadData)
		if err != nil {
			return nil, wrapError(KindSerialization, "ENC-SER-003", "failed to encode JUMBF payload", err)
		}
		payloadForOuter = base64.StdEncoding.EncodeToString(toSign)
	default: // basic, manifest
		toSign, err = payload.MarshalCanonicalJSON(payloadData)
		if err != nil {
			return nil, wrapError(KindSerialization, "ENC-SER-001", "failed to serialize metadata payload", err)
		}
		payloadForOuter = payloadData
	}

	sig, err := signing.Sign(priv, toSign)
	if err != nil {
		return nil, wrapError(KindSigning, "ENC-SIG-001", "failed to sign metadata payload", err)
	}
	return &payload.Outer{
		Payload:   payloadForOuter,
		Signature: base64.RawURLEncoding.EncodeToString(sig),
		SignerID:  signerID,
		Format:    format,
	}, nil
}

// embedC2PA builds the full manifest, signs it as COSE_Sign1 and embeds the
// resulting envelope.
func (c Config) embedC2PA(text string, priv ed25519.PrivateKey, signerID, timestamp string, opts EmbedOptions) (string, error) {
	claimGen := opts.ClaimGenerator
	if claimGen == "" {
		claimGen = c.claimGenerator()
	}
	m, err := manifest.Build(manifest.BuildOptions{
		ClaimGenerator: claimGen,
		Timestamp:      timestamp,
		Actions:        opts.Actions,
		CleanText:      vscodec.Strip(text),
		AddHardBinding: !opts.SkipHardBinding,
	})
	if err != nil {
		return "", wrapError(KindInternal, "ENC-INT-001", "manifest construction failed", err)
	}
	cborBytes, err := payload.MarshalCBOR(m)
	if err != nil {
		return "", wrapError(KindSerialization, "ENC-SER-002", "failed to encode manifest CBOR", err)
	}
	coseBytes, err := signing.SignCOSE(priv, cborBytes)
	if err != nil {
		return "", wrapError(KindSigning, "ENC-SIG-002", "failed to produce COSE_Sign1 envelope", err)
	}

	outer := &payload.Outer{
		CoseSign1: base64.StdEncoding.EncodeToString(coseBytes),
		SignerID:  signerID,
		Format:    payload.FormatC2PA,
	}
	outerBytes, err := payload.MarshalCanonicalJSON(outer)
	if err != nil {
		return "", wrapError(KindSerialization, "ENC-SER-001", "failed to serialize outer payload", err)
	}
	return c.place(text, opts.Target, outerBytes, opts.DistributeAcrossTargets)
}

// place converts envelope bytes into selector runes and inserts them at the
// chosen targets. Single-point placement puts the whole run after the first
// target character; distributed placement anchors one selector after each
// consecutive target.
func (c Config) place(text string, kind target.Kind, envelope []byte, distribute bool) (string, error) {
	selectors := vscodec.BytesToSelectors(envelope)
	if len(selectors) == 0 {
		return text, nil
	}

	indices := target.FindIndices(text, kind)
	c.Logger.Debug().
		Str("target", kind.String()).
		Int("targets_found", len(indices)).
		Int("selectors", len(selectors)).
		Msg("placing selector run")

	if len(indices) == 0 {
		return "", newError(KindInsufficientTargets, "ENC-TGT-001",
			fmt.Sprintf("no suitable targets found in text using target %q: need at least one target to embed metadata of length %d (required 1, found 0)",
				kind, len(selectors)))
	}

	runes := []rune(text)
	if !distribute {
		idx := indices[0]
		var sb strings.Builder
		sb.WriteString(string(runes[:idx+1]))
		sb.WriteString(string(selectors))
		sb.WriteString(string(runes[idx+1:]))
		return sb.String(), nil
	}

	if len(indices) < len(selectors) {
		return "", newError(KindInsufficientTargets, "ENC-TGT-002",
			fmt.Sprintf("not enough targets (%d) found in text to embed metadata of length %d using target %q: required %d",
				len(indices), len(selectors), kind, len(selectors)))
	}
	var sb strings.Builder
	last := 0
	for i, idx := range indices {
		if i >= len(selectors) {
			break
		}
		sb.WriteString(string(runes[last : idx+1]))
		sb.WriteRune(selectors[i])
		last = idx + 1
	}
	sb.WriteString(string(runes[last:]))
	return sb.String(), nil
}
