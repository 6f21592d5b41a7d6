// Package payload defines the wire data shapes embedded into carrier text and
// their canonical serializations: sorted-key JSON, deterministic CBOR, and a
// JUMBF-style binary box.
package payload

import (
	"errors"
	"fmt"
)

// Format tags the outer envelope and selects the verification path.
type Format string

const (
	FormatBasic        Format = "basic"
	FormatManifest     Format = "manifest"
	FormatCBORManifest Format = "cbor_manifest"
	FormatJUMBF        Format = "jumbf"
	FormatC2PA         Format = "c2pa"
)

// KnownFormats lists every format accepted on the wire.
var KnownFormats = []Format{FormatBasic, FormatManifest, FormatCBORManifest, FormatJUMBF, FormatC2PA}

// ParseFormat validates a format tag against the closed set.
func ParseFormat(s string) (Format, error) {
	for _, f := range KnownFormats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown metadata format %q: must be one of %v", s, KnownFormats)
}

// Outer is the top-level embedded envelope. JSON-signed formats carry an
// inner payload plus a detached base64url signature; the c2pa format carries
// a whole COSE_Sign1 envelope instead.
type Outer struct {
	// Payload is a map for basic/manifest and a base64 string for
	// cbor_manifest/jumbf. Empty for c2pa.
	Payload any `json:"payload,omitempty"`

	// Signature is base64url without padding. Empty for c2pa.
	Signature string `json:"signature,omitempty"`

	// CoseSign1 is standard base64 of a COSE_Sign1 structure. c2pa only.
	CoseSign1 string `json:"cose_sign1,omitempty"`

	SignerID string `json:"signer_id"`
	Format   Format `json:"format"`
}

// DecodeOuter parses canonical-JSON envelope bytes and enforces the
// required-key set for the declared format.
func DecodeOuter(data []byte) (*Outer, error) {
	tree, err := decodeJSONMap(data)
	if err != nil {
		return nil, err
	}

	formatVal, _ := tree["format"].(string)
	signerID, _ := tree["signer_id"].(string)

	var required []string
	if Format(formatVal) == FormatC2PA {
		required = []string{"cose_sign1", "signer_id", "format"}
	} else {
		required = []string{"payload", "signature", "signer_id", "format"}
	}
	var missing []string
	for _, k := range required {
		if _, ok := tree[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("embedded envelope missing required keys %v", missing)
	}
	if signerID == "" {
		return nil, errors.New("embedded envelope has empty signer_id")
	}

	out := &Outer{
		SignerID: signerID,
		Format:   Format(formatVal),
	}
	if Format(formatVal) == FormatC2PA {
		cose, ok := tree["cose_sign1"].(string)
		if !ok {
			return nil, errors.New("cose_sign1 must be a base64 string")
		}
		out.CoseSign1 = cose
		return out, nil
	}
	sig, ok := tree["signature"].(string)
	if !ok {
		return nil, errors.New("signature must be a string")
	}
	out.Signature = sig
	out.Payload = tree["payload"]
	return out, nil
}

// AssertionKind classifies a C2PA assertion.
type AssertionKind string

const (
	KindActions     AssertionKind = "Actions"
	KindContentHash AssertionKind = "ContentHash"
	KindSoftBinding AssertionKind = "SoftBinding"
)

// Assertion is a single labeled claim inside a C2PA manifest.
type Assertion struct {
	Label string         `json:"label" cbor:"label"`
	Data  map[string]any `json:"data" cbor:"data"`
	Kind  AssertionKind  `json:"kind" cbor:"kind"`
}

// Well-known assertion labels and action labels.
const (
	LabelActions     = "c2pa.actions.v1"
	LabelContentHash = "c2pa.hash.data.v1"
	LabelSoftBinding = "c2pa.soft_binding.v1"

	ActionCreated     = "c2pa.created"
	ActionWatermarked = "c2pa.watermarked"
)

// ContextURL is the fixed JSON-LD context every C2PA manifest declares.
const ContextURL = "https://c2pa.org/schemas/v2.2/c2pa.jsonld"

// SoftBindingAlg names the steganographic channel the soft binding covers.
const SoftBindingAlg = "encypher.unicode_variation_selector.v1"

// DigitalSourceType is the IPTC source-type URI recorded on synthesized
// created actions.
const DigitalSourceType = "http://cv.iptc.org/newscodes/digitalsourcetype/trainedAlgorithmicMedia"

// MandatoryKeys are the payload fields that can never be omitted.
var MandatoryKeys = []string{"signer_id", "timestamp", "format"}
