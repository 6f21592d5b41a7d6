package metadata

import (
	"encypher.dev/encypher/contentid"
	"encypher.dev/encypher/payload"
	"encypher.dev/encypher/vscodec"
)

// Inspection describes embedded metadata without verifying it. ContentCID
// identifies the visible text and ManifestCID the raw envelope bytes; both
// are CIDv1 strings.
type Inspection struct {
	Format      payload.Format
	SignerID    string
	Payload     map[string]any
	ContentCID  string
	ManifestCID string
}

// ExtractMetadata returns the embedded payload without checking any
// signature. The second return is false when the text carries no decodable
// envelope. Callers must not treat extracted data as trustworthy.
func ExtractMetadata(text string) (map[string]any, bool) {
	b := vscodec.ExtractBytes(text)
	if len(b) == 0 {
		return nil, false
	}
	outer, err := payload.DecodeOuter(b)
	if err != nil {
		return nil, false
	}
	if m, ok := outer.Payload.(map[string]any); ok {
		return m, true
	}
	// Envelope parsed but the payload is opaque (encoded CBOR, JUMBF or
	// COSE). Surface the envelope fields themselves.
	return map[string]any{
		"signer_id": outer.SignerID,
		"format":    string(outer.Format),
	}, true
}

// Inspect reports the embedded envelope alongside content identifiers for
// the text and the envelope bytes. No signature is checked.
func (c Config) Inspect(text string) (Inspection, bool) {
	b := vscodec.ExtractBytes(text)
	if len(b) == 0 {
		return Inspection{}, false
	}
	outer, err := payload.DecodeOuter(b)
	if err != nil {
		c.Logger.Debug().Err(err).Msg("embedded bytes did not parse as an outer envelope")
		return Inspection{}, false
	}
	ins := Inspection{
		Format:      outer.Format,
		SignerID:    outer.SignerID,
		ContentCID:  contentid.ForText(text),
		ManifestCID: contentid.ForBytes(b),
	}
	if m, ok := outer.Payload.(map[string]any); ok {
		ins.Payload = m
	}
	return ins, true
}
