// Package streaming embeds signed metadata into chunked text, such as the
// incremental output of a language model. Chunks are held back until the
// accumulated text contains a suitable embedding target, then the whole
// accumulation is emitted with the metadata in place and later chunks pass
// through untouched.
package streaming

import (
	"crypto/ed25519"
	"strings"
	"time"

	"encypher.dev/encypher/metadata"
	"encypher.dev/encypher/payload"
	"encypher.dev/encypher/target"
)

// Options configures a Handler. Only the basic and manifest formats are
// supported; the binary formats need the full text up front.
type Options struct {
	// Format selects basic or manifest. Empty means basic.
	Format payload.Format

	// Target selects the embedding-target class. Zero value is whitespace.
	Target target.Kind

	// Timestamp is optional here; the stream start time is used when unset.
	Timestamp any

	ModelID        string
	CustomMetadata map[string]any
	Actions        []map[string]any
	AIInfo         map[string]any
	CustomClaims   map[string]any
}

// Handler embeds metadata exactly once into a stream of text chunks. It is
// a single mutable accumulator and must not be shared across goroutines.
type Handler struct {
	cfg      metadata.Config
	priv     ed25519.PrivateKey
	signerID string
	opts     Options

	encoded bool
	buf     strings.Builder
}

// New validates the configuration and returns a fresh Handler.
func New(cfg metadata.Config, priv ed25519.PrivateKey, signerID string, opts Options) (*Handler, error) {
	if opts.Format == "" {
		opts.Format = payload.FormatBasic
	}
	if opts.Format != payload.FormatBasic && opts.Format != payload.FormatManifest {
		return nil, metadata.NewValidationError("ENC-VAL-006",
			"streaming supports only the basic and manifest formats, got "+string(opts.Format))
	}
	if opts.Timestamp == nil {
		opts.Timestamp = time.Now().UTC()
	}
	// Fail on bad keys and signer IDs at construction, not mid-stream.
	if signerID == "" {
		return nil, metadata.NewValidationError("ENC-VAL-001", "a non-empty signer_id must be provided")
	}
	if len(priv) != ed25519.PrivateKeySize {
		return nil, metadata.NewValidationError("ENC-VAL-002", "private key must be a 64-byte Ed25519 key")
	}
	return &Handler{cfg: cfg, priv: priv, signerID: signerID, opts: opts}, nil
}

// ProcessChunk consumes one chunk and returns the text to emit for it.
// While the accumulation lacks a target the return is empty; the chunk that
// completes a target yields the entire accumulation with metadata embedded.
// After embedding, chunks pass through unchanged.
func (h *Handler) ProcessChunk(chunk string) (string, error) {
	if h.encoded {
		return chunk, nil
	}
	h.buf.WriteString(chunk)
	text := h.buf.String()
	if len(target.FindIndices(text, h.opts.Target)) == 0 {
		h.cfg.Logger.Debug().Int("accumulated", len(text)).Msg("holding chunk, no embedding target yet")
		return "", nil
	}
	out, err := h.embed(text)
	if err != nil {
		return "", err
	}
	return out, nil
}

// Finalize flushes whatever is still accumulated. When the leftover text
// carries a target it is returned with metadata embedded; otherwise it is
// returned as is, with the embedding error.
func (h *Handler) Finalize() (string, error) {
	text := h.buf.String()
	if h.encoded || text == "" {
		h.buf.Reset()
		return "", nil
	}
	out, err := h.embed(text)
	if err != nil {
		h.cfg.Logger.Warn().Err(err).Msg("could not embed metadata into remaining stream text")
		h.buf.Reset()
		return text, err
	}
	return out, nil
}

// Reset clears all state so the Handler can serve a new stream.
func (h *Handler) Reset() {
	h.encoded = false
	h.buf.Reset()
}

func (h *Handler) embed(text string) (string, error) {
	out, err := h.cfg.Embed(text, h.priv, h.signerID, metadata.EmbedOptions{
		Format:         h.opts.Format,
		Timestamp:      h.opts.Timestamp,
		Target:         h.opts.Target,
		ModelID:        h.opts.ModelID,
		CustomMetadata: h.opts.CustomMetadata,
		Actions:        h.opts.Actions,
		AIInfo:         h.opts.AIInfo,
		CustomClaims:   h.opts.CustomClaims,
	})
	if err != nil {
		return "", err
	}
	h.encoded = true
	h.buf.Reset()
	return out, nil
}
