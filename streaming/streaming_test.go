package streaming

import (
	"crypto/ed25519"
	"strings"
	"testing"

	"encypher.dev/encypher/metadata"
	"encypher.dev/encypher/payload"
	"encypher.dev/encypher/signing"
	"encypher.dev/encypher/vscodec"
)

func mustKeypair(t *testing.T, seedByte byte) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = seedByte
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return priv.Public().(ed25519.PublicKey), priv
}

func newHandler(t *testing.T, priv ed25519.PrivateKey, opts Options) *Handler {
	t.Helper()
	h, err := New(metadata.NewConfig(), priv, "stream-signer", opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func TestHandlerHoldsChunksUntilTarget(t *testing.T) {
	pub, priv := mustKeypair(t, 1)
	h := newHandler(t, priv, Options{ModelID: "model-1"})

	out1, err := h.ProcessChunk("Hello")
	if err != nil {
		t.Fatalf("ProcessChunk: %v", err)
	}
	if out1 != "" {
		t.Fatalf("chunk without a target must be held back, got %q", out1)
	}

	out2, err := h.ProcessChunk(" world")
	if err != nil {
		t.Fatalf("ProcessChunk: %v", err)
	}
	if out2 == "" {
		t.Fatal("accumulation with a target must be emitted")
	}
	if got := vscodec.Strip(out2); got != "Hello world" {
		t.Fatalf("emitted text mismatch: %q", got)
	}

	res := metadata.Verify(out2, signing.MapResolver(map[string]ed25519.PublicKey{"stream-signer": pub}), metadata.VerifyOptions{})
	if !res.Valid {
		t.Fatal("streamed metadata did not verify")
	}
	if res.Payload["model_id"] != "model-1" {
		t.Fatalf("model_id missing from payload: %v", res.Payload)
	}
}

func TestHandlerPassThroughAfterEmbedding(t *testing.T) {
	_, priv := mustKeypair(t, 2)
	h := newHandler(t, priv, Options{})

	if _, err := h.ProcessChunk("first chunk with spaces"); err != nil {
		t.Fatalf("ProcessChunk: %v", err)
	}
	out, err := h.ProcessChunk("second chunk")
	if err != nil {
		t.Fatalf("ProcessChunk: %v", err)
	}
	if out != "second chunk" {
		t.Fatalf("later chunks must pass through unchanged, got %q", out)
	}
}

func TestHandlerNoDuplicatedText(t *testing.T) {
	_, priv := mustKeypair(t, 3)
	h := newHandler(t, priv, Options{})

	chunks := []string{"The", " quick", " brown", " fox"}
	var emitted strings.Builder
	for _, c := range chunks {
		out, err := h.ProcessChunk(c)
		if err != nil {
			t.Fatalf("ProcessChunk: %v", err)
		}
		emitted.WriteString(out)
	}
	tail, err := h.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	emitted.WriteString(tail)
	if got := vscodec.Strip(emitted.String()); got != "The quick brown fox" {
		t.Fatalf("stream output diverged from input: %q", got)
	}
}

func TestHandlerManifestFormat(t *testing.T) {
	pub, priv := mustKeypair(t, 4)
	h := newHandler(t, priv, Options{Format: payload.FormatManifest, ModelID: "model-m"})

	out, err := h.ProcessChunk("a chunk with targets")
	if err != nil {
		t.Fatalf("ProcessChunk: %v", err)
	}
	res := metadata.Verify(out, signing.MapResolver(map[string]ed25519.PublicKey{"stream-signer": pub}), metadata.VerifyOptions{})
	if !res.Valid {
		t.Fatal("streamed manifest metadata did not verify")
	}
	inner, _ := res.Payload["manifest"].(map[string]any)
	aiInfo, _ := inner["ai_info"].(map[string]any)
	if aiInfo["model_id"] != "model-m" {
		t.Fatalf("model_id missing from manifest: %v", res.Payload)
	}
}

func TestFinalizeWithoutTargetsReturnsTextAndError(t *testing.T) {
	_, priv := mustKeypair(t, 5)
	h := newHandler(t, priv, Options{})

	if _, err := h.ProcessChunk("notargets"); err != nil {
		t.Fatalf("ProcessChunk: %v", err)
	}
	out, err := h.Finalize()
	if err == nil {
		t.Fatal("expected an embedding error")
	}
	if out != "notargets" {
		t.Fatalf("leftover text must still be returned: %q", out)
	}
	if !metadata.IsKind(err, metadata.KindInsufficientTargets) {
		t.Fatalf("wrong error kind: %v", err)
	}
}

func TestFinalizeEmptyStream(t *testing.T) {
	_, priv := mustKeypair(t, 6)
	h := newHandler(t, priv, Options{})
	out, err := h.Finalize()
	if err != nil || out != "" {
		t.Fatalf("empty stream must finalize cleanly, got %q err %v", out, err)
	}
}

func TestHandlerReset(t *testing.T) {
	_, priv := mustKeypair(t, 7)
	h := newHandler(t, priv, Options{})

	if _, err := h.ProcessChunk("first stream text"); err != nil {
		t.Fatalf("ProcessChunk: %v", err)
	}
	h.Reset()
	out, err := h.ProcessChunk("second stream text")
	if err != nil {
		t.Fatalf("ProcessChunk after Reset: %v", err)
	}
	if got := vscodec.Strip(out); got != "second stream text" {
		t.Fatalf("reset handler must start a fresh accumulation: %q", got)
	}
}

func TestNewRejectsBinaryFormats(t *testing.T) {
	_, priv := mustKeypair(t, 8)
	for _, f := range []payload.Format{payload.FormatCBORManifest, payload.FormatJUMBF, payload.FormatC2PA} {
		if _, err := New(metadata.NewConfig(), priv, "s", Options{Format: f}); err == nil {
			t.Fatalf("format %s must be rejected", f)
		}
	}
}

func TestNewRejectsBadSigner(t *testing.T) {
	_, priv := mustKeypair(t, 9)
	if _, err := New(metadata.NewConfig(), priv, "", Options{}); err == nil {
		t.Fatal("empty signer must be rejected")
	}
	if _, err := New(metadata.NewConfig(), priv[:5], "s", Options{}); err == nil {
		t.Fatal("truncated key must be rejected")
	}
}
