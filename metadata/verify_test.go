package metadata

import (
	"crypto/ed25519"
	"strings"
	"testing"

	"encypher.dev/encypher/payload"
	"encypher.dev/encypher/signing"
	"encypher.dev/encypher/vscodec"
)

func resolverFor(signerID string, pub ed25519.PublicKey) signing.Resolver {
	return signing.MapResolver(map[string]ed25519.PublicKey{signerID: pub})
}

func embedFor(t *testing.T, format payload.Format, text, signerID string, priv ed25519.PrivateKey) string {
	t.Helper()
	out, err := Embed(text, priv, signerID, EmbedOptions{
		Format:    format,
		Timestamp: testTimestamp,
	})
	if err != nil {
		t.Fatalf("Embed(%s): %v", format, err)
	}
	return out
}

func TestVerifyRoundTripAllFormats(t *testing.T) {
	pub, priv := mustKeypair(t, 5)
	resolve := resolverFor("signer-a", pub)

	for _, format := range payload.KnownFormats {
		t.Run(string(format), func(t *testing.T) {
			out := embedFor(t, format, "Hello world, this is a test.", "signer-a", priv)
			res := Verify(out, resolve, VerifyOptions{})
			if !res.Valid {
				t.Fatal("verification failed")
			}
			if res.SignerID != "signer-a" {
				t.Fatalf("wrong signer: %s", res.SignerID)
			}
			if res.Payload == nil {
				t.Fatal("verified result must carry the payload")
			}
		})
	}
}

func TestVerifyWrongKey(t *testing.T) {
	_, priv := mustKeypair(t, 5)
	otherPub, _ := mustKeypair(t, 6)

	out := embedFor(t, payload.FormatBasic, "Hello world", "signer-a", priv)
	res := Verify(out, resolverFor("signer-a", otherPub), VerifyOptions{})
	if res.Valid {
		t.Fatal("wrong key must not verify")
	}
	if res.SignerID != "signer-a" {
		t.Fatalf("signer must still be reported: %q", res.SignerID)
	}
	if res.Payload != nil {
		t.Fatal("payload must be withheld on failure by default")
	}

	res = Verify(out, resolverFor("signer-a", otherPub), VerifyOptions{ReturnPayloadOnFailure: true})
	if res.Valid {
		t.Fatal("wrong key must not verify")
	}
	if res.Payload == nil {
		t.Fatal("payload disclosure was requested")
	}
}

func TestVerifyResolverMiss(t *testing.T) {
	_, priv := mustKeypair(t, 5)
	out := embedFor(t, payload.FormatManifest, "Hello world", "signer-a", priv)

	res := Verify(out, resolverFor("someone-else", nil), VerifyOptions{})
	if res.Valid {
		t.Fatal("unknown signer must not verify")
	}
	if res.SignerID != "signer-a" {
		t.Fatalf("signer must be reported even without a key: %q", res.SignerID)
	}

	res = Verify(out, nil, VerifyOptions{})
	if res.Valid || res.SignerID != "signer-a" {
		t.Fatalf("nil resolver handled wrong: %+v", res)
	}
}

func TestVerifyPlainText(t *testing.T) {
	res := Verify("Just ordinary text with no embedded data.", nil, VerifyOptions{})
	if res.Valid || res.SignerID != "" || res.Payload != nil {
		t.Fatalf("plain text must be unverifiable: %+v", res)
	}
	if res := Verify("", nil, VerifyOptions{}); res.Valid {
		t.Fatal("empty text must be unverifiable")
	}
}

func TestVerifyCorruptEnvelope(t *testing.T) {
	// A selector run that decodes to bytes but not to a valid envelope
	// must be rejected without panicking.
	junk := "Hello" + string(vscodec.BytesToSelectors([]byte("not json at all"))) + " world"
	res := Verify(junk, nil, VerifyOptions{})
	if res.Valid || res.SignerID != "" {
		t.Fatalf("corrupt envelope must be unverifiable: %+v", res)
	}
}

func TestVerifyTamperedSelectorRun(t *testing.T) {
	pub, priv := mustKeypair(t, 7)
	out := embedFor(t, payload.FormatBasic, "Hello world", "signer-a", priv)

	// Drop one selector from the middle of the run.
	runes := []rune(out)
	for i, r := range runes {
		if vscodec.IsSelector(r) {
			runes = append(runes[:i+3], runes[i+4:]...)
			break
		}
	}
	res := Verify(string(runes), resolverFor("signer-a", pub), VerifyOptions{})
	if res.Valid {
		t.Fatal("mutilated selector run must not verify")
	}
}

func TestVerifyC2PATamperedText(t *testing.T) {
	pub, priv := mustKeypair(t, 8)
	out := embedFor(t, payload.FormatC2PA, "The original sentence.", "signer-a", priv)

	// Flip one visible character. The signature still checks out but the
	// hard binding must catch the edit.
	tampered := strings.Replace(out, "original", "0riginal", 1)
	res := Verify(tampered, resolverFor("signer-a", pub), VerifyOptions{})
	if res.Valid {
		t.Fatal("tampered text must not verify")
	}
	if res.SignerID != "signer-a" {
		t.Fatalf("signer must still be reported: %q", res.SignerID)
	}
	if res.Payload == nil {
		t.Fatal("manifest must be attached after a successful signature check")
	}

	// Ignoring the hard binding accepts the edit.
	res = Verify(tampered, resolverFor("signer-a", pub), VerifyOptions{SkipHardBinding: true})
	if !res.Valid {
		t.Fatal("verification with SkipHardBinding should pass")
	}
}

func TestVerifyC2PAStrippedText(t *testing.T) {
	pub, priv := mustKeypair(t, 8)
	out := embedFor(t, payload.FormatC2PA, "Hello world", "signer-a", priv)

	res := Verify(vscodec.Strip(out), resolverFor("signer-a", pub), VerifyOptions{})
	if res.Valid || res.SignerID != "" {
		t.Fatalf("stripped text must carry nothing to verify: %+v", res)
	}
}

func TestVerifyC2PAManifestShape(t *testing.T) {
	pub, priv := mustKeypair(t, 9)
	out := embedFor(t, payload.FormatC2PA, "Hello world", "signer-a", priv)

	res := Verify(out, resolverFor("signer-a", pub), VerifyOptions{})
	if !res.Valid {
		t.Fatal("verification failed")
	}
	if res.Payload["@context"] != payload.ContextURL {
		t.Fatalf("wrong @context: %v", res.Payload["@context"])
	}
	if res.Payload["instance_id"] == "" {
		t.Fatal("manifest must carry an instance_id")
	}
	assertions, _ := res.Payload["assertions"].([]any)
	if len(assertions) < 3 {
		t.Fatalf("expected actions, content hash and soft binding assertions, got %d", len(assertions))
	}
}

func TestVerifyC2PAUnknownSignerDiscloses(t *testing.T) {
	_, priv := mustKeypair(t, 9)
	out := embedFor(t, payload.FormatC2PA, "Hello world", "signer-a", priv)

	res := Verify(out, nil, VerifyOptions{ReturnPayloadOnFailure: true})
	if res.Valid {
		t.Fatal("must not verify without a key")
	}
	if res.Payload == nil {
		t.Fatal("unverified manifest disclosure was requested")
	}
	if res.Payload["@context"] != payload.ContextURL {
		t.Fatalf("disclosed payload is not the manifest: %v", res.Payload)
	}
}

func TestVerifyEmbeddedAndOriginalTextMatch(t *testing.T) {
	pub, priv := mustKeypair(t, 10)
	for _, format := range []payload.Format{payload.FormatCBORManifest, payload.FormatJUMBF} {
		out := embedFor(t, format, "Stable across encodings.", "signer-a", priv)
		res := Verify(out, resolverFor("signer-a", pub), VerifyOptions{})
		if !res.Valid {
			t.Fatalf("%s round trip failed", format)
		}
		// The decoded payload is the inner manifest dictionary.
		if format == payload.FormatCBORManifest {
			if _, ok := res.Payload["claim_generator"]; ok {
				// Optional field; presence is fine but the map must at
				// least be a plain mapping.
			}
		}
	}
}
