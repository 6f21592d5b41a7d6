package payload

import (
	"bytes"
	"testing"
)

func TestCBORDeterministicAcrossInsertionOrder(t *testing.T) {
	a := map[string]any{"x": "1", "aa": map[string]any{"k": "v", "a": "b"}, "b": []any{"p", "q"}}
	b := map[string]any{"b": []any{"p", "q"}, "aa": map[string]any{"a": "b", "k": "v"}, "x": "1"}
	ab, err := MarshalCBOR(a)
	if err != nil {
		t.Fatalf("marshal a: %v", err)
	}
	bb, err := MarshalCBOR(b)
	if err != nil {
		t.Fatalf("marshal b: %v", err)
	}
	if !bytes.Equal(ab, bb) {
		t.Fatalf("canonical CBOR differs across insertion order")
	}
}

func TestCBORRoundTripReencodesIdentically(t *testing.T) {
	// The soft-binding check re-serializes a decoded manifest; decoded and
	// built trees must canonicalize to the same bytes.
	src := map[string]any{
		"@context":    ContextURL,
		"instance_id": "706b7c2e-0a4f-4e3f-9ad2-6a2cbbdc2660",
		"assertions": []any{
			map[string]any{"label": LabelActions, "data": map[string]any{"actions": []any{}}, "kind": "Actions"},
		},
	}
	enc, err := MarshalCBOR(src)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := UnmarshalCBORMap(enc)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	re, err := MarshalCBOR(decoded)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	if !bytes.Equal(enc, re) {
		t.Fatalf("decoded manifest did not re-encode to identical bytes")
	}
}

func TestUnmarshalCBORMapRejectsNonMap(t *testing.T) {
	enc, err := MarshalCBOR([]any{"a", "b"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := UnmarshalCBORMap(enc); err == nil {
		t.Fatalf("expected non-map rejection")
	}
	if _, err := UnmarshalCBORMap([]byte{0xff, 0x00}); err == nil {
		t.Fatalf("expected malformed CBOR rejection")
	}
}
