package texthash

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestNormalizeTextNFC(t *testing.T) {
	// e + combining acute composes to the precomposed form.
	decomposed := "café"
	composed := "café"
	if NormalizeText(decomposed) != composed {
		t.Fatal("NFC composition failed")
	}
	if NormalizeText(composed) != composed {
		t.Fatal("already-composed text must pass through")
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"a\r\nb\rc", "a\nb\nc"},
		{"a\u00a0b", "a b"},
		{"a\u2009b\u200ac", "a b c"},
		{"a  \t  b", "a b"},
		{"  a  \n  b  ", "a\nb"},
		{"\n\ntext\n\n", "text"},
		{"line one\nline  two", "line one\nline two"},
	}
	for _, tc := range cases {
		if got := NormalizeWhitespace(tc.in); got != tc.want {
			t.Errorf("NormalizeWhitespace(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestComputeNormalizedHashDefault(t *testing.T) {
	res, err := ComputeNormalizedHash("hello", nil, "")
	if err != nil {
		t.Fatalf("ComputeNormalizedHash: %v", err)
	}
	sum := sha256.Sum256([]byte("hello"))
	if res.HexDigest != hex.EncodeToString(sum[:]) {
		t.Fatal("default algorithm must be sha256 over the normalized bytes")
	}
	if res.NormalizedText != "hello" || string(res.FilteredBytes) != "hello" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestComputeNormalizedHashEquivalentForms(t *testing.T) {
	a, err := ComputeNormalizedHash("café", nil, "sha256")
	if err != nil {
		t.Fatal(err)
	}
	b, err := ComputeNormalizedHash("café", nil, "sha256")
	if err != nil {
		t.Fatal(err)
	}
	if a.HexDigest != b.HexDigest {
		t.Fatal("NFC-equivalent inputs must hash identically")
	}
}

func TestComputeNormalizedHashExclusions(t *testing.T) {
	res, err := ComputeNormalizedHash("abcdefgh", []Exclusion{{Start: 6, Length: 2}, {Start: 2, Length: 2}}, "sha256")
	if err != nil {
		t.Fatalf("ComputeNormalizedHash: %v", err)
	}
	if res.FilteredText() != "abef" {
		t.Fatalf("exclusions must apply sorted: %q", res.FilteredText())
	}

	direct, err := ComputeNormalizedHash("abef", nil, "sha256")
	if err != nil {
		t.Fatal(err)
	}
	if res.HexDigest != direct.HexDigest {
		t.Fatal("excluded hash must equal the hash of the remaining bytes")
	}
}

func TestComputeNormalizedHashBadExclusions(t *testing.T) {
	cases := [][]Exclusion{
		{{Start: -1, Length: 2}},
		{{Start: 0, Length: -3}},
		{{Start: 0, Length: 3}, {Start: 2, Length: 2}},
		{{Start: 4, Length: 10}},
	}
	for i, exs := range cases {
		if _, err := ComputeNormalizedHash("abcdefgh", exs, "sha256"); err == nil {
			t.Errorf("case %d: expected an error", i)
		}
	}
}

func TestComputeNormalizedHashAlgorithms(t *testing.T) {
	for _, alg := range []string{"sha256", "sha512", "sha3-256", "SHA3-256"} {
		res, err := ComputeNormalizedHash("payload", nil, alg)
		if err != nil {
			t.Fatalf("%s: %v", alg, err)
		}
		if res.HexDigest == "" {
			t.Fatalf("%s: empty digest", alg)
		}
	}
	if _, err := ComputeNormalizedHash("payload", nil, "md5"); err == nil {
		t.Fatal("md5 must be rejected")
	}
}
