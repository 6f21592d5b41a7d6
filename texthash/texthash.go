// Package texthash computes normalized hashes over textual assets. NFC
// normalization and byte-range exclusions follow the C2PA text manifest
// rules so embedding and verification sides produce identical digests.
package texthash

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/crypto/sha3"
	"golang.org/x/text/unicode/norm"
)

// Result carries the intermediate and final products of a normalized hash.
type Result struct {
	// NormalizedText is the NFC form of the input.
	NormalizedText string
	// NormalizedBytes is the UTF-8 encoding of NormalizedText, before
	// exclusions.
	NormalizedBytes []byte
	// FilteredBytes is what remains after removing the exclusion ranges.
	FilteredBytes []byte
	// HexDigest is the hex digest of FilteredBytes.
	HexDigest string
}

// FilteredText returns the post-exclusion bytes as a string.
func (r Result) FilteredText() string {
	return string(r.FilteredBytes)
}

// Exclusion is a byte range within the normalized UTF-8 data that is
// removed before hashing.
type Exclusion struct {
	Start  int
	Length int
}

// NormalizeText applies Unicode Normalization Form C. Whitespace is left
// alone; callers wanting whitespace canonicalization apply
// NormalizeWhitespace before signing.
func NormalizeText(text string) string {
	return norm.NFC.String(text)
}

// NormalizeWhitespace canonicalizes whitespace so text from different
// sources compares equal. It is a pre-processing step applied before
// signing, not part of the hash computation itself. Line endings become
// \n, Unicode spaces become ASCII spaces, horizontal runs collapse to one
// space, each line is trimmed and trailing newlines are dropped.
func NormalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		var b strings.Builder
		inRun := false
		for _, r := range line {
			if unicode.IsSpace(r) {
				if !inRun {
					b.WriteByte(' ')
					inRun = true
				}
				continue
			}
			inRun = false
			b.WriteRune(r)
		}
		lines[i] = strings.TrimSpace(b.String())
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

func digestFor(algorithm string) (hash.Hash, error) {
	switch strings.ToLower(strings.ReplaceAll(algorithm, "-", "")) {
	case "", "sha256":
		return sha256.New(), nil
	case "sha512":
		return sha512.New(), nil
	case "sha3256":
		return sha3.New256(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algorithm)
	}
}

func applyExclusions(data []byte, exclusions []Exclusion) ([]byte, error) {
	if len(exclusions) == 0 {
		return data, nil
	}
	sorted := make([]Exclusion, len(exclusions))
	copy(sorted, exclusions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	filtered := make([]byte, 0, len(data))
	pos := 0
	for _, ex := range sorted {
		if ex.Start < 0 || ex.Length < 0 {
			return nil, fmt.Errorf("exclusion ranges must be non-negative")
		}
		end := ex.Start + ex.Length
		if ex.Start < pos {
			return nil, fmt.Errorf("exclusion ranges must be non-overlapping")
		}
		if end > len(data) {
			return nil, fmt.Errorf("exclusion range [%d,%d) exceeds normalized data length %d", ex.Start, end, len(data))
		}
		filtered = append(filtered, data[pos:ex.Start]...)
		pos = end
	}
	filtered = append(filtered, data[pos:]...)
	return filtered, nil
}

// ComputeNormalizedHash NFC-normalizes text, removes the exclusion byte
// ranges from its UTF-8 encoding and hashes what remains. Supported
// algorithms are sha256 (the default), sha512 and sha3-256.
func ComputeNormalizedHash(text string, exclusions []Exclusion, algorithm string) (Result, error) {
	h, err := digestFor(algorithm)
	if err != nil {
		return Result{}, err
	}
	normalized := NormalizeText(text)
	normalizedBytes := []byte(normalized)
	filtered, err := applyExclusions(normalizedBytes, exclusions)
	if err != nil {
		return Result{}, err
	}
	h.Write(filtered)
	return Result{
		NormalizedText:  normalized,
		NormalizedBytes: normalizedBytes,
		FilteredBytes:   filtered,
		HexDigest:       hex.EncodeToString(h.Sum(nil)),
	}, nil
}
