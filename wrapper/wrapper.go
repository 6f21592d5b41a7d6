// Package wrapper implements the C2PA text manifest wrapper: a binary
// header plus manifest bytes, carried as a variation-selector run anchored
// by a zero-width no-break space. Unlike in-text embedding, the wrapper is
// attached at an edge of the asset and is self-delimiting.
package wrapper

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"encypher.dev/encypher/vscodec"
)

// Magic opens every wrapper header.
var Magic = [8]byte{'C', '2', 'P', 'A', 'T', 'X', 'T', 0}

// Version is the wrapper format version emitted and accepted.
const Version = 1

// Anchor is the zero-width no-break space preceding the selector run.
const Anchor = '\uFEFF'

// headerSize is magic + version byte + big-endian uint32 length.
const headerSize = 8 + 1 + 4

// ErrMultipleWrappers is returned when an asset carries more than one
// wrapper; exactly one is allowed per asset.
var ErrMultipleWrappers = errors.New("multiple text wrappers detected, exactly one per asset is allowed")

// Span is the rune range [Start, End) a wrapper occupied in the original
// text, anchor included.
type Span struct {
	Start int
	End   int
}

// Encode wraps manifest bytes in the header and returns the anchor plus
// selector run ready to attach to text.
func Encode(manifest []byte) string {
	header := make([]byte, headerSize)
	copy(header, Magic[:])
	header[8] = Version
	binary.BigEndian.PutUint32(header[9:], uint32(len(manifest)))

	var b strings.Builder
	b.WriteRune(Anchor)
	b.WriteString(vscodec.SelectorString(header))
	b.WriteString(vscodec.SelectorString(manifest))
	return b.String()
}

// Attach returns text with a wrapped manifest attached. With atEnd the
// wrapper is appended, otherwise prepended.
func Attach(text string, manifest []byte, atEnd bool) string {
	w := Encode(manifest)
	if atEnd {
		return text + w
	}
	return w + text
}

// FindAndDecode locates the wrapper in text and returns the manifest bytes,
// the NFC-normalized text with the wrapper removed, and the rune span the
// wrapper occupied. When no wrapper is present it returns (nil, normalized
// text, nil, nil). A second wrapper occurrence is an error.
func FindAndDecode(text string) ([]byte, string, *Span, error) {
	runes := []rune(text)

	span, run := findWrapperRun(runes, 0)
	if span == nil {
		return nil, norm.NFC.String(text), nil, nil
	}
	if second, _ := findWrapperRun(runes, span.End); second != nil {
		return nil, "", nil, ErrMultipleWrappers
	}

	raw := make([]byte, 0, len(run))
	for _, r := range run {
		b, ok := vscodec.FromSelector(r)
		if !ok {
			return nil, "", nil, fmt.Errorf("invalid variation selector in wrapper run")
		}
		raw = append(raw, b)
	}

	if len(raw) < headerSize {
		return nil, "", nil, fmt.Errorf("wrapper shorter than the %d-byte header", headerSize)
	}
	if [8]byte(raw[:8]) != Magic || raw[8] != Version {
		return nil, "", nil, fmt.Errorf("invalid wrapper header")
	}
	length := int(binary.BigEndian.Uint32(raw[9:headerSize]))
	if len(raw) < headerSize+length {
		return nil, "", nil, fmt.Errorf("wrapper truncated: header declares %d manifest bytes, %d present", length, len(raw)-headerSize)
	}
	manifest := raw[headerSize : headerSize+length]

	clean := norm.NFC.String(string(runes[:span.Start]) + string(runes[span.End:]))
	return manifest, clean, span, nil
}

// findWrapperRun scans runes from offset for an anchor followed by at least
// headerSize selectors, returning the span (anchor included) and the run.
func findWrapperRun(runes []rune, from int) (*Span, []rune) {
	for i := from; i < len(runes); i++ {
		if runes[i] != Anchor {
			continue
		}
		j := i + 1
		for j < len(runes) && vscodec.IsSelector(runes[j]) {
			j++
		}
		if j-i-1 >= headerSize {
			return &Span{Start: i, End: j}, runes[i+1 : j]
		}
	}
	return nil, nil
}
