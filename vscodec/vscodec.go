// Package vscodec maps bytes onto Unicode variation-selector codepoints.
//
// A byte value b in [0,15] is carried by VS1-VS16 (U+FE00..U+FE0F) and a value
// in [16,255] by VS17-VS256 (U+E0100..U+E01EF). The mapping is a bijection
// over the full byte range, which makes a selector run an exact byte channel
// inside otherwise ordinary text.
package vscodec

import "strings"

const (
	// SelectorStart and SelectorEnd bound the VS1-VS16 block.
	SelectorStart rune = 0xFE00
	SelectorEnd   rune = 0xFE0F

	// SupplementStart and SupplementEnd bound the VS17-VS256 block.
	SupplementStart rune = 0xE0100
	SupplementEnd   rune = 0xE01EF
)

// ToSelector returns the variation selector carrying byte b.
func ToSelector(b byte) rune {
	if b < 16 {
		return SelectorStart + rune(b)
	}
	return SupplementStart + rune(b) - 16
}

// FromSelector returns the byte carried by r, or false if r is not a
// variation selector.
func FromSelector(r rune) (byte, bool) {
	switch {
	case r >= SelectorStart && r <= SelectorEnd:
		return byte(r - SelectorStart), true
	case r >= SupplementStart && r <= SupplementEnd:
		return byte(r-SupplementStart) + 16, true
	default:
		return 0, false
	}
}

// IsSelector reports whether r belongs to either variation-selector block.
func IsSelector(r rune) bool {
	_, ok := FromSelector(r)
	return ok
}

// BytesToSelectors converts data into one selector rune per byte.
func BytesToSelectors(data []byte) []rune {
	out := make([]rune, len(data))
	for i, b := range data {
		out[i] = ToSelector(b)
	}
	return out
}

// SelectorString converts data into a string of selector runes.
func SelectorString(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data) * 4)
	for _, b := range data {
		sb.WriteRune(ToSelector(b))
	}
	return sb.String()
}

// ExtractBytes recovers an embedded byte run from text.
//
// The forward scan skips leading non-selector runes (the anchor characters),
// collects a maximal selector run, and stops at the first non-selector after
// collection has started. If the forward scan finds nothing, a trailing run
// of selectors at the very end of the text is collected instead; that covers
// payloads appended after the last character with no anchor of their own.
func ExtractBytes(text string) []byte {
	var decoded []byte
	for _, r := range text {
		b, ok := FromSelector(r)
		if !ok {
			if len(decoded) > 0 {
				break
			}
			continue
		}
		decoded = append(decoded, b)
	}
	if len(decoded) > 0 {
		return decoded
	}

	runes := []rune(text)
	start := len(runes)
	for start > 0 {
		if !IsSelector(runes[start-1]) {
			break
		}
		start--
	}
	if start == len(runes) {
		return nil
	}
	decoded = make([]byte, 0, len(runes)-start)
	for _, r := range runes[start:] {
		b, _ := FromSelector(r)
		decoded = append(decoded, b)
	}
	return decoded
}

// Strip removes every variation selector from text, leaving the visible
// carrier characters untouched.
func Strip(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if IsSelector(r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
