package payload

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// JUMBF-style framing: an ISO-BMFF-like superbox holding a description box
// with a label and a content box with canonical-JSON payload bytes. Each box
// is a big-endian uint32 total length (header included) followed by a 4-byte
// type tag.

const (
	boxHeaderSize = 8
	jumbfLabel    = "encypher.manifest"
)

var (
	boxTypeSuper       = [4]byte{'j', 'u', 'm', 'b'}
	boxTypeDescription = [4]byte{'j', 'u', 'm', 'd'}
	boxTypeJSON        = [4]byte{'j', 's', 'o', 'n'}
)

func appendBox(dst []byte, boxType [4]byte, content []byte) []byte {
	var hdr [boxHeaderSize]byte
	binary.BigEndian.PutUint32(hdr[:4], uint32(boxHeaderSize+len(content)))
	copy(hdr[4:], boxType[:])
	dst = append(dst, hdr[:]...)
	return append(dst, content...)
}

// MarshalJUMBF wraps the canonical-JSON form of v in the binary box layout.
// The output is self-describing and round-trips through UnmarshalJUMBF.
func MarshalJUMBF(v any) ([]byte, error) {
	jsonBytes, err := MarshalCanonicalJSON(v)
	if err != nil {
		return nil, err
	}

	var inner []byte
	inner = appendBox(inner, boxTypeDescription, append([]byte(jumbfLabel), 0))
	inner = appendBox(inner, boxTypeJSON, jsonBytes)
	return appendBox(nil, boxTypeSuper, inner), nil
}

func readBox(data []byte) (boxType [4]byte, content, rest []byte, err error) {
	if len(data) < boxHeaderSize {
		return boxType, nil, nil, errors.New("truncated box header")
	}
	length := binary.BigEndian.Uint32(data[:4])
	if int(length) < boxHeaderSize || int(length) > len(data) {
		return boxType, nil, nil, fmt.Errorf("box length %d exceeds available %d bytes", length, len(data))
	}
	copy(boxType[:], data[4:8])
	return boxType, data[boxHeaderSize:length], data[length:], nil
}

// UnmarshalJUMBF recovers the payload mapping from box bytes produced by
// MarshalJUMBF.
func UnmarshalJUMBF(data []byte) (map[string]any, error) {
	boxType, inner, rest, err := readBox(data)
	if err != nil {
		return nil, fmt.Errorf("decode JUMBF: %w", err)
	}
	if boxType != boxTypeSuper {
		return nil, fmt.Errorf("decode JUMBF: unexpected top-level box %q", boxType[:])
	}
	if len(rest) != 0 {
		return nil, errors.New("decode JUMBF: trailing bytes after superbox")
	}

	sawLabel := false
	var jsonBytes []byte
	for len(inner) > 0 {
		childType, content, next, err := readBox(inner)
		if err != nil {
			return nil, fmt.Errorf("decode JUMBF: %w", err)
		}
		switch childType {
		case boxTypeDescription:
			label := string(bytes.TrimSuffix(content, []byte{0}))
			if label != jumbfLabel {
				return nil, fmt.Errorf("decode JUMBF: unexpected label %q", label)
			}
			sawLabel = true
		case boxTypeJSON:
			jsonBytes = content
		default:
			// Unknown child boxes are skipped for forward compatibility.
		}
		inner = next
	}
	if !sawLabel {
		return nil, errors.New("decode JUMBF: missing description box")
	}
	if jsonBytes == nil {
		return nil, errors.New("decode JUMBF: missing json box")
	}
	return decodeJSONMap(jsonBytes)
}
