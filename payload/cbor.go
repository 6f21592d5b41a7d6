package payload

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Deterministic CBOR modes. Core-deterministic encoding keeps map keys in
// bytewise order so the soft-binding hash is reproducible on both sides.
var (
	cborEnc = func() cbor.EncMode {
		opts := cbor.EncOptions{
			Sort:          cbor.SortCoreDeterministic,
			TimeTag:       cbor.EncTagNone,
			ShortestFloat: cbor.ShortestFloat16,
		}
		mode, err := opts.EncMode()
		if err != nil {
			panic(err)
		}
		return mode
	}()

	cborDec = func() cbor.DecMode {
		opts := cbor.DecOptions{
			DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		}
		mode, err := opts.DecMode()
		if err != nil {
			panic(err)
		}
		return mode
	}()
)

// MarshalCBOR serializes v with deterministic canonical encoding.
func MarshalCBOR(v any) ([]byte, error) {
	b, err := cborEnc.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical CBOR: %w", err)
	}
	return b, nil
}

// UnmarshalCBOR decodes data into v; maps decode as map[string]any.
func UnmarshalCBOR(data []byte, v any) error {
	if err := cborDec.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode CBOR: %w", err)
	}
	return nil
}

// UnmarshalCBORMap decodes data and requires a string-keyed map at the top
// level.
func UnmarshalCBORMap(data []byte) (map[string]any, error) {
	var v any
	if err := cborDec.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode CBOR: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decoded CBOR is %T, not a map", v)
	}
	return m, nil
}
