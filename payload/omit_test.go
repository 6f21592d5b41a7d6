package payload

import (
	"reflect"
	"testing"
)

func TestOmitKeysRecursive(t *testing.T) {
	m := map[string]any{
		"signer_id": "a",
		"secret":    "x",
		"manifest": map[string]any{
			"secret": "y",
			"actions": []any{
				map[string]any{"label": "l", "secret": "z"},
			},
		},
	}
	if err := OmitKeys(m, []string{"secret"}); err != nil {
		t.Fatalf("omit: %v", err)
	}
	want := map[string]any{
		"signer_id": "a",
		"manifest": map[string]any{
			"actions": []any{map[string]any{"label": "l"}},
		},
	}
	if !reflect.DeepEqual(m, want) {
		t.Fatalf("omit result = %#v, want %#v", m, want)
	}
}

func TestOmitKeysRejectsMandatory(t *testing.T) {
	for _, k := range MandatoryKeys {
		m := map[string]any{"a": 1}
		if err := OmitKeys(m, []string{k}); err == nil {
			t.Fatalf("expected rejection omitting %q", k)
		}
	}
}
