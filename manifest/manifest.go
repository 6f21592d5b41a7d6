// Package manifest builds C2PA-inspired provenance manifests and computes
// their self-referential soft-binding hash. The builder and the verifier
// share one hashing routine so both sides always canonicalize byte-identical
// structures.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"encypher.dev/encypher/payload"
)

// BuildOptions carries the inputs for one manifest construction.
type BuildOptions struct {
	// ClaimGenerator identifies the producing software agent. Required;
	// callers fall back to their configured default before calling Build.
	ClaimGenerator string

	// Timestamp is the already-normalized ISO 8601 UTC timestamp recorded on
	// synthesized actions.
	Timestamp string

	// Actions are caller-supplied action records. A c2pa.created action is
	// synthesized and prepended when none is present.
	Actions []map[string]any

	// CleanText is the original carrier text, without variation selectors,
	// hashed into the hard-binding assertion.
	CleanText string

	// AddHardBinding controls whether the content-hash assertion is emitted.
	AddHardBinding bool
}

// Build constructs a complete manifest tree: actions assertion, optional
// hard binding, and a soft binding computed over the finished structure with
// its own hash field blanked. The instance id is a fresh UUID per call, so
// two builds over identical inputs intentionally differ.
func Build(opts BuildOptions) (map[string]any, error) {
	if opts.ClaimGenerator == "" {
		return nil, errors.New("claim generator must be provided")
	}
	if opts.Timestamp == "" {
		return nil, errors.New("timestamp must be provided")
	}

	m := map[string]any{
		"@context":        payload.ContextURL,
		"instance_id":     uuid.NewString(),
		"claim_generator": opts.ClaimGenerator,
		"assertions":      []any{},
	}

	actions := make([]any, 0, len(opts.Actions)+2)
	hasCreated := false
	for _, a := range opts.Actions {
		if label, _ := a["label"].(string); label == payload.ActionCreated {
			hasCreated = true
		}
		actions = append(actions, cloneTree(a))
	}
	if !hasCreated {
		created := map[string]any{
			"label":             payload.ActionCreated,
			"when":              opts.Timestamp,
			"digitalSourceType": payload.DigitalSourceType,
			"softwareAgent":     opts.ClaimGenerator,
		}
		actions = append([]any{created}, actions...)
	}
	actionsData := map[string]any{"actions": actions}
	appendAssertion(m, payload.LabelActions, actionsData, payload.KindActions)

	if opts.AddHardBinding {
		appendAssertion(m, payload.LabelContentHash, map[string]any{
			"hash":       hashHex([]byte(opts.CleanText)),
			"alg":        "sha256",
			"exclusions": []any{},
		}, payload.KindContentHash)
	}

	actionsData["actions"] = append(actionsData["actions"].([]any), map[string]any{
		"label":         payload.ActionWatermarked,
		"when":          opts.Timestamp,
		"softwareAgent": opts.ClaimGenerator,
		"description":   "Text embedded with Unicode variation selectors.",
	})
	appendAssertion(m, payload.LabelSoftBinding, map[string]any{
		"alg":  payload.SoftBindingAlg,
		"hash": "",
	}, payload.KindSoftBinding)

	hash, err := SoftBindingHash(m)
	if err != nil {
		return nil, err
	}
	soft := FindAssertion(m, payload.LabelSoftBinding)
	soft["data"].(map[string]any)["hash"] = hash
	return m, nil
}

// SoftBindingHash clones the manifest, blanks the soft-binding hash field,
// canonically CBOR-serializes the clone and returns the SHA-256 hex digest.
// The placeholder substitution makes the hash a fixed point: recomputing it
// over a finished manifest reproduces the stored value exactly.
func SoftBindingHash(m map[string]any) (string, error) {
	clone := cloneTree(m).(map[string]any)
	soft := FindAssertion(clone, payload.LabelSoftBinding)
	if soft == nil {
		return "", fmt.Errorf("manifest has no %s assertion", payload.LabelSoftBinding)
	}
	data, ok := soft["data"].(map[string]any)
	if !ok {
		return "", fmt.Errorf("%s assertion has no data mapping", payload.LabelSoftBinding)
	}
	data["hash"] = ""

	enc, err := payload.MarshalCBOR(clone)
	if err != nil {
		return "", err
	}
	return hashHex(enc), nil
}

// FindAssertion returns the first assertion with the given label, or nil.
func FindAssertion(m map[string]any, label string) map[string]any {
	assertions, _ := m["assertions"].([]any)
	for _, raw := range assertions {
		a, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if l, _ := a["label"].(string); l == label {
			return a
		}
	}
	return nil
}

// AssertionLabels collects every assertion label present in the manifest.
func AssertionLabels(m map[string]any) map[string]bool {
	labels := make(map[string]bool)
	assertions, _ := m["assertions"].([]any)
	for _, raw := range assertions {
		if a, ok := raw.(map[string]any); ok {
			if l, _ := a["label"].(string); l != "" {
				labels[l] = true
			}
		}
	}
	return labels
}

func appendAssertion(m map[string]any, label string, data map[string]any, kind payload.AssertionKind) {
	m["assertions"] = append(m["assertions"].([]any), map[string]any{
		"label": label,
		"data":  data,
		"kind":  string(kind),
	})
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashText returns the SHA-256 hex digest of text's UTF-8 bytes, the value
// stored by the hard-binding assertion.
func HashText(text string) string {
	return hashHex([]byte(text))
}

func cloneTree(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = cloneTree(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = cloneTree(child)
		}
		return out
	default:
		return val
	}
}
