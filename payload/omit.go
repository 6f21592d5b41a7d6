package payload

import "fmt"

// CheckOmitKeys rejects omission requests that name a mandatory field.
func CheckOmitKeys(keys []string) error {
	for _, k := range keys {
		for _, m := range MandatoryKeys {
			if k == m {
				return fmt.Errorf("cannot omit required metadata fields: signer_id, timestamp, or format")
			}
		}
	}
	return nil
}

// OmitKeys recursively deletes the named keys from nested mappings, walking
// through slices as well. Mandatory fields are rejected up front and the
// value is left untouched.
func OmitKeys(m map[string]any, keys []string) error {
	if err := CheckOmitKeys(keys); err != nil {
		return err
	}
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	omitRecursive(m, drop)
	return nil
}

func omitRecursive(v any, drop map[string]bool) {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			if drop[k] {
				delete(val, k)
				continue
			}
			omitRecursive(child, drop)
		}
	case []any:
		for _, item := range val {
			omitRecursive(item, drop)
		}
	}
}
