package payload

import (
	"fmt"
	"math"
	"time"
)

// timestampLayout is second-precision ISO 8601 UTC with a literal Z.
const timestampLayout = "2006-01-02T15:04:05Z"

// FormatTimestamp coerces the supported timestamp inputs into the canonical
// "YYYY-MM-DDTHH:MM:SSZ" form. Accepted inputs: ISO 8601 strings (with or
// without an offset), epoch seconds as any integer or float type, and
// time.Time. Offset-free inputs are assumed UTC. The formatter is idempotent
// on its own output.
func FormatTimestamp(ts any) (string, error) {
	var t time.Time
	switch v := ts.(type) {
	case nil:
		return "", fmt.Errorf("timestamp is required")
	case time.Time:
		t = v
	case string:
		parsed, err := parseISOTimestamp(v)
		if err != nil {
			return "", err
		}
		t = parsed
	case int:
		t = time.Unix(int64(v), 0)
	case int32:
		t = time.Unix(int64(v), 0)
	case int64:
		t = time.Unix(v, 0)
	case float32:
		return FormatTimestamp(float64(v))
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", fmt.Errorf("invalid timestamp value: %v", v)
		}
		sec, frac := math.Modf(v)
		t = time.Unix(int64(sec), int64(frac*float64(time.Second)))
	default:
		return "", fmt.Errorf("unsupported timestamp type %T", ts)
	}
	return t.UTC().Format(timestampLayout), nil
}

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseISOTimestamp(s string) (time.Time, error) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp string %q: use ISO 8601", s)
}
