package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Epoch values at or above this magnitude are interpreted as milliseconds;
// below it, as seconds. 1e12 seconds is past the year 33658, so the split is
// unambiguous for any realistic event date.
const epochMillisThreshold = 1e12

// NormalizeTime resolves the polymorphic wire forms of a timestamp into an
// absolute instant. Accepted forms: time.Time, RFC3339 string, integer or
// float epoch (seconds or milliseconds), json.Number, and a
// {seconds, nanoseconds} map as emitted by document-store timestamp types.
// Comparison logic must never see an un-normalized value.
func NormalizeTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		if t == nil {
			return time.Time{}, fmt.Errorf("%w: nil timestamp", ErrInvalidInput)
		}
		return *t, nil
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts, nil
		}
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts, nil
		}
		// Some clients serialize epoch values as strings.
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return fromEpoch(float64(n)), nil
		}
		return time.Time{}, fmt.Errorf("%w: unparseable timestamp %q", ErrInvalidInput, t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: unparseable timestamp %q", ErrInvalidInput, t.String())
		}
		return fromEpoch(f), nil
	case float64:
		return fromEpoch(t), nil
	case int64:
		return fromEpoch(float64(t)), nil
	case int:
		return fromEpoch(float64(t)), nil
	case map[string]any:
		sec, ok := t["seconds"]
		if !ok {
			return time.Time{}, fmt.Errorf("%w: timestamp object missing seconds", ErrInvalidInput)
		}
		secs, err := NormalizeTime(sec)
		if err != nil {
			return time.Time{}, err
		}
		var nanos int64
		if n, ok := t["nanoseconds"]; ok {
			if f, ok := toFloat(n); ok {
				nanos = int64(f)
			}
		}
		return secs.Add(time.Duration(nanos)), nil
	case nil:
		return time.Time{}, fmt.Errorf("%w: missing timestamp", ErrInvalidInput)
	default:
		return time.Time{}, fmt.Errorf("%w: unsupported timestamp type %T", ErrInvalidInput, v)
	}
}

func fromEpoch(f float64) time.Time {
	if f >= epochMillisThreshold || f <= -epochMillisThreshold {
		return time.UnixMilli(int64(f)).UTC()
	}
	return time.Unix(int64(f), 0).UTC()
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
