// Package timeutil normalizes the timestamp shapes found in security log
// rows into UTC instants and renders them for the model and the user.
package timeutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/inflection"
)

// Epoch is the fallback instant for absent or malformed timestamps.
// Rows never fail the batch over a bad timestamp; they sort to the far past
// instead.
var Epoch = time.Unix(0, 0).UTC()

// Layouts tried for strings without a zone designator. Values matching
// these are tagged UTC as-is, never shifted: log pipelines that strip the
// zone have already converted to UTC upstream.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// epochMillisThreshold separates epoch seconds from epoch milliseconds.
// Anything above it is treated as milliseconds (year 33658 in seconds).
const epochMillisThreshold = 1e12

// Normalize converts any timestamp representation found in store rows to a
// UTC instant. Accepted inputs: time.Time, RFC3339 strings with offset or Z,
// naive ISO strings (tagged UTC), epoch seconds or milliseconds as any
// numeric type. Malformed or absent values return Epoch; Normalize never
// fails.
func Normalize(v any) time.Time {
	switch t := v.(type) {
	case nil:
		return Epoch
	case time.Time:
		if t.IsZero() {
			return Epoch
		}
		return t.UTC()
	case string:
		return normalizeString(t)
	case int:
		return fromEpoch(float64(t))
	case int32:
		return fromEpoch(float64(t))
	case int64:
		return fromEpoch(float64(t))
	case float32:
		return fromEpoch(float64(t))
	case float64:
		return fromEpoch(t)
	default:
		return Epoch
	}
}

func fromEpoch(v float64) time.Time {
	if v <= 0 {
		return Epoch
	}
	if v >= epochMillisThreshold {
		return time.UnixMilli(int64(v)).UTC()
	}
	sec := int64(v)
	nsec := int64((v - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}

func normalizeString(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return Epoch
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}

	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}

	return Epoch
}

// FormatUTC renders an instant as RFC3339 with a Z suffix and no
// fractional seconds, the canonical form for serialized entities.
func FormatUTC(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z07:00")
}

// RelativePhrase renders an instant relative to now for display alongside
// the absolute form. Clock-time phrases always carry the UTC marker so the
// model never presents an ambiguous local time.
func RelativePhrase(t, now time.Time) string {
	t = t.UTC()
	now = now.UTC()

	delta := now.Sub(t)
	switch {
	case delta < time.Minute:
		return "just now"
	case delta < time.Hour:
		return agoPhrase(int(delta.Minutes()), "minute")
	case delta < 24*time.Hour:
		return agoPhrase(int(delta.Hours()), "hour")
	case isYesterday(t, now):
		return fmt.Sprintf("yesterday at %s UTC", t.Format("15:04"))
	case delta < 7*24*time.Hour:
		return agoPhrase(int(delta.Hours()/24), "day")
	default:
		return t.Format("Jan 2, 2006")
	}
}

func agoPhrase(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %s ago", n, inflection.Plural(unit))
}

func isYesterday(t, now time.Time) bool {
	y, m, d := now.AddDate(0, 0, -1).Date()
	ty, tm, td := t.Date()
	return ty == y && tm == m && td == d
}
