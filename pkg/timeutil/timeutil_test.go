package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  time.Time
	}{
		{
			"rfc3339 with Z",
			"2026-03-15T10:30:00Z",
			time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			"rfc3339 with offset shifts to utc",
			"2026-03-15T12:30:00+02:00",
			time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			"naive iso tagged utc without shifting",
			"2026-03-15T10:30:00",
			time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			"naive with space separator",
			"2026-03-15 10:30:00",
			time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			"naive with fractional seconds",
			"2026-03-15T10:30:00.123456",
			time.Date(2026, 3, 15, 10, 30, 0, 123456000, time.UTC),
		},
		{
			"date only",
			"2026-03-15",
			time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			"epoch seconds int",
			int64(1742034600),
			time.Unix(1742034600, 0).UTC(),
		},
		{
			"epoch milliseconds",
			float64(1742034600123),
			time.UnixMilli(1742034600123).UTC(),
		},
		{
			"malformed string falls back to epoch",
			"not a timestamp",
			Epoch,
		},
		{
			"empty string falls back to epoch",
			"",
			Epoch,
		},
		{
			"nil falls back to epoch",
			nil,
			Epoch,
		},
		{
			"unsupported type falls back to epoch",
			struct{}{},
			Epoch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestFormatUTC(t *testing.T) {
	in := time.Date(2026, 3, 15, 12, 30, 0, 987654321, time.FixedZone("CEST", 2*3600))
	assert.Equal(t, "2026-03-15T10:30:00Z", FormatUTC(in))
}

func TestRelativePhrase(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"under a minute", now.Add(-30 * time.Second), "just now"},
		{"one minute", now.Add(-90 * time.Second), "1 minute ago"},
		{"minutes", now.Add(-5 * time.Minute), "5 minutes ago"},
		{"one hour", now.Add(-61 * time.Minute), "1 hour ago"},
		{"hours", now.Add(-6 * time.Hour), "6 hours ago"},
		{"yesterday carries utc marker", now.Add(-26 * time.Hour), "yesterday at 10:00 UTC"},
		{"days", now.Add(-3 * 24 * time.Hour), "3 days ago"},
		{"older than a week is absolute", now.Add(-10 * 24 * time.Hour), "Mar 5, 2026"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RelativePhrase(tt.t, now))
		})
	}
}
