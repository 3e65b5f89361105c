package dateparse

import (
	"testing"
	"time"
)

// Fixed reference time: Wednesday, 2026-02-18 12:00:00 UTC
var testNow = time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)

func TestParseSince(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2026-01-01", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2026-02-18T08:30:00Z", time.Date(2026, 2, 18, 8, 30, 0, 0, time.UTC)},
		{"today", time.Date(2026, 2, 18, 0, 0, 0, 0, time.UTC)},
		{"Yesterday", time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC)},
		{"3d", time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)},
		{"0d", testNow},
		{"2w", time.Date(2026, 2, 4, 12, 0, 0, 0, time.UTC)},
		{"1mo", time.Date(2026, 1, 18, 12, 0, 0, 0, time.UTC)},
		{"90m", time.Date(2026, 2, 18, 10, 30, 0, 0, time.UTC)},
		{"2h", time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC)},
		{" 45s ", time.Date(2026, 2, 18, 11, 59, 15, 0, time.UTC)},
		{"monday", time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)},
		{"wednesday", time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)},
		{"thursday", time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSinceFrom(tt.input, testNow)
			if err != nil {
				t.Fatalf("ParseSinceFrom(%q): unexpected error: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseSinceFrom(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSince_Errors(t *testing.T) {
	for _, input := range []string{"", "   ", "soon", "-3d", "2026-13-01", "-5m", "3x"} {
		if _, err := ParseSinceFrom(input, testNow); err == nil {
			t.Errorf("ParseSinceFrom(%q): expected error", input)
		}
	}
}
