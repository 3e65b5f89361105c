package suggest

import (
	"slices"
	"testing"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "abc", 3},
		{"abc", "", 3},
		{"work", "work", 0},
		{"work", "wokr", 2},
		{"kitten", "sitting", 3},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNames(t *testing.T) {
	names := []string{"Work", "Games", "Media Keys", "Video Editing"}

	tests := []struct {
		query string
		want  []string
	}{
		{"wrk", []string{"Work"}},
		{"Wokr", []string{"Work"}},
		{"media", []string{"Media Keys"}},
		{"zzzzzz", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := Names(tt.query, names); !slices.Equal(got, tt.want) {
				t.Errorf("Names(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestNamesLimit(t *testing.T) {
	got := Names("a", []string{"a1", "a2", "a3", "a4", "a5"})
	if len(got) != Limit {
		t.Errorf("got %d suggestions, want %d", len(got), Limit)
	}
}

func TestHint(t *testing.T) {
	if got := Hint(nil); got != "" {
		t.Errorf("Hint(nil) = %q", got)
	}
	if got := Hint([]string{"Work", "Games"}); got != `did you mean "Work" or "Games"?` {
		t.Errorf("Hint = %q", got)
	}
}
