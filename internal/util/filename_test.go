package util

import (
	"strings"
	"testing"
	"time"
)

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "example.com"},
		{" https://example.com/a?b ", "https___example.com_a_b"},
		{`a\b:c*d"e<f>g|h`, "a_b_c_d_e_f_g_h"},
		{"two words", "two_words"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := strings.Repeat("a", 300)
	if got := SanitizeFilename(long); len(got) != maxFilenameLength {
		t.Errorf("long name length = %d, want %d", len(got), maxFilenameLength)
	}
}

func TestDefaultOutputName(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.FixedZone("CET", 3600))
	tests := []struct {
		domain, kind, ext string
		want              string
	}{
		{"example.com", "scan", ".csv", "example.com_scan_20250304T040607Z.csv"},
		{"example.com", "", "jsonl.gz", "example.com_20250304T040607Z.jsonl.gz"},
		{"example.com", "check", "", "example.com_check_20250304T040607Z.csv"},
	}
	for _, tt := range tests {
		if got := DefaultOutputName(tt.domain, tt.kind, tt.ext, now); got != tt.want {
			t.Errorf("DefaultOutputName(%q, %q, %q) = %q, want %q", tt.domain, tt.kind, tt.ext, got, tt.want)
		}
	}
}
