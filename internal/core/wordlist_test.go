package core

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParseWordlist(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want Wordlist
	}{
		{"empty", "", Wordlist{}},
		{"blank", " \n\r\n , ,", Wordlist{}},
		{"newlines", "www\nmail\r\nftp", Wordlist{"www", "mail", "ftp"}},
		{"commas", "www, mail ,ftp", Wordlist{"www", "mail", "ftp"}},
		{"mixed", " api ,\n\n dev\r\n,stage ", Wordlist{"api", "dev", "stage"}},
		{"duplicates kept", "www\nwww", Wordlist{"www", "www"}},
		{"comments verbatim", "# not a comment", Wordlist{"# not a comment"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ParseWordlist(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseWordlist(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseWordlistTruncates(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := 0; i < MaxWordlistEntries+50; i++ {
		fmt.Fprintf(&b, "label%d\n", i)
	}
	got := ParseWordlist(b.String())
	if len(got) != MaxWordlistEntries {
		t.Fatalf("len = %d, want %d", len(got), MaxWordlistEntries)
	}
	if got[0] != "label0" || got[len(got)-1] != fmt.Sprintf("label%d", MaxWordlistEntries-1) {
		t.Errorf("truncation kept the wrong end: %q .. %q", got[0], got[len(got)-1])
	}
}

func TestDefaultWordlist(t *testing.T) {
	t.Parallel()

	wl := DefaultWordlist()
	if len(wl) == 0 || len(wl) > MaxWordlistEntries {
		t.Fatalf("default wordlist has %d entries", len(wl))
	}
	if wl[0] != "www" {
		t.Errorf("first label = %q, want www", wl[0])
	}
	seen := map[string]bool{}
	for _, label := range wl {
		if strings.ContainsAny(label, "# \t") {
			t.Errorf("label %q still carries comment or space", label)
		}
		if seen[label] {
			t.Errorf("duplicate label %q", label)
		}
		seen[label] = true
	}
}

func TestLoadWordlistFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "words.txt")
	content := "# header\nwww\nmail # inline\n\nWWW\nftp,sftp\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := LoadWordlistFile(path)
	if err != nil {
		t.Fatalf("LoadWordlistFile: %v", err)
	}
	want := Wordlist{"www", "mail", "ftp", "sftp"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}

	if _, err := LoadWordlistFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("missing file returned no error")
	}
}

func TestLoadWordlistFileDedupsBeforeTruncating(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := 0; i < MaxWordlistEntries; i++ {
		fmt.Fprintf(&b, "dup\nlabel%d\n", i)
	}
	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := LoadWordlistFile(path)
	if err != nil {
		t.Fatalf("LoadWordlistFile: %v", err)
	}
	if len(got) != MaxWordlistEntries {
		t.Errorf("len = %d, want %d", len(got), MaxWordlistEntries)
	}
}

func TestResolveWordlist(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, []byte("alpha\nbeta\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name   string
		custom string
		path   string
		first  string
	}{
		{"custom wins", "zeta", path, "zeta"},
		{"blank custom uses file", " , \n", path, "alpha"},
		{"default", "", "", "www"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			wl, err := ResolveWordlist(tt.custom, tt.path)
			if err != nil {
				t.Fatalf("ResolveWordlist: %v", err)
			}
			if len(wl) == 0 || wl[0] != tt.first {
				t.Errorf("first = %v, want %q", wl, tt.first)
			}
		})
	}
}
