package core

/*
domcheck — domain availability checks over DNS and WHOIS
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/zeebo/xxh3"
)

//go:embed wordlists/default.txt
var defaultWordlistData string

// Wordlist is an ordered list of subdomain labels.
type Wordlist []string

// ParseWordlist splits user text on newlines and commas, trims every entry,
// drops blanks and keeps at most MaxWordlistEntries entries. Entries are kept
// verbatim otherwise, duplicates included.
func ParseWordlist(text string) Wordlist {
	return truncate(splitEntries(text))
}

func splitEntries(text string) Wordlist {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})
	out := make(Wordlist, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func truncate(wl Wordlist) Wordlist {
	if len(wl) > MaxWordlistEntries {
		return wl[:MaxWordlistEntries]
	}
	return wl
}

// DefaultWordlist returns the built-in list of common subdomain labels.
func DefaultWordlist() Wordlist {
	return parseListFile(defaultWordlistData)
}

// LoadWordlistFile reads a wordlist file: one label per line (commas also
// separate), '#' starts a comment, duplicates are dropped.
func LoadWordlistFile(path string) (Wordlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wordlist: %w", err)
	}
	return parseListFile(string(data)), nil
}

// ResolveWordlist picks the wordlist for a scan: custom text when it holds at
// least one label, otherwise the file at path when set, otherwise the built-in list.
func ResolveWordlist(custom, path string) (Wordlist, error) {
	if wl := ParseWordlist(custom); len(wl) > 0 {
		return wl, nil
	}
	if strings.TrimSpace(path) != "" {
		return LoadWordlistFile(path)
	}
	return DefaultWordlist(), nil
}

func parseListFile(text string) Wordlist {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	seen := make(map[uint64]struct{})
	var out Wordlist
	for _, label := range splitEntries(b.String()) {
		key := xxh3.HashString(strings.ToLower(label))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, label)
	}
	return truncate(out)
}
