package util

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
	"strings"
	"time"
)

// maxFilenameLength keeps generated names well inside common OS limits.
const maxFilenameLength = 100

// SanitizeFilename creates a filesystem-safe filename from a domain or other string.
// Replaces problematic characters with underscores and limits length.
func SanitizeFilename(input string) string {
	replaced := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, strings.TrimSpace(input))
	if len(replaced) > maxFilenameLength {
		return replaced[:maxFilenameLength]
	}
	return replaced
}

// DefaultOutputName builds "<domain>_<kind>_<UTC timestamp>.<ext>" for result
// files written without an explicit path.
func DefaultOutputName(domain, kind, ext string, now time.Time) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "csv"
	}
	base := SanitizeFilename(domain)
	if kind != "" {
		base += "_" + SanitizeFilename(kind)
	}
	return base + "_" + now.UTC().Format("20060102T150405Z") + "." + ext
}
