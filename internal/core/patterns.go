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
	"fmt"
	"regexp"
	"strings"
)

// DefaultAbsencePatterns are the phrases registries use to say a domain has no
// record, in the order they are tried.
var DefaultAbsencePatterns = []string{
	`no match`,
	`not found`,
	`no entries found`,
	`status:\s*available`,
	`domain not found`,
}

// PatternSet is an ordered list of case-insensitive matchers. Only absence
// patterns exist; text that positively proves registration is not recognized,
// so a non-matching answer defers to DNS.
type PatternSet struct {
	patterns []absencePattern
}

type absencePattern struct {
	source string
	re     *regexp.Regexp
}

// CompilePatterns compiles exprs, in order, as case-insensitive regular
// expressions. Blank expressions are skipped.
func CompilePatterns(exprs []string) (*PatternSet, error) {
	ps := &PatternSet{patterns: make([]absencePattern, 0, len(exprs))}
	for _, expr := range exprs {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return nil, fmt.Errorf("absence pattern %q: %w", expr, err)
		}
		ps.patterns = append(ps.patterns, absencePattern{source: expr, re: re})
	}
	return ps, nil
}

// DefaultPatterns returns DefaultAbsencePatterns compiled.
func DefaultPatterns() *PatternSet {
	ps, err := CompilePatterns(DefaultAbsencePatterns)
	if err != nil {
		panic(err)
	}
	return ps
}

// Match returns the first pattern, in order, that occurs anywhere in text.
func (ps *PatternSet) Match(text string) (string, bool) {
	if ps == nil || text == "" {
		return "", false
	}
	for _, p := range ps.patterns {
		if p.re.MatchString(text) {
			return p.source, true
		}
	}
	return "", false
}

// Sources returns the pattern expressions in match order.
func (ps *PatternSet) Sources() []string {
	out := make([]string, len(ps.patterns))
	for i, p := range ps.patterns {
		out[i] = p.source
	}
	return out
}

// Len returns the number of patterns.
func (ps *PatternSet) Len() int {
	return len(ps.patterns)
}
