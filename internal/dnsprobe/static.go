package dnsprobe

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
	"context"
	"strings"
	"sync"
)

// Static is an in-memory Prober keyed by lower-cased name and type. It backs
// tests and dry runs. Safe for concurrent use.
type Static struct {
	mu      sync.Mutex
	records map[string]map[Type]bool
	calls   int
}

// NewStatic returns an empty Static prober.
func NewStatic() *Static {
	return &Static{records: make(map[string]map[Type]bool)}
}

// Set records that name has (or lacks) records of the given types.
func (s *Static) Set(name string, present bool, types ...Type) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(strings.TrimSuffix(name, "."))
	if s.records[key] == nil {
		s.records[key] = make(map[Type]bool)
	}
	for _, t := range types {
		s.records[key][t] = present
	}
	return s
}

// Exists implements Prober.
func (s *Static) Exists(_ context.Context, name string, t Type) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.records[strings.ToLower(strings.TrimSuffix(name, "."))][t]
}

// Calls returns how many probes were answered.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
