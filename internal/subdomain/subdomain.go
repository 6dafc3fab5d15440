// Package subdomain turns raw certificate records into the list of names worth reporting.
package subdomain

/*
censub — find subdomains through Censys certificate search
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

	"github.com/x-stp/censub/internal/censys"
)

// Wildcard marks a certificate name that covers many hosts.
const Wildcard = "*"

// Set holds unique hostnames. Equality is exact and case-sensitive.
type Set map[string]struct{}

// Add inserts name.
func (s Set) Add(name string) { s[name] = struct{}{} }

// Has reports whether name is present.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Len returns the number of names.
func (s Set) Len() int { return len(s) }

// NewSet builds a set from names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Extract flattens the name list of every record into one set.
// Records whose field cannot be decoded are skipped and counted in skipped.
// No filtering happens here; wildcards and foreign names pass through.
func Extract(records []censys.Record, field string) (names Set, skipped int) {
	names = make(Set)
	for _, rec := range records {
		list, err := rec.Strings(field)
		if err != nil {
			skipped++
			continue
		}
		for _, n := range list {
			names.Add(n)
		}
	}
	return names, skipped
}

// Keep is the filter predicate: no wildcard and a literal suffix match on domain.
// The suffix check is not label-aware, so "myexample.com" passes for "example.com".
func Keep(domain, name string) bool {
	return !strings.Contains(name, Wildcard) && strings.HasSuffix(name, domain)
}

// FilterStats counts why names were dropped.
type FilterStats struct {
	Wildcard  int
	OffDomain int
}

// Filter returns the names of set that Keep accepts, in map iteration order.
func Filter(domain string, set Set) ([]string, FilterStats) {
	var stats FilterStats
	kept := make([]string, 0, set.Len())
	for name := range set {
		switch {
		case Keep(domain, name):
			kept = append(kept, name)
		case strings.Contains(name, Wildcard):
			stats.Wildcard++
		default:
			stats.OffDomain++
		}
	}
	return kept, stats
}
