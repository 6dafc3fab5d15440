/*
Package resolve maps discovered hostnames to their DNS records.

A Resolver performs one lookup. Two implementations exist: HostCommand runs
the system "host" utility and DNSResolver talks to a nameserver directly.
Runner reads the subdomain file back and records one result line per name.
*/
package resolve

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
	"context"
	"errors"
	"fmt"
	"strings"
)

// Resolver looks up a single hostname.
// On success it returns the lookup output. On failure the error carries the
// detail that should be recorded in place of the output.
type Resolver interface {
	Resolve(ctx context.Context, host string) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, host string) (string, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, host string) (string, error) {
	return f(ctx, host)
}

// LookupError is a failed lookup. Output holds whatever the lookup produced
// before failing, which is usually the most useful detail to record.
type LookupError struct {
	Host   string
	Output string
	Err    error
}

func (e *LookupError) Error() string {
	if e.Output != "" {
		return e.Output
	}
	return fmt.Sprintf("lookup %s: %v", e.Host, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Detail returns the text to record for a failed lookup.
func Detail(err error) string {
	var lerr *LookupError
	if errors.As(err, &lerr) {
		return OneLine(lerr.Error())
	}
	return OneLine(err.Error())
}

// lineSep joins the lines of one lookup in the result file.
const lineSep = "; "

// OneLine folds multi-line lookup output into a single line so the result
// file keeps one line per target. Lines are trimmed and blank ones dropped.
func OneLine(text string) string {
	var parts []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, lineSep)
}
