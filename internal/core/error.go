/*
Package core runs the censub pipeline: search, extract, filter, report,
persist and optionally resolve. It also classifies errors into the kinds the
command line maps onto exit codes.
*/
package core

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
	"errors"

	"github.com/x-stp/censub/internal/censys"
	"github.com/x-stp/censub/internal/config"
)

// Kind classifies an error by how the run must react to it.
type Kind int

const (
	// KindUnexpected covers transport failures and anything unclassified. Fatal.
	KindUnexpected Kind = iota
	// KindConfiguration means no usable credentials or settings. Fatal, no query is sent.
	KindConfiguration
	// KindAuthentication means the API rejected the credentials. Fatal.
	KindAuthentication
	// KindRateLimit means the account quota was exceeded. Fatal.
	KindRateLimit
	// KindWrite means the subdomain file could not be written. Reported, not fatal.
	KindWrite
	// KindResolution means a single lookup failed. Recorded in the result file.
	KindResolution
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAuthentication:
		return "authentication"
	case KindRateLimit:
		return "rate_limit"
	case KindWrite:
		return "write"
	case KindResolution:
		return "resolution"
	}
	return "unexpected"
}

// Fatal reports whether an error of this kind ends the run with a non-zero status.
func (k Kind) Fatal() bool {
	switch k {
	case KindWrite, KindResolution:
		return false
	}
	return true
}

// Error pairs an underlying error with its Kind.
type Error struct {
	Kind Kind
	Err  error
}

// NewError wraps err with kind.
func NewError(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String() + " error"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf classifies err. Errors already wrapped in *Error keep their kind;
// known sentinels from the config and censys packages are mapped; the rest
// are KindUnexpected.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, config.ErrMissingCredentials):
		return KindConfiguration
	case errors.Is(err, censys.ErrUnauthorized):
		return KindAuthentication
	case errors.Is(err, censys.ErrRateLimited):
		return KindRateLimit
	}
	return KindUnexpected
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil || !KindOf(err).Fatal() {
		return 0
	}
	return 1
}
