// Package report prints the human-readable progress and result lines of a run.
package report

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
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

// Reporter writes result lines to out and failures to errOut.
type Reporter struct {
	out    io.Writer
	errOut io.Writer

	info  *color.Color // [*]
	good  *color.Color // [+]
	bad   *color.Color // [-]
	alert *color.Color // [!]
}

// New returns a Reporter. Colour is only used when colored is true.
func New(out, errOut io.Writer, colored bool) *Reporter {
	r := &Reporter{
		out:    out,
		errOut: errOut,
		info:   color.New(color.FgCyan, color.Bold),
		good:   color.New(color.FgGreen, color.Bold),
		bad:    color.New(color.FgRed, color.Bold),
		alert:  color.New(color.FgYellow, color.Bold),
	}
	for _, c := range []*color.Color{r.info, r.good, r.bad, r.alert} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

func (r *Reporter) line(w io.Writer, prefix *color.Color, mark, format string, args ...any) {
	fmt.Fprintf(w, "%s %s", prefix.Sprint(mark), fmt.Sprintf(format, args...))
}

// Searching announces the query.
func (r *Reporter) Searching(domain string) {
	r.line(r.out, r.info, "[*]", "Searching Censys for subdomains of %s\n", domain)
}

// Subdomains prints the summary and the list, or a single line when nothing was found.
func (r *Reporter) Subdomains(domain string, names []string, elapsed time.Duration) {
	if len(names) == 0 {
		r.line(r.out, r.bad, "[-]", "Did not find any subdomain\n")
		return
	}

	plural := ""
	if len(names) > 1 {
		plural = "s"
	}
	r.line(r.out, r.info, "[*]", "Found %d unique subdomain%s of %s in ~%s seconds\n\n",
		len(names), plural, domain, FormatSeconds(elapsed))
	for _, n := range names {
		fmt.Fprintf(r.out, "  - %s\n", n)
	}
	fmt.Fprintln(r.out)
}

// FormatSeconds renders d in seconds with one decimal place.
func FormatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.1f", d.Seconds())
}

// Wrote confirms the subdomain file was written.
func (r *Reporter) Wrote(count int, absPath string) {
	r.line(r.out, r.info, "[*]", "Wrote %d subdomains to %s\n\n", count, absPath)
}

// WriteFailed reports a failed write of the subdomain file.
func (r *Reporter) WriteFailed(path string, err error) {
	r.line(r.errOut, r.bad, "[-]", "Unable to write to output file %s : %v\n", path, err)
}

// Resolving announces the resolution phase.
func (r *Reporter) Resolving() {
	r.line(r.out, r.good, "[+]", "Resolving found domains\n\n")
}

// ResolutionSkipped explains why resolution did not run.
func (r *Reporter) ResolutionSkipped(reason string) {
	r.line(r.errOut, r.bad, "[-]", "Skipping resolution: %s\n", reason)
}

// ResolutionFailed reports a failure of the resolution phase itself, not of a single lookup.
func (r *Reporter) ResolutionFailed(err error) {
	r.line(r.errOut, r.bad, "[-]", "Unable to resolve found domains: %v\n", err)
}

// AppendFailed reports a lookup result that could not be recorded.
func (r *Reporter) AppendFailed(path, target string, err error) {
	r.line(r.errOut, r.bad, "[-]", "Unable to record result for %s in %s : %v\n", target, path, err)
}

// WroteResolution confirms where lookup results went.
func (r *Reporter) WroteResolution(absPath string) {
	fmt.Fprintln(r.out)
	r.line(r.out, r.info, "[*]", "Wrote dns2ip to %s\n\n", absPath)
}

// InvalidCredentials reports an authentication failure.
func (r *Reporter) InvalidCredentials() {
	r.line(r.errOut, r.bad, "[-]", "Your Censys credentials look invalid.\n")
}

// RateLimited reports an exhausted quota.
func (r *Reporter) RateLimited() {
	r.line(r.errOut, r.bad, "[-]", "Looks like you exceeded your Censys account limits rate. Exiting\n")
}

// MissingCredentials reports that no credential pair was configured.
func (r *Reporter) MissingCredentials() {
	r.line(r.errOut, r.alert, "[!]", "Please set your Censys API ID and secret from your environment "+
		"(CENSYS_API_ID and CENSYS_API_SECRET) or from the command line.\n")
}

// Failure reports any other fatal error.
func (r *Reporter) Failure(err error) {
	r.line(r.errOut, r.bad, "[-]", "%v\n", err)
}
