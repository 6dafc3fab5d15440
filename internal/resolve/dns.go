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
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// lookupTypes are queried in the same order the host utility uses.
var lookupTypes = []uint16{dns.TypeA, dns.TypeAAAA, dns.TypeMX}

// DNSResolver queries a nameserver directly and formats the answers the
// way the host utility prints them, one record per line.
type DNSResolver struct {
	Server  string // host:port
	Timeout time.Duration

	udp *dns.Client
	tcp *dns.Client
}

// NewDNSResolver returns a resolver using server (host:port).
func NewDNSResolver(server string, timeout time.Duration) *DNSResolver {
	return &DNSResolver{
		Server:  server,
		Timeout: timeout,
		udp:     &dns.Client{Net: "udp", Timeout: timeout},
		tcp:     &dns.Client{Net: "tcp", Timeout: timeout},
	}
}

// Resolve queries A, AAAA and MX records for host.
func (r *DNSResolver) Resolve(ctx context.Context, host string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var lines []string
	seen := make(map[string]bool)
	add := func(line string) {
		if !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}

	// Only NXDOMAIN on the first query fails the host outright. Other
	// rcodes fail just their record type; the host fails when every type did.
	failed := 0
	lastRcode := dns.RcodeSuccess
	for i, qtype := range lookupTypes {
		in, err := r.exchange(ctx, host, qtype)
		if err != nil {
			return "", &LookupError{Host: host, Err: err}
		}
		if in.Rcode != dns.RcodeSuccess {
			if i == 0 && in.Rcode == dns.RcodeNameError {
				return "", notFound(host, in.Rcode)
			}
			failed++
			lastRcode = in.Rcode
			continue
		}
		for _, rr := range in.Answer {
			if line := formatRR(rr); line != "" {
				add(line)
			}
		}
	}

	if len(lines) == 0 {
		if failed == len(lookupTypes) {
			return "", notFound(host, lastRcode)
		}
		return fmt.Sprintf("%s has no A, AAAA or MX record", host), nil
	}
	return strings.Join(lines, "\n"), nil
}

func notFound(host string, rcode int) *LookupError {
	return &LookupError{
		Host:   host,
		Output: fmt.Sprintf("Host %s not found: %d(%s)", host, rcode, dns.RcodeToString[rcode]),
		Err:    fmt.Errorf("rcode %s", dns.RcodeToString[rcode]),
	}
}

func (r *DNSResolver) exchange(ctx context.Context, host string, qtype uint16) (*dns.Msg, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)
	msg.RecursionDesired = true

	in, _, err := r.udp.ExchangeContext(ctx, msg, r.Server)
	if err != nil {
		return nil, err
	}
	if in.Truncated {
		in, _, err = r.tcp.ExchangeContext(ctx, msg, r.Server)
		if err != nil {
			return nil, err
		}
	}
	return in, nil
}

func formatRR(rr dns.RR) string {
	owner := strings.TrimSuffix(rr.Header().Name, ".")
	switch v := rr.(type) {
	case *dns.A:
		return fmt.Sprintf("%s has address %s", owner, v.A)
	case *dns.AAAA:
		return fmt.Sprintf("%s has IPv6 address %s", owner, v.AAAA)
	case *dns.CNAME:
		return fmt.Sprintf("%s is an alias for %s", owner, v.Target)
	case *dns.MX:
		return fmt.Sprintf("%s mail is handled by %d %s", owner, v.Preference, v.Mx)
	}
	return ""
}
