package resolve

import (
	"context"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startDNS runs a local nameserver answering from a tiny in-memory zone.
func startDNS(t *testing.T) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	mux := dns.NewServeMux()
	mux.HandleFunc(".", func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		q := req.Question[0]
		switch q.Name {
		case "www.example.com.":
			m.Answer = append(m.Answer, &dns.CNAME{
				Hdr:    dns.RR_Header{Name: q.Name, Rrtype: dns.TypeCNAME, Class: dns.ClassINET, Ttl: 60},
				Target: "example.com.",
			})
			fallthrough
		case "example.com.":
			switch q.Qtype {
			case dns.TypeA:
				m.Answer = append(m.Answer, &dns.A{
					Hdr: dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
					A:   net.ParseIP("192.0.2.1"),
				})
			case dns.TypeAAAA:
				m.Answer = append(m.Answer, &dns.AAAA{
					Hdr:  dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: 60},
					AAAA: net.ParseIP("2001:db8::1"),
				})
			case dns.TypeMX:
				m.Answer = append(m.Answer, &dns.MX{
					Hdr:        dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeMX, Class: dns.ClassINET, Ttl: 60},
					Preference: 10,
					Mx:         "mail.example.com.",
				})
			}
		case "empty.example.com.":
		case "partial.example.com.":
			if q.Qtype != dns.TypeA {
				m.Rcode = dns.RcodeServerFailure
				break
			}
			m.Answer = append(m.Answer, &dns.A{
				Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
				A:   net.ParseIP("192.0.2.7"),
			})
		case "broken.example.com.":
			m.Rcode = dns.RcodeServerFailure
		default:
			m.Rcode = dns.RcodeNameError
		}
		_ = w.WriteMsg(m)
	})

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: mux, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestDNSResolverFormatsLikeHost(t *testing.T) {
	r := NewDNSResolver(startDNS(t), 2*time.Second)

	out, err := r.Resolve(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t,
		"example.com has address 192.0.2.1\n"+
			"example.com has IPv6 address 2001:db8::1\n"+
			"example.com mail is handled by 10 mail.example.com.",
		out)
}

func TestDNSResolverAliasPrintedOnce(t *testing.T) {
	r := NewDNSResolver(startDNS(t), 2*time.Second)

	out, err := r.Resolve(context.Background(), "www.example.com")
	require.NoError(t, err)
	assert.Equal(t,
		"www.example.com is an alias for example.com.\n"+
			"example.com has address 192.0.2.1\n"+
			"example.com has IPv6 address 2001:db8::1\n"+
			"example.com mail is handled by 10 mail.example.com.",
		out)
}

func TestDNSResolverNXDomain(t *testing.T) {
	r := NewDNSResolver(startDNS(t), 2*time.Second)

	_, err := r.Resolve(context.Background(), "missing.example.com")
	require.Error(t, err)
	assert.Equal(t, "Host missing.example.com not found: 3(NXDOMAIN)", Detail(err))
}

func TestDNSResolverNoRecords(t *testing.T) {
	r := NewDNSResolver(startDNS(t), 2*time.Second)

	out, err := r.Resolve(context.Background(), "empty.example.com")
	require.NoError(t, err)
	assert.Equal(t, "empty.example.com has no A, AAAA or MX record", out)
}

func TestDNSResolverKeepsAnswersWhenOtherTypesFail(t *testing.T) {
	r := NewDNSResolver(startDNS(t), 2*time.Second)

	out, err := r.Resolve(context.Background(), "partial.example.com")
	require.NoError(t, err)
	assert.Equal(t, "partial.example.com has address 192.0.2.7", out)
}

func TestDNSResolverAllTypesFailing(t *testing.T) {
	r := NewDNSResolver(startDNS(t), 2*time.Second)

	_, err := r.Resolve(context.Background(), "broken.example.com")
	require.Error(t, err)
	assert.Equal(t, "Host broken.example.com not found: 2(SERVFAIL)", Detail(err))
}

func TestRunnerWithDNSResolverWritesOneLinePerTarget(t *testing.T) {
	input := writeTargets(t, "example.com", "missing.example.com", "www.example.com")
	result := input + ".dns"

	r := &Runner{Resolver: NewDNSResolver(startDNS(t), 2*time.Second), Backend: "dns"}
	sum, err := r.Run(context.Background(), input, result)
	require.NoError(t, err)
	assert.Equal(t, Summary{Targets: 3, Resolved: 2, Failed: 1}, sum)

	b, err := os.ReadFile(result)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "example.com has address 192.0.2.1; "+
		"example.com has IPv6 address 2001:db8::1; "+
		"example.com mail is handled by 10 mail.example.com.", lines[0])
	assert.Equal(t, "Host missing.example.com not found: 3(NXDOMAIN)", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "www.example.com is an alias for example.com.; "))
}
