package probe

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/multierr"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

// NameserverResolver sends plain DNS queries to one server, falling back to
// TCP for truncated answers.
type NameserverResolver struct {
	server string
	addr   string
	udp    *dns.Client
	tcp    *dns.Client
}

func NewNameserverResolver(server string, timeout time.Duration) *NameserverResolver {
	addr := server
	if _, _, err := net.SplitHostPort(server); err != nil {
		addr = net.JoinHostPort(server, "53")
	}
	return &NameserverResolver{
		server: server,
		addr:   addr,
		udp:    &dns.Client{Net: "udp", Timeout: timeout},
		tcp:    &dns.Client{Net: "tcp", Timeout: timeout},
	}
}

func (r *NameserverResolver) Name() string { return r.server }

func (r *NameserverResolver) Resolve(ctx context.Context, host string) ([]domain.DNSRecord, error) {
	var set recordSet
	var errs error
	for _, qt := range queryTypes {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(host), qt)
		m.RecursionDesired = true

		in, _, err := r.udp.ExchangeContext(ctx, m, r.addr)
		if err == nil && in.Truncated {
			in, _, err = r.tcp.ExchangeContext(ctx, m, r.addr)
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %s %s: %w", r.server, host, typeName(qt), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if in.Rcode != dns.RcodeSuccess {
			errs = multierr.Append(errs, fmt.Errorf("%s: %s %s: %s", r.server, host, typeName(qt), dns.RcodeToString[in.Rcode]))
			continue
		}
		for _, rr := range in.Answer {
			set.add(recordFromRR(rr, r.server))
		}
	}
	return set.out, errs
}

func recordFromRR(rr dns.RR, resolver string) domain.DNSRecord {
	h := rr.Header()
	var value string
	switch v := rr.(type) {
	case *dns.A:
		value = v.A.String()
	case *dns.AAAA:
		value = v.AAAA.String()
	case *dns.CNAME:
		value = trimDot(v.Target)
	case *dns.MX:
		value = fmt.Sprintf("%d %s", v.Preference, trimDot(v.Mx))
	case *dns.NS:
		value = trimDot(v.Ns)
	case *dns.TXT:
		value = txtValue(v.Txt)
	default:
		value = strings.TrimSpace(strings.TrimPrefix(rr.String(), h.String()))
	}
	return domain.DNSRecord{
		Type:     typeName(h.Rrtype),
		Name:     trimDot(h.Name),
		TTL:      h.Ttl,
		Class:    dns.ClassToString[h.Class],
		Value:    value,
		Resolver: resolver,
	}
}
