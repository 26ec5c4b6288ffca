package probe

import (
	"context"
	"fmt"
	"net"
	"strings"

	"go.uber.org/multierr"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

// LocalResolver goes through the operating system's resolver. TTLs are not
// exposed there and are reported as 0.
type LocalResolver struct {
	r resolverAPI
}

type resolverAPI interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
	LookupCNAME(ctx context.Context, host string) (string, error)
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

func NewLocalResolver(r *net.Resolver) *LocalResolver {
	if r == nil {
		r = net.DefaultResolver
	}
	return &LocalResolver{r: r}
}

func (l *LocalResolver) Name() string { return ResolverLocal }

func (l *LocalResolver) Resolve(ctx context.Context, host string) ([]domain.DNSRecord, error) {
	var set recordSet
	var errs error
	rec := func(typ, value string) {
		set.add(domain.DNSRecord{Type: typ, Name: host, Class: "IN", Value: value, Resolver: ResolverLocal})
	}

	if ips, err := l.r.LookupIPAddr(ctx, host); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		for _, ip := range ips {
			if ip.IP.To4() != nil {
				rec("A", ip.IP.String())
			} else {
				rec("AAAA", ip.IP.String())
			}
		}
	}

	if cname, err := l.r.LookupCNAME(ctx, host); err == nil && !strings.EqualFold(trimDot(cname), host) {
		rec("CNAME", trimDot(cname))
	}

	if mx, err := l.r.LookupMX(ctx, host); err == nil {
		for _, m := range mx {
			rec("MX", fmt.Sprintf("%d %s", m.Pref, trimDot(m.Host)))
		}
	}

	if ns, err := l.r.LookupNS(ctx, host); err == nil {
		for _, n := range ns {
			rec("NS", trimDot(n.Host))
		}
	}

	if txt, err := l.r.LookupTXT(ctx, host); err == nil {
		for _, t := range txt {
			rec("TXT", t)
		}
	}
	return set.out, errs
}
