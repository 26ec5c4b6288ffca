package probe

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

// Resolver returns the records it knows for a host. Partial answers may come
// back together with an error.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, host string) ([]domain.DNSRecord, error)
}

// Record types asked of every resolver.
var queryTypes = []uint16{
	dns.TypeA,
	dns.TypeAAAA,
	dns.TypeCNAME,
	dns.TypeMX,
	dns.TypeNS,
	dns.TypeTXT,
	dns.TypeSOA,
}

const (
	ResolverGoogle     = "google"
	ResolverCloudflare = "cloudflare"
	ResolverLocal      = "local"
)

// ResolverFor maps a chain identifier to a backend. Unknown identifiers are
// treated as a nameserver host or IP, optionally with a port.
func ResolverFor(id string, timeout time.Duration) Resolver {
	switch strings.ToLower(strings.TrimSpace(id)) {
	case ResolverGoogle:
		return NewDoHResolver(ResolverGoogle, "https://dns.google/resolve", timeout)
	case ResolverCloudflare:
		return NewDoHResolver(ResolverCloudflare, "https://cloudflare-dns.com/dns-query", timeout)
	case ResolverLocal:
		return NewLocalResolver(net.DefaultResolver)
	default:
		return NewNameserverResolver(strings.TrimSpace(id), timeout)
	}
}

type recordKey struct{ typ, name, value string }

// recordSet drops duplicates within one resolver's answer, e.g. a CNAME that
// comes back for both the A and the CNAME query.
type recordSet struct {
	seen map[recordKey]bool
	out  []domain.DNSRecord
}

func (s *recordSet) add(r domain.DNSRecord) {
	if s.seen == nil {
		s.seen = map[recordKey]bool{}
	}
	k := recordKey{r.Type, r.Name, r.Value}
	if s.seen[k] {
		return
	}
	s.seen[k] = true
	s.out = append(s.out, r)
}

func trimDot(name string) string {
	return strings.TrimSuffix(name, ".")
}

// txtValue joins the character-strings of a TXT record into one value,
// undoing presentation escapes (\" \\ \DDD) in each.
func txtValue(segments []string) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(unescapeTXT(s))
	}
	return b.String()
}

// txtSegments splits presentation-format TXT data such as `"a" "b"` into its
// quoted strings, leaving escapes in place. Unquoted data is one segment.
func txtSegments(data string) []string {
	data = strings.TrimSpace(data)
	if !strings.HasPrefix(data, `"`) {
		return []string{data}
	}
	var segs []string
	for i := 0; i < len(data); {
		if data[i] != '"' {
			i++
			continue
		}
		j := i + 1
		for j < len(data) && data[j] != '"' {
			if data[j] == '\\' {
				j++
			}
			j++
		}
		if j > len(data) {
			j = len(data)
		}
		segs = append(segs, data[i+1:j])
		i = j + 1
	}
	return segs
}

func unescapeTXT(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		if i+3 < len(s) && isDigit(s[i+1]) && isDigit(s[i+2]) && isDigit(s[i+3]) {
			if n := int(s[i+1]-'0')*100 + int(s[i+2]-'0')*10 + int(s[i+3]-'0'); n <= 255 {
				b.WriteByte(byte(n))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i+1])
		i++
	}
	return b.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
