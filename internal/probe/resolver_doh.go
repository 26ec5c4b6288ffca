package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/multierr"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

// DoHResolver talks to the JSON flavour of DNS-over-HTTPS that Google and
// Cloudflare both serve.
type DoHResolver struct {
	name     string
	endpoint string
	Client   *http.Client
}

func NewDoHResolver(name, endpoint string, timeout time.Duration) *DoHResolver {
	return &DoHResolver{
		name:     name,
		endpoint: endpoint,
		Client:   &http.Client{Timeout: timeout},
	}
}

func (r *DoHResolver) Name() string { return r.name }

type dohAnswer struct {
	Name string `json:"name"`
	Type uint16 `json:"type"`
	TTL  uint32 `json:"TTL"`
	Data string `json:"data"`
}

type dohResponse struct {
	Status int         `json:"Status"`
	Answer []dohAnswer `json:"Answer"`
}

func (r *DoHResolver) Resolve(ctx context.Context, host string) ([]domain.DNSRecord, error) {
	var set recordSet
	var errs error
	for _, qt := range queryTypes {
		answers, err := r.query(ctx, host, qt)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for _, a := range answers {
			value := trimDot(a.Data)
			if a.Type == dns.TypeTXT {
				value = txtValue(txtSegments(a.Data))
			}
			set.add(domain.DNSRecord{
				Type:     typeName(a.Type),
				Name:     trimDot(a.Name),
				TTL:      a.TTL,
				Class:    "IN",
				Value:    value,
				Resolver: r.name,
			})
		}
	}
	return set.out, errs
}

func (r *DoHResolver) query(ctx context.Context, host string, qt uint16) ([]dohAnswer, error) {
	q := url.Values{}
	q.Set("name", host)
	q.Set("type", typeName(qt))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%s: %s %s: http %d", r.name, host, typeName(qt), resp.StatusCode)
	}

	var body dohResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", r.name, err)
	}
	if body.Status != dns.RcodeSuccess {
		return nil, fmt.Errorf("%s: %s %s: %s", r.name, host, typeName(qt), dns.RcodeToString[body.Status])
	}
	return body.Answer, nil
}

func typeName(t uint16) string {
	if s, ok := dns.TypeToString[t]; ok {
		return s
	}
	return "TYPE" + strconv.Itoa(int(t))
}
