package probe

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

// DNSChecker queries every resolver in the chain and keeps all answers, so
// disagreement between resolvers shows up in the payload.
type DNSChecker struct {
	Resolvers []Resolver
	Timeout   time.Duration
	Logger    *zap.Logger
	now       func() time.Time
}

func NewDNSChecker(logger *zap.Logger, timeout time.Duration, resolvers ...Resolver) *DNSChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DNSChecker{Resolvers: resolvers, Timeout: timeout, Logger: logger, now: time.Now}
}

// NewDNSCheckerFor builds the chain from resolver identifiers.
func NewDNSCheckerFor(logger *zap.Logger, timeout time.Duration, ids []string) *DNSChecker {
	rs := make([]Resolver, 0, len(ids))
	for _, id := range ids {
		rs = append(rs, ResolverFor(id, timeout))
	}
	return NewDNSChecker(logger, timeout, rs...)
}

func (d *DNSChecker) Check(ctx context.Context, rawURL string, enabled bool) domain.DNSResult {
	if !enabled {
		return domain.DNSResult{}
	}
	out := domain.DNSResult{Checked: true, URL: rawURL, Time: domain.Timestamp(d.now()), Records: []domain.DNSRecord{}}

	host, err := extractHost(rawURL)
	if err != nil {
		d.Logger.Warn("dns_invalid_url", zap.String("url", rawURL), zap.Error(err))
		return out
	}

	// Resolvers run concurrently; slots keep the concatenation in chain order.
	slots := make([][]domain.DNSRecord, len(d.Resolvers))
	var wg sync.WaitGroup
	for i, r := range d.Resolvers {
		wg.Add(1)
		go func(i int, r Resolver) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					d.Logger.Error("dns_resolver_panic", zap.String("resolver", r.Name()), zap.Any("panic", p))
				}
			}()

			rctx, cancel := context.WithTimeout(ctx, d.Timeout)
			defer cancel()

			recs, err := r.Resolve(rctx, host)
			if err != nil {
				d.Logger.Debug("dns_resolver_error",
					zap.String("resolver", r.Name()),
					zap.String("host", host),
					zap.Error(err),
				)
			}
			slots[i] = recs
		}(i, r)
	}
	wg.Wait()

	for _, recs := range slots {
		out.Records = append(out.Records, recs...)
	}
	return out
}
