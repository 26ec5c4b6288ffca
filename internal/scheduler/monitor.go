package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/sitemonitor/internal/domain"
	"github.com/hamed0406/sitemonitor/internal/notify"
	"github.com/hamed0406/sitemonitor/internal/payload"
	"github.com/hamed0406/sitemonitor/internal/probe"
)

type State int32

const (
	StateRunning State = iota
	StateStopped
)

func (s State) String() string {
	if s == StateRunning {
		return "RUNNING"
	}
	return "STOPPED"
}

type HTTPProber interface {
	Check(ctx context.Context) domain.HTTPResult
}

type TLSProber interface {
	Check(ctx context.Context, url string, enabled bool) domain.TLSResult
}

type DNSProber interface {
	Check(ctx context.Context, url string, enabled bool) domain.DNSResult
}

type Deliverer interface {
	Deliver(ctx context.Context, body []byte) error
}

// Observer receives every assembled payload, e.g. to update metrics.
type Observer interface {
	Observe(p domain.Payload)
}

// Monitor runs check cycles for one target until its context is cancelled
// or, with Once set, after the first cycle.
type Monitor struct {
	Logger   *zap.Logger
	Config   domain.MonitorConfig
	HTTP     HTTPProber
	TLS      TLSProber
	DNS      DNSProber
	Webhooks Deliverer
	Observer Observer

	state     atomic.Int32
	cycles    atomic.Int64
	lastCycle atomic.Int64 // unix nanos
}

func New(
	logger *zap.Logger,
	cfg domain.MonitorConfig,
	httpProber HTTPProber,
	tlsProber TLSProber,
	dnsProber DNSProber,
	webhooks Deliverer,
) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	m := &Monitor{
		Logger:   logger,
		Config:   cfg,
		HTTP:     httpProber,
		TLS:      tlsProber,
		DNS:      dnsProber,
		Webhooks: webhooks,
	}
	m.state.Store(int32(StateStopped))
	return m
}

// Recorder observes both payloads and webhook deliveries.
type Recorder interface {
	Observer
	notify.DeliveryObserver
}

// NewFromConfig wires the production checkers and dispatcher. rec may be nil.
func NewFromConfig(logger *zap.Logger, cfg domain.MonitorConfig, rec Recorder) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	hooks := notify.NewDispatcher(cfg.Webhooks, cfg.HTTP.Timeout, logger)
	m := New(
		logger,
		cfg,
		probe.NewHTTPChecker(cfg.HTTP),
		probe.NewTLSChecker(cfg.HTTP.Timeout),
		probe.NewDNSCheckerFor(logger, cfg.HTTP.Timeout, cfg.DNSServers),
		hooks,
	)
	if rec != nil {
		hooks.WithObserver(rec)
		m.Observer = rec
	}
	return m
}

func (m *Monitor) Target() string { return m.Config.URL }

func (m *Monitor) State() State { return State(m.state.Load()) }

func (m *Monitor) Cycles() int64 { return m.cycles.Load() }

// LastCycleAt is zero before the first cycle completes.
func (m *Monitor) LastCycleAt() time.Time {
	n := m.lastCycle.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Run blocks until ctx is cancelled or a single cycle completes in once mode.
// Cancellation interrupts the sleep immediately; a cycle already in progress
// finishes first.
func (m *Monitor) Run(ctx context.Context) error {
	m.state.Store(int32(StateRunning))
	defer func() {
		m.state.Store(int32(StateStopped))
		m.Logger.Info("monitor_stopped", zap.Int64("cycles", m.Cycles()))
	}()

	m.Logger.Info("monitor_started",
		zap.String("url", m.Config.URL),
		zap.Duration("interval", m.Config.Interval),
		zap.Bool("once", m.Config.Once),
		zap.Bool("ssl_checking", m.Config.SSLChecking),
		zap.Bool("dns_checking", m.Config.DNSChecking),
		zap.Int("webhooks", len(m.Config.Webhooks)),
	)

	for {
		if ctx.Err() != nil {
			return nil
		}
		m.RunCycle(ctx)
		if m.Config.Once {
			return nil
		}

		timer := time.NewTimer(m.Config.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// RunCycle performs one check-assemble-dispatch pass and returns the payload.
func (m *Monitor) RunCycle(ctx context.Context) domain.Payload {
	// In-flight probes and deliveries are bounded by their own timeouts and
	// are not torn down by a shutdown request.
	ctx = context.WithoutCancel(ctx)

	n := m.cycles.Add(1)
	start := time.Now()
	m.Logger.Debug("cycle_started", zap.Int64("cycle", n))

	var (
		h  domain.HTTPResult
		s  domain.TLSResult
		d  domain.DNSResult
		wg sync.WaitGroup
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		h = m.checkHTTP(ctx)
	}()
	go func() {
		defer wg.Done()
		s = m.checkTLS(ctx)
	}()
	go func() {
		defer wg.Done()
		d = m.checkDNS(ctx)
	}()
	wg.Wait()

	p := payload.Assemble(h, s, d, m.Config.Metadata)
	if m.Observer != nil {
		m.Observer.Observe(p)
	}
	m.dispatch(ctx, n, p)

	m.lastCycle.Store(time.Now().UnixNano())
	m.Logger.Info("cycle_finished",
		zap.Int64("cycle", n),
		zap.Int("status", p.HTTP.Status),
		zap.Bool("up", p.HTTP.Up),
		zap.Bool("ssl_valid", p.SSL.Valid),
		zap.Int("dns_records", len(p.DNS.Records)),
		zap.Duration("took", time.Since(start)),
	)
	return p
}

func (m *Monitor) dispatch(ctx context.Context, cycle int64, p domain.Payload) {
	if m.Webhooks == nil {
		return
	}
	body, err := payload.Encode(p)
	if err != nil {
		m.Logger.Error("payload_encode_error", zap.Int64("cycle", cycle), zap.Error(err))
		return
	}
	if err := m.Webhooks.Deliver(ctx, body); err != nil {
		m.Logger.Warn("cycle_delivery_errors",
			zap.Int64("cycle", cycle),
			zap.Int("failed", len(multierr.Errors(err))),
		)
	}
}

func (m *Monitor) checkHTTP(ctx context.Context) (out domain.HTTPResult) {
	defer func() {
		if r := recover(); r != nil {
			m.Logger.Error("http_check_panic", zap.Any("panic", r))
			out = domain.HTTPResult{
				URL:     m.Config.URL,
				Time:    domain.Timestamp(time.Now()),
				Timing:  map[string]float64{},
				Message: fmt.Sprintf("http check failed: %v", r),
			}
		}
	}()
	return m.HTTP.Check(ctx)
}

func (m *Monitor) checkTLS(ctx context.Context) (out domain.TLSResult) {
	defer func() {
		if r := recover(); r != nil {
			m.Logger.Error("ssl_check_panic", zap.Any("panic", r))
			out = domain.TLSResult{}
			if m.Config.SSLChecking {
				out = domain.TLSResult{
					Checked: true,
					URL:     m.Config.URL,
					Time:    domain.Timestamp(time.Now()),
					Message: fmt.Sprintf("ssl check failed: %v", r),
				}
			}
		}
	}()
	return m.TLS.Check(ctx, m.Config.URL, m.Config.SSLChecking)
}

func (m *Monitor) checkDNS(ctx context.Context) (out domain.DNSResult) {
	defer func() {
		if r := recover(); r != nil {
			m.Logger.Error("dns_check_panic", zap.Any("panic", r))
			out = domain.DNSResult{}
			if m.Config.DNSChecking {
				out = domain.DNSResult{
					Checked: true,
					URL:     m.Config.URL,
					Time:    domain.Timestamp(time.Now()),
					Records: []domain.DNSRecord{},
				}
			}
		}
	}()
	return m.DNS.Check(ctx, m.Config.URL, m.Config.DNSChecking)
}
