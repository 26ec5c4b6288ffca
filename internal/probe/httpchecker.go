package probe

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/icholy/digest"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// HTTPChecker issues exactly one request per Check. Certificate verification
// is off: certificate problems are the TLS checker's business.
type HTTPChecker struct {
	cfg domain.HTTPConfig
	now func() time.Time
}

func NewHTTPChecker(cfg domain.HTTPConfig) *HTTPChecker {
	if cfg.Method == "" {
		cfg.Method = http.MethodPost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPChecker{cfg: cfg, now: time.Now}
}

func (h *HTTPChecker) Check(ctx context.Context) domain.HTTPResult {
	start := h.now()
	out := domain.HTTPResult{
		URL:    h.cfg.URL,
		Time:   domain.Timestamp(start),
		Timing: map[string]float64{},
	}

	req, err := h.newRequest(ctx)
	if err != nil {
		out.Message = err.Error()
		return out
	}

	tr := newProbeTransport(h.cfg.Timeout)
	defer tr.CloseIdleConnections()

	client := &http.Client{Timeout: h.cfg.Timeout, Transport: h.roundTripper(tr)}

	tt := &traceTimes{}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), tt.trace()))
	began := time.Now()

	resp, err := client.Do(req)
	if err != nil {
		out.Message = err.Error()
		return out
	}
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		out.Message = fmt.Sprintf("reading response body: %v", err)
		return out
	}
	total := time.Since(began)

	out.Status = resp.StatusCode
	out.Up = resp.StatusCode >= 200 && resp.StatusCode < 300
	out.Timing = tt.breakdown(began, total)
	return out
}

func newProbeTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: timeout,
		}).DialContext,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // probe reports reachability only
		TLSHandshakeTimeout: timeout,
		DisableKeepAlives:   true,
		ForceAttemptHTTP2:   true,
	}
}

func (h *HTTPChecker) roundTripper(tr *http.Transport) http.RoundTripper {
	if h.cfg.Auth.Mode == domain.AuthDigest {
		return &digest.Transport{
			Username:  h.cfg.Auth.Username,
			Password:  h.cfg.Auth.Password,
			Transport: tr,
		}
	}
	return tr
}

func (h *HTTPChecker) newRequest(ctx context.Context) (*http.Request, error) {
	method := strings.ToUpper(h.cfg.Method)
	target := h.cfg.URL
	contentType := contentTypeJSON
	if h.cfg.PostAsForm {
		contentType = contentTypeForm
	}

	var body io.Reader
	if h.cfg.Body != nil {
		switch {
		case method == http.MethodGet || method == http.MethodHead:
			u, err := url.Parse(target)
			if err != nil {
				return nil, err
			}
			q := u.Query()
			for k, vs := range formValues(h.cfg.Body) {
				for _, v := range vs {
					q.Add(k, v)
				}
			}
			u.RawQuery = q.Encode()
			target = u.String()
		case h.cfg.PostAsForm:
			body = strings.NewReader(formValues(h.cfg.Body).Encode())
		default:
			b, err := json.Marshal(h.cfg.Body)
			if err != nil {
				return nil, fmt.Errorf("encoding body: %w", err)
			}
			body = bytes.NewReader(b)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	if h.cfg.Accept != "" {
		req.Header.Set("Accept", h.cfg.Accept)
	}
	for _, kv := range h.cfg.Headers {
		req.Header.Set(kv.Key, kv.Value)
	}

	switch h.cfg.Auth.Mode {
	case domain.AuthBasic:
		req.SetBasicAuth(h.cfg.Auth.Username, h.cfg.Auth.Password)
	case domain.AuthBearer:
		req.Header.Set("Authorization", "Bearer "+h.cfg.Auth.Token)
	}
	return req, nil
}

// formValues flattens a decoded JSON object the way form encoders do:
// nested values become key[sub]=value, nulls are dropped.
func formValues(body map[string]any) url.Values {
	vals := url.Values{}
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		flatten(vals, k, body[k])
	}
	return vals
}

func flatten(vals url.Values, key string, v any) {
	switch t := v.(type) {
	case nil:
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(vals, key+"["+k+"]", t[k])
		}
	case []any:
		for i, item := range t {
			flatten(vals, key+"["+strconv.Itoa(i)+"]", item)
		}
	case bool:
		if t {
			vals.Add(key, "1")
		} else {
			vals.Add(key, "0")
		}
	case float64:
		vals.Add(key, strconv.FormatFloat(t, 'f', -1, 64))
	case string:
		vals.Add(key, t)
	default:
		vals.Add(key, fmt.Sprint(t))
	}
}

// traceTimes records connection milestones. Trace hooks can fire from the
// dialer's goroutines, hence the mutex.
type traceTimes struct {
	mu        sync.Mutex
	dnsDone   time.Time
	tlsDone   time.Time
	gotConn   time.Time
	firstByte time.Time
}

func (t *traceTimes) mark(field *time.Time) {
	t.mu.Lock()
	*field = time.Now()
	t.mu.Unlock()
}

func (t *traceTimes) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSDone:              func(httptrace.DNSDoneInfo) { t.mark(&t.dnsDone) },
		TLSHandshakeDone:     func(tls.ConnectionState, error) { t.mark(&t.tlsDone) },
		GotConn:              func(httptrace.GotConnInfo) { t.mark(&t.gotConn) },
		GotFirstResponseByte: func() { t.mark(&t.firstByte) },
	}
}

// breakdown reports cumulative milliseconds since start. Phases that never
// happened (IP literal, plain HTTP) are 0.
func (t *traceTimes) breakdown(start time.Time, total time.Duration) map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	since := func(ts time.Time) float64 {
		if ts.IsZero() {
			return 0
		}
		return millis(ts.Sub(start))
	}
	return map[string]float64{
		domain.TimingTotal:         millis(total),
		domain.TimingDNSResolving:  since(t.dnsDone),
		domain.TimingSSL:           since(t.tlsDone),
		domain.TimingPreTransfer:   since(t.gotConn),
		domain.TimingStartTransfer: since(t.firstByte),
	}
}
