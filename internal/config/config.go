package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

const (
	DefaultMethod   = "POST"
	DefaultAccept   = "application/json"
	DefaultTimeout  = 10 // seconds
	DefaultInterval = 10 // seconds
	DefaultResolver = "cloudflare"
)

var (
	ErrInvalidBody = errors.New("body must be a JSON object")
	ErrInvalidPair = errors.New("expected key=value")
)

// Env holds process-level settings that are not part of a monitor's configuration.
type Env struct {
	LogDir        string   // logs directory
	LogLevel      string   // debug, info, warn, error
	StatusAddr    string   // status server bind address, empty disables it
	StatusAPIKeys []string // empty means the status server is open
	StatusRPM     int      // per-client requests per minute, 0 disables limiting
	StatusBurst   int
}

func FromEnv() Env {
	// Logs
	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}
	level := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if level == "" {
		level = "info"
	}

	// Status server rate limiting
	rpm := 120
	if v := os.Getenv("STATUS_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			rpm = n
		}
	}
	burst := 30
	if v := os.Getenv("STATUS_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			burst = n
		}
	}

	return Env{
		LogDir:        logDir,
		LogLevel:      level,
		StatusAddr:    strings.TrimSpace(os.Getenv("STATUS_ADDR")),
		StatusAPIKeys: splitCSV(os.Getenv("STATUS_API_KEYS")),
		StatusRPM:     rpm,
		StatusBurst:   burst,
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Options are the raw monitor options as given on the command line or in a
// YAML file. Timeout and Interval are in seconds; zero means the default.
type Options struct {
	URL            string                   `yaml:"url"`
	Method         string                   `yaml:"method"`
	Body           JSONBody                 `yaml:"body"`
	PostAsForm     bool                     `yaml:"post_as_form"`
	Headers        KeyValues                `yaml:"headers"`
	Accept         string                   `yaml:"accept_header"`
	Timeout        int                      `yaml:"timeout"`
	Interval       int                      `yaml:"interval"`
	Username       string                   `yaml:"username"`
	Password       string                   `yaml:"password"`
	DigestAuth     bool                     `yaml:"digest_auth"`
	BearerToken    string                   `yaml:"bearer_token"`
	Metadata       KeyValues                `yaml:"metadata"`
	WebhookURLs    []string                 `yaml:"webhook_urls"`
	WebhookSecrets []string                 `yaml:"webhook_secrets"`
	Webhooks       []domain.WebhookEndpoint `yaml:"webhooks"`
	DNSChecking    bool                     `yaml:"dns_checking"`
	DNSServers     []string                 `yaml:"dns_checking_servers"`
	SSLChecking    *bool                    `yaml:"ssl_checking"`
	Once           bool                     `yaml:"once"`
}

// WebhookMismatch reports whether the positional URL and secret lists differ
// in length, in which case none of them are used.
func (o Options) WebhookMismatch() bool {
	return len(o.WebhookURLs) != len(o.WebhookSecrets)
}

// Build validates the options and produces the immutable monitor configuration.
func (o Options) Build() (domain.MonitorConfig, error) {
	target := strings.TrimSpace(o.URL)
	if target == "" {
		return domain.MonitorConfig{}, errors.New("target url is required")
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return domain.MonitorConfig{}, fmt.Errorf("invalid target url %q", target)
	}

	body, err := parseBody(string(o.Body))
	if err != nil {
		return domain.MonitorConfig{}, err
	}
	headers, err := parsePairs("header", o.Headers)
	if err != nil {
		return domain.MonitorConfig{}, err
	}
	metadata, err := parsePairs("metadata", o.Metadata)
	if err != nil {
		return domain.MonitorConfig{}, err
	}
	if o.Timeout < 0 || o.Interval < 0 {
		return domain.MonitorConfig{}, errors.New("timeout and interval must not be negative")
	}

	method := strings.ToUpper(strings.TrimSpace(o.Method))
	if method == "" {
		method = DefaultMethod
	}
	accept := o.Accept
	if accept == "" {
		accept = DefaultAccept
	}
	timeout := seconds(o.Timeout, DefaultTimeout)

	ssl := strings.EqualFold(u.Scheme, "https")
	if o.SSLChecking != nil {
		ssl = *o.SSLChecking
	}

	servers := make([]string, 0, len(o.DNSServers))
	for _, s := range o.DNSServers {
		if s = strings.TrimSpace(s); s != "" {
			servers = append(servers, s)
		}
	}
	if len(servers) == 0 {
		servers = []string{DefaultResolver}
	}

	if metadata == nil {
		metadata = domain.Pairs{}
	}

	return domain.MonitorConfig{
		URL: target,
		HTTP: domain.HTTPConfig{
			URL:        target,
			Method:     method,
			Body:       body,
			PostAsForm: o.PostAsForm,
			Headers:    headers,
			Accept:     accept,
			Timeout:    timeout,
			Auth:       o.auth(),
		},
		Interval:    seconds(o.Interval, DefaultInterval),
		Once:        o.Once,
		Metadata:    metadata,
		Webhooks:    o.webhooks(),
		DNSChecking: o.DNSChecking,
		DNSServers:  servers,
		SSLChecking: ssl,
	}, nil
}

func (o Options) auth() domain.Auth {
	switch {
	case o.Username != "" && o.DigestAuth:
		return domain.Auth{Mode: domain.AuthDigest, Username: o.Username, Password: o.Password}
	case o.Username != "":
		return domain.Auth{Mode: domain.AuthBasic, Username: o.Username, Password: o.Password}
	case o.BearerToken != "":
		return domain.Auth{Mode: domain.AuthBearer, Token: o.BearerToken}
	default:
		return domain.Auth{Mode: domain.AuthNone}
	}
}

// webhooks returns explicit pairs first, then the positional lists zipped
// together. Lists of unequal length contribute nothing.
func (o Options) webhooks() []domain.WebhookEndpoint {
	out := make([]domain.WebhookEndpoint, 0, len(o.Webhooks)+len(o.WebhookURLs))
	for _, w := range o.Webhooks {
		if w.URL != "" {
			out = append(out, w)
		}
	}
	if o.WebhookMismatch() {
		return out
	}
	for i, u := range o.WebhookURLs {
		out = append(out, domain.WebhookEndpoint{URL: u, Secret: o.WebhookSecrets[i]})
	}
	return out
}

func parseBody(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if body == nil {
		return nil, fmt.Errorf("%w: got null", ErrInvalidBody)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidBody)
	}
	return body, nil
}

// parsePairs splits each entry on the first '='. Repeated keys keep their
// first position and take the last value.
func parsePairs(name string, entries []string) (domain.Pairs, error) {
	var out domain.Pairs
	for _, e := range entries {
		k, v, ok := strings.Cut(e, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("%s %q: %w", name, e, ErrInvalidPair)
		}
		out = out.Set(k, v)
	}
	return out, nil
}

func seconds(n, def int) time.Duration {
	if n == 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}
