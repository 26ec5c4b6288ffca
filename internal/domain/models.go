package domain

import "time"

type AuthMode string

const (
	AuthNone   AuthMode = "none"
	AuthBasic  AuthMode = "basic"
	AuthDigest AuthMode = "digest"
	AuthBearer AuthMode = "bearer"
)

// Auth describes how the HTTP probe authenticates. Basic and digest win over a
// bearer token when both are configured.
type Auth struct {
	Mode     AuthMode
	Username string
	Password string
	Token    string
}

// HTTPConfig is the slice of MonitorConfig the HTTP checker reads.
type HTTPConfig struct {
	URL        string
	Method     string
	Body       map[string]any // nil means no body
	PostAsForm bool
	Headers    Pairs
	Accept     string
	Timeout    time.Duration
	Auth       Auth
}

// WebhookEndpoint is a delivery target. Secret is only used for signing.
type WebhookEndpoint struct {
	URL    string `yaml:"url"`
	Secret string `yaml:"secret"`
}

// String keeps the secret out of logs and %v formatting.
func (w WebhookEndpoint) String() string { return w.URL }

// MonitorConfig is built once at startup and never mutated afterwards.
type MonitorConfig struct {
	URL         string
	HTTP        HTTPConfig
	Interval    time.Duration
	Once        bool
	Metadata    Pairs
	Webhooks    []WebhookEndpoint
	DNSChecking bool
	DNSServers  []string
	SSLChecking bool
}
