package domain

import (
	"encoding/json"
	"time"
)

// Timestamp formats t the way every result's time fields are rendered.
func Timestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

// Timing keys, in milliseconds measured from the start of the request.
const (
	TimingTotal         = "total"
	TimingDNSResolving  = "dns_resolving"
	TimingSSL           = "ssl"
	TimingPreTransfer   = "pre_transfer"
	TimingStartTransfer = "start_transfer"
)

type HTTPResult struct {
	URL     string             `json:"url"`
	Time    string             `json:"time"`
	Status  int                `json:"status"` // 0 when no response was received
	Up      bool               `json:"up"`
	Timing  map[string]float64 `json:"timing"`
	Message string             `json:"message,omitempty"`
}

// Certificate holds the descriptive fields of a successfully inspected
// certificate. It is nil on failure so none of its keys are emitted.
type Certificate struct {
	Issuer            string   `json:"issuer"`
	Expired           bool     `json:"expired"`
	ValidFrom         string   `json:"valid_from"`
	ExpiresOn         string   `json:"expires_on"`
	DaysRemaining     int      `json:"days_remaining"`
	Domain            string   `json:"domain"`
	Algorithm         string   `json:"algorithm"`
	Fingerprint       string   `json:"fingerprint"`
	AdditionalDomains []string `json:"additional_domains"`
}

type TLSResult struct {
	Checked bool   `json:"-"`
	URL     string `json:"url"`
	Time    string `json:"time"`
	Valid   bool   `json:"valid"`
	*Certificate
	Message string `json:"message,omitempty"`
}

// MarshalJSON renders a disabled check as an empty object.
func (r TLSResult) MarshalJSON() ([]byte, error) {
	if !r.Checked {
		return []byte("{}"), nil
	}
	type plain TLSResult
	return json.Marshal(plain(r))
}

type DNSRecord struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	TTL      uint32 `json:"ttl"`
	Class    string `json:"class"`
	Value    string `json:"value"`
	Resolver string `json:"resolver"`
}

type DNSResult struct {
	Checked bool        `json:"-"`
	URL     string      `json:"url"`
	Time    string      `json:"time"`
	Records []DNSRecord `json:"records"`
}

func (r DNSResult) MarshalJSON() ([]byte, error) {
	if !r.Checked {
		return []byte("{}"), nil
	}
	type plain DNSResult
	p := plain(r)
	if p.Records == nil {
		p.Records = []DNSRecord{}
	}
	return json.Marshal(p)
}

// Payload is one cycle's findings. Field order is part of the wire format.
type Payload struct {
	HTTP     HTTPResult `json:"http"`
	SSL      TLSResult  `json:"ssl"`
	DNS      DNSResult  `json:"dns"`
	Metadata Pairs      `json:"metadata"`
}
