package probe

import (
	"context"
	"crypto/x509"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func trustedChecker(s *httptest.Server) *TLSChecker {
	pool := x509.NewCertPool()
	pool.AddCert(s.Certificate())
	c := NewTLSChecker(2 * time.Second)
	c.RootCAs = pool
	return c
}

func TestTLSChecker_TrustedCertificate(t *testing.T) {
	s := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer s.Close()

	out := trustedChecker(s).Check(context.Background(), s.URL, true)
	if !out.Checked || !out.Valid {
		t.Fatalf("want valid certificate, got %+v", out)
	}
	if out.Certificate == nil {
		t.Fatalf("certificate details missing")
	}
	c := out.Certificate
	if c.Expired {
		t.Fatalf("certificate should not be expired")
	}
	if c.Issuer == "" || c.Domain == "" || c.ValidFrom == "" || c.ExpiresOn == "" || c.Algorithm == "" {
		t.Fatalf("descriptive fields should be populated: %+v", c)
	}
	if len(c.Fingerprint) != 40 {
		t.Fatalf("want sha1 hex fingerprint, got %q", c.Fingerprint)
	}
	if c.DaysRemaining <= 0 {
		t.Fatalf("want positive days remaining, got %d", c.DaysRemaining)
	}
	if len(c.AdditionalDomains) == 0 {
		t.Fatalf("want SAN entries, got none")
	}
	if out.Message != "" {
		t.Fatalf("unexpected message %q", out.Message)
	}
}

func TestTLSChecker_UntrustedCertificate(t *testing.T) {
	s := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer s.Close()

	out := NewTLSChecker(2*time.Second).Check(context.Background(), s.URL, true)
	if out.Valid {
		t.Fatalf("self-signed certificate must not be valid")
	}
	if out.Message == "" {
		t.Fatalf("want failure message")
	}
	if out.Certificate != nil {
		t.Fatalf("descriptive fields must be absent on failure: %+v", out.Certificate)
	}
}

func TestTLSChecker_ExpiredAtCheckTime(t *testing.T) {
	s := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer s.Close()

	c := trustedChecker(s)
	// Handshake verification uses the real clock; only the report is evaluated late.
	calls := 0
	c.now = func() time.Time {
		calls++
		if calls == 1 {
			return time.Now()
		}
		return s.Certificate().NotAfter.Add(time.Hour)
	}
	out := c.Check(context.Background(), s.URL, true)
	if out.Valid || out.Certificate == nil || !out.Certificate.Expired {
		t.Fatalf("want expired report, got %+v", out)
	}
}

func TestTLSChecker_Disabled(t *testing.T) {
	out := NewTLSChecker(time.Second).Check(context.Background(), "https://example.com", false)
	if out.Checked || out.URL != "" {
		t.Fatalf("disabled check should be empty, got %+v", out)
	}
}

func TestTLSChecker_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	out := NewTLSChecker(time.Second).Check(context.Background(), "https://"+addr, true)
	if out.Valid || out.Message == "" || out.Certificate != nil {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestTLSChecker_URLWithoutHost(t *testing.T) {
	out := NewTLSChecker(time.Second).Check(context.Background(), "https://", true)
	if out.Valid || out.Message == "" {
		t.Fatalf("want failure for hostless url, got %+v", out)
	}
}
