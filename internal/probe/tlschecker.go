package probe

import (
	"context"
	"crypto/sha1" //nolint:gosec // fingerprint format, not a security primitive
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"net"
	"time"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

// TLSChecker fetches and verifies the certificate a host presents.
type TLSChecker struct {
	Timeout time.Duration
	RootCAs *x509.CertPool // nil means the system pool
	now     func() time.Time
}

func NewTLSChecker(timeout time.Duration) *TLSChecker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TLSChecker{Timeout: timeout, now: time.Now}
}

func (c *TLSChecker) Check(ctx context.Context, rawURL string, enabled bool) domain.TLSResult {
	if !enabled {
		return domain.TLSResult{}
	}
	start := c.now()
	out := domain.TLSResult{Checked: true, URL: rawURL, Time: domain.Timestamp(start)}

	host, addr, err := hostPort(rawURL, "443")
	if err != nil {
		out.Message = err.Error()
		return out
	}

	leaf, err := c.fetch(ctx, host, addr)
	if err != nil {
		out.Message = err.Error()
		return out
	}

	now := c.now()
	expired := now.After(leaf.NotAfter)
	out.Valid = !expired && !now.Before(leaf.NotBefore) && leaf.VerifyHostname(host) == nil
	out.Certificate = describe(leaf, host, now)
	return out
}

func (c *TLSChecker) fetch(ctx context.Context, host, addr string) (*x509.Certificate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	d := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: c.Timeout},
		Config: &tls.Config{
			ServerName: host,
			RootCAs:    c.RootCAs,
			MinVersion: tls.VersionTLS10,
		},
	}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, errors.New("server presented no certificate")
	}
	return state.PeerCertificates[0], nil
}

func describe(leaf *x509.Certificate, host string, now time.Time) *domain.Certificate {
	sum := sha1.Sum(leaf.Raw) //nolint:gosec
	return &domain.Certificate{
		Issuer:            issuerName(leaf),
		Expired:           now.After(leaf.NotAfter),
		ValidFrom:         domain.Timestamp(leaf.NotBefore),
		ExpiresOn:         domain.Timestamp(leaf.NotAfter),
		DaysRemaining:     int(leaf.NotAfter.Sub(now).Hours() / 24),
		Domain:            subjectDomain(leaf, host),
		Algorithm:         leaf.SignatureAlgorithm.String(),
		Fingerprint:       hex.EncodeToString(sum[:]),
		AdditionalDomains: sanNames(leaf),
	}
}

func issuerName(c *x509.Certificate) string {
	if c.Issuer.CommonName != "" {
		return c.Issuer.CommonName
	}
	if len(c.Issuer.Organization) > 0 {
		return c.Issuer.Organization[0]
	}
	return c.Issuer.String()
}

func subjectDomain(c *x509.Certificate, host string) string {
	if c.Subject.CommonName != "" {
		return c.Subject.CommonName
	}
	if len(c.DNSNames) > 0 {
		return c.DNSNames[0]
	}
	return host
}

func sanNames(c *x509.Certificate) []string {
	out := make([]string, 0, len(c.DNSNames)+len(c.IPAddresses))
	out = append(out, c.DNSNames...)
	for _, ip := range c.IPAddresses {
		out = append(out, ip.String())
	}
	return out
}
