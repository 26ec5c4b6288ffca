// Package probe holds the three checkers that run once per cycle. Checkers
// never return errors: every failure is reported inside the result value.
package probe

import (
	"errors"
	"net"
	"net/url"
	"time"
)

var errNoHost = errors.New("url has no host")

func extractHost(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Hostname() == "" {
		return "", errNoHost
	}
	return u.Hostname(), nil
}

// hostPort returns the host and a dialable address, falling back to
// defaultPort when the URL does not carry one.
func hostPort(raw, defaultPort string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	host := u.Hostname()
	if host == "" {
		return "", "", errNoHost
	}
	port := u.Port()
	if port == "" {
		port = defaultPort
	}
	return host, net.JoinHostPort(host, port), nil
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
