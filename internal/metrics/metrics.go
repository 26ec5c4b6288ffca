// Package metrics exposes the latest cycle's findings as Prometheus series.
// Monitor metadata is attached to every series as constant labels.
package metrics

import (
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

const namespace = "sitemonitor"

type Metrics struct {
	Registry *prometheus.Registry

	Cycles           prometheus.Counter
	HTTPUp           prometheus.Gauge
	HTTPStatus       prometheus.Gauge
	HTTPTiming       *prometheus.GaugeVec
	SSLValid         prometheus.Gauge
	SSLDaysRemaining prometheus.Gauge
	DNSRecords       *prometheus.GaugeVec
	Deliveries       *prometheus.CounterVec
}

func New(target string, metadata domain.Pairs) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	labels := constLabels(target, metadata)

	return &Metrics{
		Registry: reg,

		Cycles: f.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "cycles_total",
			Help:        "Number of completed check cycles",
			ConstLabels: labels,
		}),
		HTTPUp: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "http_up",
			Help:        "1 if the last HTTP check returned a 2xx response",
			ConstLabels: labels,
		}),
		HTTPStatus: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "http_status_code",
			Help:        "Status code of the last HTTP check, 0 when no response was received",
			ConstLabels: labels,
		}),
		HTTPTiming: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "http_timing_milliseconds",
			Help:        "Cumulative request phase timings of the last HTTP check",
			ConstLabels: labels,
		}, []string{"phase"}),
		SSLValid: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "ssl_valid",
			Help:        "1 if the last certificate check succeeded",
			ConstLabels: labels,
		}),
		SSLDaysRemaining: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "ssl_days_remaining",
			Help:        "Days until the certificate expires",
			ConstLabels: labels,
		}),
		DNSRecords: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "dns_records",
			Help:        "Records returned per resolver in the last DNS check",
			ConstLabels: labels,
		}, []string{"resolver"}),
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "webhook_deliveries_total",
			Help:        "Webhook delivery attempts by outcome",
			ConstLabels: labels,
		}, []string{"result"}),
	}
}

// Observe records one assembled payload.
func (m *Metrics) Observe(p domain.Payload) {
	m.Cycles.Inc()

	m.HTTPUp.Set(boolFloat(p.HTTP.Up))
	m.HTTPStatus.Set(float64(p.HTTP.Status))
	m.HTTPTiming.Reset()
	for phase, ms := range p.HTTP.Timing {
		m.HTTPTiming.WithLabelValues(phase).Set(ms)
	}

	if p.SSL.Checked {
		m.SSLValid.Set(boolFloat(p.SSL.Valid))
		if p.SSL.Certificate != nil {
			m.SSLDaysRemaining.Set(float64(p.SSL.DaysRemaining))
		}
	}

	if p.DNS.Checked {
		m.DNSRecords.Reset()
		for _, r := range p.DNS.Records {
			m.DNSRecords.WithLabelValues(r.Resolver).Inc()
		}
	}
}

// ObserveDelivery satisfies notify.DeliveryObserver.
func (m *Metrics) ObserveDelivery(_ string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.Deliveries.WithLabelValues(result).Inc()
}

var invalidLabelChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// variableLabels are the per-series label names; a metadata key with the same
// name would clash with them.
var variableLabels = map[string]bool{"phase": true, "resolver": true, "result": true}

func constLabels(target string, metadata domain.Pairs) prometheus.Labels {
	labels := prometheus.Labels{"target": target}
	for _, kv := range metadata {
		name := invalidLabelChars.ReplaceAllString(kv.Key, "_")
		if name == "" || (name[0] >= '0' && name[0] <= '9') {
			name = "_" + name
		}
		if name == "target" || strings.HasPrefix(name, "__") {
			continue
		}
		if variableLabels[name] {
			name = "meta_" + name
		}
		labels[name] = strings.ToValidUTF8(kv.Value, "\uFFFD")
	}
	return labels
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
