// Package notify delivers signed payloads to webhook endpoints.
package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

const UserAgent = "Opsiebot/1.0"

// Sign returns the hex HMAC-SHA256 of body keyed by secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// DeliveryObserver is told about every delivery attempt.
type DeliveryObserver interface {
	ObserveDelivery(endpoint string, err error)
}

// Dispatcher fans one body out to every endpoint. Each endpoint gets exactly
// one attempt; a failure is logged and never blocks the others.
type Dispatcher struct {
	hooks    []*Webhook
	logger   *zap.Logger
	observer DeliveryObserver
}

func NewDispatcher(endpoints []domain.WebhookEndpoint, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	hooks := make([]*Webhook, 0, len(endpoints))
	for _, ep := range endpoints {
		hooks = append(hooks, NewWebhook(ep, timeout))
	}
	return &Dispatcher{hooks: hooks, logger: logger}
}

// WithObserver attaches o and returns d.
func (d *Dispatcher) WithObserver(o DeliveryObserver) *Dispatcher {
	d.observer = o
	return d
}

func (d *Dispatcher) Len() int { return len(d.hooks) }

// Deliver returns the combined delivery errors, if any.
func (d *Dispatcher) Deliver(ctx context.Context, body []byte) error {
	if len(d.hooks) == 0 {
		return nil
	}

	errs := make([]error, len(d.hooks))
	var wg sync.WaitGroup
	for i, h := range d.hooks {
		wg.Add(1)
		go func(i int, h *Webhook) {
			defer wg.Done()
			err := h.Send(ctx, body)
			errs[i] = err
			if d.observer != nil {
				d.observer.ObserveDelivery(h.Endpoint.URL, err)
			}
			if err != nil {
				d.logger.Warn("webhook_failed", zap.String("url", h.Endpoint.URL), zap.Error(err))
				return
			}
			d.logger.Debug("webhook_delivered", zap.String("url", h.Endpoint.URL))
		}(i, h)
	}
	wg.Wait()

	return multierr.Combine(errs...)
}
