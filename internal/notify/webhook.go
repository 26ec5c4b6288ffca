package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

type Webhook struct {
	Endpoint domain.WebhookEndpoint
	Client   *http.Client
}

func NewWebhook(ep domain.WebhookEndpoint, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		Endpoint: ep,
		Client:   &http.Client{Timeout: timeout},
	}
}

// Send posts body as-is; the signature covers exactly these bytes.
func (w *Webhook) Send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.Endpoint.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook %s: %w", w.Endpoint.URL, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Signature", Sign(body, w.Endpoint.Secret))

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", w.Endpoint.URL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("webhook %s: non-2xx status %d", w.Endpoint.URL, resp.StatusCode)
	}
	return nil
}
