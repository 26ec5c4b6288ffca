// Package payload merges one cycle's check results into the record that is
// signed and delivered to webhooks.
package payload

import (
	"bytes"
	"encoding/json"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

// Assemble is a pure structural merge.
func Assemble(h domain.HTTPResult, s domain.TLSResult, d domain.DNSResult, metadata domain.Pairs) domain.Payload {
	if metadata == nil {
		metadata = domain.Pairs{}
	}
	return domain.Payload{HTTP: h, SSL: s, DNS: d, Metadata: metadata}
}

// Encode returns the canonical bytes of p. The same bytes are hashed and sent.
func Encode(p domain.Payload) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
