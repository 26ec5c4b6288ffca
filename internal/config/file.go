package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads monitor options from a YAML file. Unknown keys are rejected.
func LoadFile(path string) (Options, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("read config: %w", err)
	}
	var o Options
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil && !errors.Is(err, io.EOF) {
		return Options{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return o, nil
}

// Merge lays command-line options over file options. changed reports whether
// a flag was set explicitly; a non-empty positional URL always wins.
func Merge(file, flags Options, changed func(flag string) bool) Options {
	out := file
	if flags.URL != "" {
		out.URL = flags.URL
	}
	if changed("method") {
		out.Method = flags.Method
	}
	if changed("body") {
		out.Body = flags.Body
	}
	if changed("post-as-form") {
		out.PostAsForm = flags.PostAsForm
	}
	if changed("header") {
		out.Headers = flags.Headers
	}
	if changed("accept-header") {
		out.Accept = flags.Accept
	}
	if changed("timeout") {
		out.Timeout = flags.Timeout
	}
	if changed("interval") {
		out.Interval = flags.Interval
	}
	if changed("username") {
		out.Username = flags.Username
	}
	if changed("password") {
		out.Password = flags.Password
	}
	if changed("digest-auth") {
		out.DigestAuth = flags.DigestAuth
	}
	if changed("bearer-token") {
		out.BearerToken = flags.BearerToken
	}
	if changed("metadata") {
		out.Metadata = flags.Metadata
	}
	if changed("webhook-url") {
		out.WebhookURLs = flags.WebhookURLs
	}
	if changed("webhook-secret") {
		out.WebhookSecrets = flags.WebhookSecrets
	}
	if changed("dns-checking") {
		out.DNSChecking = flags.DNSChecking
	}
	if changed("dns-checking-server") {
		out.DNSServers = flags.DNSServers
	}
	if changed("ssl-checking") {
		out.SSLChecking = flags.SSLChecking
	}
	if changed("once") {
		out.Once = flags.Once
	}
	return out
}

// KeyValues is a list of key=value entries. In YAML it may also be written as
// a mapping, whose document order is kept.
type KeyValues []string

func (kv *KeyValues) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*kv = list
		return nil
	}
	out := make(KeyValues, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		out = append(out, node.Content[i].Value+"="+node.Content[i+1].Value)
	}
	*kv = out
	return nil
}

// JSONBody is the raw JSON request body. In YAML it may be a JSON string or a
// nested mapping.
type JSONBody string

func (b *JSONBody) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*b = JSONBody(node.Value)
		return nil
	}
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	raw, err := json.Marshal(normalize(v))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	*b = JSONBody(raw)
	return nil
}

// normalize converts YAML maps with non-string keys into JSON-encodable ones.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalize(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = normalize(item)
		}
		return t
	default:
		return v
	}
}
