package domain

import (
	"bytes"
	"encoding/json"
)

type Pair struct {
	Key   string
	Value string
}

// Pairs is an ordered string map. It serializes as a JSON object in
// insertion order.
type Pairs []Pair

// Set replaces the value of an existing key in place or appends a new pair.
func (p Pairs) Set(key, value string) Pairs {
	for i := range p {
		if p[i].Key == key {
			p[i].Value = value
			return p
		}
	}
	return append(p, Pair{Key: key, Value: value})
}

func (p Pairs) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

func (p Pairs) Keys() []string {
	out := make([]string, 0, len(p))
	for _, kv := range p {
		out = append(out, kv.Key)
	}
	return out
}

// MarshalJSON leaves HTML characters unescaped, matching payload encoding.
func (p Pairs) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, kv := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(kv.Key); err != nil {
			return nil, err
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if err := enc.Encode(kv.Value); err != nil {
			return nil, err
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// trimNewline drops the newline json.Encoder writes after each value.
func trimNewline(buf *bytes.Buffer) {
	buf.Truncate(buf.Len() - 1)
}
