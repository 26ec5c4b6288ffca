package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPairs_MarshalKeepsInsertionOrder(t *testing.T) {
	p := Pairs{}.Set("zone", "b").Set("app", "web").Set("region", "us")
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"zone":"b","app":"web","region":"us"}` {
		t.Fatalf("unexpected order: %s", b)
	}

	p = p.Set("app", "api")
	if v, _ := p.Get("app"); v != "api" || len(p) != 3 {
		t.Fatalf("Set should replace in place, got %+v", p)
	}

	var empty Pairs
	b, _ = json.Marshal(empty)
	if string(b) != "{}" {
		t.Fatalf("nil pairs should marshal to {}, got %s", b)
	}
}

func TestTLSResult_DisabledIsEmptyObject(t *testing.T) {
	b, err := json.Marshal(TLSResult{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "{}" {
		t.Fatalf("want {}, got %s", b)
	}
}

func TestTLSResult_FailureOmitsCertificateFields(t *testing.T) {
	r := TLSResult{Checked: true, URL: "https://x.test", Time: "t", Message: "x509: unknown authority"}
	b, _ := json.Marshal(r)
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["valid"] != false || m["message"] == "" {
		t.Fatalf("unexpected failure shape: %s", b)
	}
	for _, k := range []string{"issuer", "expired", "fingerprint", "additional_domains"} {
		if _, ok := m[k]; ok {
			t.Fatalf("key %q should be absent on failure: %s", k, b)
		}
	}
}

func TestTLSResult_SuccessFlattensCertificate(t *testing.T) {
	r := TLSResult{Checked: true, URL: "u", Time: "t", Valid: true, Certificate: &Certificate{
		Issuer: "R3", Domain: "example.com", AdditionalDomains: []string{"www.example.com"},
	}}
	b, _ := json.Marshal(r)
	if !strings.Contains(string(b), `"valid":true,"issuer":"R3"`) {
		t.Fatalf("certificate fields should follow valid: %s", b)
	}
	if strings.Contains(string(b), "message") {
		t.Fatalf("message should be omitted on success: %s", b)
	}
}

func TestDNSResult_EnabledAlwaysHasRecords(t *testing.T) {
	b, _ := json.Marshal(DNSResult{Checked: true, URL: "u", Time: "t"})
	if !strings.Contains(string(b), `"records":[]`) {
		t.Fatalf("want empty records array, got %s", b)
	}
	b, _ = json.Marshal(DNSResult{})
	if string(b) != "{}" {
		t.Fatalf("disabled dns should be {}, got %s", b)
	}
}

func TestWebhookEndpoint_StringHidesSecret(t *testing.T) {
	w := WebhookEndpoint{URL: "https://hook.test", Secret: "s3cret"}
	if s := w.String(); strings.Contains(s, "s3cret") {
		t.Fatalf("secret leaked: %s", s)
	}
}

func TestPairs_MarshalLeavesHTMLUnescaped(t *testing.T) {
	b, err := Pairs{}.Set("a<b", "x\"&\n").MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a<b":"x\"&\n"}` {
		t.Fatalf("unexpected encoding: %s", b)
	}

	b, err = Pairs(nil).MarshalJSON()
	if err != nil || string(b) != `{}` {
		t.Fatalf("nil pairs should encode as {}: %s %v", b, err)
	}
}
