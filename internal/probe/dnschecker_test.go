package probe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

type fakeResolver struct {
	name  string
	recs  []domain.DNSRecord
	err   error
	delay time.Duration
	host  string
}

func (f *fakeResolver) Name() string { return f.name }

func (f *fakeResolver) Resolve(ctx context.Context, host string) ([]domain.DNSRecord, error) {
	f.host = host
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.recs, f.err
}

func rec(typ, value, resolver string) domain.DNSRecord {
	return domain.DNSRecord{Type: typ, Name: "example.com", Class: "IN", Value: value, Resolver: resolver}
}

func TestDNSChecker_AggregatesAllResolversInChainOrder(t *testing.T) {
	slow := &fakeResolver{name: "a", recs: []domain.DNSRecord{rec("A", "192.0.2.1", "a")}, delay: 30 * time.Millisecond}
	fast := &fakeResolver{name: "b", recs: []domain.DNSRecord{rec("A", "192.0.2.2", "b"), rec("AAAA", "2001:db8::2", "b")}}

	out := NewDNSChecker(zap.NewNop(), time.Second, slow, fast).Check(context.Background(), "https://example.com/path", true)
	if !out.Checked || out.Time == "" {
		t.Fatalf("want checked result with time, got %+v", out)
	}
	if len(out.Records) != 3 {
		t.Fatalf("want records from every resolver, got %+v", out.Records)
	}
	if out.Records[0].Resolver != "a" || out.Records[1].Resolver != "b" {
		t.Fatalf("records should follow chain order: %+v", out.Records)
	}
	if slow.host != "example.com" {
		t.Fatalf("resolver should receive hostname, got %q", slow.host)
	}
}

func TestDNSChecker_FailingResolverDoesNotAbortChain(t *testing.T) {
	bad := &fakeResolver{name: "bad", err: errors.New("servfail")}
	hung := &fakeResolver{name: "hung", delay: time.Minute}
	good := &fakeResolver{name: "good", recs: []domain.DNSRecord{rec("A", "192.0.2.3", "good")}}

	out := NewDNSChecker(zap.NewNop(), 50*time.Millisecond, bad, hung, good).Check(context.Background(), "https://example.com", true)
	if len(out.Records) != 1 || out.Records[0].Resolver != "good" {
		t.Fatalf("want only the good resolver's records, got %+v", out.Records)
	}
}

func TestDNSChecker_Disabled(t *testing.T) {
	r := &fakeResolver{name: "x"}
	out := NewDNSChecker(zap.NewNop(), time.Second, r).Check(context.Background(), "https://example.com", false)
	if out.Checked || out.Records != nil || r.host != "" {
		t.Fatalf("disabled check must not query resolvers: %+v", out)
	}
}

func TestResolverFor_KnownNamesAndNameservers(t *testing.T) {
	cases := map[string]string{
		"google":          ResolverGoogle,
		"Cloudflare":      ResolverCloudflare,
		"local":           ResolverLocal,
		"9.9.9.9":         "9.9.9.9",
		"ns1.example.net": "ns1.example.net",
	}
	for id, want := range cases {
		if got := ResolverFor(id, time.Second).Name(); got != want {
			t.Fatalf("ResolverFor(%q).Name()=%q want %q", id, got, want)
		}
	}
	if ns := ResolverFor("9.9.9.9", time.Second).(*NameserverResolver); ns.addr != "9.9.9.9:53" {
		t.Fatalf("default port not applied: %s", ns.addr)
	}
	if ns := ResolverFor("2001:db8::53", time.Second).(*NameserverResolver); ns.addr != "[2001:db8::53]:53" {
		t.Fatalf("ipv6 nameserver address wrong: %s", ns.addr)
	}
}

func startDNSServer(t *testing.T, zone map[uint16][]string) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
			m := new(dns.Msg)
			m.SetReply(r)
			for _, line := range zone[r.Question[0].Qtype] {
				rr, err := dns.NewRR(line)
				if err == nil {
					m.Answer = append(m.Answer, rr)
				}
			}
			_ = w.WriteMsg(m)
		}),
	}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })
	return pc.LocalAddr().String()
}

func TestNameserverResolver_ConvertsAnswers(t *testing.T) {
	addr := startDNSServer(t, map[uint16][]string{
		dns.TypeA:   {"example.test. 300 IN A 192.0.2.10"},
		dns.TypeMX:  {"example.test. 600 IN MX 10 mail.example.test."},
		dns.TypeTXT: {`example.test. 60 IN TXT "v=spf1 -all"`},
	})

	recs, err := NewNameserverResolver(addr, time.Second).Resolve(context.Background(), "example.test")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := map[string]string{"A": "192.0.2.10", "MX": "10 mail.example.test", "TXT": "v=spf1 -all"}
	if len(recs) != len(want) {
		t.Fatalf("want %d records, got %+v", len(want), recs)
	}
	for _, r := range recs {
		if want[r.Type] != r.Value {
			t.Fatalf("record %s: want %q got %q", r.Type, want[r.Type], r.Value)
		}
		if r.Name != "example.test" || r.Class != "IN" || r.Resolver != addr {
			t.Fatalf("unexpected record metadata: %+v", r)
		}
	}
	if recs[0].TTL != 300 {
		t.Fatalf("ttl not carried: %+v", recs[0])
	}
}

func TestDoHResolver_ParsesJSONAnswers(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/dns-json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/dns-json")
		switch r.URL.Query().Get("type") {
		case "A":
			w.Write([]byte(`{"Status":0,"Answer":[{"name":"example.com.","type":1,"TTL":120,"data":"93.184.216.34"}]}`))
		case "TXT":
			w.Write([]byte(`{"Status":0,"Answer":[{"name":"example.com.","type":16,"TTL":60,"data":"\"hello\""}]}`))
		case "SOA":
			w.Write([]byte(`{"Status":3}`))
		default:
			w.Write([]byte(`{"Status":0}`))
		}
	}))
	defer s.Close()

	recs, err := NewDoHResolver("cloudflare", s.URL, time.Second).Resolve(context.Background(), "example.com")
	if err == nil {
		t.Fatalf("want NXDOMAIN error for SOA to be reported")
	}
	if len(recs) != 2 {
		t.Fatalf("want 2 records, got %+v", recs)
	}
	if recs[0].Type != "A" || recs[0].Value != "93.184.216.34" || recs[0].Name != "example.com" || recs[0].TTL != 120 {
		t.Fatalf("unexpected A record: %+v", recs[0])
	}
	if recs[1].Type != "TXT" || recs[1].Value != "hello" || recs[1].Resolver != "cloudflare" {
		t.Fatalf("unexpected TXT record: %+v", recs[1])
	}
}

func TestResolvers_AgreeOnMultiStringTXT(t *testing.T) {
	addr := startDNSServer(t, map[uint16][]string{
		dns.TypeTXT: {
			`example.test. 60 IN TXT "v=spf1 " "-all"`,
			`example.test. 60 IN TXT "say \"hi\""`,
		},
	})
	doh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") != "TXT" {
			w.Write([]byte(`{"Status":0}`))
			return
		}
		w.Write([]byte(`{"Status":0,"Answer":[` +
			`{"name":"example.test.","type":16,"TTL":60,"data":"\"v=spf1 \" \"-all\""},` +
			`{"name":"example.test.","type":16,"TTL":60,"data":"\"say \\\"hi\\\"\""}]}`))
	}))
	defer doh.Close()

	fromNS, err := NewNameserverResolver(addr, time.Second).Resolve(context.Background(), "example.test")
	if err != nil {
		t.Fatalf("nameserver resolve: %v", err)
	}
	fromDoH, _ := NewDoHResolver("cloudflare", doh.URL, time.Second).Resolve(context.Background(), "example.test")

	want := []string{"v=spf1 -all", `say "hi"`}
	for name, recs := range map[string][]domain.DNSRecord{"nameserver": fromNS, "doh": fromDoH} {
		if len(recs) != len(want) {
			t.Fatalf("%s: want %d records, got %+v", name, len(want), recs)
		}
		for i, w := range want {
			if recs[i].Type != "TXT" || recs[i].Value != w {
				t.Fatalf("%s record %d: want %q got %q", name, i, w, recs[i].Value)
			}
		}
	}
}

func TestTXTSegments(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`"a" "b"`, "ab"},
		{`"a b"`, "a b"},
		{`plain text`, "plain text"},
		{`"esc\\aped\065"`, `esc\apedA`},
		{`"unterminated`, "unterminated"},
	}
	for _, c := range cases {
		if got := txtValue(txtSegments(c.in)); got != c.want {
			t.Fatalf("txtValue(%q) = %q want %q", c.in, got, c.want)
		}
	}
}
