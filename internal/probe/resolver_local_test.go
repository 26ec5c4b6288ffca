package probe

import (
	"context"
	"errors"
	"net"
	"testing"
)

type fakeSystemResolver struct {
	ipErr error
}

func (f fakeSystemResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	if f.ipErr != nil {
		return nil, f.ipErr
	}
	return []net.IPAddr{{IP: net.ParseIP("192.0.2.7")}, {IP: net.ParseIP("2001:db8::7")}}, nil
}

func (fakeSystemResolver) LookupCNAME(ctx context.Context, host string) (string, error) {
	return host + ".", nil
}

func (fakeSystemResolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	return []*net.MX{{Host: "mail.example.test.", Pref: 10}}, nil
}

func (fakeSystemResolver) LookupNS(ctx context.Context, name string) ([]*net.NS, error) {
	return nil, errors.New("no NS")
}

func (fakeSystemResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	return []string{"v=spf1 -all"}, nil
}

func TestLocalResolver_ConvertsLookups(t *testing.T) {
	l := &LocalResolver{r: fakeSystemResolver{}}
	recs, err := l.Resolve(context.Background(), "example.test")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := []struct{ typ, value string }{
		{"A", "192.0.2.7"},
		{"AAAA", "2001:db8::7"},
		{"MX", "10 mail.example.test"},
		{"TXT", "v=spf1 -all"},
	}
	if len(recs) != len(want) {
		t.Fatalf("got %d records: %+v", len(recs), recs)
	}
	for i, w := range want {
		if recs[i].Type != w.typ || recs[i].Value != w.value || recs[i].Resolver != ResolverLocal {
			t.Fatalf("record %d = %+v, want %s %s", i, recs[i], w.typ, w.value)
		}
	}
}

func TestLocalResolver_AddressErrorKeepsOtherRecords(t *testing.T) {
	l := &LocalResolver{r: fakeSystemResolver{ipErr: errors.New("no such host")}}
	recs, err := l.Resolve(context.Background(), "example.test")
	if err == nil {
		t.Fatalf("expected the address lookup error")
	}
	if len(recs) != 2 {
		t.Fatalf("MX and TXT should still be reported, got %+v", recs)
	}
}
