package core_test

import (
	"context"
	"strings"
	"testing"

	"github.com/x-stp/domcheck/internal/core"
	"github.com/x-stp/domcheck/internal/dnsprobe"
	"github.com/x-stp/domcheck/internal/domainname"
	"github.com/x-stp/domcheck/internal/whois"
)

// fakeWhois answers every query from a server -> text table and records calls.
type fakeWhois struct {
	answers map[string]string
	down    bool
	calls   []string
}

func (f *fakeWhois) Query(_ context.Context, server, query string) whois.Response {
	f.calls = append(f.calls, server+" "+query)
	if f.down {
		return whois.Response{Server: server, Query: query}
	}
	return whois.Response{Server: server, Query: query, Text: f.answers[server], Obtained: true}
}

func newClassifier(t *testing.T, fw *fakeWhois, dns *dnsprobe.Static) *core.Classifier {
	t.Helper()
	resolver := whois.NewResolver(fw, whois.ResolverConfig{})
	return core.NewClassifier(resolver, dns, core.ClassifierOptions{})
}

func TestClassifyRegisteredDomain(t *testing.T) {
	t.Parallel()

	fw := &fakeWhois{answers: map[string]string{
		whois.IANAServer:         "refer: whois.verisign-grs.com\nwhois: whois.verisign-grs.com\n",
		"whois.verisign-grs.com": "Domain Name: EXAMPLE.COM\nStatus: active",
	}}
	dns := dnsprobe.NewStatic().Set("example.com", true, dnsprobe.A)

	res := newClassifier(t, fw, dns).Classify(context.Background(), domainname.MustParse("example.com"))

	if res.Available {
		t.Fatalf("Available = true, want false: %+v", res)
	}
	if !res.DNSResolves || !res.HasA || res.HasNS {
		t.Errorf("DNS flags = resolves:%v a:%v ns:%v", res.DNSResolves, res.HasA, res.HasNS)
	}
	if res.Reason != core.ReasonDNSFallback {
		t.Errorf("Reason = %q, want %q", res.Reason, core.ReasonDNSFallback)
	}
	if res.WhoisText != "Domain Name: EXAMPLE.COM\nStatus: active" {
		t.Errorf("WhoisText = %q", res.WhoisText)
	}
	if res.WhoisServer != "whois.verisign-grs.com" {
		t.Errorf("WhoisServer = %q", res.WhoisServer)
	}
	want := []string{"whois.iana.org com", "whois.verisign-grs.com example.com"}
	if strings.Join(fw.calls, "|") != strings.Join(want, "|") {
		t.Errorf("calls = %v, want %v", fw.calls, want)
	}
}

func TestClassifyPatternBeatsDNS(t *testing.T) {
	t.Parallel()

	fw := &fakeWhois{answers: map[string]string{
		whois.IANAServer: "whois: whois.nic.io\n",
		"whois.nic.io":   "NOT FOUND",
	}}
	res := newClassifier(t, fw, dnsprobe.NewStatic()).Classify(context.Background(), domainname.MustParse("nonexistent-xyz123.io"))

	if !res.Available || res.Reason != core.ReasonPattern || res.MatchedPattern != "not found" {
		t.Fatalf("got %+v, want available via \"not found\"", res)
	}
	if res.DNSResolves {
		t.Error("DNSResolves = true with no records")
	}
}

func TestClassifyAbsencePatternsIgnoreDNS(t *testing.T) {
	t.Parallel()

	texts := []string{
		"No match for \"FOO.COM\".",
		"Domain not found.",
		"%% NOT FOUND",
		"No entries found for the selected source(s).",
		"Status:   AVAILABLE",
		"status:available",
		"DOMAIN NOT FOUND",
	}
	for _, text := range texts {
		t.Run(text, func(t *testing.T) {
			t.Parallel()
			fw := &fakeWhois{answers: map[string]string{
				whois.IANAServer:         "whois: whois.verisign-grs.com",
				"whois.verisign-grs.com": text,
			}}
			dns := dnsprobe.NewStatic().Set("foo.com", true, dnsprobe.A, dnsprobe.NS)
			res := newClassifier(t, fw, dns).Classify(context.Background(), domainname.MustParse("foo.com"))
			if !res.Available || res.Reason != core.ReasonPattern {
				t.Fatalf("text %q: got %+v, want pattern match", text, res)
			}
		})
	}
}

func TestClassifyFirstPatternWins(t *testing.T) {
	t.Parallel()

	fw := &fakeWhois{answers: map[string]string{
		whois.IANAServer:         "whois: whois.verisign-grs.com",
		"whois.verisign-grs.com": "Domain not found. No match.",
	}}
	res := newClassifier(t, fw, dnsprobe.NewStatic()).Classify(context.Background(), domainname.MustParse("foo.com"))
	if res.MatchedPattern != "no match" {
		t.Errorf("MatchedPattern = %q, want the first listed pattern", res.MatchedPattern)
	}
}

func TestClassifyEmptyWhoisFallsBackToDNS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		records []dnsprobe.Type
		want    bool
	}{
		{"a record", []dnsprobe.Type{dnsprobe.A}, false},
		{"ns record", []dnsprobe.Type{dnsprobe.NS}, false},
		{"both", []dnsprobe.Type{dnsprobe.A, dnsprobe.NS}, false},
		// CNAME is not part of the resolve check.
		{"cname only", []dnsprobe.Type{dnsprobe.CNAME}, true},
		{"nothing", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fw := &fakeWhois{down: true}
			dns := dnsprobe.NewStatic().Set("foo.com", true, tt.records...)
			res := newClassifier(t, fw, dns).Classify(context.Background(), domainname.MustParse("foo.com"))
			if res.Available != tt.want {
				t.Errorf("Available = %v, want %v", res.Available, tt.want)
			}
			if res.WhoisText != "" || res.Reason != core.ReasonDNSFallback {
				t.Errorf("got whois %q reason %q", res.WhoisText, res.Reason)
			}
		})
	}
}

func TestClassifySingleLabelSkipsWhois(t *testing.T) {
	t.Parallel()

	fw := &fakeWhois{answers: map[string]string{whois.IANAServer: "no match"}}
	dns := dnsprobe.NewStatic().Set("localhost", true, dnsprobe.A)

	res := newClassifier(t, fw, dns).Classify(context.Background(), domainname.Name("localhost"))

	if len(fw.calls) != 0 {
		t.Fatalf("WHOIS queried for a single-label name: %v", fw.calls)
	}
	if res.WhoisText != "" || res.Available || res.Reason != core.ReasonDNSFallback {
		t.Errorf("got %+v, want dns fallback verdict", res)
	}
}

func TestClassifyCustomPatterns(t *testing.T) {
	t.Parallel()

	patterns, err := core.CompilePatterns([]string{`^free$`})
	if err != nil {
		t.Fatalf("CompilePatterns: %v", err)
	}
	fw := &fakeWhois{answers: map[string]string{
		whois.IANAServer:         "whois: whois.verisign-grs.com",
		"whois.verisign-grs.com": "not found",
	}}
	dns := dnsprobe.NewStatic().Set("foo.com", true, dnsprobe.A)
	c := core.NewClassifier(whois.NewResolver(fw, whois.ResolverConfig{}), dns, core.ClassifierOptions{Patterns: patterns})

	res := c.Classify(context.Background(), domainname.MustParse("foo.com"))
	if res.Available {
		t.Errorf("replaced pattern list still matched default phrase: %+v", res)
	}
}
