package whois

/*
domcheck — domain availability checks over DNS and WHOIS
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/x-stp/domcheck/internal/domainname"
	"github.com/x-stp/domcheck/internal/metrics"
)

// IANAServer is the root WHOIS server asked for TLD referrals.
const IANAServer = "whois.iana.org"

// referralLine captures the server named on the first "whois:" line of a referral.
var referralLine = regexp.MustCompile(`(?i)whois:\s*(\S+)`)

// Source says how the authoritative server of a lookup was chosen.
type Source string

const (
	SourceReferral Source = "referral" // IANA named the server.
	SourceFallback Source = "fallback" // The static fallback table named it.
	SourceIANA     Source = "iana"     // Neither did; IANA itself is asked.
)

// FallbackTable maps a TLD to its WHOIS server. It is consulted only when the
// IANA referral names no server. Treat it as immutable once handed to a Resolver.
type FallbackTable map[string]string

// DefaultFallbacks returns a fresh copy of the built-in fallback table.
func DefaultFallbacks() FallbackTable {
	return FallbackTable{
		"com":  "whois.verisign-grs.com",
		"net":  "whois.verisign-grs.com",
		"org":  "whois.pir.org",
		"info": "whois.afilias.net",
		"io":   "whois.nic.io",
		"co":   "whois.nic.co",
		"me":   "whois.nic.me",
		"xyz":  "whois.nic.xyz",
		"de":   "whois.denic.de",
		"uk":   "whois.nic.uk",
	}
}

// Clone returns an independent copy with lower-cased keys.
func (t FallbackTable) Clone() FallbackTable {
	out := make(FallbackTable, len(t))
	for tld, server := range t {
		tld = strings.ToLower(strings.TrimSpace(tld))
		server = strings.TrimSpace(server)
		if tld == "" || server == "" {
			continue
		}
		out[tld] = server
	}
	return out
}

// Lookup returns the fallback server for tld.
func (t FallbackTable) Lookup(tld string) (string, bool) {
	server, ok := t[strings.ToLower(tld)]
	return server, ok
}

// ResolverConfig is the immutable configuration of a Resolver.
type ResolverConfig struct {
	// IANAServer overrides IANAServer.
	IANAServer string
	// Fallbacks overrides DefaultFallbacks(). An empty, non-nil table disables fallbacks.
	Fallbacks FallbackTable
}

// Lookup is the full trace of one referral-based WHOIS lookup.
type Lookup struct {
	Domain   domainname.Name
	TLD      string
	Referral Response // Session with the IANA server.
	Server   string   // Authoritative server that was asked about the domain.
	Source   Source
	Answer   Response // Session with Server; its Text is the lookup result.
}

// Resolver discovers the authoritative WHOIS server for a domain and queries it.
type Resolver struct {
	querier    Querier
	ianaServer string
	fallbacks  FallbackTable
}

// NewResolver creates a Resolver that performs its round-trips through q.
func NewResolver(q Querier, cfg ResolverConfig) *Resolver {
	iana := strings.TrimSpace(cfg.IANAServer)
	if iana == "" {
		iana = IANAServer
	}
	fallbacks := cfg.Fallbacks
	if fallbacks == nil {
		fallbacks = DefaultFallbacks()
	}
	return &Resolver{
		querier:    q,
		ianaServer: iana,
		fallbacks:  fallbacks.Clone(),
	}
}

// ResolveAndQuery returns the raw text the authoritative server sent for
// domain, or "" when the domain is malformed or any round-trip failed.
func (r *Resolver) ResolveAndQuery(ctx context.Context, domain domainname.Name) string {
	lookup, ok := r.Resolve(ctx, domain)
	if !ok {
		return ""
	}
	return lookup.Answer.Text
}

// ResolveAndQueryResponse is ResolveAndQuery with the full authoritative
// session, including its error and timing. A malformed domain yields a zero
// Response.
func (r *Resolver) ResolveAndQueryResponse(ctx context.Context, domain domainname.Name) Response {
	lookup, ok := r.Resolve(ctx, domain)
	if !ok {
		return Response{Query: string(domain)}
	}
	return lookup.Answer
}

// Resolve performs the lookup and returns its trace. ok is false when domain has
// fewer than two labels, in which case no network I/O happened.
//
// The IANA referral and the authoritative query are strictly sequential.
func (r *Resolver) Resolve(ctx context.Context, domain domainname.Name) (Lookup, bool) {
	tld := domain.TLD()
	if tld == "" {
		return Lookup{Domain: domain}, false
	}

	lookup := Lookup{Domain: domain, TLD: tld}
	lookup.Referral = r.querier.Query(ctx, r.ianaServer, tld)
	lookup.Server, lookup.Source = r.pickServer(tld, lookup.Referral.Text)
	metrics.GetMetrics().RecordReferral(string(lookup.Source))

	lookup.Answer = r.querier.Query(ctx, lookup.Server, string(domain))

	log.Debug().
		Str("domain", string(domain)).
		Str("server", lookup.Server).
		Str("source", string(lookup.Source)).
		Bool("obtained", lookup.Answer.Obtained).
		Msg("WHOIS lookup resolved")
	return lookup, true
}

// ReferralServer asks IANA which server is authoritative for tld.
func (r *Resolver) ReferralServer(ctx context.Context, tld string) (string, Source) {
	tld = strings.ToLower(strings.TrimSpace(tld))
	referral := r.querier.Query(ctx, r.ianaServer, tld)
	return r.pickServer(tld, referral.Text)
}

// pickServer applies referral, then fallback table, then IANA itself. The last
// step is deliberate degraded behavior: IANA is asked for the full domain and
// whatever it says is returned.
func (r *Resolver) pickServer(tld, referral string) (string, Source) {
	if server := ParseReferral(referral); server != "" {
		return server, SourceReferral
	}
	if server, ok := r.fallbacks.Lookup(tld); ok {
		return server, SourceFallback
	}
	return r.ianaServer, SourceIANA
}

// ParseReferral extracts the server named on the first "whois:" line of text.
func ParseReferral(text string) string {
	m := referralLine.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
