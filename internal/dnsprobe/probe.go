/*
Package dnsprobe answers one question: does a DNS record of a given type exist
for a name? It queries the nameservers of the system resolver configuration with
the exact record type, so an A probe is not satisfied by AAAA data and a CNAME
probe only succeeds when the name itself is an alias.

Lookup failures are reported on Result but collapse to "absent" through Exists.
Callers must treat absence as approximate: a timeout and a genuine NXDOMAIN both
end up false.
*/
package dnsprobe

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
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog/log"

	"github.com/x-stp/domcheck/internal/metrics"
)

// Type is a DNS resource record type understood by the probe.
type Type uint16

// Record types probed by domcheck.
const (
	A     = Type(dns.TypeA)
	NS    = Type(dns.TypeNS)
	CNAME = Type(dns.TypeCNAME)
)

// String returns the mnemonic of the type ("A", "NS", ...).
func (t Type) String() string {
	if s, ok := dns.TypeToString[uint16(t)]; ok {
		return s
	}
	return fmt.Sprintf("TYPE%d", uint16(t))
}

const (
	// DefaultTimeout bounds a probe against a single nameserver.
	DefaultTimeout = 5 * time.Second
	// ResolvConfPath is the system resolver configuration.
	ResolvConfPath = "/etc/resolv.conf"
)

// ErrNoNameservers is returned by NewResolver when no nameserver is configured.
var ErrNoNameservers = errors.New("dnsprobe: no nameservers configured")

// Result is the outcome of a single probe.
type Result struct {
	Found bool  // At least one answer record of the probed type.
	Rcode int   // Response code of the answering server, -1 when nobody answered.
	Err   error // Set when no server produced a usable answer.
}

// Prober checks record existence.
type Prober interface {
	Exists(ctx context.Context, name string, t Type) bool
}

// Resolver is a Prober backed by miekg/dns.
type Resolver struct {
	servers []string // host:port, tried in order
	client  *dns.Client
	timeout time.Duration
}

// Options configures a Resolver.
type Options struct {
	// Servers overrides the nameservers from ResolvConfPath (host or host:port).
	Servers []string
	// Timeout bounds every query; DefaultTimeout when zero.
	Timeout time.Duration
}

// NewResolver builds a Resolver from opts, reading ResolvConfPath when no
// servers are given. If the file is unreadable the local stub 127.0.0.1:53 is used.
func NewResolver(opts Options) (*Resolver, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	servers := normalizeServers(opts.Servers, "53")
	if len(servers) == 0 {
		conf, err := dns.ClientConfigFromFile(ResolvConfPath)
		if err != nil {
			log.Warn().Err(err).Str("path", ResolvConfPath).Msg("Resolver configuration unreadable, using 127.0.0.1:53")
			servers = []string{"127.0.0.1:53"}
		} else {
			servers = normalizeServers(conf.Servers, conf.Port)
		}
	}
	if len(servers) == 0 {
		return nil, ErrNoNameservers
	}

	return &Resolver{
		servers: servers,
		client:  &dns.Client{Net: "udp", Timeout: timeout},
		timeout: timeout,
	}, nil
}

// Servers returns the nameservers in the order they are tried.
func (r *Resolver) Servers() []string {
	return append([]string(nil), r.servers...)
}

func normalizeServers(in []string, defaultPort string) []string {
	if defaultPort == "" {
		defaultPort = "53"
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(strings.Trim(s, "[]"), defaultPort)
		}
		out = append(out, s)
	}
	return out
}

// Exists reports whether name has at least one record of type t.
// Any failure is reported as false.
func (r *Resolver) Exists(ctx context.Context, name string, t Type) bool {
	return r.Lookup(ctx, name, t).Found
}

// Lookup sends a recursive query for name/t to each nameserver in turn until
// one answers.
func (r *Resolver) Lookup(ctx context.Context, name string, t Type) Result {
	start := time.Now()
	res := r.lookup(ctx, name, t)

	outcome := "found"
	switch {
	case res.Err != nil:
		outcome = "error"
	case !res.Found:
		outcome = "absent"
	}
	metrics.GetMetrics().ObserveDNSProbe(t.String(), outcome, time.Since(start))
	return res
}

func (r *Resolver) lookup(ctx context.Context, name string, t Type) Result {
	name = strings.TrimSpace(name)
	if name == "" {
		return Result{Rcode: -1, Err: errors.New("dnsprobe: empty name")}
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), uint16(t))
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		if err := ctx.Err(); err != nil {
			return Result{Rcode: -1, Err: err}
		}

		qctx, cancel := context.WithTimeout(ctx, r.timeout)
		in, _, err := r.client.ExchangeContext(qctx, msg, server)
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("dnsprobe: %s %s via %s: %w", t, name, server, err)
			log.Debug().Err(err).Str("name", name).Str("type", t.String()).Str("server", server).Msg("DNS probe failed")
			continue
		}
		// SERVFAIL and REFUSED come from a broken or unwilling server; ask the next one.
		if in.Rcode == dns.RcodeServerFailure || in.Rcode == dns.RcodeRefused {
			lastErr = fmt.Errorf("dnsprobe: %s %s via %s: %s", t, name, server, dns.RcodeToString[in.Rcode])
			continue
		}
		return Result{Found: hasType(in.Answer, t), Rcode: in.Rcode}
	}

	return Result{Rcode: -1, Err: lastErr}
}

// hasType reports whether answers contain a record of type t. A CNAME chain in
// front of an A answer still counts for A; the CNAME itself does not.
func hasType(answers []dns.RR, t Type) bool {
	for _, rr := range answers {
		if rr.Header().Rrtype == uint16(t) {
			return true
		}
	}
	return false
}
