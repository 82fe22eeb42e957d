package core

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
	"time"

	"github.com/rs/zerolog/log"

	"github.com/x-stp/domcheck/internal/dnsprobe"
	"github.com/x-stp/domcheck/internal/domainname"
	"github.com/x-stp/domcheck/internal/metrics"
	"github.com/x-stp/domcheck/internal/whois"
)

// WhoisLookup resolves the authoritative WHOIS server for a domain and returns
// the session trace. *whois.Resolver implements it.
type WhoisLookup interface {
	Resolve(ctx context.Context, domain domainname.Name) (whois.Lookup, bool)
}

// Classifier combines a DNS existence check with WHOIS absence patterns into an
// availability guess.
type Classifier struct {
	whois    WhoisLookup
	prober   dnsprobe.Prober
	patterns *PatternSet
	timeout  time.Duration
}

// ClassifierOptions tunes a Classifier.
type ClassifierOptions struct {
	// Patterns replaces DefaultPatterns when non-nil.
	Patterns *PatternSet
	// ProbeTimeout bounds each DNS probe; DefaultProbeTimeout when zero.
	ProbeTimeout time.Duration
}

// NewClassifier creates a Classifier.
func NewClassifier(w WhoisLookup, p dnsprobe.Prober, opts ClassifierOptions) *Classifier {
	patterns := opts.Patterns
	if patterns == nil {
		patterns = DefaultPatterns()
	}
	timeout := opts.ProbeTimeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Classifier{whois: w, prober: p, patterns: patterns, timeout: timeout}
}

// Classify decides whether domain looks available. The domain is expected to
// be validated already. Any lookup failure degrades to "no record" or "no
// WHOIS text"; Classify itself never fails.
func (c *Classifier) Classify(ctx context.Context, domain domainname.Name) AvailabilityResult {
	name := string(domain)
	res := AvailabilityResult{Domain: name}

	res.HasA = c.exists(ctx, name, dnsprobe.A)
	res.HasNS = c.exists(ctx, name, dnsprobe.NS)
	res.DNSResolves = res.HasA || res.HasNS

	if lookup, ok := c.whois.Resolve(ctx, domain); ok {
		res.WhoisText = lookup.Answer.Text
		res.WhoisServer = lookup.Server
	}

	if pattern, ok := c.patterns.Match(res.WhoisText); ok {
		res.Available = true
		res.MatchedPattern = pattern
		res.Reason = ReasonPattern
	} else {
		res.Available = !res.DNSResolves
		res.Reason = ReasonDNSFallback
	}

	metrics.GetMetrics().RecordClassification(res.Available, string(res.Reason))
	log.Info().
		Str("domain", name).
		Bool("dns_resolves", res.DNSResolves).
		Str("whois_server", res.WhoisServer).
		Int("whois_bytes", len(res.WhoisText)).
		Bool("available", res.Available).
		Str("reason", string(res.Reason)).
		Str("pattern", res.MatchedPattern).
		Msg("Domain classified")
	return res
}

func (c *Classifier) exists(ctx context.Context, name string, t dnsprobe.Type) bool {
	pctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.prober.Exists(pctx, name, t)
}
