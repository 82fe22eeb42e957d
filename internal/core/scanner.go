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
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/x-stp/domcheck/internal/dnsprobe"
	"github.com/x-stp/domcheck/internal/domainname"
	"github.com/x-stp/domcheck/internal/metrics"
)

// detailedProber is implemented by probers that can tell a failed lookup from
// an answered one. The scanner uses it to feed the adaptive limiter.
type detailedProber interface {
	Lookup(ctx context.Context, name string, t dnsprobe.Type) dnsprobe.Result
}

// ScannerOptions tunes a Scanner.
type ScannerOptions struct {
	// Workers bounds the number of candidates probed at once. One gives strictly
	// sequential probing; zero means DefaultWorkers.
	Workers int
	// ProbeTimeout bounds each DNS probe; DefaultProbeTimeout when zero.
	ProbeTimeout time.Duration
	// ProbeRate caps probes per second across the scan; zero disables pacing.
	ProbeRate float64
}

// Scanner probes subdomain labels under a root domain.
type Scanner struct {
	prober dnsprobe.Prober
	opts   ScannerOptions
}

// NewScanner creates a Scanner.
func NewScanner(p dnsprobe.Prober, opts ScannerOptions) *Scanner {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	return &Scanner{prober: p, opts: opts}
}

// Scan probes A, CNAME and NS for every label under root and returns one
// candidate per non-blank label, in input order. With onlyAvailable set,
// candidates with any record are dropped. The caller truncates the wordlist;
// Scan probes every label it is given.
//
// A failed or canceled probe counts as "no record".
func (s *Scanner) Scan(ctx context.Context, root domainname.Name, candidates []string, onlyAvailable bool) []SubdomainCandidate {
	start := time.Now()
	defer func() {
		if metrics.IsMetricsEnabled() {
			metrics.GetMetrics().ScanDuration.Observe(time.Since(start).Seconds())
		}
	}()

	out := make([]SubdomainCandidate, 0, len(candidates))
	if len(candidates) == 0 {
		return out
	}

	workers := EffectiveWorkers(s.opts.Workers)
	if workers > len(candidates) {
		workers = len(candidates)
	}
	sched, err := NewScheduler(ctx, workers)
	if err != nil {
		log.Error().Err(err).Msg("Scanner could not start scheduler")
		return out
	}
	defer sched.Shutdown()

	limiter := NewRateLimiter(s.opts.ProbeRate)
	slots := make([]*SubdomainCandidate, len(candidates))

	for i, raw := range candidates {
		label := strings.TrimSpace(raw)
		fqdn := root.Join(label)
		if fqdn == "" {
			continue
		}

		// Absent until the probe reports otherwise; a panicking or unprobed
		// candidate keeps this value.
		absent := newCandidate(label, fqdn, false, false, false)
		slots[i] = &absent

		if err := s.submit(ctx, sched, limiter, fqdn, func(jctx context.Context) error {
			c, err := s.probe(jctx, limiter, label, fqdn)
			slots[i] = &c
			return err
		}); err != nil {
			log.Debug().Err(err).Str("fqdn", fqdn).Msg("Candidate not dispatched")
		}
	}
	sched.Wait()

	// Blank labels leave nil slots.
	for _, c := range slots {
		if c == nil {
			continue
		}
		metrics.GetMetrics().RecordCandidate(c.AvailableGuess)
		if onlyAvailable && !c.AvailableGuess {
			continue
		}
		out = append(out, *c)
	}

	var processed, failed, panics int64
	for _, st := range sched.Stats() {
		processed += st.Processed
		failed += st.Errors
		panics += st.Panics
	}

	log.Debug().
		Str("root", string(root)).
		Int("candidates", len(candidates)).
		Int("results", len(out)).
		Int("workers", sched.NumWorkers()).
		Int64("processed", processed).
		Int64("failed", failed).
		Int64("panics", panics).
		Bool("only_available", onlyAvailable).
		Interface("limiter", limiter.GetStats()).
		Dur("elapsed", time.Since(start)).
		Msg("Subdomain scan finished")
	return out
}

// submit queues fn without blocking when the worker has room. A full queue
// signals backpressure to the limiter, which slows probing until a later
// submission finds room again; the job is then queued with a blocking Submit.
func (s *Scanner) submit(ctx context.Context, sched *Scheduler, limiter *RateLimiter, key string, fn JobFunc) error {
	err := sched.TrySubmit(ctx, key, fn)
	if err == nil {
		limiter.UpdateBackpressure(false)
		return nil
	}
	if !IsRetryable(err) {
		return err
	}
	limiter.UpdateBackpressure(true)
	return sched.Submit(ctx, key, fn)
}

// probe checks the three record types of one candidate independently.
func (s *Scanner) probe(ctx context.Context, limiter *RateLimiter, label, fqdn string) (SubdomainCandidate, error) {
	hasA, errA := s.exists(ctx, limiter, fqdn, dnsprobe.A)
	hasCNAME, errCNAME := s.exists(ctx, limiter, fqdn, dnsprobe.CNAME)
	hasNS, errNS := s.exists(ctx, limiter, fqdn, dnsprobe.NS)
	return newCandidate(label, fqdn, hasA, hasCNAME, hasNS), errors.Join(errA, errCNAME, errNS)
}

func (s *Scanner) exists(ctx context.Context, limiter *RateLimiter, fqdn string, t dnsprobe.Type) (bool, error) {
	waitStart := time.Now()
	if !limiter.Allow() {
		if err := limiter.Wait(ctx); err != nil {
			return false, &LookupError{Op: "dns", Target: fqdn, Err: err}
		}
	}
	if waited := time.Since(waitStart); waited > SlowRateWait {
		if metrics.IsMetricsEnabled() {
			metrics.GetMetrics().ScanRateLimitDelay.Observe(waited.Seconds())
		}
		log.Debug().Str("fqdn", fqdn).Dur("waited", waited).Float64("limit", limiter.GetCurrentRate()).Msg("Probe delayed by rate limit")
	}

	pctx, cancel := context.WithTimeout(ctx, s.opts.ProbeTimeout)
	defer cancel()

	dp, ok := s.prober.(detailedProber)
	if !ok {
		return s.prober.Exists(pctx, fqdn, t), nil
	}
	res := dp.Lookup(pctx, fqdn, t)
	if res.Err != nil {
		limiter.RecordFailure()
		return false, &LookupError{Op: "dns", Target: fqdn, Err: res.Err}
	}
	limiter.RecordSuccess()
	return res.Found, nil
}
