/*
Package web exposes the checker over HTTP as JSON. It validates input the same
way the CLI does, runs a classification and optionally a subdomain scan, and
marks every response as uncacheable.
*/
package web

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
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/x-stp/domcheck/internal/core"
	"github.com/x-stp/domcheck/internal/domainname"
	"github.com/x-stp/domcheck/internal/metrics"
)

// User-facing validation messages.
const (
	MsgEmptyDomain   = "Enter a domain name (example: example.com)"
	MsgInvalidDomain = "This does not look like a valid domain name."
)

// RequestIDHeader carries the request id on every response.
const RequestIDHeader = "X-Request-Id"

// noCacheHeaders are sent on every response.
var noCacheHeaders = [][2]string{
	{"Cache-Control", "no-store, no-cache, must-revalidate, max-age=0"},
	{"Pragma", "no-cache"},
	{"Expires", "Mon, 26 Jul 1997 05:00:00 GMT"},
	{"Surrogate-Control", "no-store"},
}

// Checker classifies a validated domain. *core.Classifier implements it.
type Checker interface {
	Classify(ctx context.Context, domain domainname.Name) core.AvailabilityResult
}

// SubdomainScanner probes labels under a root. *core.Scanner implements it.
type SubdomainScanner interface {
	Scan(ctx context.Context, root domainname.Name, candidates []string, onlyAvailable bool) []core.SubdomainCandidate
}

// Options configures a Handler.
type Options struct {
	// WordlistFile replaces the built-in wordlist when the request has none.
	WordlistFile string
	// RequestTimeout bounds one request end to end; zero means no extra bound.
	RequestTimeout time.Duration
}

// Handler serves /api/check and /healthz.
type Handler struct {
	checker Checker
	scanner SubdomainScanner
	opts    Options
	mux     *http.ServeMux
}

// CheckResponse is the body of a successful /api/check call. Subdomains is
// absent when no scan was requested and an empty list when the scan found nothing.
type CheckResponse struct {
	RequestID  string                     `json:"request_id"`
	Result     core.AvailabilityResult    `json:"result"`
	Subdomains *[]core.SubdomainCandidate `json:"subdomains,omitempty"`
	Scanned    int                        `json:"scanned,omitempty"`
}

// ErrorResponse is the body of a rejected request.
type ErrorResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

// NewHandler creates a Handler.
func NewHandler(c Checker, s SubdomainScanner, opts Options) *Handler {
	h := &Handler{checker: c, scanner: s, opts: opts, mux: http.NewServeMux()}
	h.mux.HandleFunc("/api/check", h.handleCheck)
	h.mux.HandleFunc("/healthz", h.handleHealth)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, kv := range noCacheHeaders {
		w.Header().Set(kv[0], kv[1])
	}
	reqID := r.Header.Get(RequestIDHeader)
	if _, err := uuid.Parse(reqID); err != nil {
		reqID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, reqID)

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()
	h.mux.ServeHTTP(rec, r.WithContext(withRequestID(r.Context(), reqID)))

	if metrics.IsMetricsEnabled() {
		metrics.GetMetrics().HTTPRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.status)).Inc()
	}
	log.Info().
		Str("request_id", reqID).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", rec.status).
		Dur("elapsed", time.Since(start)).
		Msg("HTTP request")
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r.Context())
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{RequestID: reqID, Error: "method not allowed"})
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{RequestID: reqID, Error: "malformed form body"})
		return
	}

	domain, err := domainname.Parse(r.Form.Get("domain"))
	if err != nil {
		msg := MsgInvalidDomain
		if errors.Is(err, domainname.ErrEmpty) {
			msg = MsgEmptyDomain
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{RequestID: reqID, Error: msg})
		return
	}

	ctx := r.Context()
	if h.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.RequestTimeout)
		defer cancel()
	}

	resp := CheckResponse{RequestID: reqID, Result: h.checker.Classify(ctx, domain)}

	if formBool(r.Form.Get("scan_subdomains")) {
		wordlist, err := core.ResolveWordlist(r.Form.Get("custom_wordlist"), h.opts.WordlistFile)
		if err != nil {
			// An unreadable wordlist scans nothing rather than failing the check.
			log.Warn().Err(err).Str("request_id", reqID).Msg("Wordlist unavailable")
		}
		found := h.scanner.Scan(ctx, domain, wordlist, formBool(r.Form.Get("show_only_available")))
		resp.Subdomains = &found
		resp.Scanned = len(wordlist)
	}

	writeJSON(w, http.StatusOK, resp)
}

// formBool treats "", "0" and anything strconv.ParseBool reads as false as
// unchecked; any other value (a checkbox's "1" or "on") is checked.
func formBool(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug().Err(err).Msg("Failed to write response body")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type ctxKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
