package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/x-stp/domcheck/internal/core"
	"github.com/x-stp/domcheck/internal/domainname"
)

type stubChecker struct {
	calls []domainname.Name
}

func (s *stubChecker) Classify(_ context.Context, d domainname.Name) core.AvailabilityResult {
	s.calls = append(s.calls, d)
	return core.AvailabilityResult{Domain: string(d), Available: true, Reason: core.ReasonDNSFallback}
}

type stubScanner struct {
	root          domainname.Name
	candidates    []string
	onlyAvailable bool
	result        []core.SubdomainCandidate
}

func (s *stubScanner) Scan(_ context.Context, root domainname.Name, candidates []string, onlyAvailable bool) []core.SubdomainCandidate {
	s.root, s.candidates, s.onlyAvailable = root, candidates, onlyAvailable
	if s.result == nil {
		return []core.SubdomainCandidate{}
	}
	return s.result
}

func postForm(t *testing.T, h http.Handler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/check", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func assertNoCache(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	for _, kv := range noCacheHeaders {
		if got := rec.Header().Get(kv[0]); got != kv[1] {
			t.Errorf("%s = %q, want %q", kv[0], got, kv[1])
		}
	}
}

func TestCheckValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		domain string
		want   string
	}{
		{"", MsgEmptyDomain},
		{"   ", MsgEmptyDomain},
		{"localhost", MsgInvalidDomain},
		{"http://example.com", MsgInvalidDomain},
		{"exa mple.com", MsgInvalidDomain},
		{"example.c", MsgInvalidDomain},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			t.Parallel()
			checker := &stubChecker{}
			h := NewHandler(checker, &stubScanner{}, Options{})

			rec := postForm(t, h, url.Values{"domain": {tt.domain}})
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			assertNoCache(t, rec)

			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tt.want {
				t.Errorf("error = %q, want %q", body.Error, tt.want)
			}
			if len(checker.calls) != 0 {
				t.Error("classifier called for invalid input")
			}
		})
	}
}

func TestCheckWithoutScanOmitsSubdomains(t *testing.T) {
	t.Parallel()

	checker := &stubChecker{}
	scanner := &stubScanner{}
	h := NewHandler(checker, scanner, Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/check?domain=+Example.COM+", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	assertNoCache(t, rec)
	if len(checker.calls) != 1 || checker.calls[0] != "example.com" {
		t.Fatalf("classifier calls = %v", checker.calls)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := raw["subdomains"]; ok {
		t.Error("subdomains present although no scan was requested")
	}
	if scanner.root != "" {
		t.Error("scanner ran although no scan was requested")
	}
}

func TestCheckScanEmptyResultIsEmptyList(t *testing.T) {
	t.Parallel()

	scanner := &stubScanner{}
	h := NewHandler(&stubChecker{}, scanner, Options{})

	rec := postForm(t, h, url.Values{
		"domain":              {"example.com"},
		"scan_subdomains":     {"1"},
		"custom_wordlist":     {"www\r\nmail, ftp"},
		"show_only_available": {"on"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(raw["subdomains"]) != "[]" {
		t.Errorf("subdomains = %s, want []", raw["subdomains"])
	}
	if scanner.root != "example.com" || !scanner.onlyAvailable {
		t.Errorf("scanner got root %q onlyAvailable %v", scanner.root, scanner.onlyAvailable)
	}
	if strings.Join(scanner.candidates, "|") != "www|mail|ftp" {
		t.Errorf("candidates = %q", scanner.candidates)
	}
}

func TestCheckScanUsesDefaultWordlist(t *testing.T) {
	t.Parallel()

	scanner := &stubScanner{result: []core.SubdomainCandidate{{Label: "www", FQDN: "www.example.com", HasA: true}}}
	h := NewHandler(&stubChecker{}, scanner, Options{})

	rec := postForm(t, h, url.Values{"domain": {"example.com"}, "scan_subdomains": {"1"}, "show_only_available": {"0"}})

	var body CheckResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Subdomains == nil || len(*body.Subdomains) != 1 {
		t.Fatalf("subdomains = %v", body.Subdomains)
	}
	if len(scanner.candidates) == 0 || scanner.candidates[0] != "www" {
		t.Errorf("default wordlist not used: %q", scanner.candidates)
	}
	if scanner.onlyAvailable {
		t.Error(`"0" must leave show_only_available unchecked`)
	}
	if body.Scanned != len(scanner.candidates) {
		t.Errorf("Scanned = %d, want %d", body.Scanned, len(scanner.candidates))
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	h := NewHandler(&stubChecker{}, &stubScanner{}, Options{})

	given := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/check?domain=example.com", nil)
	req.Header.Set(RequestIDHeader, given)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body CheckResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RequestID != given || rec.Header().Get(RequestIDHeader) != given {
		t.Errorf("request id = %q / %q, want %q", body.RequestID, rec.Header().Get(RequestIDHeader), given)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/check?domain=example.com", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if _, err := uuid.Parse(rec.Header().Get(RequestIDHeader)); err != nil {
		t.Errorf("generated request id %q is not a UUID", rec.Header().Get(RequestIDHeader))
	}
}

func TestMethodNotAllowedAndHealth(t *testing.T) {
	t.Parallel()

	h := NewHandler(&stubChecker{}, &stubScanner{}, Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/check", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE status = %d", rec.Code)
	}
	assertNoCache(t, rec)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body)
	}
	assertNoCache(t, rec)
}

func TestFormBool(t *testing.T) {
	t.Parallel()

	for v, want := range map[string]bool{"": false, "0": false, "false": false, " ": false, "1": true, "on": true, "yes": true, "true": true} {
		if got := formBool(v); got != want {
			t.Errorf("formBool(%q) = %v, want %v", v, got, want)
		}
	}
}
