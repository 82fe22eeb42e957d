package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup mutates process-wide state, so these tests do not run in parallel.

func TestSetupJSON(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	Setup(Options{Level: "debug", JSON: true, Out: &buf})

	log.Debug().Str("server", "whois.iana.org").Msg("WHOIS query finished")

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("output is not JSON: %q: %v", buf.String(), err)
	}
	if entry["level"] != "debug" || entry["server"] != "whois.iana.org" || entry["message"] != "WHOIS query finished" {
		t.Errorf("entry = %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("entry has no timestamp")
	}
}

func TestSetupLevelFilters(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	Setup(Options{Level: "WARN", JSON: true, Out: &buf})

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("output = %q", out)
	}
}

func TestSetupUnknownLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	Setup(Options{Level: "chatty", Out: &buf})

	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("GlobalLevel = %v, want info", zerolog.GlobalLevel())
	}
	if !strings.Contains(buf.String(), "Unknown log level") {
		t.Errorf("no warning in %q", buf.String())
	}
}
