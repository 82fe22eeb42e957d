/*
Package config loads domcheck's runtime configuration. Values are layered:
built-in defaults, then an optional JSON file, then a .env file, then DOMCHECK_*
environment variables. Command-line flags are applied last by the CLI.

The resulting Config is a plain value handed to constructors; no package keeps
configuration in globals.
*/
package config

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
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/x-stp/domcheck/internal/core"
	"github.com/x-stp/domcheck/internal/whois"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "DOMCHECK_"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Duration is a time.Duration that reads "5s"-style strings (or integer
// nanoseconds) from JSON.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("duration must be a string like \"5s\": %s", b)
	}
	*d = Duration(n)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds every tunable of the checker.
type Config struct {
	WhoisTimeout    Duration          `json:"whois_timeout"`
	DNSTimeout      Duration          `json:"dns_timeout"`
	IANAServer      string            `json:"iana_server"`
	Fallbacks       map[string]string `json:"fallbacks"`
	AbsencePatterns []string          `json:"absence_patterns"`
	DNSServers      []string          `json:"dns_servers"`
	Workers         int               `json:"workers"`
	ProbeRate       float64           `json:"probe_rate"`
	WordlistFile    string            `json:"wordlist_file"`
	MetricsAddr     string            `json:"metrics_addr"`
	ListenAddr      string            `json:"listen_addr"`
	Debug           bool              `json:"debug"`
	LogJSON         bool              `json:"log_json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		WhoisTimeout:    Duration(core.DefaultWhoisTimeout),
		DNSTimeout:      Duration(core.DefaultProbeTimeout),
		IANAServer:      whois.IANAServer,
		Fallbacks:       map[string]string(whois.DefaultFallbacks()),
		AbsencePatterns: append([]string(nil), core.DefaultAbsencePatterns...),
		Workers:         core.DefaultWorkers,
		ListenAddr:      ":8080",
	}
}

// Load builds a Config from defaults, the JSON file at path (skipped when path
// is empty), the .env file at envFile (skipped when missing) and the process
// environment, then validates it.
//
// Keys present in the JSON file replace defaults; the fallbacks object is
// merged into the default table instead of replacing it.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
		log.Debug().Str("path", path).Msg("Configuration file loaded")
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return cfg, fmt.Errorf("load env file %s: %w", envFile, err)
			}
		} else {
			log.Debug().Str("path", envFile).Msg("Environment file loaded")
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from DOMCHECK_* variables found through lookup.
//
// DOMCHECK_FALLBACKS takes "tld=server" pairs separated by commas and merges
// them into the table. DOMCHECK_ABSENCE_PATTERNS and DOMCHECK_DNS_SERVERS
// replace their lists; patterns are separated by ";;", servers by commas.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	var errs []error
	duration := func(key string, dst *Duration) {
		if v, ok := get(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = Duration(d)
		}
	}
	str := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	duration("WHOIS_TIMEOUT", &c.WhoisTimeout)
	duration("DNS_TIMEOUT", &c.DNSTimeout)
	str("IANA_SERVER", &c.IANAServer)
	str("WORDLIST_FILE", &c.WordlistFile)
	str("METRICS_ADDR", &c.MetricsAddr)
	str("LISTEN_ADDR", &c.ListenAddr)

	if v, ok := get("WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sWORKERS: %w", EnvPrefix, err))
		} else {
			c.Workers = n
		}
	}
	if v, ok := get("PROBE_RATE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sPROBE_RATE: %w", EnvPrefix, err))
		} else {
			c.ProbeRate = f
		}
	}
	for key, dst := range map[string]*bool{"DEBUG": &c.Debug, "LOG_JSON": &c.LogJSON} {
		if v, ok := get(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				continue
			}
			*dst = b
		}
	}
	if v, ok := get("DNS_SERVERS"); ok {
		c.DNSServers = splitList(v, ",")
	}
	if v, ok := get("ABSENCE_PATTERNS"); ok {
		c.AbsencePatterns = splitList(v, ";;")
	}
	if v, ok := get("FALLBACKS"); ok && v != "" {
		if c.Fallbacks == nil {
			c.Fallbacks = make(map[string]string)
		}
		for _, pair := range splitList(v, ",") {
			tld, server, found := strings.Cut(pair, "=")
			if !found {
				errs = append(errs, fmt.Errorf("%sFALLBACKS: %q is not tld=server", EnvPrefix, pair))
				continue
			}
			c.Fallbacks[strings.TrimSpace(tld)] = strings.TrimSpace(server)
		}
	}
	return errors.Join(errs...)
}

func splitList(v, sep string) []string {
	var out []string
	for _, part := range strings.Split(v, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var errs []error
	if c.WhoisTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: whois_timeout must be positive", ErrInvalid))
	}
	if c.DNSTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: dns_timeout must be positive", ErrInvalid))
	}
	if strings.TrimSpace(c.IANAServer) == "" {
		errs = append(errs, fmt.Errorf("%w: iana_server is empty", ErrInvalid))
	}
	if c.Workers < 0 || c.Workers > core.MaxWorkers {
		errs = append(errs, fmt.Errorf("%w: workers must be between 0 and %d", ErrInvalid, core.MaxWorkers))
	}
	if c.ProbeRate < 0 {
		errs = append(errs, fmt.Errorf("%w: probe_rate must not be negative", ErrInvalid))
	}
	for _, p := range c.AbsencePatterns {
		if _, err := regexp.Compile("(?i)" + p); err != nil {
			errs = append(errs, fmt.Errorf("%w: absence pattern %q: %v", ErrInvalid, p, err))
		}
	}
	return errors.Join(errs...)
}

// Patterns compiles the configured absence patterns.
func (c Config) Patterns() (*core.PatternSet, error) {
	return core.CompilePatterns(c.AbsencePatterns)
}

// FallbackTable returns the configured WHOIS fallback table.
func (c Config) FallbackTable() whois.FallbackTable {
	return whois.FallbackTable(c.Fallbacks).Clone()
}
