/*
Command domcheck guesses whether domain names are available for registration.

It combines a DNS existence check with a WHOIS lookup (IANA referral first,
then the authoritative server) and can extend the check to common subdomain
labels. Subcommands:

	check     classify one domain, optionally scanning subdomains
	scan      scan subdomain labels under a domain
	serve     expose the checker as a JSON HTTP endpoint
	wordlist  print the effective default wordlist

Configuration is layered: defaults, --config JSON file, .env, DOMCHECK_*
environment variables, then flags. SIGINT and SIGTERM cancel running work.
*/
package main

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
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/x-stp/domcheck/internal/client"
	"github.com/x-stp/domcheck/internal/config"
	"github.com/x-stp/domcheck/internal/core"
	"github.com/x-stp/domcheck/internal/dnsprobe"
	"github.com/x-stp/domcheck/internal/logging"
	"github.com/x-stp/domcheck/internal/metrics"
	"github.com/x-stp/domcheck/internal/web"
	"github.com/x-stp/domcheck/internal/whois"
)

// Global flags (persistent across commands)
var (
	configPath   string
	envFile      string
	debug        bool
	logJSON      bool
	metricsAddr  string
	workers      int
	probeRate    float64
	whoisTimeout time.Duration
	dnsTimeout   time.Duration
	dnsServers   []string
)

// Flags shared by check and scan
var (
	scanSubdomains bool
	wordlistText   string
	wordlistFile   string
	onlyAvailable  bool
	jsonOutput     bool
	outputPath     string
	compress       bool
)

// Flags for serve
var listenAddr string

// cfg is the effective configuration, resolved in PersistentPreRunE.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "domcheck",
	Short:         "domcheck - domain availability checks over DNS and WHOIS",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath, envFile)
		if err != nil {
			return err
		}
		applyFlags(cmd, &loaded)
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		level := "info"
		if cfg.Debug {
			level = "debug"
		}
		logging.Setup(logging.Options{Level: level, JSON: cfg.LogJSON, Caller: cfg.Debug})

		if cfg.MetricsAddr != "" {
			metrics.EnableMetrics()
			if err := metrics.StartMetricsServer(cfg.MetricsAddr); err != nil {
				log.Warn().Err(err).Msg("Failed to start metrics server")
			}
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metrics.ShutdownMetricsServer(ctx)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <domain>",
	Short: "Guess whether a domain is available (DNS + WHOIS)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd.Context(), cmd.OutOrStdout(), args[0], scanSubdomains)
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan <domain>",
	Short: "Probe subdomain labels for A, CNAME and NS records",
	Long: `Probes every label of the wordlist under <domain> and reports which
subdomains have no A, CNAME or NS record. The wordlist comes from --wordlist,
then --wordlist-file (or the configured file), then the built-in list, and is
capped at 200 entries.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the checker as JSON over HTTP (/api/check, /healthz)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			cfg.ListenAddr = listenAddr
		}
		checker, scanner, err := buildCheckers(cfg)
		if err != nil {
			return err
		}
		h := web.NewHandler(checker, scanner, web.Options{WordlistFile: cfg.WordlistFile})
		return web.Serve(cmd.Context(), cfg.ListenAddr, h)
	},
}

var wordlistCmd = &cobra.Command{
	Use:   "wordlist",
	Short: "Print the effective default wordlist",
	RunE: func(cmd *cobra.Command, args []string) error {
		wl, err := core.ResolveWordlist("", effectiveWordlistFile())
		if err != nil {
			return err
		}
		for _, label := range wl {
			fmt.Fprintln(cmd.OutOrStdout(), label)
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to a JSON configuration file")
	pf.StringVar(&envFile, "env-file", ".env", "Path to a .env file (ignored when missing)")
	pf.BoolVar(&debug, "debug", false, "Enable debug logging")
	pf.BoolVar(&logJSON, "log-json", false, "Log JSON lines instead of console output")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address (e.g. :9090)")
	pf.IntVarP(&workers, "workers", "w", core.DefaultWorkers, "Concurrent subdomain probes (1 = sequential)")
	pf.Float64Var(&probeRate, "probe-rate", 0, "Maximum DNS probes per second during scans (0 = unlimited)")
	pf.DurationVar(&whoisTimeout, "whois-timeout", core.DefaultWhoisTimeout, "WHOIS connect and per-read timeout")
	pf.DurationVar(&dnsTimeout, "dns-timeout", core.DefaultProbeTimeout, "Timeout of a single DNS probe")
	pf.StringSliceVar(&dnsServers, "dns-server", nil, "Nameserver to query (repeatable; default from /etc/resolv.conf)")

	for _, c := range []*cobra.Command{checkCmd, scanCmd} {
		f := c.Flags()
		f.StringVar(&wordlistText, "wordlist", "", "Subdomain labels separated by commas or newlines")
		f.StringVar(&wordlistFile, "wordlist-file", "", "File with one subdomain label per line")
		f.BoolVar(&onlyAvailable, "only-available", false, "Only report subdomains without DNS records")
		f.BoolVar(&jsonOutput, "json", false, "Print JSON instead of a table")
		f.StringVarP(&outputPath, "output", "o", "", "Also write results to this file (.csv or .jsonl, optional .gz)")
		f.BoolVar(&compress, "compress", false, "Gzip the output file")
	}
	checkCmd.Flags().BoolVar(&scanSubdomains, "scan", false, "Also scan common subdomains")

	serveCmd.Flags().StringVar(&listenAddr, "addr", ":8080", "Listen address")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(wordlistCmd)
}

// applyFlags overrides configuration with the persistent flags the user set.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("debug") {
		c.Debug = debug
	}
	if flags.Changed("log-json") {
		c.LogJSON = logJSON
	}
	if flags.Changed("metrics-addr") {
		c.MetricsAddr = metricsAddr
	}
	if flags.Changed("workers") {
		c.Workers = workers
	}
	if flags.Changed("probe-rate") {
		c.ProbeRate = probeRate
	}
	if flags.Changed("whois-timeout") {
		c.WhoisTimeout = config.Duration(whoisTimeout)
	}
	if flags.Changed("dns-timeout") {
		c.DNSTimeout = config.Duration(dnsTimeout)
	}
	if flags.Changed("dns-server") {
		c.DNSServers = dnsServers
	}
}

func effectiveWordlistFile() string {
	if wordlistFile != "" {
		return wordlistFile
	}
	return cfg.WordlistFile
}

// buildCheckers wires the WHOIS transport, the DNS prober and the core
// components from c.
func buildCheckers(c config.Config) (*core.Classifier, *core.Scanner, error) {
	client.InitDialer(&client.Config{
		DialTimeout: c.WhoisTimeout.Std(),
		ReadTimeout: c.WhoisTimeout.Std(),
	})
	transport := whois.NewTransport(c.WhoisTimeout.Std())
	resolver := whois.NewResolver(transport, whois.ResolverConfig{
		IANAServer: c.IANAServer,
		Fallbacks:  c.FallbackTable(),
	})

	prober, err := dnsprobe.NewResolver(dnsprobe.Options{Servers: c.DNSServers, Timeout: c.DNSTimeout.Std()})
	if err != nil {
		return nil, nil, err
	}
	log.Debug().Strs("nameservers", prober.Servers()).Msg("DNS prober ready")

	patterns, err := c.Patterns()
	if err != nil {
		return nil, nil, err
	}

	classifier := core.NewClassifier(resolver, prober, core.ClassifierOptions{
		Patterns:     patterns,
		ProbeTimeout: c.DNSTimeout.Std(),
	})
	scanner := core.NewScanner(prober, core.ScannerOptions{
		Workers:      c.Workers,
		ProbeTimeout: c.DNSTimeout.Std(),
		ProbeRate:    c.ProbeRate,
	})
	return classifier, scanner, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
