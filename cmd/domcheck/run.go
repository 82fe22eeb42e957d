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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/x-stp/domcheck/internal/core"
	"github.com/x-stp/domcheck/internal/domainname"
	rio "github.com/x-stp/domcheck/internal/io"
	"github.com/x-stp/domcheck/internal/util"
)

// report is what check and scan print with --json.
type report struct {
	Result     *core.AvailabilityResult   `json:"result,omitempty"`
	Subdomains *[]core.SubdomainCandidate `json:"subdomains,omitempty"`
}

func runCheck(ctx context.Context, out io.Writer, raw string, scan bool) error {
	domain, err := domainname.Parse(raw)
	if err != nil {
		return fmt.Errorf("%q: %w", raw, err)
	}
	classifier, scanner, err := buildCheckers(cfg)
	if err != nil {
		return err
	}

	result := classifier.Classify(ctx, domain)
	rep := report{Result: &result}
	if scan {
		found, err := scanWordlist(ctx, scanner, domain)
		if err != nil {
			return err
		}
		rep.Subdomains = &found
	}
	return emit(out, domain, "check", rep)
}

func runScan(ctx context.Context, out io.Writer, raw string) error {
	domain, err := domainname.Parse(raw)
	if err != nil {
		return fmt.Errorf("%q: %w", raw, err)
	}
	_, scanner, err := buildCheckers(cfg)
	if err != nil {
		return err
	}
	found, err := scanWordlist(ctx, scanner, domain)
	if err != nil {
		return err
	}
	return emit(out, domain, "scan", report{Subdomains: &found})
}

func scanWordlist(ctx context.Context, scanner *core.Scanner, domain domainname.Name) ([]core.SubdomainCandidate, error) {
	wl, err := core.ResolveWordlist(wordlistText, effectiveWordlistFile())
	if err != nil {
		return nil, err
	}
	log.Info().Str("domain", string(domain)).Int("labels", len(wl)).Msg("Scanning subdomains")
	return scanner.Scan(ctx, domain, wl, onlyAvailable), nil
}

// emit prints rep and writes it to --output when set.
func emit(out io.Writer, domain domainname.Name, kind string, rep report) error {
	if outputPath != "" {
		if err := writeFile(domain, kind, rep); err != nil {
			return err
		}
	}
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	printReport(out, rep)
	return nil
}

func writeFile(domain domainname.Name, kind string, rep report) error {
	path := outputPath
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		ext := "csv"
		if compress {
			ext += ".gz"
		}
		path = filepath.Join(path, util.DefaultOutputName(string(domain), kind, ext, time.Now()))
	}
	if compress && !strings.HasSuffix(strings.ToLower(path), ".gz") {
		path += ".gz"
	}
	opts := rio.OptionsForPath(path)

	w, err := rio.NewResultWriter(path, opts)
	if err != nil {
		return err
	}
	if rep.Result != nil {
		if err := w.WriteResult(*rep.Result); err != nil {
			_ = w.Abort()
			return err
		}
	}
	if rep.Subdomains != nil {
		if err := w.WriteCandidates(string(domain), *rep.Subdomains); err != nil {
			_ = w.Abort()
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	log.Info().Str("path", w.Path()).Int64("rows", w.Rows()).Msg("Results written")
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func printReport(out io.Writer, rep report) {
	if r := rep.Result; r != nil {
		fmt.Fprintf(out, "Results for %s\n", r.Domain)
		fmt.Fprintf(out, "    \\- DNS resolves (A or NS):   %s\n", yesNo(r.DNSResolves))
		fmt.Fprintf(out, "    \\- WHOIS implies available: %s\n", yesNo(r.Available))
		fmt.Fprintf(out, "    \\- Decided by:              %s", r.Reason)
		if r.MatchedPattern != "" {
			fmt.Fprintf(out, " (%q)", r.MatchedPattern)
		}
		fmt.Fprintln(out)
		if r.WhoisServer != "" {
			fmt.Fprintf(out, "    \\- WHOIS server:            %s\n", r.WhoisServer)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Raw WHOIS")
		if text := strings.TrimSpace(r.WhoisText); text != "" {
			fmt.Fprintln(out, text)
		} else {
			fmt.Fprintln(out, "(no data)")
		}
	}

	if rep.Subdomains == nil {
		return
	}
	subs := *rep.Subdomains
	if rep.Result != nil {
		fmt.Fprintln(out)
	}
	if len(subs) == 0 {
		fmt.Fprintln(out, "No results found (or nothing matched your filters).")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SUB\tFQDN\tA\tCNAME\tNS\tAVAILABLE")
	for _, c := range subs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", c.Label, c.FQDN, yesNo(c.HasA), yesNo(c.HasCNAME), yesNo(c.HasNS), yesNo(c.AvailableGuess))
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "\n%d subdomains reported. Results are approximate.\n", len(subs))
}
