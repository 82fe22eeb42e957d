/*
Package io writes lookup results to disk as CSV or JSON lines. Output goes to a
temporary file next to the destination and is renamed into place on Close, so a
reader never sees a half-written result file.
*/
package io

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
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/x-stp/domcheck/internal/core"
)

const (
	// DefaultBufferSize is the default buffer size for disk I/O.
	DefaultBufferSize = 64 * 1024
	// TempSuffix marks a result file that is still being written.
	TempSuffix = ".tmp"
)

// Format selects the on-disk encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
)

var (
	// ErrWriterClosed is returned when writing to a closed ResultWriter.
	ErrWriterClosed = errors.New("result writer closed")
	// ErrUnknownFormat is returned for an unsupported Format.
	ErrUnknownFormat = errors.New("unknown output format")
)

// csvHeader is shared by check and subdomain rows; kind tells them apart.
var csvHeader = []string{
	"kind", "name", "label", "has_a", "has_cname", "has_ns",
	"dns_resolves", "available", "reason", "matched_pattern", "whois_server",
}

// Options configures a ResultWriter.
type Options struct {
	Format     Format
	Compress   bool
	BufferSize int
}

// OptionsForPath infers Options from a file name: a ".gz" suffix turns on
// compression, ".jsonl"/".json" selects JSON lines, anything else CSV.
func OptionsForPath(path string) Options {
	opts := Options{Format: FormatCSV}
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".gz") {
		opts.Compress = true
		name = strings.TrimSuffix(name, ".gz")
	}
	switch filepath.Ext(name) {
	case ".jsonl", ".json", ".ndjson":
		opts.Format = FormatJSONL
	}
	return opts
}

// ResultWriter appends results to a single output file. Safe for concurrent use.
type ResultWriter struct {
	mu        sync.Mutex
	file      *os.File
	gzWriter  *gzip.Writer
	bufWriter *bufio.Writer
	csv       *csv.Writer
	enc       *json.Encoder
	format    Format
	tmpPath   string
	finalPath string
	rows      int64
	closed    bool
}

type checkRecord struct {
	Kind string `json:"kind"`
	core.AvailabilityResult
}

type candidateRecord struct {
	Kind string `json:"kind"`
	Root string `json:"root"`
	core.SubdomainCandidate
}

// NewResultWriter creates path's parent directory and opens path+TempSuffix for writing.
func NewResultWriter(path string, opts Options) (*ResultWriter, error) {
	if opts.Format == "" {
		opts.Format = FormatCSV
	}
	if opts.Format != FormatCSV && opts.Format != FormatJSONL {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp := path + TempSuffix
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", tmp, err)
	}

	w := &ResultWriter{
		file:      file,
		format:    opts.Format,
		tmpPath:   tmp,
		finalPath: path,
	}
	if opts.Compress {
		w.gzWriter = gzip.NewWriter(file)
		w.bufWriter = bufio.NewWriterSize(w.gzWriter, opts.BufferSize)
	} else {
		w.bufWriter = bufio.NewWriterSize(file, opts.BufferSize)
	}

	switch w.format {
	case FormatCSV:
		w.csv = csv.NewWriter(w.bufWriter)
		if err := w.csv.Write(csvHeader); err != nil {
			_ = w.Abort()
			return nil, fmt.Errorf("write header: %w", err)
		}
	case FormatJSONL:
		w.enc = json.NewEncoder(w.bufWriter)
	}
	return w, nil
}

// Path returns the final destination of the file.
func (w *ResultWriter) Path() string {
	return w.finalPath
}

// Rows returns the number of records written so far.
func (w *ResultWriter) Rows() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// WriteResult appends one availability verdict.
func (w *ResultWriter) WriteResult(r core.AvailabilityResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}

	var err error
	if w.format == FormatCSV {
		err = w.csv.Write([]string{
			"check", r.Domain, "",
			strconv.FormatBool(r.HasA), "", strconv.FormatBool(r.HasNS),
			strconv.FormatBool(r.DNSResolves), strconv.FormatBool(r.Available),
			string(r.Reason), r.MatchedPattern, r.WhoisServer,
		})
	} else {
		err = w.enc.Encode(checkRecord{Kind: "check", AvailabilityResult: r})
	}
	if err != nil {
		return fmt.Errorf("write result %s: %w", r.Domain, err)
	}
	w.rows++
	return nil
}

// WriteCandidates appends the scan results for root.
func (w *ResultWriter) WriteCandidates(root string, candidates []core.SubdomainCandidate) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}

	for i := range candidates {
		c := candidates[i]
		var err error
		if w.format == FormatCSV {
			err = w.csv.Write([]string{
				"subdomain", c.FQDN, c.Label,
				strconv.FormatBool(c.HasA), strconv.FormatBool(c.HasCNAME), strconv.FormatBool(c.HasNS),
				strconv.FormatBool(c.HasA || c.HasCNAME || c.HasNS), strconv.FormatBool(c.AvailableGuess),
				"", "", "",
			})
		} else {
			err = w.enc.Encode(candidateRecord{Kind: "subdomain", Root: root, SubdomainCandidate: c})
		}
		if err != nil {
			return fmt.Errorf("write candidate %s: %w", c.FQDN, err)
		}
		w.rows++
	}
	return nil
}

// Close flushes, closes and renames the temporary file to its final path.
// The temporary file is left behind if any step before the rename fails.
func (w *ResultWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	if w.csv != nil {
		w.csv.Flush()
		if err := w.csv.Error(); err != nil {
			errs = append(errs, fmt.Errorf("flush csv: %w", err))
		}
	}
	if err := w.bufWriter.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("flush buffer: %w", err))
	}
	if w.gzWriter != nil {
		if err := w.gzWriter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close gzip: %w", err))
		}
	}
	if err := w.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close file: %w", err))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if err := os.Rename(w.tmpPath, w.finalPath); err != nil {
		return fmt.Errorf("rename %s to %s: %w", w.tmpPath, w.finalPath, err)
	}
	log.Debug().Str("path", w.finalPath).Int64("rows", w.rows).Msg("Result file written")
	return nil
}

// Abort closes the writer and removes the temporary file without publishing it.
func (w *ResultWriter) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.gzWriter != nil {
		_ = w.gzWriter.Close()
	}
	_ = w.file.Close()
	if err := os.Remove(w.tmpPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", w.tmpPath, err)
	}
	return nil
}
