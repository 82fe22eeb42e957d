// Package logging configures the process-wide zerolog logger.
package logging

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
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TimeFormat is used by the console writer.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Options configures Setup.
type Options struct {
	// Level is a zerolog level name ("debug", "info", ...); info when empty.
	Level string
	// JSON switches from human-readable console lines to JSON lines.
	JSON bool
	// Out receives log output; stderr when nil.
	Out io.Writer
	// Caller adds the file:line of the log call.
	Caller bool
}

// Setup replaces log.Logger and sets the global level. An unknown level falls
// back to info and is reported through the new logger.
func Setup(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	var w io.Writer = out
	if !opts.JSON {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: TimeFormat}
	}

	ctx := zerolog.New(w).With().Timestamp()
	if opts.Caller {
		ctx = ctx.Caller()
	}
	logger := ctx.Logger()

	level := zerolog.InfoLevel
	badLevel := false
	if name := strings.TrimSpace(opts.Level); name != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(name))
		if err != nil {
			badLevel = true
		} else {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = logger

	if badLevel {
		logger.Warn().Str("level", opts.Level).Msg("Unknown log level, using info")
	}
	return logger
}
