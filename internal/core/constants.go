/*
Package core constants shared by the classifier, the subdomain scanner and the
worker scheduler. They are defaults: configuration may override the timeouts,
the worker count and the probe rate, never MaxWordlistEntries.
*/
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
	"time"
)

const (
	// --- Input ---

	// MaxWordlistEntries caps every wordlist before it reaches the scanner.
	MaxWordlistEntries = 200

	// --- Network ---

	// DefaultWhoisTimeout bounds the connect and every read of a WHOIS session.
	DefaultWhoisTimeout = 5 * time.Second
	// DefaultProbeTimeout bounds a single DNS existence probe.
	DefaultProbeTimeout = 5 * time.Second

	// --- Scheduler ---

	// DefaultWorkers is the scanner's default number of concurrent candidates.
	DefaultWorkers = 16
	// MaxWorkers is the hard ceiling on scheduler workers regardless of configuration.
	MaxWorkers = 256
	// fdsPerWorker is the number of descriptors a worker can hold at once
	// (one UDP socket per in-flight probe, plus slack for retries).
	fdsPerWorker = 2
	// fdReserve is kept free for the WHOIS transport, the metrics server and logs.
	fdReserve = 64

	// --- Limiter ---

	// SlowRateWait is the limiter wait above which a debug line is logged.
	SlowRateWait = 100 * time.Millisecond
)
