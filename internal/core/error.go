/*
Package core provides the availability classifier, the subdomain scanner and the
worker scheduler that runs scanner probes.
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
	"context"
	"errors"
	"fmt"
)

// customError is an error type that includes a retryable flag.
type customError struct {
	message   string
	retryable bool
}

// NewError creates a new customError with the given message and retryable status.
func NewError(msg string, retryable bool) error {
	return &customError{
		message:   msg,
		retryable: retryable,
	}
}

// Error implements the error interface.
func (e *customError) Error() string {
	return e.message
}

// IsRetryable returns true if the error is designated as retryable.
func (e *customError) IsRetryable() bool {
	return e.retryable
}

// IsRetryable reports whether err, or any error it wraps, is retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ce *customError
	if errors.As(err, &ce) {
		return ce.IsRetryable()
	}
	var le *LookupError
	if errors.As(err, &le) {
		return le.Timeout()
	}
	return false
}

var (
	// ErrQueueFull indicates that a worker's queue is at capacity.
	ErrQueueFull = NewError("queue full", true)
	// ErrWorkerShutdown indicates that the scheduler no longer accepts work.
	ErrWorkerShutdown = NewError("worker shutdown", false)
)

// LookupError describes a failed probe of a single name. It never crosses the
// public classifier or scanner contracts, which report failures as absence; it
// feeds logs and the adaptive limiter.
type LookupError struct {
	Op     string // "dns" or "whois"
	Target string // name or server the lookup addressed
	Err    error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s lookup %s: %v", e.Op, e.Target, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Timeout reports whether the lookup failed because a deadline elapsed.
func (e *LookupError) Timeout() bool {
	var t interface{ Timeout() bool }
	if errors.As(e.Err, &t) && t.Timeout() {
		return true
	}
	return errors.Is(e.Err, context.DeadlineExceeded)
}
