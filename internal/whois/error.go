package whois

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
	"net"
)

// QueryError describes why a WHOIS session produced no data. It never crosses
// the string contract of Transport.QueryText or Resolver.ResolveAndQuery; it is
// kept on Response so callers and tests can tell failure modes apart.
type QueryError struct {
	Server  string // WHOIS server the session targeted.
	Op      string // "dial", "write" or "read".
	Err     error  // Underlying network error.
	timeout bool
}

func newQueryError(server, op string, err error) *QueryError {
	return &QueryError{
		Server:  server,
		Op:      op,
		Err:     err,
		timeout: isTimeout(err),
	}
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("whois %s %s: %v", e.Op, e.Server, e.Err)
}

// Unwrap returns the underlying network error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the session ended because a deadline elapsed.
func (e *QueryError) Timeout() bool {
	return e.timeout
}

// IsTimeout reports whether err is a *QueryError caused by a timeout.
func IsTimeout(err error) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Timeout()
	}
	return false
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
