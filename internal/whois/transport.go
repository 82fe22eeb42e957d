/*
Package whois implements the WHOIS side of domcheck: a raw TCP transport that
speaks the port-43 protocol, and a resolver that discovers the authoritative
server for a TLD through the IANA referral before asking it about a domain.

Both components degrade instead of failing: a lookup that cannot reach a server
yields an empty answer, never an error, so availability inference can continue
on the DNS signal alone.
*/
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
	"io"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/x-stp/domcheck/internal/client"
	"github.com/x-stp/domcheck/internal/metrics"
)

const (
	// DefaultPort is the WHOIS port.
	DefaultPort = "43"
	// DefaultTimeout applies to the connect phase and to every single read.
	DefaultTimeout = 5 * time.Second
	// MaxResponseBytes caps how much of a response is kept.
	MaxResponseBytes = 1 << 20
	// readChunkSize is the size of each socket read.
	readChunkSize = 4096
)

// Response is the outcome of one WHOIS session.
//
// Obtained is false when no data could be obtained at all (the connection could
// not be established, the query could not be sent, or the read failed before the
// first byte). Obtained with an empty Text means the server answered with nothing.
type Response struct {
	Server   string
	Query    string
	Text     string
	Obtained bool
	Err      error
	Duration time.Duration
}

// Querier performs a single WHOIS round-trip. *Transport implements it; tests
// substitute scripted fakes.
type Querier interface {
	Query(ctx context.Context, server, query string) Response
}

// Transport opens one TCP connection per query. The zero value is usable and
// takes its dialer and timeouts from the client package.
type Transport struct {
	// Port overrides DefaultPort. Only tests pointing at a local listener set it.
	Port string
	// Timeout is the connect timeout and the per-read deadline.
	Timeout time.Duration
	// Dialer overrides the shared dialer.
	Dialer *net.Dialer
}

// NewTransport returns a Transport with the given timeout. A non-positive
// timeout selects DefaultTimeout.
func NewTransport(timeout time.Duration) *Transport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Transport{Port: DefaultPort, Timeout: timeout}
}

func (t *Transport) port() string {
	if t.Port == "" {
		return DefaultPort
	}
	return t.Port
}

func (t *Transport) timeout() time.Duration {
	if t.Timeout > 0 {
		return t.Timeout
	}
	return DefaultTimeout
}

// readTimeout is the per-read deadline: Timeout when set, otherwise the shared
// dialer configuration's ReadTimeout.
func (t *Transport) readTimeout() time.Duration {
	if t.Timeout > 0 {
		return t.Timeout
	}
	if rt := client.GetConfig().ReadTimeout; rt > 0 {
		return rt
	}
	return DefaultTimeout
}

func (t *Transport) dialer() *net.Dialer {
	if t.Dialer != nil {
		return t.Dialer
	}
	return client.GetDialer()
}

// QueryText is Query reduced to its text. Failures yield "".
func (t *Transport) QueryText(ctx context.Context, server, query string) string {
	return t.Query(ctx, server, query).Text
}

// Query sends query+CRLF to server:43 and reads until the peer closes the
// connection or a read deadline elapses. No retries.
func (t *Transport) Query(ctx context.Context, server, query string) Response {
	start := time.Now()
	resp := Response{Server: server, Query: query}
	defer func() {
		resp.Duration = time.Since(start)
		observe(resp)
	}()

	timeout := t.timeout()
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := t.dialer().DialContext(dialCtx, "tcp", net.JoinHostPort(server, t.port()))
	if err != nil {
		resp.Err = newQueryError(server, "dial", err)
		log.Warn().Err(err).Str("server", server).Msg("WHOIS connect failed")
		return resp
	}
	defer conn.Close()

	// Abort blocking I/O when the caller's context ends before the deadlines do.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	if _, err := io.WriteString(conn, query+"\r\n"); err != nil {
		resp.Err = newQueryError(server, "write", err)
		log.Warn().Err(err).Str("server", server).Msg("WHOIS query send failed")
		return resp
	}

	var sb strings.Builder
	buf := make([]byte, readChunkSize)
	for sb.Len() < MaxResponseBytes {
		// Re-arming after a cancel would undo the deadline set by the AfterFunc.
		if cerr := ctx.Err(); cerr != nil {
			resp.Err = newQueryError(server, "read", cerr)
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(t.readTimeout()))
		n, rerr := conn.Read(buf)
		if n > 0 {
			room := MaxResponseBytes - sb.Len()
			if n > room {
				n = room
			}
			sb.Write(buf[:n])
		}
		if rerr != nil {
			if !errors.Is(rerr, io.EOF) {
				resp.Err = newQueryError(server, "read", rerr)
			}
			break
		}
	}

	resp.Text = sb.String()
	// A clean close, or any bytes at all, counts as data obtained.
	resp.Obtained = resp.Err == nil || sb.Len() > 0

	log.Debug().
		Str("server", server).
		Str("query", query).
		Int("bytes", sb.Len()).
		Bool("obtained", resp.Obtained).
		Dur("elapsed", time.Since(start)).
		Msg("WHOIS query finished")
	return resp
}

func observe(resp Response) {
	outcome := "ok"
	switch {
	case !resp.Obtained && IsTimeout(resp.Err):
		outcome = "timeout"
	case !resp.Obtained:
		outcome = "error"
	case resp.Text == "":
		outcome = "empty"
	}
	metrics.GetMetrics().ObserveWhoisQuery(resp.Server, outcome, len(resp.Text), resp.Duration)
}
