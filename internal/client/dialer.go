package client

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

/*
Package client provides the configurable network dialer used for outbound WHOIS
connections. WHOIS speaks plain TCP on port 43, so instead of an HTTP client the
package manages a shared net.Dialer that is configured once and then handed out to
the transport.

The package keeps a single global dialer so every component agrees on connect
timeouts and keep-alive behavior.
*/

import (
	"net"
	"sync"
	"time"
)

// Dialer-specific constants.
const (
	// DialTimeout is the maximum amount of time a dial will wait for a connect to complete.
	DialTimeout = 5 * time.Second
	// ReadTimeout bounds every single read on an established WHOIS connection.
	ReadTimeout = 5 * time.Second
)

var (
	defaultDialTimeout = DialTimeout
	defaultReadTimeout = ReadTimeout
	// WHOIS servers close the connection after one answer; keep-alive probes only
	// matter for slow servers that stream large responses.
	defaultKeepAlive = 15 * time.Second

	sharedDialer     *net.Dialer
	sharedConfig     Config
	sharedDialerLock sync.RWMutex
	dialerReady      bool
)

// Config holds the parameters of the shared dialer.
// A zero-value Config results in default settings.
type Config struct {
	// DialTimeout is the maximum duration for establishing a new connection.
	DialTimeout time.Duration
	// ReadTimeout is the per-read deadline applied by callers after connecting.
	ReadTimeout time.Duration
	// KeepAlive specifies the keep-alive period for an active connection.
	KeepAlive time.Duration
	// LocalAddr optionally pins the source address of outbound connections.
	LocalAddr net.Addr
}

// DefaultConfig returns a Config populated with the default settings.
func DefaultConfig() *Config {
	return &Config{
		DialTimeout: defaultDialTimeout,
		ReadTimeout: defaultReadTimeout,
		KeepAlive:   defaultKeepAlive,
	}
}

// InitDialer initializes or reconfigures the shared dialer. A nil config means
// DefaultConfig(). Zero fields are filled with defaults. Thread-safe.
func InitDialer(config *Config) {
	sharedDialerLock.Lock()
	defer sharedDialerLock.Unlock()

	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = defaultKeepAlive
	}

	sharedDialer = &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAlive,
		LocalAddr: cfg.LocalAddr,
	}
	sharedConfig = cfg
	dialerReady = true
}

// GetDialer returns the shared dialer, initializing it with defaults on first use.
func GetDialer() *net.Dialer {
	sharedDialerLock.RLock()
	if !dialerReady {
		sharedDialerLock.RUnlock()
		InitDialer(nil)
		sharedDialerLock.RLock()
	}
	d := sharedDialer
	sharedDialerLock.RUnlock()
	return d
}

// GetConfig returns a copy of the effective configuration of the shared dialer.
func GetConfig() Config {
	GetDialer()
	sharedDialerLock.RLock()
	defer sharedDialerLock.RUnlock()
	return sharedConfig
}
