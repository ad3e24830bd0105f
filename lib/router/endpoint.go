// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"fmt"
	"net/url"
	"strings"
)

// Scheme selects the router implementation for an endpoint.
type Scheme string

const (
	// SchemeUnix connects to strata-server over a unix socket:
	// unix:///run/strata/strata.sock
	SchemeUnix Scheme = "unix"

	// SchemeTCP connects to strata-server over TCP: tcp://host:port
	SchemeTCP Scheme = "tcp"

	// SchemeMemory opens an embedded engine backed by an in-memory
	// database: mem://
	SchemeMemory Scheme = "mem"

	// SchemeFile opens an embedded engine backed by a database file:
	// file:///var/lib/strata/data.db
	SchemeFile Scheme = "file"
)

// Endpoint is a parsed connection target.
type Endpoint struct {
	Scheme Scheme

	// Address is the socket path (unix), host:port (tcp), or database
	// file path (file). Empty for mem.
	Address string
}

// Remote reports whether the endpoint is served by strata-server
// rather than an embedded engine.
func (e Endpoint) Remote() bool {
	return e.Scheme == SchemeUnix || e.Scheme == SchemeTCP
}

// Network returns the net.Dial network name for remote endpoints.
func (e Endpoint) Network() string {
	return string(e.Scheme)
}

func (e Endpoint) String() string {
	switch e.Scheme {
	case SchemeMemory:
		return "mem://"
	default:
		return string(e.Scheme) + "://" + e.Address
	}
}

// ParseEndpoint parses an endpoint URL. The scheme is required.
func ParseEndpoint(raw string) (Endpoint, error) {
	if !strings.Contains(raw, "://") {
		return Endpoint{}, fmt.Errorf("endpoint %q: missing scheme (want unix://, tcp://, mem:// or file://)", raw)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("endpoint %q: %w", raw, err)
	}

	switch Scheme(parsed.Scheme) {
	case SchemeUnix, SchemeFile:
		path := parsed.Path
		if parsed.Host != "" {
			// unix://relative/path parses the first segment as a host.
			path = parsed.Host + path
		}
		if path == "" {
			return Endpoint{}, fmt.Errorf("endpoint %q: path is required", raw)
		}
		return Endpoint{Scheme: Scheme(parsed.Scheme), Address: path}, nil
	case SchemeTCP:
		if parsed.Host == "" || parsed.Port() == "" {
			return Endpoint{}, fmt.Errorf("endpoint %q: host:port is required", raw)
		}
		return Endpoint{Scheme: SchemeTCP, Address: parsed.Host}, nil
	case SchemeMemory:
		return Endpoint{Scheme: SchemeMemory}, nil
	default:
		return Endpoint{}, fmt.Errorf("endpoint %q: unsupported scheme %q", raw, parsed.Scheme)
	}
}
