// Package client implements the outbound half of the HTTP/1.x core: a
// RequestWriter that resolves a target host, opens a connection, emits a
// request, and hands the connection off to read the response.
//
// Grounded in original_source/src/http/client/request.rs's RequestWriter
// and its Connecter trait.
package client

import (
	"crypto/tls"
	"fmt"
	"net"
)

// Connecter opens a TCP connection to addr for hostname, optionally
// wrapping it in TLS. Mirrors the Connecter trait in
// original_source/src/http/client/request.rs, which the Rust original
// leaves for NetworkStream to implement; crypto/tls is the Go stdlib
// equivalent of that SSL wrapper and is treated as external per spec.md §1.
type Connecter interface {
	Connect(addr string, hostname string, useSSL bool) (net.Conn, error)
}

// DialConnecter is the default Connecter, using net.Dial / tls.Dial.
type DialConnecter struct {
	// TLSConfig is used for useSSL connections; a zero value uses Go's
	// default configuration with ServerName set to hostname.
	TLSConfig *tls.Config
}

// Connect dials addr (host:port) over TCP, or TLS if useSSL is set.
func (d DialConnecter) Connect(addr string, hostname string, useSSL bool) (net.Conn, error) {
	if !useSSL {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("client: dial %s: %w", addr, err)
		}
		return conn, nil
	}

	cfg := d.TLSConfig
	if cfg == nil {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg = cfg.Clone()
		cfg.ServerName = hostname
	}
	conn, err := tls.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("client: tls dial %s: %w", addr, err)
	}
	return conn, nil
}

// resolveFirstIPv4 resolves host to its first IPv4 address, matching
// original_source/src/http/client/request.rs's url_to_socket_addr, which
// takes the first Ipv4Addr from get_host_addresses and ignores IPv6
// entirely (documented as an Open Question decision in DESIGN.md rather
// than following RFC 6724 happy-eyeballs address selection).
func resolveFirstIPv4(host string) (net.IP, error) {
	addrs, err := net.LookupIP(host)
	if err != nil {
		return nil, fmt.Errorf("client: resolve %s: %w", host, err)
	}
	for _, a := range addrs {
		if v4 := a.To4(); v4 != nil {
			return v4, nil
		}
	}
	return nil, fmt.Errorf("client: no IPv4 address found for %s", host)
}
