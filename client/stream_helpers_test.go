package client

import (
	"net"

	"github.com/arnesen/httpcore/internal/netx"
)

// newBufferedStreamFor wraps a live net.Conn (typically one half of a
// net.Pipe) for tests that want to drive RequestWriter's stream directly,
// bypassing DNS resolution and the Connecter.
func newBufferedStreamFor(conn net.Conn) *netx.BufferedStream {
	return netx.NewBufferedStream(conn)
}
