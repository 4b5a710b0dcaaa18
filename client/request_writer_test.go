package client

import (
	"context"
	"io"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arnesen/httpcore/internal/httpx"
)

// pipeConnecter hands back one side of a net.Pipe and lets the test drive
// the other side directly, avoiding a real socket. connect() still resolves
// the host before calling it, so the tests below bypass connect() entirely.
type pipeConnecter struct {
	serverConn net.Conn
}

func (p *pipeConnecter) Connect(addr, hostname string, useSSL bool) (net.Conn, error) {
	client, server := net.Pipe()
	p.serverConn = server
	return client, nil
}

func TestWriteHeadersEmitsHTTP10RequestLine(t *testing.T) {
	u, err := url.Parse("http://example.com/a/b?x=1")
	require.NoError(t, err)
	method, err := httpx.ParseMethod("GET")
	require.NoError(t, err)

	pc := &pipeConnecter{}
	rw, err := NewWithConnecter(method, u, pc)
	require.NoError(t, err)

	// Skip DNS by never calling connect(): writeHeaders only calls it from
	// stateUnsent, and connect() calls resolveFirstIPv4(host) — exercised
	// separately in connecter_test.go. Here we drive TryWriteHeaders after
	// manually standing up the stream to isolate request-line formatting.
	conn, server := net.Pipe()
	rw.conn = conn
	rw.stream = newBufferedStreamFor(conn)
	rw.state = stateConnected

	done := make(chan struct{})
	var buf []byte
	go func() {
		b := make([]byte, 4096)
		n, _ := server.Read(b)
		buf = b[:n]
		close(done)
	}()

	require.NoError(t, rw.TryWriteHeaders())
	require.NoError(t, rw.stream.Flush())
	<-done
	server.Close()

	got := string(buf)
	require.Equal(t, "GET /a/b?x=1 HTTP/1.0\r\nHost: example.com\r\n\r\n", got)
}

func TestTryWriteHeadersIsIdempotent(t *testing.T) {
	u, err := url.Parse("http://example.com/")
	require.NoError(t, err)
	method, err := httpx.ParseMethod("GET")
	require.NoError(t, err)
	pc := &pipeConnecter{}
	rw, err := NewWithConnecter(method, u, pc)
	require.NoError(t, err)

	conn, server := net.Pipe()
	defer server.Close()
	rw.conn = conn
	rw.stream = newBufferedStreamFor(conn)
	rw.state = stateConnected

	go io.Copy(io.Discard, server)

	require.NoError(t, rw.TryWriteHeaders())
	require.NoError(t, rw.TryWriteHeaders())
}

func TestReadResponseParsesStatusLine(t *testing.T) {
	u, err := url.Parse("http://example.com/")
	require.NoError(t, err)
	method, err := httpx.ParseMethod("GET")
	require.NoError(t, err)
	pc := &pipeConnecter{}
	rw, err := NewWithConnecter(method, u, pc)
	require.NoError(t, err)

	conn, server := net.Pipe()
	rw.conn = conn
	rw.stream = newBufferedStreamFor(conn)
	rw.state = stateConnected

	go func() {
		buf := make([]byte, 4096)
		server.Read(buf) // drain the request
		io.WriteString(server, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")
		server.Close()
	}()

	resp, err := rw.ReadResponse(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint16(200), resp.Status.Code)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "ok", string(data))
}
