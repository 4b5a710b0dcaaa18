package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/arnesen/httpcore/internal/httpx"
	"github.com/arnesen/httpcore/internal/netx"
)

// writerState mirrors the Unsent → Connected → HeadersSent → Sending →
// AwaitingResponse lifecycle from spec.md §4.8.
type writerState int

const (
	stateUnsent writerState = iota
	stateConnected
	stateHeadersSent
	stateSending
	stateAwaitingResponse
)

// ErrOutOfOrder reports a call made in the wrong writer state, e.g.
// writing body bytes or reading the response after ReadResponse has
// already been called.
var ErrOutOfOrder = errors.New("client: call out of order")

// Options carries the ambient collaborators a RequestWriter needs,
// mirroring server.Config's Logger/Clock injection (spec.md §3/§6).
type Options struct {
	// Connecter defaults to DialConnecter{} when nil.
	Connecter Connecter
	// Logger defaults to a no-op logger when nil.
	Logger *zap.SugaredLogger
	// Clock defaults to clockwork.NewRealClock() when nil.
	Clock clockwork.Clock
	// Limits bounds the response parse; defaults to httpx.DefaultParseLimits.
	Limits httpx.ParseLimits
}

func (o *Options) setDefaults() {
	if o.Connecter == nil {
		o.Connecter = DialConnecter{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Limits == (httpx.ParseLimits{}) {
		o.Limits = httpx.DefaultParseLimits
	}
}

// RequestWriter builds and sends a single HTTP/1.x request over a
// connect-on-demand connection, grounded in
// original_source/src/http/client/request.rs's RequestWriter.
//
// A RequestWriter supports exactly one request per connection, matching
// the original's documented limitation.
type RequestWriter struct {
	Method httpx.Method
	URL    *url.URL
	Header httpx.Header

	useSSL    bool
	host      string
	port      int
	connecter Connecter
	logger    *zap.SugaredLogger
	clock     clockwork.Clock

	stream *netx.BufferedStream
	conn   net.Conn
	state  writerState

	limits httpx.ParseLimits
}

// New constructs a RequestWriter targeting target, auto-detecting SSL from
// the URL scheme (https → SSL), and resolving the port: explicit port in
// the URL, else 443 for https, else 80. Ambient collaborators default to
// DialConnecter{}, a no-op logger, and a real clock.
func New(method httpx.Method, target *url.URL) (*RequestWriter, error) {
	return NewWithOptions(method, target, Options{})
}

// NewWithConnecter is New with an injectable Connecter, used by tests to
// avoid opening real sockets.
func NewWithConnecter(method httpx.Method, target *url.URL, connecter Connecter) (*RequestWriter, error) {
	return NewWithOptions(method, target, Options{Connecter: connecter})
}

// NewWithOptions is New with full control over ambient collaborators.
func NewWithOptions(method httpx.Method, target *url.URL, opts Options) (*RequestWriter, error) {
	if target.Hostname() == "" {
		return nil, fmt.Errorf("client: url %q has no host", target.String())
	}
	opts.setDefaults()

	port := 80
	useSSL := target.Scheme == "https"
	if useSSL {
		port = 443
	}
	if p := target.Port(); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("client: invalid port %q: %w", p, err)
		}
		port = parsed
	}

	rw := &RequestWriter{
		Method:    method,
		URL:       target,
		Header:    httpx.Header{},
		useSSL:    useSSL,
		host:      target.Hostname(),
		port:      port,
		connecter: opts.Connecter,
		logger:    opts.Logger,
		clock:     opts.Clock,
		limits:    opts.Limits,
	}
	rw.Header.Set("Host", rw.host)
	return rw, nil
}

// TryConnect connects if not already connected; a no-op once Connected or
// later.
func (r *RequestWriter) TryConnect() error {
	if r.state >= stateConnected {
		return nil
	}
	return r.connect()
}

// connect resolves r.host to its first IPv4 address (see
// resolveFirstIPv4) and opens the stream via the Connecter.
func (r *RequestWriter) connect() error {
	if r.state != stateUnsent {
		return fmt.Errorf("%w: connect called in state %d", ErrOutOfOrder, r.state)
	}

	ip, err := resolveFirstIPv4(r.host)
	if err != nil {
		r.logger.Warnf("client: resolve %s failed: %v", r.host, err)
		return err
	}
	addr := net.JoinHostPort(ip.String(), strconv.Itoa(r.port))

	conn, err := r.connecter.Connect(addr, r.host, r.useSSL)
	if err != nil {
		r.logger.Warnf("client: connect %s failed: %v", addr, err)
		return err
	}
	r.logger.Infof("client: connected to %s for %s", addr, r.host)

	r.conn = conn
	r.stream = netx.NewBufferedStream(conn)
	r.state = stateConnected
	return nil
}

// TryWriteHeaders writes the request-line and headers exactly once,
// connecting first if necessary; a no-op once already sent.
func (r *RequestWriter) TryWriteHeaders() error {
	if r.state >= stateHeadersSent {
		return nil
	}
	return r.writeHeaders()
}

// writeHeaders emits "METHOD path?query HTTP/1.0\r\n" followed by the
// header block. The client always emits HTTP/1.0 in the request line
// (spec.md §6, documented Open Question decision in DESIGN.md) to avoid
// implementing request-side chunked encoding.
func (r *RequestWriter) writeHeaders() error {
	if r.state == stateUnsent {
		if err := r.connect(); err != nil {
			return err
		}
	}
	if r.state != stateConnected {
		return fmt.Errorf("%w: writeHeaders called in state %d", ErrOutOfOrder, r.state)
	}

	path := r.URL.EscapedPath()
	if path == "" {
		path = "/"
	}
	if q := r.URL.RawQuery; q != "" {
		path = path + "?" + q
	}

	if err := r.stream.WriteFmt("%s %s HTTP/1.0\r\n", r.Method.String(), path); err != nil {
		return err
	}
	if err := r.Header.Write(r.stream); err != nil {
		return err
	}

	r.state = stateHeadersSent
	return nil
}

// Write sends body bytes, triggering TryWriteHeaders on first call.
func (r *RequestWriter) Write(p []byte) (int, error) {
	if r.state >= stateAwaitingResponse {
		return 0, fmt.Errorf("%w: Write called after ReadResponse", ErrOutOfOrder)
	}
	if err := r.TryWriteHeaders(); err != nil {
		return 0, err
	}
	r.state = stateSending
	return r.stream.Write(p)
}

// ReadResponse flushes the request (writing headers first if they have
// not been sent yet) and parses the response from the same stream. After
// this call the RequestWriter is spent; calling it twice returns
// ErrOutOfOrder.
func (r *RequestWriter) ReadResponse(ctx context.Context) (*httpx.ClientResponse, error) {
	if r.state >= stateAwaitingResponse {
		return nil, fmt.Errorf("%w: ReadResponse already called", ErrOutOfOrder)
	}
	tStart := r.clock.Now()
	if err := r.TryWriteHeaders(); err != nil {
		return nil, err
	}
	if err := r.stream.Flush(); err != nil {
		return nil, err
	}
	r.state = stateAwaitingResponse

	resp, err := httpx.ParseClientResponse(ctx, r.stream, r.limits)
	if err != nil {
		r.logger.Warnf("client: %s %s: reading response failed after %s: %v", r.Method, r.URL, r.clock.Now().Sub(tStart), err)
		return nil, err
	}
	r.logger.Infof("client: %s %s -> %d in %s", r.Method, r.URL, resp.Status.Code, r.clock.Now().Sub(tStart))
	return resp, nil
}

// Close releases the underlying connection, if any.
func (r *RequestWriter) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}
