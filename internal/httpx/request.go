package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/arnesen/httpcore/internal/netx"
)

// ParseLimits bounds the resources a single request parse may consume,
// matching the defaults in spec.md §5 (8 KiB request-line, 8 KiB headers).
type ParseLimits struct {
	MaxURIBytes    int
	MaxHeaderBytes int
	MaxHeaderCount int
	MaxBodyBytes   int64
}

// DefaultParseLimits mirrors spec.md §5's resource bounds.
var DefaultParseLimits = ParseLimits{
	MaxURIBytes:    8 << 10,
	MaxHeaderBytes: 8 << 10,
	MaxHeaderCount: 100,
	MaxBodyBytes:   10 << 20,
}

// ParseError pairs a parse failure with the Status the server must emit in
// response to it (spec.md §4.6's "Failure outcomes").
type ParseError struct {
	Status Status
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Status, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func badRequest(err error) *ParseError {
	return &ParseError{Status: StatusBadRequest, Err: err}
}

// requestLine models the first line of an HTTP/1.x request.
type requestLine struct {
	Method     Method
	RequestURI string
	ProtoMajor int
	ProtoMinor int
}

// Proto renders the request-line's protocol token, e.g. "HTTP/1.1".
func (r requestLine) Proto() string {
	return fmt.Sprintf("HTTP/%d.%d", r.ProtoMajor, r.ProtoMinor)
}

// String returns the serialized form of the request line.
func (r requestLine) String() string {
	return fmt.Sprintf("%s %s %s", r.Method, r.RequestURI, r.Proto())
}

// Request represents a parsed HTTP/1.x request (spec.md §3).
type Request struct {
	requestLine
	URL             *URL
	Header          *HeaderCollection
	Body            io.ReadCloser
	CloseConnection bool
	RemoteAddr      string

	ctx context.Context
}

// Context returns the request's context.
func (r *Request) Context() context.Context {
	if r == nil || r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// WithContext returns a shallow copy of r with its context replaced by ctx.
func (r *Request) WithContext(ctx context.Context) *Request {
	if r == nil {
		return nil
	}
	cp := *r
	cp.ctx = ctx
	return &cp
}

// String returns a human-readable representation of the request line.
func (r *Request) String() string {
	if r == nil {
		return "<nil request>"
	}
	return r.requestLine.String()
}

// ParseRequest drives the state machine from spec.md §4.6: request-line,
// header block, then body framing. On a malformed component it returns a
// partially-filled Request (so the caller can still log/observe what it
// has) alongside a *ParseError identifying the response Status to emit.
// A plain (non-*ParseError) error indicates the connection is unusable
// (e.g. the peer reset it) and should simply be closed without a response.
func ParseRequest(ctx context.Context, stream *netx.BufferedStream, limits ParseLimits, remoteAddr string) (*Request, error) {
	req := &Request{RemoteAddr: remoteAddr, ctx: ctx}

	method, err := ReadMethod(stream, MaxMethodLen)
	if err != nil {
		if errors.Is(err, ErrMalformedMethod) || errors.Is(err, ErrMethodTooLong) {
			return req, badRequest(err)
		}
		return req, err
	}
	req.Method = method

	uriBytes, err := stream.ConsumeUntil(' ', limits.MaxURIBytes)
	if err != nil {
		if errors.Is(err, netx.ErrLineTooLong) {
			return req, &ParseError{Status: StatusRequestURITooLong, Err: err}
		}
		return req, err
	}
	for _, b := range uriBytes {
		if IsCTL(b) {
			return req, badRequest(errors.New("control character in request-target"))
		}
	}
	req.RequestURI = string(uriBytes)

	u, err := ParseRequestURI(req.RequestURI)
	if err != nil {
		return req, badRequest(err)
	}
	req.URL = u

	versionLine, err := stream.ConsumeUntil('\n', limits.MaxURIBytes)
	if err != nil {
		if errors.Is(err, netx.ErrLineTooLong) {
			return req, badRequest(err)
		}
		return req, err
	}
	versionStr := strings.TrimSuffix(string(versionLine), "\r")
	major, minor, err := parseHTTPVersion(versionStr)
	if err != nil {
		return req, badRequest(err)
	}
	req.ProtoMajor = major
	req.ProtoMinor = minor
	if major != 1 {
		return req, &ParseError{Status: StatusHTTPVersionNotSupported, Err: fmt.Errorf("unsupported HTTP major version %d", major)}
	}

	lines, err := readHeaderLines(stream, limits)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			return req, perr
		}
		return req, err
	}
	if err := validateHeaderLines(lines, limits); err != nil {
		return req, err
	}
	req.Header = ParseHeaderCollection(lines)

	req.CloseConnection = computeCloseConnection(minor, req.Header)

	body, _, err := NewBodyReader(ctx, req.Header, stream, limits.MaxBodyBytes, RoleRequest)
	if err != nil {
		if errors.Is(err, ErrBodyTooLarge) {
			return req, &ParseError{Status: StatusRequestEntityTooLarge, Err: err}
		}
		return req, badRequest(err)
	}
	req.Body = body

	return req, nil
}

// parseHTTPVersion parses exactly "HTTP/x.y" where x,y are single decimal
// digits, per spec.md §4.6.
func parseHTTPVersion(s string) (major, minor int, err error) {
	if !strings.HasPrefix(s, "HTTP/") {
		return 0, 0, fmt.Errorf("invalid protocol: %q", s)
	}
	ver := strings.TrimPrefix(s, "HTTP/")
	if len(ver) != 3 || ver[1] != '.' {
		return 0, 0, fmt.Errorf("invalid HTTP version: %q", s)
	}
	if !isDigits(ver[:1]) || !isDigits(ver[2:]) {
		return 0, 0, fmt.Errorf("invalid HTTP version numbers: %q", s)
	}
	return int(ver[0] - '0'), int(ver[2] - '0'), nil
}

// readHeaderLines reads the header block up to the blank line terminator,
// joining obsolete line-folding continuations (a line starting with SP or
// HTAB) onto the previous header's value with a single SP, per spec.md §4.6.
func readHeaderLines(stream *netx.BufferedStream, limits ParseLimits) ([]rawHeaderLine, error) {
	var lines []rawHeaderLine
	total := 0

	for {
		raw, err := stream.ConsumeUntil('\n', limits.MaxHeaderBytes)
		if err != nil {
			if errors.Is(err, netx.ErrLineTooLong) {
				return nil, badRequest(err)
			}
			return nil, err
		}
		line := strings.TrimSuffix(string(raw), "\r")
		if line == "" {
			return lines, nil
		}

		total += len(raw)
		if total > limits.MaxHeaderBytes {
			return nil, badRequest(errors.New("header block too large"))
		}

		if line[0] == ' ' || line[0] == '\t' {
			if len(lines) == 0 {
				return nil, badRequest(errors.New("line-folding continuation with no preceding header"))
			}
			lines[len(lines)-1].Value += " " + strings.TrimSpace(line)
			continue
		}

		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			return nil, badRequest(fmt.Errorf("malformed header line: %q", line))
		}
		name := line[:colon]
		value := strings.TrimSpace(line[colon+1:])
		lines = append(lines, rawHeaderLine{Name: name, Value: value})

		if len(lines) > limits.MaxHeaderCount {
			return nil, badRequest(errors.New("too many header fields"))
		}
	}
}

// headerLineLimits derives the field-name/value validation bounds
// ValidateHeader enforces from the connection-wide ParseLimits.
// maxFieldNameBytes is capped independently of MaxHeaderBytes (which bounds
// a whole line) since a pathological field name shouldn't need to consume
// an entire line's budget to be rejected.
const maxFieldNameBytes = 256

func headerLineLimits(limits ParseLimits) HeaderLimits {
	return HeaderLimits{
		MaxFields:           limits.MaxHeaderCount,
		MaxKeyBytes:         maxFieldNameBytes,
		MaxValueBytes:       limits.MaxHeaderBytes,
		MaxTotalValuesBytes: limits.MaxHeaderBytes * limits.MaxHeaderCount,
	}
}

// validateHeaderLines rejects field names or values with illegal
// characters (RFC 7230 §3.2.6) in the already-folded header lines, via
// ValidateHeader.
func validateHeaderLines(lines []rawHeaderLine, limits ParseLimits) error {
	h := Header{}
	for _, l := range lines {
		h.Add(l.Name, l.Value)
	}
	if err := ValidateHeader(h, headerLineLimits(limits)); err != nil {
		return badRequest(err)
	}
	return nil
}

// computeCloseConnection derives close-after-response per spec.md §4.6:
// HTTP/1.0 defaults to closing unless Connection: keep-alive is present;
// HTTP/1.1 defaults to keep-alive unless Connection: close is present.
func computeCloseConnection(minor int, hc *HeaderCollection) bool {
	if minor == 0 {
		return !hc.connectionKeepAlive()
	}
	return hc.connectionClose()
}
