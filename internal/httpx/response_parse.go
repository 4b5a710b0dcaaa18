package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/arnesen/httpcore/internal/netx"
)

// ClientResponse is a parsed HTTP/1.x response as seen by a client
// (spec.md §4.8: "client path: ... buffered stream → ... → response
// parser").
type ClientResponse struct {
	ProtoMajor      int
	ProtoMinor      int
	Status          Status
	Header          *HeaderCollection
	Body            io.ReadCloser
	CloseConnection bool
}

// ParseClientResponse reads a status-line, header block, and body off
// stream, mirroring ParseRequest's structure but for the response side of
// the wire. Unlike a request, a response with neither Content-Length nor
// chunked Transfer-Encoding is read until EOF (spec.md §4.6's body-framing
// rule for responses).
func ParseClientResponse(ctx context.Context, stream *netx.BufferedStream, limits ParseLimits) (*ClientResponse, error) {
	statusLine, err := stream.ConsumeUntil('\n', limits.MaxURIBytes)
	if err != nil {
		return nil, err
	}
	line := strings.TrimSuffix(string(statusLine), "\r")

	major, minor, code, reason, err := parseStatusLine(line)
	if err != nil {
		return nil, fmt.Errorf("httpx: malformed status line %q: %w", line, err)
	}

	lines, err := readHeaderLines(stream, limits)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			return nil, perr.Err
		}
		return nil, err
	}
	if err := validateHeaderLines(lines, limits); err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			return nil, perr.Err
		}
		return nil, err
	}
	hc := ParseHeaderCollection(lines)

	resp := &ClientResponse{
		ProtoMajor: major,
		ProtoMinor: minor,
		Status:     Status{Code: code, Reason: reason},
		Header:     hc,
	}
	resp.CloseConnection = hc.connectionClose() || (minor == 0 && !hc.connectionKeepAlive())

	// RoleResponse selects NewBodyReader's read-until-close fallback for
	// the no-length case, which is what a response with neither
	// Content-Length nor chunked Transfer-Encoding wants (spec.md §4.6).
	body, _, err := NewBodyReader(ctx, hc, stream, limits.MaxBodyBytes, RoleResponse)
	if err != nil {
		return nil, err
	}
	resp.Body = body

	return resp, nil
}

// parseStatusLine parses "HTTP/x.y SP code SP reason".
func parseStatusLine(line string) (major, minor int, code uint16, reason string, err error) {
	const prefix = "HTTP/"
	if !strings.HasPrefix(line, prefix) {
		return 0, 0, 0, "", errors.New("missing HTTP/ prefix")
	}
	rest := line[len(prefix):]
	sp := strings.IndexByte(rest, ' ')
	if sp < 0 {
		return 0, 0, 0, "", errors.New("missing version/code separator")
	}
	major, minor, err = parseHTTPVersion(prefix + rest[:sp])
	if err != nil {
		return 0, 0, 0, "", err
	}

	rest = rest[sp+1:]
	sp = strings.IndexByte(rest, ' ')
	var codeStr string
	if sp < 0 {
		codeStr = rest
		rest = ""
	} else {
		codeStr = rest[:sp]
		rest = rest[sp+1:]
	}
	codeNum, err := strconv.ParseUint(codeStr, 10, 16)
	if err != nil {
		return 0, 0, 0, "", fmt.Errorf("invalid status code %q: %w", codeStr, err)
	}

	return major, minor, uint16(codeNum), rest, nil
}
