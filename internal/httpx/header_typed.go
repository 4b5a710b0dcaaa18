package httpx

import (
	"strconv"
	"strings"
	"time"
)

// IMFFixdate is the only Date format this codec accepts on input and ever
// produces on output (RFC 2616 §3.3.1).
const IMFFixdate = "Mon, 02 Jan 2006 15:04:05 GMT"

// KV is an opaque (name, raw-value) pair: either a header this codec does
// not recognize, or a recognized header whose typed parse failed (demoted
// per spec.md §4.5 — a typed parse failure is never a parse error).
type KV struct {
	Name  string
	Value string
}

// rawHeaderLine is one already-unfolded header line as read off the wire:
// obsolete line-folding continuations have already been joined in by the
// request parser before lines reach ParseHeaderCollection.
type rawHeaderLine struct {
	Name  string
	Value string
}

// HeaderCollection is the parsed form of a request's (or response's)
// header block: a fixed set of typed fields plus an ordered Unknown list
// for everything else, per spec.md §3.
type HeaderCollection struct {
	Host string

	Date    time.Time
	HasDate bool

	ContentType *MediaType

	ContentLength    int64
	HasContentLength bool

	Connection       []string
	TransferEncoding []string

	ETag *EntityTag

	IfNoneMatchAny bool
	IfNoneMatch    []EntityTag

	Server string

	Unknown []KV
}

var recognizedHeaders = map[string]bool{
	"Host":              true,
	"Date":              true,
	"Content-Type":      true,
	"Content-Length":    true,
	"Connection":        true,
	"Transfer-Encoding": true,
	"Etag":              true,
	"If-None-Match":     true,
	"Server":            true,
}

// ParseHeaderCollection groups lines by canonical header name, folding
// repeated list-valued headers into a single comma-joined value (spec.md
// §4.5), and type-parses each recognized name. A failed typed parse
// demotes that header to Unknown rather than aborting.
func ParseHeaderCollection(lines []rawHeaderLine) *HeaderCollection {
	hc := &HeaderCollection{}

	grouped := make(map[string][]string)
	var order []string

	for _, line := range lines {
		canon := CanonicalHeaderKey(line.Name)
		if !recognizedHeaders[canon] {
			hc.Unknown = append(hc.Unknown, KV{Name: line.Name, Value: line.Value})
			continue
		}
		if _, ok := grouped[canon]; !ok {
			order = append(order, canon)
		}
		grouped[canon] = append(grouped[canon], line.Value)
	}

	for _, canon := range order {
		joined := strings.Join(grouped[canon], ", ")
		if !hc.applyTyped(canon, joined) {
			hc.Unknown = append(hc.Unknown, KV{Name: canon, Value: joined})
		}
	}

	return hc
}

func (hc *HeaderCollection) applyTyped(canon, value string) bool {
	switch canon {
	case "Host":
		hc.Host = strings.TrimSpace(value)
		return true

	case "Date":
		t, err := time.Parse(IMFFixdate, strings.TrimSpace(value))
		if err != nil {
			return false
		}
		hc.Date = t
		hc.HasDate = true
		return true

	case "Content-Type":
		mt, ok := ParseMediaType(strings.TrimSpace(value))
		if !ok {
			return false
		}
		hc.ContentType = &mt
		return true

	case "Content-Length":
		n, ok := parseContentLength(value)
		if !ok {
			return false
		}
		hc.ContentLength = n
		hc.HasContentLength = true
		return true

	case "Connection":
		toks, ok := parseTokenList(value)
		if !ok {
			return false
		}
		hc.Connection = toks
		return true

	case "Transfer-Encoding":
		toks, ok := parseTokenList(value)
		if !ok {
			return false
		}
		hc.TransferEncoding = toks
		return true

	case "Etag":
		tag, ok := ParseEntityTag(strings.TrimSpace(value))
		if !ok {
			return false
		}
		hc.ETag = &tag
		return true

	case "If-None-Match":
		trimmed := strings.TrimSpace(value)
		if trimmed == "*" {
			hc.IfNoneMatchAny = true
			return true
		}
		tags, ok := ParseEntityTagList(trimmed)
		if !ok {
			return false
		}
		hc.IfNoneMatch = tags
		return true

	case "Server":
		hc.Server = value
		return true

	default:
		return false
	}
}

// parseContentLength enforces spec.md §4.5: non-negative decimal, no
// leading '+', leading zeros permitted.
func parseContentLength(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// parseTokenList splits a comma-separated list of tokens, lower-casing
// each (Connection/Transfer-Encoding tokens are matched case-insensitively).
func parseTokenList(s string) ([]string, bool) {
	parts := strings.Split(s, ",")
	toks := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, false
		}
		for i := 0; i < len(p); i++ {
			if !IsTokenChar(p[i]) {
				return nil, false
			}
		}
		toks = append(toks, strings.ToLower(p))
	}
	return toks, true
}

// hasToken reports whether list contains tok, matched case-insensitively
// (the caller is expected to lower-case tok; parseTokenList already
// lower-cases list entries).
func hasToken(list []string, tok string) bool {
	for _, t := range list {
		if t == tok {
			return true
		}
	}
	return false
}

// connectionClose reports whether the Connection header named "close".
func (hc *HeaderCollection) connectionClose() bool {
	return hasToken(hc.Connection, "close")
}

// connectionKeepAlive reports whether the Connection header named "keep-alive".
func (hc *HeaderCollection) connectionKeepAlive() bool {
	return hasToken(hc.Connection, "keep-alive")
}

// IsChunked reports whether Transfer-Encoding ends with "chunked" (the only
// coding this codec understands; per spec.md §1 chunked trailers beyond a
// single chunked coding are out of scope).
func (hc *HeaderCollection) IsChunked() bool {
	n := len(hc.TransferEncoding)
	return n > 0 && hc.TransferEncoding[n-1] == "chunked"
}
