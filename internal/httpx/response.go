package httpx

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/arnesen/httpcore/internal/netx"
)

// ErrAlreadyFinalized indicates an attempt to mutate a Response after
// FinishResponse has run (spec.md §4.7, §7).
var ErrAlreadyFinalized = errors.New("httpx: response already finalized")

// responseState models the Pristine → HeadersSent → Finalized lifecycle
// from spec.md §3 as an explicit enum rather than the boolean flags
// (headers_written, stream.is_none()) the Design Notes in spec.md §9 call
// out as an anti-pattern.
type responseState int

const (
	responsePristine responseState = iota
	responseHeadersSent
	responseFinalized
)

// Response builds and emits an HTTP/1.x response onto a BufferedStream,
// per spec.md §4.7.
type Response struct {
	Status Status
	Header Header

	stream *netx.BufferedStream
	clock  clockwork.Clock

	proto string
	state responseState

	chunkedBody bool
	forceClose  bool
	cw          *chunkedWriter

	bodyBytesWritten uint64
}

// NewResponse constructs a Pristine Response with status 200 OK over stream.
// clock supplies the Date header default (spec.md §4.7); production callers
// pass clockwork.NewRealClock(), tests clockwork.NewFakeClock().
func NewResponse(stream *netx.BufferedStream, clock clockwork.Clock) *Response {
	return &Response{
		Status: StatusOK,
		Header: Header{},
		stream: stream,
		clock:  clock,
		proto:  "HTTP/1.1",
	}
}

// ForceClose reports whether try_write_headers fell back to
// close-after-body framing (no Content-Length, no chunked
// Transfer-Encoding); the caller (the server worker) must honor this by
// closing the connection regardless of what the request asked for.
func (r *Response) ForceClose() bool {
	return r.forceClose
}

// BodyBytesWritten returns the number of raw body bytes handed to Write so far.
func (r *Response) BodyBytesWritten() uint64 {
	return r.bodyBytesWritten
}

// TryWriteHeaders writes the status-line and header block exactly once; it
// is a no-op on subsequent calls (spec.md §4.7).
func (r *Response) TryWriteHeaders() error {
	if r.state != responsePristine {
		return nil
	}
	return r.writeHeaders()
}

func (r *Response) writeHeaders() error {
	if r.state == responseFinalized {
		return ErrAlreadyFinalized
	}

	if r.Header.Get("Date") == "" {
		r.Header.Set("Date", r.clock.Now().UTC().Format(IMFFixdate))
	}

	switch {
	case r.Header.Get("Content-Length") != "":
		// identity, fixed-length framing chosen by the application.
	case strings.EqualFold(r.Header.Get("Transfer-Encoding"), "chunked"):
		r.chunkedBody = true
	default:
		r.forceClose = true
		r.Header.Set("Connection", "close")
	}

	status := r.Status
	if status.Reason == "" {
		status = FromCode(status.Code)
	}
	if err := r.stream.WriteFmt("%s %03d %s\r\n", r.proto, status.Code, status.Reason); err != nil {
		return err
	}
	if err := r.Header.Write(r.stream); err != nil {
		return err
	}

	r.state = responseHeadersSent
	if r.chunkedBody {
		r.cw = newChunkedWriter(r.stream)
	}
	return nil
}

// Write triggers TryWriteHeaders on first call, then writes to the body
// using whatever framing writeHeaders selected.
func (r *Response) Write(p []byte) (int, error) {
	if r.state == responseFinalized {
		return 0, ErrAlreadyFinalized
	}
	if err := r.TryWriteHeaders(); err != nil {
		return 0, err
	}

	var n int
	var err error
	if r.chunkedBody {
		n, err = r.cw.Write(p)
	} else {
		n, err = r.stream.Write(p)
	}
	r.bodyBytesWritten += uint64(n)
	return n, err
}

// FinishResponse emits the terminating chunk if chunked, flushes the
// stream, and transitions to Finalized.
func (r *Response) FinishResponse() error {
	if r.state == responseFinalized {
		return ErrAlreadyFinalized
	}
	if err := r.TryWriteHeaders(); err != nil {
		return err
	}
	if r.chunkedBody {
		if err := r.cw.Close(); err != nil {
			return err
		}
	}
	if err := r.stream.Flush(); err != nil {
		return err
	}
	r.state = responseFinalized
	return nil
}

// -----------------------------------------------------------------------------
// chunkedWriter: chunked transfer encoding, writer side
// -----------------------------------------------------------------------------

type chunkedWriter struct {
	w io.Writer
}

func newChunkedWriter(w io.Writer) *chunkedWriter {
	return &chunkedWriter{w: w}
}

// Write emits one chunk for p: "<hex>\r\n<p>\r\n". A zero-length Write is a
// no-op; the terminating "0\r\n\r\n" is written by Close.
func (cw *chunkedWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if _, err := io.WriteString(cw.w, strconv.FormatInt(int64(len(p)), 16)+"\r\n"); err != nil {
		return 0, err
	}
	n, err := cw.w.Write(p)
	if err != nil {
		return n, err
	}
	if _, err := io.WriteString(cw.w, "\r\n"); err != nil {
		return n, err
	}
	return n, nil
}

// Close writes the terminating zero-sized chunk.
func (cw *chunkedWriter) Close() error {
	_, err := io.WriteString(cw.w, "0\r\n\r\n")
	return err
}
