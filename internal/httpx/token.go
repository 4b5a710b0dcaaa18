package httpx

import (
	"errors"
	"io"
)

// ErrUnterminatedQuotedString indicates a quoted-string value missing its closing quote.
var ErrUnterminatedQuotedString = errors.New("httpx: unterminated quoted-string")

// ErrIllegalCTL indicates a disallowed control character inside a quoted-string.
var ErrIllegalCTL = errors.New("httpx: illegal control character in quoted-string")

// IsCTL reports whether b is an RFC 2616 control character (octets 0-31 and 127).
func IsCTL(b byte) bool {
	return b < 32 || b == 127
}

// IsOWS reports whether b is optional whitespace: SP or HTAB.
func IsOWS(b byte) bool {
	return b == ' ' || b == '\t'
}

// IsTokenChar reports whether b is a valid RFC 2616 tchar: any CHAR except
// CTLs and separators ( "(" ")" "<" ">" "@" "," ";" ":" "\" <"> "/" "[" "]"
// "?" "=" "{" "}" SP HTAB ).
func IsTokenChar(b byte) bool {
	if b >= 128 || IsCTL(b) {
		return false
	}
	switch b {
	case '(', ')', '<', '>', '@', ',', ';', ':', '\\', '"',
		'/', '[', ']', '?', '=', '{', '}', ' ', '\t':
		return false
	}
	return true
}

// IsText reports whether b is TEXT: any OCTET except CTLs, but including LWS.
func IsText(b byte) bool {
	return !IsCTL(b) || IsOWS(b)
}

// valueIter walks an already-extracted header value (the bytes up to but
// not including the terminating CRLF) one byte at a time, mirroring the
// HeaderValueByteIterator contract: typed parsers call Next/Peek and must
// end by calling someIfConsumed so that surplus trailing bytes fail the
// parse instead of being silently ignored.
type valueIter struct {
	data []byte
	pos  int
}

func newValueIter(s string) *valueIter {
	return &valueIter{data: []byte(s)}
}

// Next returns the next byte and advances, or ok=false at end of input.
func (v *valueIter) Next() (b byte, ok bool) {
	if v.pos >= len(v.data) {
		return 0, false
	}
	b = v.data[v.pos]
	v.pos++
	return b, true
}

// Peek returns the next byte without advancing.
func (v *valueIter) Peek() (b byte, ok bool) {
	if v.pos >= len(v.data) {
		return 0, false
	}
	return v.data[v.pos], true
}

// consumed reports whether every byte has been read.
func (v *valueIter) consumed() bool {
	return v.pos >= len(v.data)
}

// someIfConsumed returns (val, true) iff the iterator has been fully
// drained; otherwise it signals a parse failure due to surplus bytes.
func someIfConsumed[T any](v *valueIter, val T) (T, bool) {
	if !v.consumed() {
		var zero T
		return zero, false
	}
	return val, true
}

// readQuotedString consumes from just after an opening '"' already read
// through the matching closing '"', decoding \X escapes to X. SP is always
// accepted as ordinary text; allowLWS additionally permits HTAB, literal or
// escaped, inside the quoted text (both forms appear in the corpus; RFC 2616
// §2.2 allows LWS within quoted-pair and qdtext).
func (v *valueIter) readQuotedString(allowLWS bool) (string, bool) {
	var out []byte
	for {
		b, ok := v.Next()
		if !ok {
			return "", false
		}
		switch {
		case b == '"':
			return string(out), true
		case b == '\\':
			esc, ok := v.Next()
			if !ok {
				return "", false
			}
			if IsCTL(esc) && !(allowLWS && IsOWS(esc)) {
				return "", false
			}
			out = append(out, esc)
		case IsCTL(b):
			if !(allowLWS && IsOWS(b)) {
				return "", false
			}
			out = append(out, b)
		default:
			out = append(out, b)
		}
	}
}

// writeQuotedString wraps s in '"' and escapes '\' and '"'.
func writeQuotedString(w io.Writer, s string) error {
	if _, err := io.WriteString(w, "\""); err != nil {
		return err
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			if _, err := io.WriteString(w, "\\"); err != nil {
				return err
			}
		}
		if _, err := w.Write([]byte{c}); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\"")
	return err
}

// skipOWS advances past any leading SP/HTAB.
func (v *valueIter) skipOWS() {
	for {
		b, ok := v.Peek()
		if !ok || !IsOWS(b) {
			return
		}
		v.Next()
	}
}
