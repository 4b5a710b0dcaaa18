package httpx

import (
	"strings"
)

// Param is one "name=value" parameter on a MediaType.
type Param struct {
	Name  string
	Value string
}

// MediaType is a parsed Content-Type value: type "/" subtype followed by an
// ordered list of parameters. Parameter order is preserved across
// parse/serialize since it's observable on the wire.
type MediaType struct {
	Type    string
	Subtype string
	Params  []Param
}

// ParseMediaType parses "type/subtype; name=value; ...". Parameter values
// may be bare tokens or quoted-strings on input; MediaType.String quotes a
// value only when required (it contains a non-token character).
func ParseMediaType(raw string) (MediaType, bool) {
	it := newValueIter(raw)

	typ, ok := readToken(it)
	if !ok || typ == "" {
		return MediaType{}, false
	}
	if b, ok := it.Next(); !ok || b != '/' {
		return MediaType{}, false
	}
	subtype, ok := readToken(it)
	if !ok || subtype == "" {
		return MediaType{}, false
	}

	mt := MediaType{Type: typ, Subtype: subtype}

	for {
		it.skipOWS()
		b, ok := it.Peek()
		if !ok {
			break
		}
		if b != ';' {
			return MediaType{}, false
		}
		it.Next() // consume ';'
		it.skipOWS()

		name, ok := readToken(it)
		if !ok || name == "" {
			return MediaType{}, false
		}
		if b, ok := it.Next(); !ok || b != '=' {
			return MediaType{}, false
		}

		var value string
		if b, ok := it.Peek(); ok && b == '"' {
			it.Next()
			value, ok = it.readQuotedString(true)
			if !ok {
				return MediaType{}, false
			}
		} else {
			value, ok = readToken(it)
			if !ok || value == "" {
				return MediaType{}, false
			}
		}
		mt.Params = append(mt.Params, Param{Name: name, Value: value})
	}

	return mt, it.consumed()
}

// readToken greedily consumes tchar bytes, returning what it collected
// (possibly empty) and true; it never fails itself, callers check length.
func readToken(it *valueIter) (string, bool) {
	var out []byte
	for {
		b, ok := it.Peek()
		if !ok || !IsTokenChar(b) {
			break
		}
		it.Next()
		out = append(out, b)
	}
	return string(out), true
}

// String renders the canonical wire form, quoting parameter values only
// when they are empty or contain a non-tchar byte.
func (m MediaType) String() string {
	var b strings.Builder
	b.WriteString(m.Type)
	b.WriteByte('/')
	b.WriteString(m.Subtype)
	for _, p := range m.Params {
		b.WriteString("; ")
		b.WriteString(p.Name)
		b.WriteByte('=')
		if needsQuoting(p.Value) {
			_ = writeQuotedString(&b, p.Value)
		} else {
			b.WriteString(p.Value)
		}
	}
	return b.String()
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	for i := 0; i < len(s); i++ {
		if !IsTokenChar(s[i]) {
			return true
		}
	}
	return false
}
