package httpx

import (
	"io"
	"strings"
)

// EntityTag is a parsed ETag/If-None-Match value per RFC 2616 §3.11. The
// opaque string is preserved byte-for-byte across parse/serialize.
type EntityTag struct {
	Weak   bool
	Opaque string
}

// WeakETag constructs a weak entity tag.
func WeakETag(opaque string) EntityTag { return EntityTag{Weak: true, Opaque: opaque} }

// StrongETag constructs a strong entity tag.
func StrongETag(opaque string) EntityTag { return EntityTag{Weak: false, Opaque: opaque} }

// String renders the wire form: optional "W/" then a quoted string.
func (e EntityTag) String() string {
	var b strings.Builder
	_ = e.writeTo(&b)
	return b.String()
}

func (e EntityTag) writeTo(w io.Writer) error {
	if e.Weak {
		if _, err := io.WriteString(w, "W/"); err != nil {
			return err
		}
	}
	return writeQuotedString(w, e.Opaque)
}

// parseEntityTag reads one ETag value from it. Input "w/" is accepted and
// normalized to "W/" on output, per spec.md's testable properties.
func parseEntityTag(it *valueIter) (EntityTag, bool) {
	b, ok := it.Next()
	if !ok {
		return EntityTag{}, false
	}

	weak := false
	switch {
	case b == 'W' || b == 'w':
		if nb, ok := it.Next(); !ok || nb != '/' {
			return EntityTag{}, false
		}
		if nb, ok := it.Next(); !ok || nb != '"' {
			return EntityTag{}, false
		}
		weak = true
	case b == '"':
		// already consumed the opening quote
	default:
		return EntityTag{}, false
	}

	opaque, ok := it.readQuotedString(true)
	if !ok {
		return EntityTag{}, false
	}
	return EntityTag{Weak: weak, Opaque: opaque}, true
}

// ParseEntityTag parses a single ETag/If-None-Match header value, failing
// if any bytes remain after the tag (surplus-byte rule from spec.md §4.5).
func ParseEntityTag(raw string) (EntityTag, bool) {
	it := newValueIter(raw)
	tag, ok := parseEntityTag(it)
	if !ok {
		return EntityTag{}, false
	}
	return someIfConsumed(it, tag)
}

// ParseEntityTagList parses a comma-separated list of entity tags, as used
// by If-None-Match with multiple validators (and '*' is passed through
// unparsed by the caller).
func ParseEntityTagList(raw string) ([]EntityTag, bool) {
	parts := splitListItems(raw)
	tags := make([]EntityTag, 0, len(parts))
	for _, p := range parts {
		tag, ok := ParseEntityTag(strings.TrimSpace(p))
		if !ok {
			return nil, false
		}
		tags = append(tags, tag)
	}
	return tags, true
}

// splitListItems splits a comma-separated header-value list, respecting
// quoted strings so commas inside an ETag's opaque text aren't treated as
// separators.
func splitListItems(s string) []string {
	var items []string
	var cur strings.Builder
	inQuotes := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			cur.WriteByte(c)
			escaped = false
		case c == '\\' && inQuotes:
			cur.WriteByte(c)
			escaped = true
		case c == '"':
			inQuotes = !inQuotes
			cur.WriteByte(c)
		case c == ',' && !inQuotes:
			items = append(items, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	items = append(items, cur.String())
	return items
}
