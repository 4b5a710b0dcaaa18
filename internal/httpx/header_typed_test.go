package httpx

import "testing"

func TestParseHeaderCollectionTypedFields(t *testing.T) {
	lines := []rawHeaderLine{
		{"Host", "example.com"},
		{"Content-Length", "11"},
		{"Connection", "close"},
		{"X-Custom", "value"},
	}
	hc := ParseHeaderCollection(lines)
	if hc.Host != "example.com" {
		t.Fatalf("host = %q", hc.Host)
	}
	if !hc.HasContentLength || hc.ContentLength != 11 {
		t.Fatalf("content-length = %+v", hc)
	}
	if !hc.connectionClose() {
		t.Fatal("expected Connection: close")
	}
	if len(hc.Unknown) != 1 || hc.Unknown[0].Name != "X-Custom" {
		t.Fatalf("unknown = %+v", hc.Unknown)
	}
}

func TestParseHeaderCollectionFoldsRepeatedListHeader(t *testing.T) {
	lines := []rawHeaderLine{
		{"Connection", "close"},
		{"Connection", "keep-alive"},
	}
	hc := ParseHeaderCollection(lines)
	if len(hc.Connection) != 2 || hc.Connection[0] != "close" || hc.Connection[1] != "keep-alive" {
		t.Fatalf("got %+v", hc.Connection)
	}
}

func TestParseHeaderCollectionDemotesFailedTypedParse(t *testing.T) {
	lines := []rawHeaderLine{
		{"Content-Length", "not-a-number"},
	}
	hc := ParseHeaderCollection(lines)
	if hc.HasContentLength {
		t.Fatal("expected demotion, not a parsed content-length")
	}
	if len(hc.Unknown) != 1 || hc.Unknown[0].Name != "Content-Length" {
		t.Fatalf("got %+v", hc.Unknown)
	}
}

func TestParseHeaderCollectionContentLengthRejectsLeadingPlus(t *testing.T) {
	lines := []rawHeaderLine{{"Content-Length", "+5"}}
	hc := ParseHeaderCollection(lines)
	if hc.HasContentLength {
		t.Fatal("expected +5 to be rejected")
	}
}

func TestParseHeaderCollectionContentLengthAllowsLeadingZeros(t *testing.T) {
	lines := []rawHeaderLine{{"Content-Length", "007"}}
	hc := ParseHeaderCollection(lines)
	if !hc.HasContentLength || hc.ContentLength != 7 {
		t.Fatalf("got %+v", hc)
	}
}

func TestParseHeaderCollectionTransferEncodingChunkedOverridesLength(t *testing.T) {
	lines := []rawHeaderLine{
		{"Transfer-Encoding", "chunked"},
		{"Content-Length", "100"},
	}
	hc := ParseHeaderCollection(lines)
	if !hc.IsChunked() {
		t.Fatal("expected chunked")
	}
	// Per spec.md §4.5, presence of both means Content-Length is ignored by
	// framing logic (IsChunked takes precedence); both still parse fine here.
	if !hc.HasContentLength {
		t.Fatal("content-length header itself should still parse")
	}
}

func TestParseHeaderCollectionETag(t *testing.T) {
	lines := []rawHeaderLine{{"ETag", `W/"abc"`}}
	hc := ParseHeaderCollection(lines)
	if hc.ETag == nil || !hc.ETag.Weak || hc.ETag.Opaque != "abc" {
		t.Fatalf("got %+v", hc.ETag)
	}
}

func TestParseHeaderCollectionIfNoneMatchStar(t *testing.T) {
	lines := []rawHeaderLine{{"If-None-Match", "*"}}
	hc := ParseHeaderCollection(lines)
	if !hc.IfNoneMatchAny {
		t.Fatal("expected IfNoneMatchAny")
	}
}

func TestParseHeaderCollectionDate(t *testing.T) {
	lines := []rawHeaderLine{{"Date", "Sun, 06 Nov 1994 08:49:37 GMT"}}
	hc := ParseHeaderCollection(lines)
	if !hc.HasDate {
		t.Fatal("expected parsed date")
	}
	if hc.Date.Year() != 1994 {
		t.Fatalf("got %v", hc.Date)
	}
}
