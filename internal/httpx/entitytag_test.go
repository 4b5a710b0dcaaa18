package httpx

import "testing"

func TestParseEntityTagWeak(t *testing.T) {
	tag, ok := ParseEntityTag(`W/"abc"`)
	if !ok {
		t.Fatal("expected ok")
	}
	if !tag.Weak || tag.Opaque != "abc" {
		t.Fatalf("got %+v", tag)
	}
	if tag.String() != `W/"abc"` {
		t.Fatalf("serialize mismatch: %q", tag.String())
	}
}

func TestParseEntityTagStrongWithEscape(t *testing.T) {
	tag, ok := ParseEntityTag(`"a\"b"`)
	if !ok {
		t.Fatal("expected ok")
	}
	if tag.Weak || tag.Opaque != `a"b` {
		t.Fatalf("got %+v", tag)
	}
	if tag.String() != `"a\"b"` {
		t.Fatalf("serialize mismatch: %q", tag.String())
	}
}

func TestParseEntityTagLowercaseWNormalizesOnOutput(t *testing.T) {
	tag, ok := ParseEntityTag(`w/"fO0"`)
	if !ok {
		t.Fatal("expected ok")
	}
	if tag.String() != `W/"fO0"` {
		t.Fatalf("got %q", tag.String())
	}
}

func TestParseEntityTagInvalid(t *testing.T) {
	cases := []string{"", "fO0", `"\"`, `""""`}
	for _, c := range cases {
		if _, ok := ParseEntityTag(c); ok {
			t.Fatalf("expected failure for %q", c)
		}
	}
}

func TestEntityTagRoundTrip(t *testing.T) {
	cases := []EntityTag{
		StrongETag(""),
		StrongETag("fO0"),
		StrongETag("fO0 bar"),
		StrongETag(`fO0 "bar`),
		WeakETag("fO0"),
	}
	for _, c := range cases {
		parsed, ok := ParseEntityTag(c.String())
		if !ok {
			t.Fatalf("round-trip parse failed for %+v", c)
		}
		if parsed != c {
			t.Fatalf("round-trip mismatch: got %+v, want %+v", parsed, c)
		}
	}
}

func TestParseEntityTagListRespectsQuotedCommas(t *testing.T) {
	tags, ok := ParseEntityTagList(`"a,b", W/"c"`)
	if !ok {
		t.Fatal("expected ok")
	}
	if len(tags) != 2 || tags[0].Opaque != "a,b" || !tags[1].Weak || tags[1].Opaque != "c" {
		t.Fatalf("got %+v", tags)
	}
}
