package httpx

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/arnesen/httpcore/internal/netx"
)

func parseResp(t *testing.T, raw string) (*ClientResponse, error) {
	t.Helper()
	stream := netx.NewBufferedStream(rwc{bytes.NewBufferString(raw)})
	return ParseClientResponse(context.Background(), stream, DefaultParseLimits)
}

func TestParseClientResponseBasic(t *testing.T) {
	resp, err := parseResp(t, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status.Code != 200 || resp.Status.Reason != "OK" {
		t.Fatalf("got %+v", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q", data)
	}
}

func TestParseClientResponseReadUntilClose(t *testing.T) {
	resp, err := parseResp(t, "HTTP/1.1 200 OK\r\n\r\nno-length-body")
	if err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "no-length-body" {
		t.Fatalf("got %q", data)
	}
}

func TestParseClientResponseUnregisteredCode(t *testing.T) {
	resp, err := parseResp(t, "HTTP/1.1 799 Wat\r\nContent-Length: 0\r\n\r\n")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status.Code != 799 || resp.Status.Reason != "Wat" {
		t.Fatalf("got %+v", resp.Status)
	}
}

func TestParseClientResponseConnectionCloseHonoredOnHTTP10(t *testing.T) {
	resp, err := parseResp(t, "HTTP/1.0 200 OK\r\nContent-Length: 0\r\n\r\n")
	if err != nil {
		t.Fatal(err)
	}
	if !resp.CloseConnection {
		t.Fatal("expected HTTP/1.0 response without keep-alive to close")
	}
}

func TestParseClientResponseMalformedStatusLine(t *testing.T) {
	_, err := parseResp(t, "not a status line\r\n\r\n")
	if err == nil {
		t.Fatal("expected error")
	}
}
