package respond

import (
	"strings"
	"testing"
	"time"

	"webservd/internal/hdr"
)

func TestSetBodySetsContentLength(t *testing.T) {
	r := New(200)
	r.SetBody([]byte("hello"))
	if got := r.Header.Get(hdr.ContentLength); got != "5" {
		t.Errorf("Content-Length = %q, want 5", got)
	}
}

func TestStatusLineKnownAndUnknown(t *testing.T) {
	r := New(404)
	if got := r.StatusLine(); got != "404 Not Found" {
		t.Errorf("StatusLine = %q", got)
	}
	r2 := New(209)
	if got := r2.StatusLine(); got != "209 " {
		t.Errorf("StatusLine for unknown code = %q", got)
	}
}

func TestSerializeIncludesConnectionAndBody(t *testing.T) {
	r := New(200)
	r.Header.Set(hdr.ContentType, "text/plain")
	r.SetBody([]byte("Hi"))

	out := string(Serialize(r, true, "webservd", time.Unix(0, 0)))
	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("unexpected status line: %q", out)
	}
	if !strings.Contains(out, "Connection: keep-alive\r\n") {
		t.Error("expected keep-alive connection header")
	}
	if !strings.HasSuffix(out, "\r\n\r\nHi") {
		t.Errorf("expected body after blank line, got %q", out)
	}
}

func TestSerializeSetCookiesPreservedSeparately(t *testing.T) {
	r := New(200)
	r.AddSetCookie("a=1")
	r.AddSetCookie("b=2")
	out := string(Serialize(r, false, "webservd", time.Unix(0, 0)))
	if strings.Count(out, "Set-Cookie: ") != 2 {
		t.Errorf("expected two Set-Cookie lines, got: %q", out)
	}
	if !strings.Contains(out, "Connection: close\r\n") {
		t.Error("expected close connection header")
	}
}
