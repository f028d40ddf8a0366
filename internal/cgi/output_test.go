package cgi

import (
	"testing"

	"webservd/internal/hdr"
)

func TestParseOutputDefaultStatusAndContentType(t *testing.T) {
	resp, err := ParseOutput([]byte("Content-Type: text/plain\r\n\r\nhello"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get(hdr.ContentType); got != "text/plain" {
		t.Errorf("Content-Type = %q, want text/plain", got)
	}
	if string(resp.Body) != "hello" {
		t.Errorf("Body = %q, want hello", resp.Body)
	}
}

func TestParseOutputStatusHeaderOverridesCode(t *testing.T) {
	resp, err := ParseOutput([]byte("Status: 404 Not Found\r\nContent-Type: text/html\r\n\r\n<p>gone</p>"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("StatusCode = %d, want 404", resp.StatusCode)
	}
	if string(resp.Body) != "<p>gone</p>" {
		t.Errorf("Body = %q, want <p>gone</p>", resp.Body)
	}
}

func TestParseOutputSetCookieSeparatedFromHeaders(t *testing.T) {
	resp, err := ParseOutput([]byte("Set-Cookie: a=1\r\nSet-Cookie: b=2\r\nContent-Type: text/plain\r\n\r\nbody"))
	if err != nil {
		t.Fatal(err)
	}
	if got := resp.Header[hdr.SetCookieHeader]; len(got) != 0 {
		t.Errorf("Set-Cookie leaked into the general header map: %v", got)
	}
	if want := []string{"a=1", "b=2"}; len(resp.SetCookies) != len(want) || resp.SetCookies[0] != want[0] || resp.SetCookies[1] != want[1] {
		t.Errorf("SetCookies = %v, want %v", resp.SetCookies, want)
	}
}

func TestParseOutputDefaultsContentTypeWhenAbsent(t *testing.T) {
	resp, err := ParseOutput([]byte("Status: 200 OK\r\n\r\nplain body, no content-type header"))
	if err != nil {
		t.Fatal(err)
	}
	if got := resp.Header.Get(hdr.ContentType); got != "text/html" {
		t.Errorf("Content-Type = %q, want default text/html", got)
	}
}

func TestParseOutputLFOnlyBlankLineBoundary(t *testing.T) {
	resp, err := ParseOutput([]byte("Content-Type: text/plain\n\nbody over LF"))
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Body) != "body over LF" {
		t.Errorf("Body = %q, want %q", resp.Body, "body over LF")
	}
}

func TestParseOutputMalformedHeaderLine(t *testing.T) {
	if _, err := ParseOutput([]byte("not-a-header-line\r\n\r\nbody")); err == nil {
		t.Error("expected an error for a header line with no colon")
	}
}

func TestParseOutputNoBlankLineIsMalformed(t *testing.T) {
	if _, err := ParseOutput([]byte("Content-Type: text/plain\r\nbody with no blank line")); err == nil {
		t.Error("expected an error when no header/body boundary is present")
	}
}
