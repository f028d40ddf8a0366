package respond

import (
	"bytes"
	"strconv"
	"time"

	"webservd/internal/hdr"
)

// TimeFormat is time.RFC1123 with the zone hard-coded to GMT, since
// the formatted time must already be UTC.
const TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// Serialize renders r as a complete HTTP/1.1 response: status line,
// Server and Date headers, user headers, Set-Cookie lines, the
// terminating blank line, and the body. keepAlive decides the
// Connection header value.
func Serialize(r *Response, keepAlive bool, serverName string, now time.Time) []byte {
	var buf bytes.Buffer

	buf.WriteString("HTTP/1.1 ")
	buf.WriteString(r.StatusLine())
	buf.WriteString("\r\n")

	buf.WriteString(hdr.ServerHeader)
	buf.WriteString(": ")
	buf.WriteString(serverName)
	buf.WriteString("\r\n")

	buf.WriteString(hdr.Date)
	buf.WriteString(": ")
	buf.WriteString(now.UTC().Format(TimeFormat))
	buf.WriteString("\r\n")

	if r.Header.Get(hdr.Connection) == "" {
		if keepAlive {
			buf.WriteString("Connection: keep-alive\r\n")
		} else {
			buf.WriteString("Connection: close\r\n")
		}
	}

	// A response whose body was never assigned through SetBody (a
	// redirect, a 204) still needs explicit framing for keep-alive to
	// work: without a Content-Length the client would read until close.
	if r.Header.Get(hdr.ContentLength) == "" {
		buf.WriteString(hdr.ContentLength)
		buf.WriteString(": ")
		buf.WriteString(strconv.Itoa(len(r.Body)))
		buf.WriteString("\r\n")
	}

	r.Header.Write(&buf)

	for _, cookie := range r.SetCookies {
		buf.WriteString(hdr.SetCookieHeader)
		buf.WriteString(": ")
		buf.WriteString(cookie)
		buf.WriteString("\r\n")
	}

	buf.WriteString("\r\n")
	buf.Write(r.Body)
	return buf.Bytes()
}
