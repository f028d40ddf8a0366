// Package respond defines the in-flight HTTP response the router and its
// sub-handlers build up before the session serializes it onto the wire.
package respond

import (
	"fmt"
	"strconv"

	"webservd/internal/hdr"
)

// Response is the server's outgoing message. Unlike a client-side
// Response, there is no Body io.ReadCloser and no TLS/Trailer baggage:
// everything is produced synchronously (or, for CGI, accumulated fully)
// before being handed to the session for serialization.
type Response struct {
	StatusCode int
	Reason     string // e.g. "OK"; empty means look up the standard phrase

	Header hdr.Header

	// SetCookies holds Set-Cookie header values in the order they were
	// added. They're kept separate from Header because a response may
	// legitimately carry several, and folding them into one map entry
	// would force a caller to comma-join values that must stay distinct
	// lines on the wire.
	SetCookies []string

	Body []byte

	// Pending is true while this response is waiting on CGI completion:
	// the session must not serialize or enqueue anything yet.
	Pending bool
}

// New returns a Response with the given status and an empty header map.
func New(statusCode int) *Response {
	return &Response{
		StatusCode: statusCode,
		Header:     make(hdr.Header),
	}
}

// SetBody assigns b as the body and sets Content-Length accordingly.
func (r *Response) SetBody(b []byte) {
	r.Body = b
	r.Header.Set(hdr.ContentLength, strconv.Itoa(len(b)))
}

// AddSetCookie appends a Set-Cookie line.
func (r *Response) AddSetCookie(v string) {
	r.SetCookies = append(r.SetCookies, v)
}

// ReasonPhrase returns r.Reason, or the standard phrase for r.StatusCode
// if none was set explicitly.
func (r *Response) ReasonPhrase() string {
	if r.Reason != "" {
		return r.Reason
	}
	if p, ok := statusText[r.StatusCode]; ok {
		return p
	}
	return ""
}

// StatusLine renders "<code> <reason>", e.g. "404 Not Found".
func (r *Response) StatusLine() string {
	return fmt.Sprintf("%d %s", r.StatusCode, r.ReasonPhrase())
}

var statusText = map[int]string{
	200: "OK",
	201: "Created",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	413: "Payload Too Large",
	500: "Internal Server Error",
	501: "Not Implemented",
}
