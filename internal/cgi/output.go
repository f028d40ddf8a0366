package cgi

import (
	"bytes"
	"strconv"
	"strings"

	"webservd/internal/hdr"
	"webservd/internal/respond"
)

// ParseOutput splits a CGI child's accumulated output on the first
// blank line (either "\r\n\r\n" or "\n\n") and builds a Response from
// the header block above it and the body below it.
// A "Status" header (case-insensitive) supplies the status code from
// its leading token, defaulting to 200; Set-Cookie lines are kept
// separate from the single-value header map, matching respond.Response.
func ParseOutput(output []byte) (*respond.Response, error) {
	headBlock, body, ok := splitHeaders(output)
	if !ok {
		return nil, errMalformed
	}

	resp := respond.New(200)
	for _, line := range strings.Split(string(headBlock), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			return nil, errMalformed
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		switch strings.ToLower(name) {
		case "status":
			code, _, _ := strings.Cut(value, " ")
			n, err := strconv.Atoi(code)
			if err != nil {
				return nil, errMalformed
			}
			resp.StatusCode = n
		case "set-cookie":
			resp.AddSetCookie(value)
		default:
			resp.Header.Add(name, value)
		}
	}
	resp.SetBody(body)
	if resp.Header.Get(hdr.ContentType) == "" {
		resp.Header.Set(hdr.ContentType, "text/html")
	}
	return resp, nil
}

var errMalformed = malformedError("cgi: unparseable output")

type malformedError string

func (e malformedError) Error() string { return string(e) }

// splitHeaders finds the first blank-line boundary and returns the
// header block and body on either side of it.
func splitHeaders(output []byte) (head, body []byte, ok bool) {
	if i := bytes.Index(output, []byte("\r\n\r\n")); i != -1 {
		return output[:i], output[i+4:], true
	}
	if i := bytes.Index(output, []byte("\n\n")); i != -1 {
		return output[:i], output[i+2:], true
	}
	return nil, nil, false
}
