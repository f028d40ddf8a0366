package httpparse

import (
	"bytes"
	"strconv"
	"strings"

	"webservd/internal/urlutil"
)

// maxHeaderBytes bounds the header block so a client that never sends the
// terminating blank line can't grow the input buffer without limit; this is
// the "bounded header headroom" the session's input buffer invariant refers
// to.
const maxHeaderBytes = 8192

// Parser holds the state needed to resume parsing a single HTTP request
// across however many calls to Parse it takes for the bytes to arrive. A
// Parser is reused across keep-alive requests on the same connection via
// Reset.
type Parser struct {
	maxBodyHint int64 // 0 means no coarse cap

	headersParsed bool
	bodyStart     int
	req           Request
	chunk         chunkState
}

// NewParser returns a Parser ready to consume the first request on a
// connection. maxBodyHint, when non-zero, is a coarse upper bound (the
// largest body-size limit among the session's candidate server configs)
// used to fail fast on a declared Content-Length that could never be
// accepted by any matching location, before the full body arrives.
func NewParser(maxBodyHint int64) *Parser {
	return &Parser{maxBodyHint: maxBodyHint}
}

// Reset prepares the parser to parse a new request on the same connection,
// preserving the coarse body-size hint.
func (p *Parser) Reset() {
	*p = Parser{maxBodyHint: p.maxBodyHint}
}

// Request returns the request parsed so far; it is only meaningful once
// Parse has returned true.
func (p *Parser) Request() *Request {
	return &p.req
}

// Parse is given the full buffer accumulated for the current request so
// far (not just newly-arrived bytes) and reports whether a complete
// request is now present.
func (p *Parser) Parse(buf []byte) bool {
	if !p.headersParsed {
		if !p.parseHeaders(buf) {
			return false
		}
	}
	return p.parseBody(buf)
}

func (p *Parser) parseHeaders(buf []byte) bool {
	idx := bytes.Index(buf, []byte("\r\n\r\n"))
	if idx == -1 {
		if len(buf) > maxHeaderBytes {
			p.req.Malformed = true
			p.req.ConsumedBytes = len(buf)
			p.headersParsed = true
			p.bodyStart = len(buf)
			return true
		}
		return false
	}
	p.bodyStart = idx + 4
	head := buf[:idx]

	lines := strings.Split(string(head), "\r\n")
	if len(lines) == 0 {
		p.req.Malformed = true
	} else {
		p.parseRequestLine(lines[0])
		p.req.Header = make(Header)
		for _, line := range lines[1:] {
			if line == "" {
				continue
			}
			p.parseHeaderLine(line)
		}
	}

	p.applyHeaderSemantics()
	if p.req.Chunked {
		p.chunk.cursor = p.bodyStart
	}
	p.headersParsed = true
	return true
}

func (p *Parser) parseRequestLine(line string) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		p.req.Malformed = true
		return
	}
	p.req.Method = fields[0]
	p.req.Proto = fields[2]
	major, minor, ok := parseVersion(fields[2])
	if !ok {
		p.req.Malformed = true
	}
	p.req.Major, p.req.Minor = major, minor

	target := fields[1]
	path, query, _ := strings.Cut(target, "?")
	p.req.Path = urlutil.DecodePath(path)
	p.req.RawQuery = query
	p.req.Query = urlutil.DecodeQuery(query)
}

func parseVersion(proto string) (major, minor int, ok bool) {
	switch proto {
	case "HTTP/1.1":
		return 1, 1, true
	case "HTTP/1.0":
		return 1, 0, true
	default:
		return 1, 1, false
	}
}

func (p *Parser) parseHeaderLine(line string) {
	name, value, found := strings.Cut(line, ":")
	if !found {
		p.req.Malformed = true
		return
	}
	name = strings.ToLower(strings.TrimSpace(name))
	value = strings.TrimPrefix(value, " ")
	p.req.Header.Add(name, value)
}

func (p *Parser) applyHeaderSemantics() {
	req := &p.req

	if host := req.Header.Get("host"); host != "" {
		req.Host = stripHostPort(host)
	}
	if req.Major == 1 && req.Minor == 1 && req.Header.Get("host") == "" {
		req.Malformed = true
	}

	if cl := req.Header.Get("content-length"); cl != "" {
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || n < 0 {
			req.Malformed = true
		} else {
			req.ContentLength = n
		}
	}
	if te := strings.ToLower(req.Header.Get("transfer-encoding")); strings.Contains(te, "chunked") {
		req.Chunked = true
	}

	req.KeepAlive = !(req.Major == 1 && req.Minor == 0)
	switch strings.ToLower(req.Header.Get("connection")) {
	case "close":
		req.KeepAlive = false
	case "keep-alive":
		req.KeepAlive = true
	}

	if req.Chunked && p.maxBodyHint > 0 {
		// No declared length to compare against the coarse cap; the
		// accumulated body is checked chunk-by-chunk in parseBody.
	} else if p.maxBodyHint > 0 && req.ContentLength > p.maxBodyHint {
		req.BodyTooLarge = true
		req.KeepAlive = false
	}
}

func stripHostPort(host string) string {
	if i := strings.LastIndexByte(host, ':'); i != -1 {
		return host[:i]
	}
	return host
}

func (p *Parser) parseBody(buf []byte) bool {
	req := &p.req

	if req.BodyTooLarge {
		req.ConsumedBytes = p.bodyStart
		return true
	}

	if req.Chunked {
		complete, malformed := p.chunk.step(buf)
		if malformed {
			req.Malformed = true
			req.ConsumedBytes = len(buf)
			return true
		}
		if p.maxBodyHint > 0 && int64(p.chunk.body.Len()) > p.maxBodyHint {
			req.BodyTooLarge = true
			req.KeepAlive = false
			req.ConsumedBytes = p.chunk.cursor
			return true
		}
		if !complete {
			return false
		}
		req.Body = p.chunk.body.Bytes()
		req.ContentLength = int64(len(req.Body))
		req.ConsumedBytes = p.chunk.cursor
		return true
	}

	if req.ContentLength == 0 {
		req.ConsumedBytes = p.bodyStart
		return true
	}

	end := p.bodyStart + int(req.ContentLength)
	if len(buf) < end {
		return false
	}
	req.Body = buf[p.bodyStart:end]
	req.ConsumedBytes = end
	return true
}
