/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package httpparse

import (
	"bytes"
	"errors"
)

const maxChunkLineLength = 4096

// chunkState tracks progress through a chunked-transfer-encoded body
// across however many Parse calls it takes for the bytes to arrive. It
// never blocks: it operates on an absolute cursor into the caller's
// buffer and reports "not enough yet" instead of waiting.
type chunkState struct {
	cursor     int // absolute offset into the full input buffer
	awaitData  bool
	dataNeeded int
	body       bytes.Buffer
	done       bool
}

// step advances chunk decoding as far as buf allows, returning true once
// the terminating zero-size chunk has been consumed.
func (c *chunkState) step(buf []byte) (complete bool, malformed bool) {
	for {
		if c.awaitData {
			if len(buf) < c.cursor+c.dataNeeded+2 {
				return false, false
			}
			c.body.Write(buf[c.cursor : c.cursor+c.dataNeeded])
			c.cursor += c.dataNeeded + 2
			c.awaitData = false
			continue
		}

		line, next, ok := readChunkSizeLine(buf, c.cursor)
		if !ok {
			if len(buf)-c.cursor > maxChunkLineLength {
				return false, true
			}
			return false, false
		}
		size, err := parseHexUint(removeChunkExtension(line))
		if err != nil {
			return false, true
		}
		c.cursor = next
		if size == 0 {
			// Trailers are not supported: the terminating chunk is
			// immediately followed by the empty trailer line.
			if len(buf) < c.cursor+2 {
				return false, false
			}
			c.cursor += 2
			c.done = true
			return true, false
		}
		c.dataNeeded = int(size)
		c.awaitData = true
	}
}

// readChunkSizeLine returns the bytes of the chunk-size line starting at
// from (not including the terminating CRLF) and the offset just past it.
func readChunkSizeLine(buf []byte, from int) (line []byte, next int, ok bool) {
	idx := bytes.IndexByte(buf[from:], '\n')
	if idx == -1 {
		return nil, 0, false
	}
	end := from + idx + 1
	line = buf[from:end]
	line = trimTrailingWhitespace(line)
	return line, end, true
}

func isASCIISpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func trimTrailingWhitespace(b []byte) []byte {
	for len(b) > 0 && isASCIISpace(b[len(b)-1]) {
		b = b[:len(b)-1]
	}
	return b
}

// removeChunkExtension strips a "; token[=value]" chunk-extension,
// ignoring its exact syntax since it is never surfaced to callers.
func removeChunkExtension(p []byte) []byte {
	if i := bytes.IndexByte(p, ';'); i != -1 {
		return p[:i]
	}
	return p
}

func parseHexUint(v []byte) (uint64, error) {
	var n uint64
	for i, b := range v {
		switch {
		case '0' <= b && b <= '9':
			b = b - '0'
		case 'a' <= b && b <= 'f':
			b = b - 'a' + 10
		case 'A' <= b && b <= 'F':
			b = b - 'A' + 10
		default:
			return 0, errors.New("httpparse: invalid byte in chunk length")
		}
		if i == 16 {
			return 0, errors.New("httpparse: chunk length too large")
		}
		n <<= 4
		n |= uint64(b)
	}
	return n, nil
}
