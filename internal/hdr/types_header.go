/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package hdr implements the canonicalized HTTP header map shared by the
// response writer and the CGI output parser. Request headers are stored
// lower-cased by the parser (see internal/httpparse); this package only
// canonicalizes keys that the server itself writes out.
package hdr

import (
	"sort"
	"strings"
	"sync"
)

const (
	toLower = 'a' - 'A'

	Connection       = "Connection"
	ContentLength    = "Content-Length"
	ContentType      = "Content-Type"
	Date             = "Date"
	Host             = "Host"
	Location         = "Location"
	ServerHeader     = "Server"
	SetCookieHeader  = "Set-Cookie"
	TransferEncoding = "Transfer-Encoding"
)

var (
	headerNewlineToSpace = strings.NewReplacer("\n", " ", "\r", " ")

	headerSorterPool = sync.Pool{
		New: func() interface{} { return new(headerSorter) },
	}

	// commonHeader interns common header strings so canonicalization
	// doesn't allocate on the hot path.
	commonHeader = make(map[string]string)

	// isTokenTable is a copy of net/http/lex.go's isTokenTable.
	// See https://httpwg.github.io/specs/rfc7230.html#rule.token.separators
	isTokenTable = [127]bool{
		'0': true, '1': true, '2': true, '3': true, '4': true, '5': true, '6': true, '7': true,
		'8': true, '9': true,

		'a': true, 'b': true, 'c': true, 'd': true, 'e': true, 'f': true, 'g': true, 'h': true,
		'i': true, 'j': true, 'k': true, 'l': true, 'm': true, 'n': true, 'o': true, 'p': true,
		'q': true, 'r': true, 's': true, 't': true, 'u': true, 'v': true, 'w': true, 'x': true,
		'y': true, 'z': true,

		'A': true, 'B': true, 'C': true, 'D': true, 'E': true, 'F': true, 'G': true, 'H': true,
		'I': true, 'J': true, 'K': true, 'L': true, 'M': true, 'N': true, 'O': true, 'P': true,
		'Q': true, 'R': true, 'S': true, 'T': true, 'U': true, 'V': true, 'W': true, 'X': true,
		'Y': true, 'Z': true,

		'!':  true,
		'#':  true,
		'$':  true,
		'%':  true,
		'&':  true,
		'\'': true,
		'*':  true,
		'+':  true,
		'-':  true,
		'.':  true,
		'^':  true,
		'_':  true,
		'`':  true,
		'|':  true,
		'~':  true,
	}
)

type (
	// Header represents response header key-value pairs, keys stored in
	// canonical (Title-Case) form.
	Header map[string][]string

	writeStringer interface {
		WriteString(string) (int, error)
	}

	stringWriter struct {
		w interface {
			Write([]byte) (int, error)
		}
	}

	keyValues struct {
		key    string
		values []string
	}

	// headerSorter implements sort.Interface over a []keyValues so the
	// wire format is deterministic. It's used as a pointer so it fits in
	// a sort.Interface value without allocation.
	headerSorter struct {
		kvs []keyValues
	}
)

func (s *headerSorter) Len() int           { return len(s.kvs) }
func (s *headerSorter) Swap(i, j int)      { s.kvs[i], s.kvs[j] = s.kvs[j], s.kvs[i] }
func (s *headerSorter) Less(i, j int) bool { return s.kvs[i].key < s.kvs[j].key }

var _ sort.Interface = (*headerSorter)(nil)

func init() {
	for _, v := range []string{
		Connection,
		ContentLength,
		ContentType,
		Date,
		Host,
		Location,
		ServerHeader,
		SetCookieHeader,
		TransferEncoding,
	} {
		commonHeader[v] = v
	}
}
