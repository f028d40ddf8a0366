/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package hdr

// validHeaderFieldByte reports whether b is a valid byte in a header
// field name. RFC 7230 says:
//
//	header-field   = field-name ":" OWS field-value OWS
//	field-name     = token
//	tchar = "!" / "#" / "$" / "%" / "&" / "'" / "*" / "+" / "-" / "." /
//	        "^" / "_" / "`" / "|" / "~" / DIGIT / ALPHA
//	token = 1*tchar
func validHeaderFieldByte(b byte) bool {
	return int(b) < len(isTokenTable) && isTokenTable[b]
}

// CanonicalHeaderKey returns a's canonical form (first letter and any
// letter following a hyphen is upper case; the rest are lower case).
// For invalid inputs (a contains spaces or non-token bytes), a is
// returned unchanged.
func CanonicalHeaderKey(a string) string {
	if v, ok := commonHeader[a]; ok {
		return v
	}

	buf := []byte(a)
	for _, c := range buf {
		if validHeaderFieldByte(c) {
			continue
		}
		return a
	}

	upper := true
	for i, c := range buf {
		if upper && 'a' <= c && c <= 'z' {
			c -= toLower
		} else if !upper && 'A' <= c && c <= 'Z' {
			c += toLower
		}
		buf[i] = c
		upper = c == '-'
	}
	return string(buf)
}
