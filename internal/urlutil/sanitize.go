package urlutil

import "strings"

// Forbidden is the sentinel sanitization failure: an attempt to escape
// the document root, or a path that does not start with a slash.
const Forbidden = "\x00forbidden\x00"

// SanitizePath normalizes a request path: the empty path becomes "/";
// a path not starting with "/" is forbidden; "." segments are dropped;
// ".." segments pop the previous segment, and popping past the root is
// forbidden; a trailing slash is preserved.
func SanitizePath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		return Forbidden
	}

	trailingSlash := len(p) > 1 && p[len(p)-1] == '/'
	segments := strings.Split(p, "/")

	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
			// empty from leading/repeated slash, or current-dir: drop.
		case "..":
			if len(out) == 0 {
				return Forbidden
			}
			out = out[:len(out)-1]
		default:
			out = append(out, seg)
		}
	}

	result := "/" + strings.Join(out, "/")
	if trailingSlash && result != "/" {
		result += "/"
	}
	return result
}
