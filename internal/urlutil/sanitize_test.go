package urlutil

import (
	"strings"
	"testing"
)

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "/"},
		{"relative", Forbidden},
		{"/", "/"},
		{"/a/b", "/a/b"},
		{"/a/./b", "/a/b"},
		{"/a/../b", "/b"},
		{"/../../etc/passwd", Forbidden},
		{"/a/b/..", "/a"},
		{"/a/b/../../..", Forbidden},
		{"/files/", "/files/"},
		{"//a///b", "/a/b"},
	}
	for _, tt := range tests {
		if got := SanitizePath(tt.in); got != tt.want {
			t.Errorf("SanitizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestSanitizePathInvariant covers the sanitizer's invariant: the
// output is either Forbidden or a string whose "/"-segments contain no
// "." or ".." element.
func TestSanitizePathInvariant(t *testing.T) {
	candidates := []string{
		"/", "", "a", "/a", "/a/", "/a/..", "/a/../..", "/./../.",
		"/../", "/a/b/c/../../../../x", "/a//b", "/a/./././b",
		"/%2e%2e/etc", "/a/.hidden", "/a/b/.",
	}
	for _, p := range candidates {
		out := SanitizePath(p)
		if out == Forbidden {
			continue
		}
		for _, seg := range strings.Split(out, "/") {
			if seg == "." || seg == ".." {
				t.Errorf("SanitizePath(%q) = %q retains segment %q", p, out, seg)
			}
		}
		if out == "" || out[0] != '/' {
			t.Errorf("SanitizePath(%q) = %q does not start with /", p, out)
		}
	}
}
