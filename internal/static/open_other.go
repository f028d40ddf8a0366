//go:build !unix

package static

import "os"

// openNoFollow is a portable fallback for platforms without O_NOFOLLOW;
// the preceding Lstat-based symlink check in Serve is still applied.
func openNoFollow(path string) (*os.File, error) {
	return os.Open(path)
}
