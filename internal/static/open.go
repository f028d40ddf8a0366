//go:build unix

package static

import (
	"os"

	"golang.org/x/sys/unix"
)

// openNoFollow opens path for reading, refusing to traverse a trailing
// symlink component. Following symlinks when serving files is an
// explicit non-goal.
func openNoFollow(path string) (*os.File, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NOFOLLOW, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(fd), path), nil
}
