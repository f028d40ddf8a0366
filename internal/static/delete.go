package static

import (
	"os"
	"path/filepath"

	"webservd/internal/respond"
)

func serveDelete(fsPath string) *respond.Response {
	info, err := os.Lstat(fsPath)
	if err != nil {
		return statError(err)
	}
	if info.IsDir() {
		return respond.New(403)
	}
	if !dirWritable(filepath.Dir(fsPath)) {
		return respond.New(403)
	}
	if err := os.Remove(fsPath); err != nil {
		return statError(err)
	}
	return respond.New(204)
}
