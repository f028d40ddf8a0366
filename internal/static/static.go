// Package static implements the filesystem-backed GET/HEAD/POST/DELETE
// handler: path sanitization, MIME detection, directory listing or
// index-file fallback, uploads, and deletion.
package static

import (
	"errors"
	"io"
	"os"
	"syscall"

	"webservd/internal/autoindex"
	"webservd/internal/config"
	"webservd/internal/mime"
	"webservd/internal/respond"
)

// MaxServeSize is the cap on a regular file served via GET/HEAD; files
// over this size are rejected with 413 rather than read into memory.
const MaxServeSize = 10 << 20 // 10 MiB

// Serve dispatches method against reqPath, composed under server/loc's
// root or alias. Any other method gets a 405: the router's AllowsMethod
// check lets every method through when a location has no allow-list,
// so such requests can reach this function.
func Serve(method, reqPath string, server *config.Server, loc *config.Location, body []byte) *respond.Response {
	fsPath, ok := compose(reqPath, server, loc)
	if !ok {
		return respond.New(403)
	}

	switch method {
	case "GET":
		return serveGet(fsPath, reqPath, loc)
	case "HEAD":
		r := serveGet(fsPath, reqPath, loc)
		r.Body = nil
		return r
	case "POST":
		return serveUpload(loc, body)
	case "DELETE":
		return serveDelete(fsPath)
	default:
		return respond.New(405)
	}
}

func serveGet(fsPath, reqPath string, loc *config.Location) *respond.Response {
	info, err := os.Lstat(fsPath)
	if err != nil {
		return statError(err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return respond.New(403)
	}
	if info.IsDir() {
		return serveDirectory(fsPath, reqPath, loc)
	}
	return serveRegularFile(fsPath, info)
}

func serveRegularFile(fsPath string, info os.FileInfo) *respond.Response {
	if info.Size() > MaxServeSize {
		return respond.New(413)
	}
	f, err := openNoFollow(fsPath)
	if err != nil {
		return statError(err)
	}
	defer f.Close()

	body, err := readAllRetryingInterrupts(f)
	if err != nil {
		return respond.New(500)
	}

	r := respond.New(200)
	r.Header.Set("Content-Type", mime.TypeByExtension(fsPath))
	r.SetBody(body)
	return r
}

func serveDirectory(fsPath, reqPath string, loc *config.Location) *respond.Response {
	for _, idx := range loc.Index {
		idxPath := joinRoot(fsPath, idx)
		info, err := os.Stat(idxPath)
		if err == nil && info.Mode().IsRegular() {
			return serveRegularFile(idxPath, info)
		}
	}
	if loc.Autoindex {
		return serveAutoindex(fsPath, reqPath)
	}
	return respond.New(403)
}

func serveAutoindex(fsPath, reqPath string) *respond.Response {
	entries, err := os.ReadDir(fsPath)
	if err != nil {
		return statError(err)
	}
	body, err := autoindex.Render(fsPath, reqPath, entries)
	if err != nil {
		return respond.New(500)
	}
	r := respond.New(200)
	r.Header.Set("Content-Type", "text/html")
	r.SetBody(body)
	return r
}

func statError(err error) *respond.Response {
	switch {
	case os.IsNotExist(err):
		return respond.New(404)
	case os.IsPermission(err):
		return respond.New(403)
	default:
		return respond.New(500)
	}
}

// readAllRetryingInterrupts reads r to completion, retrying reads that
// fail with EINTR rather than surfacing them as errors.
func readAllRetryingInterrupts(r io.Reader) ([]byte, error) {
	var out []byte
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			if isInterrupt(err) {
				continue
			}
			return out, err
		}
	}
}

func isInterrupt(err error) bool {
	return errors.Is(err, syscall.EINTR)
}
