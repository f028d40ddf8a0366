package static

import (
	"fmt"
	"html"
	"math/rand"
	"os"
	"time"

	"webservd/internal/config"
	"webservd/internal/respond"
)

// serveUpload writes body to a newly created, uniquely named file under
// loc's upload directory. Chunked bodies never reach here: the parser
// always de-chunks before the request is considered complete, and the
// router rejects chunked uploads with 501 before dispatch, since this
// package has no visibility into the original Transfer-Encoding header.
func serveUpload(loc *config.Location, body []byte) *respond.Response {
	if loc.UploadDir == "" {
		return respond.New(500)
	}
	if err := os.MkdirAll(loc.UploadDir, 0755); err != nil {
		return respond.New(500)
	}
	if !dirWritable(loc.UploadDir) {
		return respond.New(500)
	}

	name := uniqueName()
	fullPath := joinRoot(loc.UploadDir, name)

	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return respond.New(500)
	}

	if err := writeAllRetryingInterrupts(f, body); err != nil {
		f.Close()
		os.Remove(fullPath)
		return respond.New(500)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(fullPath)
		return respond.New(500)
	}
	if err := f.Close(); err != nil {
		return respond.New(500)
	}

	r := respond.New(201)
	r.Header.Set("Location", fullPath)
	r.Header.Set("Content-Type", "text/html")
	r.SetBody([]byte(fmt.Sprintf(
		"<html><body>Uploaded as <a href=\"%s\">%s</a></body></html>",
		html.EscapeString(fullPath), html.EscapeString(name))))
	return r
}

func uniqueName() string {
	return fmt.Sprintf("%d-%d-%d", time.Now().UnixNano(), os.Getpid(), rand.Int63())
}

func dirWritable(dir string) bool {
	probe := joinRoot(dir, fmt.Sprintf(".write-check-%d", os.Getpid()))
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(probe)
	return true
}

func writeAllRetryingInterrupts(f *os.File, body []byte) error {
	for len(body) > 0 {
		n, err := f.Write(body)
		body = body[n:]
		if err != nil {
			if isInterrupt(err) {
				continue
			}
			return err
		}
	}
	return nil
}
