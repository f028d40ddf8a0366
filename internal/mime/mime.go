// Package mime provides the built-in extension-to-Content-Type table
// the static handler uses; it intentionally does not attempt content
// sniffing or the full IANA registry.
package mime

import "strings"

var byExt = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".txt":  "text/plain",
	".json": "application/json",
	".pdf":  "application/pdf",
}

const defaultType = "application/octet-stream"

// TypeByExtension returns the Content-Type for name's extension, or
// defaultType if it is unrecognized.
func TypeByExtension(name string) string {
	ext := extOf(name)
	if t, ok := byExt[strings.ToLower(ext)]; ok {
		return t
	}
	return defaultType
}

func extOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i == -1 {
		return ""
	}
	return name[i:]
}
