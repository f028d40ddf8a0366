// Package autoindex generates the self-contained HTML directory listing
// the static handler falls back to when no index file is configured (or
// present) and autoindex is enabled for the location.
package autoindex

import (
	"fmt"
	"html"
	"os"
	"sort"
	"strings"

	"webservd/internal/urlutil"
)

// MaxEntries caps how many directory entries are rendered before a
// notice row replaces the rest.
const MaxEntries = 1000

// Render returns an HTML page listing dirPath's entries, linked relative
// to urlPath (the request's sanitized, still-slash-terminated path).
func Render(dirPath, urlPath string, entries []os.DirEntry) ([]byte, error) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><title>Index of ")
	b.WriteString(html.EscapeString(urlPath))
	b.WriteString("</title></head><body>\n<h1>Index of ")
	b.WriteString(html.EscapeString(urlPath))
	b.WriteString("</h1>\n<table>\n")

	if urlPath != "/" {
		fmt.Fprintf(&b, `<tr><td><a href="%s">../</a></td><td></td><td></td></tr>`+"\n", html.EscapeString(parentPath(urlPath)))
	}

	shown := 0
	for _, e := range entries {
		name := e.Name()
		if name == "." || name == ".." {
			continue
		}
		if shown >= MaxEntries {
			fmt.Fprintf(&b, "<tr><td colspan=\"3\">... %d more entries not shown</td></tr>\n", len(entries)-shown)
			break
		}
		shown++

		info, err := e.Info()
		if err != nil {
			continue
		}
		display := name
		href := urlutil.EncodeHref(name)
		if e.IsDir() {
			display += "/"
			href += "/"
		}

		fmt.Fprintf(&b, "<tr><td><a href=\"%s\">%s</a></td><td>%s</td><td>%s</td></tr>\n",
			href, html.EscapeString(display), formatSize(info.Size(), e.IsDir()),
			info.ModTime().Format("2006-01-02 15:04:05"))
	}

	b.WriteString("</table>\n</body></html>\n")
	return []byte(b.String()), nil
}

// parentPath computes the URL of the directory above urlPath: strip a
// trailing slash, then truncate at the last remaining slash, keeping it;
// a path with no remaining slash (already at the top) is the root.
func parentPath(urlPath string) string {
	trimmed := strings.TrimSuffix(urlPath, "/")
	i := strings.LastIndexByte(trimmed, '/')
	if i == -1 {
		return "/"
	}
	return trimmed[:i+1]
}

func formatSize(n int64, isDir bool) string {
	if isDir {
		return "-"
	}
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
