package static

import (
	"strings"

	"webservd/internal/config"
	"webservd/internal/urlutil"
)

// ComposePath exposes compose for callers outside this package (the CGI
// dispatcher needs the same alias/root resolution to find a script's
// filesystem path).
func ComposePath(reqPath string, server *config.Server, loc *config.Location) (fsPath string, ok bool) {
	return compose(reqPath, server, loc)
}

// compose sanitizes reqPath and resolves it to a filesystem path under
// loc's root or alias. The second return value is false when the path
// was rejected outright (escape attempt, not under "/").
func compose(reqPath string, server *config.Server, loc *config.Location) (fsPath string, ok bool) {
	sanitized := urlutil.SanitizePath(reqPath)
	if sanitized == urlutil.Forbidden {
		return "", false
	}

	if loc.Alias != "" {
		rest := strings.TrimPrefix(sanitized, loc.Pattern)
		rest = strings.TrimPrefix(rest, "/")
		return joinRoot(loc.Alias, rest), true
	}

	root := loc.Root
	if root == "" {
		root = server.Root
	}
	return joinRoot(root, strings.TrimPrefix(sanitized, "/")), true
}

func joinRoot(root, rest string) string {
	root = strings.TrimRight(root, "/")
	if rest == "" {
		return root
	}
	return root + "/" + rest
}
