// Package config defines the configuration tree the server core
// consumes. Building and validating this tree from a directive file is
// an external parser's job; this package only defines the shape that
// parser is expected to produce, plus a small JSON loader used by tests
// and the demo binary.
package config

const (
	DefaultClientMaxBodySize = 1 << 20 // 1 MiB
)

type (
	// ErrorPages maps an HTTP status code to a filesystem path, relative
	// to its owner's root (location root if set on the location, server
	// root otherwise).
	ErrorPages map[int]string

	// Location is one "location" block within a server block. Unset
	// Index and BodyMaxSize are filled in from the parent Server by
	// Tree.Finalize, and ErrorPages is merged over the server's map.
	// AllowMethods is not inherited: a Server has no allow-list.
	Location struct {
		Pattern           string // URL prefix, e.g. "/", "/api", "/cgi/"
		Root              string // document root (mutually exclusive with Alias)
		Alias             string // replaces the matched prefix when set
		Index             []string
		AllowMethods      []string // empty after Finalize means "all methods"
		BodyMaxSize       int64    // 0 after Finalize means "inherit/default"
		ReturnCode        int      // 0 means no return directive
		ReturnURL         string
		ErrorPages        ErrorPages
		Autoindex         bool
		UploadDir         string
		CGIExt            []string
		CGIPath           []string // aligned index-for-index with CGIExt

		hasBodyMaxSize bool
		// ownErrorPages is l.ErrorPages as configured, captured before
		// Finalize overwrites ErrorPages with the merged view. ErrorPage
		// needs it to tell which root a resolved path is relative to.
		ownErrorPages ErrorPages
	}

	// Server is one "server" block: a virtual host identity (or several,
	// via ServerNames) sharing a listen port.
	Server struct {
		Listen       int
		Host         string // bind host; "" means all interfaces
		ServerNames  []string
		Root         string
		Index        []string
		BodyMaxSize  int64
		ErrorPages   ErrorPages
		Locations    []*Location
	}

	// Tree is the top-level, immutable-for-the-run configuration the
	// reactor is constructed from.
	Tree struct {
		Servers []*Server

		finalized bool
	}
)

// ByPort groups the servers that share a listening port, preserving
// declaration order; that order also decides the default virtual host
// for a port when no Host header matches.
func (t *Tree) ByPort() map[int][]*Server {
	out := make(map[int][]*Server)
	for _, s := range t.Servers {
		out[s.Listen] = append(out[s.Listen], s)
	}
	return out
}

// Finalize applies server→location inheritance once, at tree
// construction time, so the request path never has to re-resolve
// defaults per request: unset collection values inherit from the
// parent server block, and a location error-page map merges over the
// server map with location entries winning. Calling it again is a
// no-op.
func (t *Tree) Finalize() {
	if t.finalized {
		return
	}
	t.finalized = true
	for _, s := range t.Servers {
		if s.BodyMaxSize == 0 {
			s.BodyMaxSize = DefaultClientMaxBodySize
		}
		if s.ErrorPages == nil {
			s.ErrorPages = ErrorPages{}
		}
		for _, l := range s.Locations {
			if len(l.Index) == 0 {
				l.Index = s.Index
			}
			if !l.hasBodyMaxSize || l.BodyMaxSize == 0 {
				l.BodyMaxSize = s.BodyMaxSize
			}
			l.ownErrorPages = l.ErrorPages
			l.ErrorPages = mergeErrorPages(s.ErrorPages, l.ErrorPages)
		}
	}
}

// SetBodyMaxSize records an explicit per-location override. Finalize
// keeps a non-zero value recorded this way; a value assigned to the
// field directly, or an explicit 0, is replaced by the server's limit.
func (l *Location) SetBodyMaxSize(n int64) {
	l.BodyMaxSize = n
	l.hasBodyMaxSize = true
}

func mergeErrorPages(server, location ErrorPages) ErrorPages {
	merged := make(ErrorPages, len(server)+len(location))
	for code, path := range server {
		merged[code] = path
	}
	for code, path := range location {
		merged[code] = path
	}
	return merged
}

// MatchServerName returns true if host (already stripped of any
// trailing ":port") is one of s's configured server names.
func (s *Server) MatchServerName(host string) bool {
	for _, name := range s.ServerNames {
		if name == host {
			return true
		}
	}
	return false
}

// CGIInterpreter returns the interpreter path aligned with ext in
// l.CGIExt/l.CGIPath, and whether ext is CGI-eligible at all.
func (l *Location) CGIInterpreter(ext string) (string, bool) {
	for i, e := range l.CGIExt {
		if e == ext {
			if i < len(l.CGIPath) {
				return l.CGIPath[i], true
			}
			return "", false
		}
	}
	return "", false
}

// ErrorPage resolves the custom error page for code under l: l's own
// (pre-merge) entries win, falling back to s's. It returns the
// configured path and the root it is relative to: the location's root
// if the entry came from the location, the server's root if it came
// from the server.
func (l *Location) ErrorPage(code int, s *Server) (path, root string, ok bool) {
	if p, found := l.ownErrorPages[code]; found {
		root := l.Root
		if root == "" {
			root = s.Root
		}
		return p, root, true
	}
	if p, found := s.ErrorPages[code]; found {
		return p, s.Root, true
	}
	return "", "", false
}

// AllowsMethod reports whether method is permitted by l. An empty
// AllowMethods set (after Finalize) means no restriction was
// configured and every supported method is allowed.
func (l *Location) AllowsMethod(method string) bool {
	if len(l.AllowMethods) == 0 {
		return true
	}
	for _, m := range l.AllowMethods {
		if m == method {
			return true
		}
	}
	return false
}
