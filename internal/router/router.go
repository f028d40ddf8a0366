// Package router implements the request handler: virtual-host
// selection, longest-prefix location matching, the policy pipeline
// (method allow-list, body-size limit, return directives, CGI/static
// dispatch), and custom error-page resolution.
package router

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"webservd/internal/cgi"
	"webservd/internal/config"
	"webservd/internal/hdr"
	"webservd/internal/httpparse"
	"webservd/internal/respond"
	"webservd/internal/static"
	"webservd/internal/urlutil"
)

// Router ties selection, policy and error-page resolution together. It
// holds no per-request state: one Router is shared by every session.
type Router struct {
	// ServerName is written into every response's Server header and
	// into CGI's SERVER_SOFTWARE meta-variable.
	ServerName string
}

// CGIDispatch describes a CGI invocation the router has decided on. The
// session is responsible for actually starting the child process
// (internal/cgi.Start) and registering its output pipe with the
// reactor; once the child's output is parsed, the session calls
// Router.Finalize on the resulting Response before serializing it.
type CGIDispatch struct {
	Interpreter string
	ScriptPath  string
	Env         []string
	Body        []byte
	Server      *config.Server
	Location    *config.Location
}

// Route selects a server and location for req among servers (every
// server sharing req's listening port) and runs the policy pipeline,
// short-circuiting on the first failure. It returns either a complete
// Response, or a non-nil CGIDispatch when the request must be handed
// to the CGI subsystem instead.
func (rt *Router) Route(req *httpparse.Request, servers []*config.Server, serverPort int) (*respond.Response, *CGIDispatch) {
	if req.Malformed {
		return rt.Finalize(respond.New(400), nil, nil), nil
	}

	server := selectServer(servers, req.Host)
	if server == nil {
		return rt.Finalize(respond.New(404), nil, nil), nil
	}

	sanitized := urlutil.SanitizePath(req.Path)
	if sanitized == urlutil.Forbidden {
		return rt.Finalize(respond.New(403), server, nil), nil
	}

	loc := selectLocation(server, sanitized)
	if loc == nil {
		return rt.Finalize(respond.New(404), server, nil), nil
	}

	if !loc.AllowsMethod(req.Method) {
		return rt.Finalize(respond.New(405), server, loc), nil
	}

	limit := loc.BodyMaxSize
	if limit == 0 {
		limit = config.DefaultClientMaxBodySize
	}
	if req.BodyTooLarge || int64(len(req.Body)) > limit {
		return rt.Finalize(respond.New(413), server, loc), nil
	}

	if loc.ReturnCode != 0 {
		resp := respond.New(loc.ReturnCode)
		resp.Header.Set(hdr.Location, loc.ReturnURL)
		return rt.Finalize(resp, server, loc), nil
	}

	if interpreter, ok := loc.CGIInterpreter(extOf(sanitized)); ok {
		scriptPath, composeOK := static.ComposePath(sanitized, server, loc)
		if !composeOK {
			return rt.Finalize(respond.New(403), server, loc), nil
		}
		env := cgi.BuildEnv(req, rt.ServerName, strconv.Itoa(serverPort), scriptPath)
		return nil, &CGIDispatch{
			Interpreter: interpreter,
			ScriptPath:  scriptPath,
			Env:         env,
			Body:        req.Body,
			Server:      server,
			Location:    loc,
		}
	}

	// Chunked uploads to the static handler are a hard 501. The parser
	// has already de-chunked the body by the time it reaches here, so
	// req.Chunked is the only remaining signal that the wire request
	// used Transfer-Encoding: chunked.
	if req.Method == "POST" && req.Chunked {
		return rt.Finalize(respond.New(501), server, loc), nil
	}

	resp := static.Serve(req.Method, sanitized, server, loc, req.Body)
	return rt.Finalize(resp, server, loc), nil
}

// Finalize applies custom error-page resolution to resp if its status
// is >= 400, falling back to the built-in minimal HTML body when no
// configured page resolves. It must be called on every response,
// whether produced synchronously by Route or later from parsed CGI
// output.
func (rt *Router) Finalize(resp *respond.Response, server *config.Server, loc *config.Location) *respond.Response {
	if resp.StatusCode >= 400 {
		applyErrorPage(resp, server, loc)
		if len(resp.Body) == 0 {
			applyBuiltinErrorBody(resp)
		}
	}
	return resp
}

func applyBuiltinErrorBody(resp *respond.Response) {
	line := resp.StatusLine()
	resp.Header.Set(hdr.ContentType, "text/html")
	resp.SetBody([]byte(fmt.Sprintf(
		"<html><head><title>%s</title></head><body><h1>%s</h1></body></html>\n",
		line, line)))
}

func applyErrorPage(resp *respond.Response, server *config.Server, loc *config.Location) {
	if server == nil {
		return
	}
	var path, root string
	var ok bool
	switch {
	case loc != nil:
		path, root, ok = loc.ErrorPage(resp.StatusCode, server)
	default:
		path, ok = server.ErrorPages[resp.StatusCode]
		root = server.Root
	}
	if !ok {
		return
	}

	data, err := os.ReadFile(joinRoot(root, strings.TrimPrefix(path, "/")))
	if err != nil {
		return
	}
	resp.Header.Set(hdr.ContentType, "text/html")
	resp.SetBody(data)
}

func joinRoot(root, rest string) string {
	root = strings.TrimRight(root, "/")
	if rest == "" {
		return root
	}
	return root + "/" + rest
}

// selectServer implements virtual-host selection: exact match (port
// suffix already stripped by the parser) against each server's
// configured names, first match wins; absent a match, the first server
// in declaration order for this port is the default.
func selectServer(servers []*config.Server, host string) *config.Server {
	for _, s := range servers {
		if s.MatchServerName(host) {
			return s
		}
	}
	if len(servers) > 0 {
		return servers[0]
	}
	return nil
}

// selectLocation implements longest-prefix location matching.
func selectLocation(server *config.Server, sanitizedPath string) *config.Location {
	var best *config.Location
	bestLen := -1
	for _, l := range server.Locations {
		if strings.HasPrefix(sanitizedPath, l.Pattern) && len(l.Pattern) > bestLen {
			best = l
			bestLen = len(l.Pattern)
		}
	}
	return best
}

func extOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i == -1 {
		return ""
	}
	return path[i:]
}
