package router

import (
	"os"
	"path/filepath"
	"testing"

	"webservd/internal/config"
	"webservd/internal/httpparse"
)

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func parse(t *testing.T, raw string) *httpparse.Request {
	t.Helper()
	p := httpparse.NewParser(0)
	if !p.Parse([]byte(raw)) {
		t.Fatalf("expected complete parse of %q", raw)
	}
	return p.Request()
}

func TestRouteStaticFileServed(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "index.html"), "Hi")

	server := &config.Server{Root: dir, Locations: []*config.Location{
		{Pattern: "/", Index: []string{"index.html"}},
	}}
	(&config.Tree{Servers: []*config.Server{server}}).Finalize()

	rt := &Router{ServerName: "webservd"}
	req := parse(t, "GET / HTTP/1.1\r\nHost: localhost:8080\r\n\r\n")

	resp, cgi := rt.Route(req, []*config.Server{server}, 8080)
	if cgi != nil {
		t.Fatal("expected no CGI dispatch")
	}
	if resp.StatusCode != 200 || string(resp.Body) != "Hi" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestRouteMethodNotAllowed(t *testing.T) {
	server := &config.Server{Root: t.TempDir(), Locations: []*config.Location{
		{Pattern: "/api", AllowMethods: []string{"GET"}},
	}}
	(&config.Tree{Servers: []*config.Server{server}}).Finalize()

	rt := &Router{}
	req := parse(t, "POST /api HTTP/1.1\r\nHost: h\r\nContent-Length: 0\r\n\r\n")
	resp, _ := rt.Route(req, []*config.Server{server}, 80)
	if resp.StatusCode != 405 {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
	if !req.KeepAlive {
		t.Fatal("sanity: request should be keep-alive")
	}
}

func TestRouteBodyTooLarge(t *testing.T) {
	server := &config.Server{Root: t.TempDir(), Locations: []*config.Location{
		{Pattern: "/upload", UploadDir: t.TempDir()},
	}}
	server.Locations[0].SetBodyMaxSize(10)
	(&config.Tree{Servers: []*config.Server{server}}).Finalize()

	rt := &Router{}
	req := parse(t, "POST /upload HTTP/1.1\r\nHost: h\r\nContent-Length: 11\r\n\r\n12345678901")
	resp, _ := rt.Route(req, []*config.Server{server}, 80)
	if resp.StatusCode != 413 {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
	entries, _ := os.ReadDir(server.Locations[0].UploadDir)
	if len(entries) != 0 {
		t.Error("expected no file created for an over-limit upload")
	}
}

func TestRoutePathTraversalIs403(t *testing.T) {
	server := &config.Server{Root: t.TempDir(), Locations: []*config.Location{{Pattern: "/"}}}
	(&config.Tree{Servers: []*config.Server{server}}).Finalize()

	rt := &Router{}
	req := parse(t, "GET /../../etc/passwd HTTP/1.1\r\nHost: h\r\n\r\n")
	resp, _ := rt.Route(req, []*config.Server{server}, 80)
	if resp.StatusCode != 403 {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestRouteReturnDirective(t *testing.T) {
	server := &config.Server{Root: t.TempDir(), Locations: []*config.Location{
		{Pattern: "/old", ReturnCode: 301, ReturnURL: "/new"},
	}}
	(&config.Tree{Servers: []*config.Server{server}}).Finalize()

	rt := &Router{}
	req := parse(t, "GET /old HTTP/1.1\r\nHost: h\r\n\r\n")
	resp, _ := rt.Route(req, []*config.Server{server}, 80)
	if resp.StatusCode != 301 || resp.Header.Get("Location") != "/new" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestRouteVirtualHostSelectionAndDefault(t *testing.T) {
	a := &config.Server{Root: t.TempDir(), ServerNames: []string{"a.example"}, Locations: []*config.Location{{Pattern: "/"}}}
	b := &config.Server{Root: t.TempDir(), ServerNames: []string{"b.example"}, Locations: []*config.Location{{Pattern: "/"}}}
	mustWriteFile(t, filepath.Join(b.Root, "index.html"), "B")
	b.Locations[0].Index = []string{"index.html"}
	(&config.Tree{Servers: []*config.Server{a, b}}).Finalize()

	rt := &Router{}
	req := parse(t, "GET / HTTP/1.1\r\nHost: b.example\r\n\r\n")
	resp, _ := rt.Route(req, []*config.Server{a, b}, 80)
	if string(resp.Body) != "B" {
		t.Fatalf("expected vhost b to be selected, got %+v", resp)
	}

	reqNoMatch := parse(t, "GET / HTTP/1.1\r\nHost: unknown.example\r\n\r\n")
	resp2, _ := rt.Route(reqNoMatch, []*config.Server{a, b}, 80)
	if resp2.StatusCode != 403 {
		t.Fatalf("expected default server (a, empty root -> 403 for empty dir), got %d", resp2.StatusCode)
	}
}

func TestRouteCustomErrorPageLocationOverridesServer(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "server404.html"), "server 404")
	mustWriteFile(t, filepath.Join(dir, "loc404.html"), "location 404")

	server := &config.Server{
		Root:       dir,
		ErrorPages: config.ErrorPages{404: "/server404.html"},
		Locations: []*config.Location{
			{Pattern: "/", ErrorPages: config.ErrorPages{404: "/loc404.html"}},
		},
	}
	(&config.Tree{Servers: []*config.Server{server}}).Finalize()

	rt := &Router{}
	req := parse(t, "GET /missing.txt HTTP/1.1\r\nHost: h\r\n\r\n")
	resp, _ := rt.Route(req, []*config.Server{server}, 80)
	if resp.StatusCode != 404 {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if string(resp.Body) != "location 404" {
		t.Errorf("body = %q, want location error page to win", resp.Body)
	}
}

func TestRouteCGIDispatch(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "echo.py"), "#!/usr/bin/env python3\n")

	server := &config.Server{Root: dir, Locations: []*config.Location{
		{Pattern: "/cgi/", CGIExt: []string{".py"}, CGIPath: []string{"/usr/bin/python3"}},
	}}
	(&config.Tree{Servers: []*config.Server{server}}).Finalize()

	rt := &Router{ServerName: "webservd"}
	req := parse(t, "GET /cgi/echo.py?name=world HTTP/1.1\r\nHost: h\r\n\r\n")
	resp, dispatch := rt.Route(req, []*config.Server{server}, 8080)
	if resp != nil {
		t.Fatalf("expected no synchronous response, got %+v", resp)
	}
	if dispatch == nil {
		t.Fatal("expected a CGI dispatch")
	}
	if dispatch.Interpreter != "/usr/bin/python3" {
		t.Errorf("interpreter = %q", dispatch.Interpreter)
	}
	found := false
	for _, e := range dispatch.Env {
		if e == "QUERY_STRING=name=world" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected QUERY_STRING in env, got %v", dispatch.Env)
	}
}

func TestRouteChunkedUploadIs501(t *testing.T) {
	server := &config.Server{Root: t.TempDir(), Locations: []*config.Location{
		{Pattern: "/upload", UploadDir: t.TempDir()},
	}}
	(&config.Tree{Servers: []*config.Server{server}}).Finalize()

	rt := &Router{}
	req := parse(t, "POST /upload HTTP/1.1\r\nHost: h\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n")
	resp, _ := rt.Route(req, []*config.Server{server}, 80)
	if resp.StatusCode != 501 {
		t.Fatalf("status = %d, want 501", resp.StatusCode)
	}
}
