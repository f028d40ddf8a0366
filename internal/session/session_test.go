//go:build unix

package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"webservd/internal/config"
	"webservd/internal/router"
)

// socketpair returns two connected, non-blocking Unix-domain socket fds
// standing in for a client/server TCP pair, without requiring an actual
// network listener.
func socketpair(t *testing.T) (server, client int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		t.Fatal(err)
	}
	if err := unix.SetNonblock(fds[1], true); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestSessionServesRequestAndResets(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("Hi"), 0644); err != nil {
		t.Fatal(err)
	}
	server := &config.Server{Root: dir, Locations: []*config.Location{
		{Pattern: "/", Index: []string{"index.html"}},
	}}
	(&config.Tree{Servers: []*config.Server{server}}).Finalize()

	serverFd, clientFd := socketpair(t)
	sess := New(serverFd, "test", []*config.Server{server}, 8080)
	defer sess.Destroy()

	rt := &router.Router{ServerName: "webservd"}

	req := "GET / HTTP/1.1\r\nHost: localhost\r\n\r\n"
	if _, err := unix.Write(clientFd, []byte(req)); err != nil {
		t.Fatal(err)
	}

	// Give the kernel a moment to deliver the bytes to the other end of
	// the socketpair (usually instantaneous, but avoids flakiness under
	// load).
	time.Sleep(10 * time.Millisecond)

	if sess.HandleReadable(rt, "webservd") {
		t.Fatal("unexpected close on readable")
	}
	if !sess.HasPendingWrite() {
		t.Fatal("expected a response queued for write")
	}

	if sess.HandleWritable() {
		t.Fatal("unexpected close on writable for a keep-alive response")
	}
	if sess.HasPendingWrite() {
		t.Fatal("expected output buffer fully drained")
	}

	out := make([]byte, 4096)
	n, err := unix.Read(clientFd, out)
	if err != nil {
		t.Fatal(err)
	}
	got := string(out[:n])
	if !strings.HasPrefix(got, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("unexpected response: %q", got)
	}
	if !strings.Contains(got, "Hi") {
		t.Fatalf("expected body Hi in %q", got)
	}
	if sess.IdleEligible() != true {
		t.Error("expected session to be idle-eligible again after reset")
	}
}

func TestSessionMalformedRequestClosesAfterDrain(t *testing.T) {
	server := &config.Server{Root: t.TempDir(), Locations: []*config.Location{{Pattern: "/"}}}
	(&config.Tree{Servers: []*config.Server{server}}).Finalize()

	serverFd, clientFd := socketpair(t)
	sess := New(serverFd, "test", []*config.Server{server}, 80)
	defer sess.Destroy()

	rt := &router.Router{}
	req := "GET / HTTP/1.1\r\n\r\n" // missing Host under 1.1
	unix.Write(clientFd, []byte(req))
	time.Sleep(10 * time.Millisecond)

	sess.HandleReadable(rt, "webservd")
	if sess.HandleWritable() != true {
		t.Error("expected session to close after draining a malformed (400) response")
	}
}
