//go:build unix

// Package cgi implements the CGI subsystem: environment construction,
// asynchronous fork/exec of the interpreter, and parsing of the
// child's output into an HTTP response. Children are started with
// os.StartProcess so their stdio can be wired to plain pipe fds the
// reactor can poll; golang.org/x/sys/unix supplies the non-blocking
// reap.
package cgi

import (
	"errors"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// ErrInterpreterMissing is returned by Start when the interpreter binary
// cannot be found; callers translate this to a 404.
var ErrInterpreterMissing = errors.New("cgi: interpreter not found")

// Process is a running (or just-exited) CGI child. The reactor owns its
// output pipe fd for readiness registration; the session accumulates
// bytes read from it until EOF, then calls Reap.
type Process struct {
	Pid int

	// Stdout is the read end of the child's stdout pipe. Its Fd() is
	// what gets registered with the poller.
	Stdout *os.File
}

// Start resolves interpreter on PATH (or as a literal path), forks a
// child with argv = [interpreter, scriptPath] and the given environment,
// writes body to its stdin, and closes the stdin pipe. It does not wait
// for the child: control returns to the reactor immediately so the
// child's output can be drained asynchronously via Stdout.
func Start(interpreter, scriptPath string, env []string, body []byte) (*Process, error) {
	resolved, err := exec.LookPath(interpreter)
	if err != nil {
		return nil, ErrInterpreterMissing
	}

	stdinRead, stdinWrite, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	stdoutRead, stdoutWrite, err := os.Pipe()
	if err != nil {
		stdinRead.Close()
		stdinWrite.Close()
		return nil, err
	}

	attr := &os.ProcAttr{
		Env:   env,
		Files: []*os.File{stdinRead, stdoutWrite, os.Stderr},
	}
	proc, err := os.StartProcess(resolved, []string{resolved, scriptPath}, attr)

	// The child's ends are only needed in the child; once exec'd (or on
	// failure to start) the parent closes its copies.
	stdinRead.Close()
	stdoutWrite.Close()

	if err != nil {
		stdinWrite.Close()
		stdoutRead.Close()
		return nil, err
	}

	// A failed body write (child exited early, EPIPE) is not fatal: the
	// child may still produce output, and either way the reactor will
	// observe EOF on stdout and reap normally.
	_ = writeAllTolerant(stdinWrite, body)
	stdinWrite.Close()

	return &Process{Pid: proc.Pid, Stdout: stdoutRead}, nil
}

// writeAllTolerant writes body to f in full, retrying on EINTR and
// short writes, matching the upload handler's write loop.
func writeAllTolerant(f *os.File, body []byte) error {
	for len(body) > 0 {
		n, err := f.Write(body)
		body = body[n:]
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
	}
	return nil
}

// ReadChunk reads up to len(buf) bytes of the child's output. io.EOF
// signals the child has closed its stdout; the caller should then call
// Reap.
func (p *Process) ReadChunk(buf []byte) (int, error) {
	return p.Stdout.Read(buf)
}

// Close releases the read end of the output pipe. It must be called
// exactly once, after the pipe fd is deregistered from the poller.
func (p *Process) Close() error {
	return p.Stdout.Close()
}

// Reap performs a non-blocking wait for the child so it never lingers
// as a zombie. It is called exactly once, on observing EOF on the
// child's output pipe. EOF on stdout
// normally follows the child's own exit, so the WNOHANG wait usually
// succeeds immediately; the rare straggler (child closed stdout but
// hasn't finished exiting) is reaped with one blocking wait rather than
// leaving a zombie behind.
func (p *Process) Reap() error {
	var ws unix.WaitStatus
	for {
		pid, err := unix.Wait4(p.Pid, &ws, unix.WNOHANG, nil)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		if pid == p.Pid {
			return nil
		}
		_, err = unix.Wait4(p.Pid, &ws, 0, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return err
	}
}
