//go:build linux || darwin

package poller

import (
	"os"
	"testing"
	"time"
)

func TestPollerReportsReadable(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	p, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	rfd := int(r.Fd())
	if err := p.Add(rfd, false); err != nil {
		t.Fatal(err)
	}

	if _, err := w.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}

	events, err := p.Wait(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, e := range events {
		if e.Fd == rfd && e.Readable {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %d to be reported readable, got %+v", rfd, events)
	}
}

func TestPollerRemoveStopsReporting(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	p, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	rfd := int(r.Fd())
	if err := p.Add(rfd, false); err != nil {
		t.Fatal(err)
	}
	if err := p.Remove(rfd); err != nil {
		t.Fatal(err)
	}

	w.Write([]byte("x"))

	events, err := p.Wait(50 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range events {
		if e.Fd == rfd {
			t.Fatalf("removed fd %d unexpectedly reported: %+v", rfd, e)
		}
	}
}
