package logring

import "testing"

type fakeGuard struct {
	held bool
}

func (g *fakeGuard) EnterLogging() bool {
	if g.held {
		return false
	}
	g.held = true
	return true
}

func (g *fakeGuard) ExitLogging() {
	g.held = false
}

func TestLoggerFormatsAndDrains(t *testing.T) {
	l := New(64)
	g := &fakeGuard{}

	l.Printf(g, Info, "hello %d", 42)

	out := string(l.Drain())
	if out != "INFO: hello 42\n" {
		t.Fatalf("got %q", out)
	}

	if out2 := string(l.Drain()); out2 != "" {
		t.Fatalf("second drain not empty: %q", out2)
	}
}

func TestLoggerDropsOnRecursion(t *testing.T) {
	l := New(64)
	g := &fakeGuard{held: true}

	l.Printf(g, Error, "should be dropped")

	if out := string(l.Drain()); out != "" {
		t.Fatalf("expected dropped line, got %q", out)
	}
}

func TestLoggerWrapsRing(t *testing.T) {
	l := New(8)
	g := &fakeGuard{}

	l.Printf(g, Debug, "abcdefghij")

	out := l.Drain()
	if len(out) != 8 {
		t.Fatalf("expected ring to cap at 8 bytes, got %d", len(out))
	}
}
