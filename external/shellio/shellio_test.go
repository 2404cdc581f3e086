package shellio

import (
	"errors"
	"os"
	"testing"
)

// TestNewConsole is skipped when stdin is not a terminal, which is the
// case under "go test" since it redirects standard streams.
func TestNewConsole(t *testing.T) {
	c, err := NewConsole(int(os.Stdin.Fd()))
	if errors.Is(err, ErrNoTTY) {
		t.Skipf("error: %s", err)
	}
	if err != nil {
		t.Fatalf("NewConsole: %v", err)
	}

	if err := c.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
}
