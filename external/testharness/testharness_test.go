package testharness

import "testing"

func TestGuestStartWait(t *testing.T) {
	g, err := Start("/bin/echo", []string{"hello"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	code, err := g.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code: got %d want 0", code)
	}
}

func TestGuestNonExistentBinary(t *testing.T) {
	if _, err := Start("/no/such/qemu-binary", nil); err == nil {
		t.Fatal("expected error starting a non-existent binary")
	}
}
