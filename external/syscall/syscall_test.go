package syscall

import "testing"

func TestDispatchRegistered(t *testing.T) {
	d := NewDispatcher()
	d.Register(SysWrite, func(args [6]uint64) int64 {
		return int64(args[2])
	})

	rc, err := d.Dispatch(SysWrite, [6]uint64{0, 0, 7})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if rc != 7 {
		t.Fatalf("got %d want 7", rc)
	}
}

func TestDispatchUnregistered(t *testing.T) {
	d := NewDispatcher()

	rc, err := d.Dispatch(SysRead, [6]uint64{})
	if err == nil {
		t.Fatal("expected error for unregistered syscall")
	}
	if rc >= 0 {
		t.Fatalf("expected negative errno, got %d", rc)
	}
}
