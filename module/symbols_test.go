package module

import "testing"

func TestSymbolTableRegisterLookupUnregister(t *testing.T) {
	tab := NewSymbolTable()

	if _, ok := tab.Lookup("kernel_print"); ok {
		t.Fatal("expected miss on empty table")
	}

	tab.Register("kernel_print", 0xffff0000)

	addr, ok := tab.Lookup("kernel_print")
	if !ok || addr != 0xffff0000 {
		t.Fatalf("got (%#x, %v) want (%#x, true)", addr, ok, 0xffff0000)
	}

	tab.Unregister("kernel_print")

	if _, ok := tab.Lookup("kernel_print"); ok {
		t.Fatal("expected miss after Unregister")
	}
}

func TestSymbolTableRegisterOverwrites(t *testing.T) {
	tab := NewSymbolTable()

	tab.Register("sym", 1)
	tab.Register("sym", 2)

	addr, ok := tab.Lookup("sym")
	if !ok || addr != 2 {
		t.Fatalf("got (%#x, %v) want (2, true)", addr, ok)
	}
}
