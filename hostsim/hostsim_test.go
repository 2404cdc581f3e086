package hostsim

import (
	"testing"

	"github.com/usbarmory/virtcore/mem"
)

func TestArenaBacksFrameAllocator(t *testing.T) {
	const size = 1 << 20 // 1 MiB

	a, err := NewArena(size)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()

	layout := mem.ComputeLayout(a.Base(), a.Size(), a.Base(), a.Base()+4096)

	poolPages := int(layout.FramePoolSize / mem.PageSize)
	fa := mem.NewFrameAllocator(layout.FramePoolStart, poolPages)

	addr, ok := fa.AllocFrames(2)
	if !ok {
		t.Fatal("AllocFrames: pool exhausted")
	}

	buf := mem.Bytes(addr, 2*mem.PageSize)
	for i := range buf {
		buf[i] = byte(i)
	}

	for i := range buf {
		if buf[i] != byte(i) {
			t.Fatalf("byte %d: got %d want %d", i, buf[i], byte(i))
		}
	}

	if err := fa.FreeFrames(addr, 2); err != nil {
		t.Fatalf("FreeFrames: %v", err)
	}
}

func TestArenaBacksHeap(t *testing.T) {
	const size = 1 << 20

	a, err := NewArena(size)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()

	h := mem.NewHeap(a.Base(), a.Size())

	addr, err := h.Alloc(128, 16)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	buf := mem.Bytes(addr, 128)
	copy(buf, []byte("hostsim"))

	if string(buf[:7]) != "hostsim" {
		t.Fatalf("got %q", buf[:7])
	}

	if err := h.Dealloc(addr); err != nil {
		t.Fatalf("Dealloc: %v", err)
	}
}
