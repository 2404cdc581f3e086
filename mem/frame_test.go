package mem

import (
	"runtime"
	"testing"
	"unsafe"
)

// Frame allocator disjointness: sequential AllocFrames calls never hand
// out overlapping ranges, and every returned range stays inside the pool.
func TestFrameAllocatorDisjointness(t *testing.T) {
	fa := NewFrameAllocator(0, 64)

	type span struct {
		addr uint64
		n    int
	}

	var spans []span
	counts := []int{1, 3, 2, 5, 1, 4}

	for _, n := range counts {
		addr, ok := fa.AllocFrames(n)
		if !ok {
			t.Fatalf("AllocFrames(%d): pool exhausted", n)
		}
		spans = append(spans, span{addr, n})
	}

	for i, a := range spans {
		aEnd := a.addr + uint64(a.n)*PageSize
		if a.addr < fa.base || aEnd > fa.base+uint64(fa.pageCount)*PageSize {
			t.Fatalf("span %d [%#x,%#x) escapes pool", i, a.addr, aEnd)
		}

		for j, b := range spans {
			if i == j {
				continue
			}
			bEnd := b.addr + uint64(b.n)*PageSize
			if a.addr < bEnd && b.addr < aEnd {
				t.Fatalf("span %d [%#x,%#x) overlaps span %d [%#x,%#x)", i, a.addr, aEnd, j, b.addr, bEnd)
			}
		}
	}
}

// Bitmap round-trip: alloc then free of a single frame restores the
// bitmap's word state and leaves PageCount and Allocated unchanged;
// HighWaterMark keeps the one-page peak the allocation reached.
func TestFrameAllocatorBitmapRoundTrip(t *testing.T) {
	fa := NewFrameAllocator(0, 64)

	before := make([]uint64, len(fa.bitmap))
	copy(before, fa.bitmap)
	statsBefore := fa.Stats()

	addr, ok := fa.AllocFrame()
	if !ok {
		t.Fatal("AllocFrame: pool exhausted")
	}

	if err := fa.FreeFrame(addr); err != nil {
		t.Fatalf("FreeFrame: %v", err)
	}

	for i := range before {
		if before[i] != fa.bitmap[i] {
			t.Fatalf("bitmap word %d: got %#x want %#x", i, fa.bitmap[i], before[i])
		}
	}

	want := statsBefore
	if want.Allocated+1 > want.HighWaterMark {
		want.HighWaterMark = want.Allocated + 1
	}

	statsAfter := fa.Stats()
	if statsAfter != want {
		t.Fatalf("stats changed: before=%+v after=%+v want=%+v", statsBefore, statsAfter, want)
	}
}

// Ownership of bitmap pages: the pages backing the bitmap itself are
// never handed out by any allocation sequence.
func TestFrameAllocatorNeverReturnsBitmapPages(t *testing.T) {
	fa := NewFrameAllocator(0, 512)

	bitmapPages := fa.allocated // set aside during NewFrameAllocator

	var got []uint64
	for {
		addr, ok := fa.AllocFrame()
		if !ok {
			break
		}
		got = append(got, addr)
	}

	for _, addr := range got {
		page := int((addr - fa.base) / PageSize)
		if page < bitmapPages {
			t.Fatalf("allocation returned bitmap-owned page %d (addr %#x)", page, addr)
		}
	}
}

// E2: allocate 4 contiguous frames, write a marker to each, free the
// last, allocate 1 frame, and verify it reuses the freed address while
// the three survivors keep their contents.
func TestFrameAllocatorE2Isolation(t *testing.T) {
	backing := make([]byte, 65*PageSize)
	fa := NewFrameAllocator(align4K(uint64(uintptr(unsafe.Pointer(&backing[0])))), 64)

	base, ok := fa.AllocFrames(4)
	if !ok {
		t.Fatal("AllocFrames(4): pool exhausted")
	}

	for i := 0; i < 4; i++ {
		buf := Bytes(base+uint64(i)*PageSize, PageSize)
		for j := range buf {
			buf[j] = 0xAA
		}
	}

	lastAddr := base + 3*PageSize
	if err := fa.FreeFrame(lastAddr); err != nil {
		t.Fatalf("FreeFrame: %v", err)
	}

	reused, ok := fa.AllocFrame()
	if !ok {
		t.Fatal("AllocFrame: pool exhausted")
	}
	if reused != lastAddr {
		t.Fatalf("reused addr: got %#x want %#x", reused, lastAddr)
	}

	for i := 0; i < 3; i++ {
		for j, v := range Bytes(base+uint64(i)*PageSize, PageSize) {
			if v != 0xAA {
				t.Fatalf("frame %d byte %d: got %#x want 0xaa", i, j, v)
			}
		}
	}

	runtime.KeepAlive(backing)
}
