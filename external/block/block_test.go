package block

import "testing"

func TestRAMDiskRoundTrip(t *testing.T) {
	d := NewRAMDisk(512, 4)

	in := make([]byte, 512)
	for i := range in {
		in[i] = byte(i)
	}

	if err := d.WriteBlock(2, in); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	out := make([]byte, 512)
	if err := d.ReadBlock(2, out); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}

	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("byte %d: got %d want %d", i, out[i], in[i])
		}
	}
}

func TestRAMDiskOutOfRange(t *testing.T) {
	d := NewRAMDisk(512, 1)

	buf := make([]byte, 512)
	if err := d.ReadBlock(5, buf); err == nil {
		t.Fatal("expected error for out-of-range lba")
	}
}

func TestRAMDiskWrongBufferSize(t *testing.T) {
	d := NewRAMDisk(512, 1)

	if err := d.ReadBlock(0, make([]byte, 256)); err == nil {
		t.Fatal("expected error for mismatched buffer size")
	}
}
