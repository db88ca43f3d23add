package format

import (
	"errors"
	"testing"
)

func TestPackUnpackTag(t *testing.T) {
	cases := []struct {
		size      int
		allocated bool
		want      uint64
	}{
		{32, false, 0x20},
		{32, true, 0x21},
		{4096, true, 0x1001},
		{1 << 24, false, 1 << 24},
	}
	for _, c := range cases {
		got := PackTag(c.size, c.allocated)
		if got != c.want {
			t.Fatalf("PackTag(%d, %v) = %#x, want %#x", c.size, c.allocated, got, c.want)
		}
		tag := UnpackTag(got)
		if tag.Size != c.size || tag.Allocated != c.allocated {
			t.Fatalf("UnpackTag(%#x) = %+v", got, tag)
		}
	}
}

func TestPackTagDropsLowBits(t *testing.T) {
	// Sizes are multiples of 8; stray low bits must never leak into the flag.
	tag := UnpackTag(PackTag(41, false))
	if tag.Size != 40 || tag.Allocated {
		t.Fatalf("unexpected tag: %+v", tag)
	}
}

func TestAlign8(t *testing.T) {
	for in, want := range map[int]int{0: 0, 1: 8, 7: 8, 8: 8, 9: 16, 4095: 4096} {
		if got := Align8(in); got != want {
			t.Fatalf("Align8(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestBlockSizeFor(t *testing.T) {
	for in, want := range map[int]int{0: 32, 8: 32, 9: 40, 24: 48, 100: 128, 4072: 4096} {
		if got := BlockSizeFor(in); got != want {
			t.Fatalf("BlockSizeFor(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestWriteAndReadBlock(t *testing.T) {
	b := make([]byte, 256)
	WriteTags(b, 64, 96, true)

	tag, err := ReadBlock(b, 64)
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if tag.Size != 96 || !tag.Allocated {
		t.Fatalf("unexpected tag: %+v", tag)
	}

	ftr, err := ReadTagAt(b, 64+96-WordSize)
	if err != nil {
		t.Fatalf("ReadTagAt: %v", err)
	}
	if ftr != tag {
		t.Fatalf("footer %+v != header %+v", ftr, tag)
	}
	if PayloadStart(64) != 80 || BlockStart(80) != 64 {
		t.Fatalf("payload mapping broken")
	}
	if UsableSize(96) != 72 {
		t.Fatalf("UsableSize(96) = %d", UsableSize(96))
	}
}

func TestReadBlockMismatch(t *testing.T) {
	b := make([]byte, 128)
	WriteTags(b, 0, 64, true)
	PutU64(b, FooterOffset(0, 64), PackTag(64, false))

	_, err := ReadBlock(b, 0)
	if !errors.Is(err, ErrTagMismatch) {
		t.Fatalf("expected ErrTagMismatch, got %v", err)
	}
}

func TestReadBlockTruncated(t *testing.T) {
	b := make([]byte, 64)
	PutU64(b, HeaderOffset, PackTag(128, true))

	_, err := ReadBlock(b, 0)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestReadBlockBadSize(t *testing.T) {
	b := make([]byte, 64)
	PutU64(b, HeaderOffset, PackTag(16, true))

	_, err := ReadBlock(b, 0)
	if !errors.Is(err, ErrBadSize) {
		t.Fatalf("expected ErrBadSize, got %v", err)
	}
}

func TestLinkRoundTrip(t *testing.T) {
	b := make([]byte, 64)
	WriteLink(b, 32, NoLink)
	if ReadLink(b, 32) != NoLink {
		t.Fatalf("link not terminated")
	}
	WriteLink(b, 32, 4096)
	if ReadLink(b, 32) != 4096 {
		t.Fatalf("link not stored")
	}
}
