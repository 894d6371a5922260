package loader

import (
	"math/big"
	"testing"
)

func TestBitReaderReadBits(t *testing.T) {
	r := &bitReader{src: []byte{0b10110000}}
	v, err := r.readBits(4)
	if err != nil {
		t.Fatalf("readBits(4): %v", err)
	}
	if v != 0b1011 {
		t.Errorf("readBits(4) = %b, want %b", v, 0b1011)
	}
}

func TestBitReaderReadBitsAcrossBytes(t *testing.T) {
	r := &bitReader{src: []byte{0x0f, 0xf0}}
	v, err := r.readBits(12)
	if err != nil {
		t.Fatalf("readBits(12): %v", err)
	}
	if v != 0x0ff {
		t.Errorf("readBits(12) = %#x, want %#x", v, 0x0ff)
	}
}

func TestBitReaderReadBitsEOF(t *testing.T) {
	r := &bitReader{src: []byte{0xff}}
	r.bitPos = 8
	if _, err := r.readBits(1); err == nil {
		t.Error("readBits past the end of input: want error, got nil")
	}
}

func TestBitReaderAlignToByte(t *testing.T) {
	r := &bitReader{src: []byte{0xff, 0xff}}
	r.bitPos = 3
	r.alignToByte()
	if r.bitPos != 8 {
		t.Errorf("bitPos after align = %d, want 8", r.bitPos)
	}
	r.alignToByte()
	if r.bitPos != 8 {
		t.Errorf("aligning an already-aligned position moved it to %d, want unchanged 8", r.bitPos)
	}
}

func TestBitReaderReadWordSingleGroup(t *testing.T) {
	r := &bitReader{src: []byte{0x05}}
	v, err := r.readWord()
	if err != nil {
		t.Fatalf("readWord: %v", err)
	}
	if v != 5 {
		t.Errorf("readWord() = %d, want 5", v)
	}
}

func TestBitReaderReadWordMultiGroup(t *testing.T) {
	// 0x80 | 0x01 continues with a second group of 0x02: (1) | (2<<7) = 257
	r := &bitReader{src: []byte{0x81, 0x02}}
	v, err := r.readWord()
	if err != nil {
		t.Fatalf("readWord: %v", err)
	}
	if v != 257 {
		t.Errorf("readWord() = %d, want 257", v)
	}
}

func TestBitReaderReadByteBlocks(t *testing.T) {
	// one 2-byte chunk {0xaa, 0xbb}, then a zero-length terminator
	r := &bitReader{src: []byte{0x02, 0xaa, 0xbb, 0x00}}
	out, err := r.readByteBlocks()
	if err != nil {
		t.Fatalf("readByteBlocks: %v", err)
	}
	if len(out) != 2 || out[0] != 0xaa || out[1] != 0xbb {
		t.Errorf("readByteBlocks() = %v, want [0xaa 0xbb]", out)
	}
}

func TestZigzagDecodeBig(t *testing.T) {
	cases := []struct {
		in   int64
		want int64
	}{
		{0, 0},
		{1, -1},
		{2, 1},
		{3, -2},
		{4, 2},
	}
	for _, c := range cases {
		got := zigzagDecodeBig(big.NewInt(c.in))
		if got.Cmp(big.NewInt(c.want)) != 0 {
			t.Errorf("zigzagDecodeBig(%d) = %s, want %d", c.in, got, c.want)
		}
	}
}
