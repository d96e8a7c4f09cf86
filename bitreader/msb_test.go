package bitreader

import (
	"bytes"
	"testing"
)

func TestSignExtend32(t *testing.T) {
	golden := []struct {
		v    uint32
		n    uint
		want int32
	}{
		{v: 0xF, n: 4, want: -1},
		{v: 0x7, n: 4, want: 7},
		{v: 0x0, n: 4, want: 0},
		{v: 0x40, n: 7, want: -64},
	}
	for _, g := range golden {
		if got := SignExtend32(g.v, g.n); got != g.want {
			t.Errorf("SignExtend32(0x%X, %d) = %d, want %d", g.v, g.n, got, g.want)
		}
	}
}

func TestReaderReadBits(t *testing.T) {
	// Source [0xA5, 0x7E, 0xD3]: reads of 4, 4, 13, 3 bits yield
	// 0xA, 0x5, 0x0FDA, 0x3, per spec.md end-to-end scenario 4.
	r := New(bytes.NewReader([]byte{0xA5, 0x7E, 0xD3}))
	golden := []struct {
		n    uint
		want uint32
	}{
		{4, 0xA},
		{4, 0x5},
		{13, 0x0FDA},
		{3, 0x3},
	}
	for i, g := range golden {
		got, err := r.ReadBitsLEQ32(g.n)
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		if got != g.want {
			t.Errorf("step %d: ReadBitsLEQ32(%d) = 0x%X, want 0x%X", i, g.n, got, g.want)
		}
	}
}

func TestReadUnaryZeros(t *testing.T) {
	// 0b00000001 00000001 -> first unary run has 7 leading zeros before the
	// terminating 1, second run has 7 more.
	r := New(bytes.NewReader([]byte{0x01, 0x01}))
	for i := 0; i < 2; i++ {
		n, err := r.ReadUnaryZeros()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 7 {
			t.Errorf("run %d: got %d leading zeros, want 7", i, n)
		}
	}
}

func TestRealignNoPendingBits(t *testing.T) {
	r := New(bytes.NewReader([]byte{0xFF, 0x00}))
	if _, err := r.ReadBitsLEQ32(3); err != nil {
		t.Fatal(err)
	}
	r.Realign()
	// After realigning, the next read must come from the second byte.
	v, err := r.ReadBitsLEQ32(8)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x00 {
		t.Errorf("got 0x%X after realign, want 0x00", v)
	}
}
