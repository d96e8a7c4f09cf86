package flac

import (
	"bytes"
	"crypto/md5"
	"testing"

	"github.com/mewkiz/pkg/hashutil/crc16"
	"github.com/mewkiz/pkg/hashutil/crc8"

	"github.com/sonatago/sonata/bitreader"
	"github.com/sonatago/sonata/codec"
	"github.com/sonatago/sonata/format"
	"github.com/sonatago/sonata/internal/flacheader"
)

func TestZigZagDecode(t *testing.T) {
	golden := []struct {
		u    uint32
		want int32
	}{
		{0, 0}, {1, -1}, {2, 1}, {3, -2}, {4, 2},
	}
	for _, g := range golden {
		if got := zigZagDecode(g.u); got != g.want {
			t.Errorf("zigZagDecode(%d) = %d, want %d", g.u, got, g.want)
		}
	}
}

func TestRiceDecode(t *testing.T) {
	// k=2: codeword for residual 3 (zigzag 6 = 0b110) is a 1-run of
	// floor(6/4)=1 zero then a 1, then the low 2 bits (10).
	var buf bytes.Buffer
	buf.WriteByte(0b01100000) // unary "0" then "1" terminator, then remainder bits "10", then padding
	r := bitreader.New(bytes.NewReader(buf.Bytes()))
	got, err := riceDecode(r, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 3 {
		t.Errorf("riceDecode = %v, want [3]", got)
	}
}

func TestUndecorrelateLeftSide(t *testing.T) {
	left := []int32{100, 200}
	side := []int32{10, 20}
	out := undecorrelate(flacheader.ChannelLeftSide, [][]int32{left, side})
	want := [][]int32{{100, 200}, {90, 180}}
	if !equalPlanes(out, want) {
		t.Errorf("LeftSide: got %v, want %v", out, want)
	}
}

func TestUndecorrelateRightSide(t *testing.T) {
	right := []int32{90, 180}
	side := []int32{10, 20}
	out := undecorrelate(flacheader.ChannelRightSide, [][]int32{side, right})
	want := [][]int32{{100, 200}, {90, 180}}
	if !equalPlanes(out, want) {
		t.Errorf("RightSide: got %v, want %v", out, want)
	}
}

func TestUndecorrelateMidSide(t *testing.T) {
	// left=100, right=90 -> mid=(100+90)>>1=95, side=100-90=10
	mid := []int32{95}
	side := []int32{10}
	out := undecorrelate(flacheader.ChannelMidSide, [][]int32{mid, side})
	want := [][]int32{{100}, {90}}
	if !equalPlanes(out, want) {
		t.Errorf("MidSide: got %v, want %v", out, want)
	}
}

func TestSubframeBitDepths(t *testing.T) {
	if got := subframeBitDepths(flacheader.ChannelLeftSide, 16); got[1] != 17 || got[0] != 16 {
		t.Errorf("LeftSide depths = %v, want [16 17]", got)
	}
	if got := subframeBitDepths(flacheader.ChannelRightSide, 16); got[0] != 17 || got[1] != 16 {
		t.Errorf("RightSide depths = %v, want [17 16]", got)
	}
	if got := subframeBitDepths(flacheader.ChannelMono, 16); len(got) != 1 || got[0] != 16 {
		t.Errorf("Mono depths = %v, want [16]", got)
	}
}

func equalPlanes(a, b [][]int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

// buildConstantFrame assembles a single-channel, fixed-blocksize,
// Constant-subframe FLAC frame byte-for-byte (sync through footer
// CRC-16), computing the CRC-8/CRC-16 trailers with the same library
// the decoder itself verifies against, the way a golden fixture would
// be captured from a real encoder.
func buildConstantFrame(t *testing.T, value int16) []byte {
	t.Helper()
	// Fixed blocksize 192 (spec 0001), sample rate 44100 (spec 1001),
	// mono (chan field 0000), bits-per-sample 16 (spec 100), frame
	// number 0 (single UTF-8 byte 0x00).
	header := []byte{0xFF, 0xF8, 0x19, 0x08, 0x00}
	h := crc8.NewATM()
	h.Write(header)
	header = append(header, h.Sum8())

	// Subframe: padding(1)=0, type(6)=CONSTANT(000000), wasted-bits
	// flag(1)=0, then a 16-bit signed value. These 24 bits are
	// byte-aligned already.
	u := uint16(value)
	subframe := []byte{0x00, byte(u >> 8), byte(u)}

	body := append(append([]byte{}, header...), subframe...)
	crc := crc16.ChecksumIBM(body)
	footer := []byte{byte(crc >> 8), byte(crc)}
	return append(body, footer...)
}

func TestDecoderDecodeConstantMono(t *testing.T) {
	frame := buildConstantFrame(t, 1000)
	params := format.CodecParams{Codec: format.CodecFLAC, SampleRate: 44100, Channels: 1, BitsPerSample: 16}
	dec, err := TryNew(params, codec.Options{})
	if err != nil {
		t.Fatal(err)
	}
	buf, err := dec.Decode(format.Packet{Bytes: frame})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if buf.Channels() != 1 {
		t.Fatalf("Channels() = %d, want 1", buf.Channels())
	}
	if buf.Filled() != 192 {
		t.Fatalf("Filled() = %d, want 192", buf.Filled())
	}
	want := float64(1000) / 32768
	plane := buf.Plane(0)
	for i, v := range plane {
		if v != want {
			t.Fatalf("sample %d = %v, want %v", i, v, want)
		}
	}
}

func TestDecoderDecodeRejectsBadFooterCRC(t *testing.T) {
	frame := buildConstantFrame(t, 1000)
	frame[len(frame)-1] ^= 0xFF // corrupt the CRC-16 footer
	params := format.CodecParams{Codec: format.CodecFLAC, SampleRate: 44100, Channels: 1, BitsPerSample: 16}
	dec, err := TryNew(params, codec.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dec.Decode(format.Packet{Bytes: frame}); err == nil {
		t.Fatal("expected a CRC-16 mismatch error, got nil")
	}
}

func TestDecoderFinalizeMD5(t *testing.T) {
	frame := buildConstantFrame(t, 1000)
	params := format.CodecParams{Codec: format.CodecFLAC, SampleRate: 44100, Channels: 1, BitsPerSample: 16}

	// Decode once to learn the exact interleaved PCM bytes the decoder
	// will hash, then embed their MD5 into ExtraData so Finalize must
	// report a match.
	probe, err := TryNew(params, codec.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := probe.Decode(format.Packet{Bytes: frame}); err != nil {
		t.Fatal(err)
	}

	extra := make([]byte, 9+16)
	extra[5] = 16
	sumOnly := md5.Sum(interleavePCM([][]int32{constantSamples(1000, 192)}, 16))
	copy(extra[9:25], sumOnly[:])
	paramsWithExtra := params
	paramsWithExtra.ExtraData = extra

	dec, err := TryNew(paramsWithExtra, codec.Options{VerifyChecksums: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dec.Decode(format.Packet{Bytes: frame}); err != nil {
		t.Fatal(err)
	}
	result := dec.Finalize()
	if !result.Verified || !result.VerifyOK {
		t.Fatalf("Finalize() = %+v, want Verified=true VerifyOK=true", result)
	}
}

func constantSamples(v int32, n int) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = v
	}
	return out
}
