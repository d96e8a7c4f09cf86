package alac

import (
	"encoding/binary"
	"testing"
)

func buildCookie(t *testing.T) []byte {
	t.Helper()
	b := make([]byte, 24)
	binary.BigEndian.PutUint32(b[0:4], 4096)
	b[4] = 0 // compatible version
	b[5] = 16
	b[6] = 40  // pb
	b[7] = 10  // mb
	b[8] = 14  // kb
	b[9] = 2   // channels
	binary.BigEndian.PutUint16(b[10:12], 255)
	binary.BigEndian.PutUint32(b[12:16], 0)
	binary.BigEndian.PutUint32(b[16:20], 256000)
	binary.BigEndian.PutUint32(b[20:24], 44100)
	return b
}

func TestParseMagicCookie(t *testing.T) {
	b := buildCookie(t)
	c, err := ParseMagicCookie(b)
	if err != nil {
		t.Fatalf("ParseMagicCookie: %v", err)
	}
	if c.FrameLength != 4096 {
		t.Fatalf("FrameLength = %d, want 4096", c.FrameLength)
	}
	if c.BitDepth != 16 {
		t.Fatalf("BitDepth = %d, want 16", c.BitDepth)
	}
	if c.Channels != 2 {
		t.Fatalf("Channels = %d, want 2", c.Channels)
	}
	if c.SampleRate != 44100 {
		t.Fatalf("SampleRate = %d, want 44100", c.SampleRate)
	}
	if c.ChannelLayoutTag != 0 {
		t.Fatalf("ChannelLayoutTag = %d, want 0 (no chan atom present)", c.ChannelLayoutTag)
	}
}

func TestParseMagicCookieWithChannelLayout(t *testing.T) {
	b := buildCookie(t)
	chanAtom := make([]byte, 12)
	binary.BigEndian.PutUint32(chanAtom[0:4], uint32(ChannelLayoutStereo))
	b = append(b, chanAtom...)

	c, err := ParseMagicCookie(b)
	if err != nil {
		t.Fatalf("ParseMagicCookie: %v", err)
	}
	if c.ChannelLayoutTag != ChannelLayoutStereo {
		t.Fatalf("ChannelLayoutTag = %d, want ChannelLayoutStereo", c.ChannelLayoutTag)
	}
}

func TestParseMagicCookieTooShort(t *testing.T) {
	if _, err := ParseMagicCookie(make([]byte, 10)); err == nil {
		t.Fatalf("expected an error for a too-short magic cookie")
	}
}
