package meta

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/sonatago/sonata/bstream"
)

func encodeVorbisComment(vendor string, fields []string) []byte {
	var buf []byte
	putU32 := func(v uint32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		buf = append(buf, b[:]...)
	}
	putU32(uint32(len(vendor)))
	buf = append(buf, vendor...)
	putU32(uint32(len(fields)))
	for _, f := range fields {
		putU32(uint32(len(f)))
		buf = append(buf, f...)
	}
	return buf
}

func TestParseVorbisCommentBasicTags(t *testing.T) {
	data := encodeVorbisComment("sonata test", []string{
		"ARTIST=Test Artist",
		"TITLE=Test Title",
		"UNKNOWN_FIELD=value",
	})
	rev, vendor, err := ParseVorbisComment(bstream.New(byteReader(data)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vendor != "sonata test" {
		t.Fatalf("vendor = %q", vendor)
	}
	if len(rev.Tags) != 3 {
		t.Fatalf("got %d tags, want 3", len(rev.Tags))
	}
	if rev.Tags[0].Standard != Artist || rev.Tags[0].RawValue != "Test Artist" {
		t.Errorf("artist tag = %+v", rev.Tags[0])
	}
	if rev.Tags[2].Standard != StandardNone {
		t.Errorf("unknown field should not map to a standard tag: %+v", rev.Tags[2])
	}
}

func TestParseVorbisCommentChapter(t *testing.T) {
	data := encodeVorbisComment("v", []string{
		"CHAPTER001=00:01:23.500",
		"CHAPTER001NAME=Intro",
	})
	rev, _, err := ParseVorbisComment(bstream.New(byteReader(data)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rev.Chapters) != 1 {
		t.Fatalf("got %d chapters, want 1", len(rev.Chapters))
	}
	ch := rev.Chapters[0]
	if ch.Start != (Timestamp{Minutes: 1, Seconds: 23, Nanos: 500000000}) {
		t.Errorf("chapter start = %+v", ch.Start)
	}
	if len(ch.Tags) != 1 || ch.Tags[0].RawValue != "Intro" {
		t.Errorf("chapter fields = %+v", ch.Tags)
	}
}

type byteReaderT struct {
	b []byte
	i int
}

func byteReader(b []byte) *byteReaderT { return &byteReaderT{b: b} }

func (r *byteReaderT) Read(p []byte) (int, error) {
	if r.i >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.i:])
	r.i += n
	return n, nil
}
