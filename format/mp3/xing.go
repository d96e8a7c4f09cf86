package mp3

import (
	"github.com/sonatago/sonata/internal/mp3header"
)

var xingTagID = [4]byte{'X', 'i', 'n', 'g'}
var infoTagID = [4]byte{'I', 'n', 'f', 'o'}
var vbriTagID = [4]byte{'V', 'B', 'R', 'I'}

// infoTag is the parsed Xing/Info VBR header, grounded on
// symphonia-bundle-mp3's demuxer.rs try_read_info_tag_inner: a
// four-flag header (frame count / byte count / TOC / quality) plus an
// optional LAME extension carrying gapless encoder delay/padding.
type infoTag struct {
	numFrames  uint32
	hasFrames  bool
	encDelay   uint32
	encPadding uint32
	hasLame    bool
}

// isMaybeInfoTag does the cheap pre-check symphonia's demuxer does
// before fully parsing: side info must be all zero and the 4-byte ID
// must match, since Xing/Info tags are only ever placed in the first
// frame of a Layer III stream with an otherwise-silent payload.
func isMaybeInfoTag(buf []byte, h mp3header.Header) bool {
	if h.Layer != mp3header.Layer3 {
		return false
	}
	offset := mp3header.HeaderLen + h.SideInfoLen
	const minTagLen = 8
	if len(buf) < offset+minTagLen {
		return false
	}
	for _, b := range buf[mp3header.HeaderLen:offset] {
		if b != 0 {
			return false
		}
	}
	id := buf[offset : offset+4]
	return bytesEqual4(id, xingTagID) || bytesEqual4(id, infoTagID)
}

func tryReadInfoTag(buf []byte, h mp3header.Header) (infoTag, bool) {
	if !isMaybeInfoTag(buf, h) {
		return infoTag{}, false
	}
	offset := mp3header.HeaderLen + h.SideInfoLen
	p := offset + 4 // skip the 4-byte "Xing"/"Info" ID
	if p+4 > len(buf) {
		return infoTag{}, false
	}
	flags := beU32(buf[p : p+4])
	p += 4

	var tag infoTag
	if flags&0x1 != 0 {
		if p+4 > len(buf) {
			return infoTag{}, false
		}
		tag.numFrames = beU32(buf[p : p+4])
		tag.hasFrames = true
		p += 4
	}
	if flags&0x2 != 0 {
		p += 4 // num_bytes, unused
	}
	if flags&0x4 != 0 {
		p += 100 // TOC, unused by this reader (coarse seek recomputes positions directly)
	}
	if flags&0x8 != 0 {
		p += 4 // quality, unused
	}

	// LAME extension: encoder tag (9 bytes) + revision/lowpass (2) +
	// replaygain peak (4) + two replaygain fields (4) + flags/ABR (2)
	// + 24-bit delay/padding trim field, minimum 24 bytes total past
	// the base tag per symphonia's MIN_LAME_EXT_LEN.
	const minLameLen = 24
	if p+minLameLen <= len(buf) {
		encoder := buf[p : p+4]
		trimOffset := p + 9 + 2 + 4 + 2 + 2 + 2
		if trimOffset+3 <= len(buf) {
			trim := uint32(buf[trimOffset])<<16 | uint32(buf[trimOffset+1])<<8 | uint32(buf[trimOffset+2])
			if isLameEncoder(encoder) {
				delay := 528 + 1 + (trim >> 12)
				padding := trim & ((1 << 12) - 1)
				if padding >= 528+1 {
					padding -= 528 + 1
				} else {
					padding = 0
				}
				tag.encDelay = delay
				tag.encPadding = padding
				tag.hasLame = true
			}
		}
	}

	return tag, true
}

func isLameEncoder(tag []byte) bool {
	for _, prefix := range [][]byte{[]byte("LAME"), []byte("Lavf"), []byte("Lavc")} {
		if len(tag) >= 4 && bytesEqual(tag[:4], prefix) {
			return true
		}
	}
	return false
}

// vbriTag is the parsed Fraunhofer VBRI header.
type vbriTag struct {
	numMpegFrames uint32
}

const vbriTagOffset = mp3header.HeaderLen + 32

func isMaybeVbriTag(buf []byte, h mp3header.Header) bool {
	if h.Layer != mp3header.Layer3 {
		return false
	}
	const minVbriLen = 26
	if len(buf) < vbriTagOffset+minVbriLen {
		return false
	}
	for _, b := range buf[mp3header.HeaderLen:vbriTagOffset] {
		if b != 0 {
			return false
		}
	}
	return bytesEqual4(buf[vbriTagOffset:vbriTagOffset+4], vbriTagID)
}

func tryReadVbriTag(buf []byte, h mp3header.Header) (vbriTag, bool) {
	if !isMaybeVbriTag(buf, h) {
		return vbriTag{}, false
	}
	p := vbriTagOffset + 4
	if p+2 > len(buf) {
		return vbriTag{}, false
	}
	version := beU16(buf[p : p+2])
	if version != 1 {
		return vbriTag{}, false
	}
	p += 2 + 2 + 2 // version, delay, quality
	p += 4         // num_bytes
	if p+4 > len(buf) {
		return vbriTag{}, false
	}
	return vbriTag{numMpegFrames: beU32(buf[p : p+4])}, true
}

func bytesEqual4(a []byte, b [4]byte) bool {
	return len(a) == 4 && a[0] == b[0] && a[1] == b[1] && a[2] == b[2] && a[3] == b[3]
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func beU16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
func beU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
