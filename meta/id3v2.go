package meta

import (
	"bytes"
	"unicode/utf16"

	"github.com/sonatago/sonata/bstream"
	"github.com/sonatago/sonata/sonataerr"
)

// id3v2TextKeys maps ID3v2.3/2.4 four-character frame IDs (and their
// ID3v2.2 three-character equivalents) to the closed StandardTag sum.
var id3v2TextKeys = map[string]StandardTag{
	"TPE1": Artist, "TP1": Artist,
	"TALB": Album, "TAL": Album,
	"TPE2": AlbumArtist,
	"TIT2": TrackTitle, "TT2": TrackTitle,
	"TRCK": TrackNumber, "TRK": TrackNumber,
	"TYER": Date, "TDRC": Date, "TYE": Date,
	"TCON": Genre, "TCO": Genre,
	"TCOM": Composer, "TCM": Composer,
	"TENC": Encoder, "TEN": Encoder,
	"TSRC": Isrc,
}

// ID3v2Header is the 10-byte tag header common to v2.2/2.3/2.4.
type ID3v2Header struct {
	MajorVersion byte
	Flags        byte
	Size         uint32 // syncsafe-decoded, excludes the 10-byte header itself
}

// ParseID3v2 reads an "ID3" tag starting at the current stream position
// (the "ID3" marker itself must already have been consumed by the
// caller/probe) and folds its text frames into a Revision. Per spec.md
// §9(iii) and §7, the data-length-indicator flag is parsed and discarded,
// and encrypted or compressed frames surface as Unsupported rather than
// being silently skipped.
func ParseID3v2(s *bstream.Stream) (Revision, error) {
	hdr, err := parseID3v2Header(s)
	if err != nil {
		return Revision{}, err
	}

	body := make([]byte, hdr.Size)
	if err := s.ReadFull(body); err != nil {
		return Revision{}, err
	}

	rev := Revision{}
	if hdr.MajorVersion == 2 {
		parseID3v22Frames(body, &rev)
	} else if err := parseID3v23Or4Frames(body, hdr.MajorVersion, &rev); err != nil {
		return Revision{}, err
	}
	return rev, nil
}

func parseID3v2Header(s *bstream.Stream) (ID3v2Header, error) {
	major, err := s.ReadU8()
	if err != nil {
		return ID3v2Header{}, err
	}
	if _, err := s.ReadU8(); err != nil { // revision, ignored
		return ID3v2Header{}, err
	}
	flags, err := s.ReadU8()
	if err != nil {
		return ID3v2Header{}, err
	}
	size, err := s.ReadSyncSafeU32()
	if err != nil {
		return ID3v2Header{}, err
	}
	return ID3v2Header{MajorVersion: major, Flags: flags, Size: size}, nil
}

func parseID3v22Frames(body []byte, rev *Revision) {
	for len(body) >= 6 {
		id := string(body[0:3])
		size := uint32(body[3])<<16 | uint32(body[4])<<8 | uint32(body[5])
		body = body[6:]
		if id == "\x00\x00\x00" || uint32(len(body)) < size {
			return
		}
		payload := body[:size]
		body = body[size:]
		if id[0] == 'T' {
			addTextFrame(rev, id, payload)
		}
	}
}

func parseID3v23Or4Frames(body []byte, major byte, rev *Revision) error {
	for len(body) >= 10 {
		id := string(body[0:4])
		var size uint32
		if major >= 4 {
			size = syncSafe(body[4:8])
		} else {
			size = be32(body[4:8])
		}
		flags := uint16(body[8])<<8 | uint16(body[9])
		body = body[10:]
		if id == "\x00\x00\x00\x00" || uint32(len(body)) < size {
			return nil
		}
		payload := body[:size]
		body = body[size:]

		rejectMask := uint16(1<<3 | 1<<2) // v2.4 format flags: compression, encryption
		if major < 4 {
			rejectMask = 1<<7 | 1<<6 // v2.3 format flags: compression, encryption
		}
		if flags&rejectMask != 0 {
			return sonataerr.Unsupportedf("meta: ID3v2 frame %s is compressed or encrypted", id)
		}
		if major >= 4 && flags&1 != 0 && len(payload) >= 4 {
			payload = payload[4:] // data length indicator, discarded
		}
		if major >= 4 && flags&(1<<1) != 0 {
			payload = undoUnsynchronization(payload)
		}
		if id[0] == 'T' && id != "TXXX" {
			addTextFrame(rev, id, payload)
		}
	}
	return nil
}

func addTextFrame(rev *Revision, id string, payload []byte) {
	if len(payload) == 0 {
		return
	}
	text := decodeID3Text(payload)
	std := id3v2TextKeys[id]
	rev.Tags = append(rev.Tags, Tag{RawKey: id, RawValue: text, Standard: std})
}

// decodeID3Text decodes an ID3v2 text frame's payload given its 1-byte
// encoding selector: 0 ISO-8859-1 (NUL-terminated), 1 UTF-16 with BOM
// (double-NUL-terminated), 2 UTF-16BE (double-NUL-terminated), 3 UTF-8
// (NUL-terminated).
func decodeID3Text(payload []byte) string {
	enc, data := payload[0], payload[1:]
	switch enc {
	case 0, 3:
		if i := bytes.IndexByte(data, 0); i >= 0 {
			data = data[:i]
		}
		return string(data)
	case 1, 2:
		big := enc == 2
		if enc == 1 && len(data) >= 2 {
			if data[0] == 0xFF && data[1] == 0xFE {
				big = false
				data = data[2:]
			} else if data[0] == 0xFE && data[1] == 0xFF {
				big = true
				data = data[2:]
			}
		}
		var units []uint16
		for i := 0; i+1 < len(data); i += 2 {
			var u uint16
			if big {
				u = uint16(data[i])<<8 | uint16(data[i+1])
			} else {
				u = uint16(data[i]) | uint16(data[i+1])<<8
			}
			if u == 0 {
				break
			}
			units = append(units, u)
		}
		return string(utf16.Decode(units))
	default:
		return string(data)
	}
}

// undoUnsynchronization replaces every 0xFF 0x00 pair with a lone 0xFF,
// the per-frame unsynchronization scheme used by ID3v2.3/2.4.
func undoUnsynchronization(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		out = append(out, b[i])
		if b[i] == 0xFF && i+1 < len(b) && b[i+1] == 0x00 {
			i++
		}
	}
	return out
}

func syncSafe(b []byte) uint32 {
	var v uint32
	for _, x := range b {
		v = v<<7 | uint32(x&0x7F)
	}
	return v
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

var errID3Truncated = sonataerr.Decodef("meta: ID3v2 tag truncated")
