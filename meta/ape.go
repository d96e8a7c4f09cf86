package meta

import (
	"strings"

	"github.com/sonatago/sonata/bstream"
	"github.com/sonatago/sonata/sonataerr"
)

// apeStandardKeys maps APEv1/2 item keys (case-insensitive) to the closed
// StandardTag sum.
var apeStandardKeys = map[string]StandardTag{
	"ARTIST":      Artist,
	"ALBUM":       Album,
	"TITLE":       TrackTitle,
	"TRACK":       TrackNumber,
	"YEAR":        Date,
	"GENRE":       Genre,
	"COMMENT":     Comment,
	"ISRC":        Isrc,
	"MUSICBRAINZ_TRACKID": MusicBrainzTrackID,
}

const apeItemTypeText = 0 // low 2 bits of an APE item's flags: UTF-8 text

// ParseAPETag reads itemCount items of an APEv2 tag's item list (the
// count itself comes from the tag's header/footer and is not read
// here), each {value_len, flags, "KEY\x00", value}. Binary and locator item types are skipped; only UTF-8
// text items (flags&3 == 0) are folded into tags. APEv1 tags (no per-item
// flags field, implicitly all-text) are handled by the same reader with
// hasFlags=false.
func ParseAPETag(s *bstream.Stream, itemCount uint32, hasFlags bool) (Revision, error) {
	rev := Revision{}
	for i := uint32(0); i < itemCount; i++ {
		valueLen, err := s.ReadU32LE()
		if err != nil {
			return Revision{}, err
		}
		var flags uint32
		if hasFlags {
			flags, err = s.ReadU32LE()
			if err != nil {
				return Revision{}, err
			}
		}
		key, err := readAPEKey(s)
		if err != nil {
			return Revision{}, err
		}
		value := make([]byte, valueLen)
		if err := s.ReadFull(value); err != nil {
			return Revision{}, err
		}
		if flags&3 != apeItemTypeText {
			continue // binary/locator item; not a text tag
		}
		upper := strings.ToUpper(key)
		// Multiple NUL-separated values per item are possible; keep the
		// first, mirroring how the other parsers model one value per Tag.
		val := string(value)
		if i := strings.IndexByte(val, 0); i >= 0 {
			val = val[:i]
		}
		rev.Tags = append(rev.Tags, Tag{RawKey: key, RawValue: val, Standard: apeStandardKeys[upper]})
	}
	return rev, nil
}

func readAPEKey(s *bstream.Stream) (string, error) {
	var key []byte
	for {
		b, err := s.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		key = append(key, b)
		if len(key) > 256 {
			return "", sonataerr.Decodef("meta: APE item key exceeds 256 bytes without a terminator")
		}
	}
	return string(key), nil
}
