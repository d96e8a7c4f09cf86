package meta

import "strings"

// riffInfoKeys maps RIFF LIST/INFO four-character chunk IDs to the
// closed StandardTag sum.
var riffInfoKeys = map[string]StandardTag{
	"IART": Artist,
	"IPRD": Album,
	"INAM": TrackTitle,
	"ITRK": TrackNumber,
	"ICRD": Date,
	"IGNR": Genre,
	"ICMT": Comment,
	"ISFT": Encoder,
	"ISRC": Isrc,
}

// ParseRIFFInfo folds a LIST/INFO sub-chunk's already-split (id, value)
// pairs into a Revision. The caller (format/riff) owns walking the RIFF
// chunk structure itself; this function only normalizes the tag set, the
// same division of labor meta/vorbiscomment.go and meta/id3v2.go use.
func ParseRIFFInfo(fields map[string]string) Revision {
	rev := Revision{}
	for id, value := range fields {
		value = strings.TrimRight(value, "\x00")
		rev.Tags = append(rev.Tags, Tag{
			RawKey:   id,
			RawValue: value,
			Standard: riffInfoKeys[strings.ToUpper(id)],
		})
	}
	return rev
}
