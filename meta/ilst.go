package meta

import "strings"

// ilstStandardKeys maps MP4 "ilst" atom four-character-codes (iTunes
// metadata) to the closed StandardTag sum. Codes beginning with 0xA9
// are keyed here by their raw four bytes (e.g. "\xa9ART"), the same
// form ParseIlstEntry receives as code and keeps as RawKey.
var ilstStandardKeys = map[string]StandardTag{
	"\xa9ART": Artist,
	"\xa9alb": Album,
	"aART":    AlbumArtist,
	"\xa9nam": TrackTitle,
	"trkn":    TrackNumber,
	"\xa9day": Date,
	"\xa9gen": Genre,
	"\xa9wrt": Composer,
	"\xa9cmt": Comment,
	"\xa9too": Encoder,
}

// ParseIlstEntry folds one already-unboxed "ilst" child atom (its
// four-character code and the UTF-8 text carried by its nested "data"
// atom, with the data atom's 8-byte type/locale header already stripped)
// into a Tag. format/isomp4 (out of core scope beyond this ingestion
// contract) owns walking the atom tree itself.
func ParseIlstEntry(code string, text string) Tag {
	text = strings.TrimRight(text, "\x00")
	return Tag{RawKey: code, RawValue: text, Standard: ilstStandardKeys[code]}
}
