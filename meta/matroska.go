package meta

// MatroskaSimpleTag mirrors one already-EBML-decoded Matroska
// SimpleTag element: {TagName, TagString, TargetTrackUID}. Walking the
// EBML element tree itself is a format-reader concern outside this
// package's ingestion contract (mirrors meta/vorbiscomment.go and
// meta/ape.go, which likewise only normalize already-split fields).
type MatroskaSimpleTag struct {
	Name           string
	Value          string
	TargetTrackUID uint64 // 0 means stream-wide, not track-scoped
}

// matroskaStandardKeys maps Matroska TagName values to the closed
// StandardTag sum.
var matroskaStandardKeys = map[string]StandardTag{
	"ARTIST":       Artist,
	"ALBUM":        Album,
	"TITLE":        TrackTitle,
	"PART_NUMBER":  TrackNumber,
	"DATE_RELEASED": Date,
	"GENRE":        Genre,
	"COMPOSER":     Composer,
	"COMMENT":      Comment,
	"ENCODER":      Encoder,
	"ISRC":         Isrc,
}

// ParseMatroskaTags folds a batch of already-decoded SimpleTag elements
// into a Revision, routing track-scoped tags (TargetTrackUID != 0) into
// PerTrack and stream-wide tags into Tags.
func ParseMatroskaTags(tags []MatroskaSimpleTag) Revision {
	rev := Revision{}
	perTrack := map[uint64]*TrackMetadata{}
	for _, t := range tags {
		tag := Tag{RawKey: t.Name, RawValue: t.Value, Standard: matroskaStandardKeys[t.Name]}
		if t.TargetTrackUID == 0 {
			rev.Tags = append(rev.Tags, tag)
			continue
		}
		tm := perTrack[t.TargetTrackUID]
		if tm == nil {
			tm = &TrackMetadata{TrackID: uint32(t.TargetTrackUID)}
			perTrack[t.TargetTrackUID] = tm
		}
		tm.Tags = append(tm.Tags, tag)
	}
	for _, tm := range perTrack {
		rev.PerTrack = append(rev.PerTrack, *tm)
	}
	return rev
}
