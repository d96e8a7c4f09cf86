// Package meta defines the uniform metadata contract the core consumes:
// tags, pictures, per-track metadata, and the revision log that format
// readers push to as they encounter embedded tag blocks. Concrete tag
// parsers (Vorbis comments, ID3v2, RIFF INFO, iTunes ilst, APE) populate
// a Revision; they never expose format-specific types to callers above
// this package, mirroring how mewkiz/flac/meta normalizes every FLAC
// metadata block into a single Block/Body contract.
package meta

// StandardTag is a closed sum over well-known tag kinds. Raw keys that
// don't map to one of these are still carried on a Tag, just with
// Standard left at StandardNone.
type StandardTag int

const (
	StandardNone StandardTag = iota
	Artist
	Album
	AlbumArtist
	TrackTitle
	TrackNumber
	Date
	Genre
	Composer
	Comment
	ReplayGainTrackGain
	ReplayGainTrackPeak
	ReplayGainAlbumGain
	ReplayGainAlbumPeak
	MusicBrainzTrackID
	MusicBrainzAlbumID
	MusicBrainzArtistID
	MusicBrainzReleaseGroupID
	Encoder
	Isrc
)

// Tag is one (raw_key, raw_value) pair as found in the source format,
// plus the StandardTag it maps to, if any.
type Tag struct {
	RawKey   string
	RawValue string
	Standard StandardTag
}

// VisualUsage classifies an embedded picture's role (cover, icon, etc).
type VisualUsage int

const (
	VisualOther VisualUsage = iota
	VisualFrontCover
	VisualBackCover
	VisualIcon
	VisualLeafletPage
	VisualMedia
	VisualArtist
)

// Visual is an embedded picture.
type Visual struct {
	Usage       VisualUsage
	MediaType   string
	Description string
	Data        []byte
	Tags        []Tag
}

// TrackMetadata carries per-track tags (e.g. a language tag scoped to one
// Matroska track) rather than the whole-stream tags collected directly on
// a Revision.
type TrackMetadata struct {
	TrackID uint32
	Tags    []Tag
}

// Chapter is a named time range within the stream, as produced by Vorbis
// CHAPTERnnn comments or a container's native chapter structure.
type Chapter struct {
	Index int
	Start Timestamp
	End   Timestamp
	Tags  []Tag
}
