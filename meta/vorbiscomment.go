package meta

import (
	"encoding/base64"
	"regexp"
	"strconv"
	"strings"

	"github.com/sonatago/sonata/bstream"
	"github.com/sonatago/sonata/sonataerr"
)

// standardVorbisKeys maps the well-known Vorbis comment field names
// (case-insensitive) to the closed StandardTag sum.
var standardVorbisKeys = map[string]StandardTag{
	"ARTIST":                     Artist,
	"ALBUM":                      Album,
	"ALBUMARTIST":                AlbumArtist,
	"TITLE":                      TrackTitle,
	"TRACKNUMBER":                TrackNumber,
	"DATE":                       Date,
	"GENRE":                      Genre,
	"COMPOSER":                   Composer,
	"COMMENT":                    Comment,
	"REPLAYGAIN_TRACK_GAIN":      ReplayGainTrackGain,
	"REPLAYGAIN_TRACK_PEAK":      ReplayGainTrackPeak,
	"REPLAYGAIN_ALBUM_GAIN":      ReplayGainAlbumGain,
	"REPLAYGAIN_ALBUM_PEAK":      ReplayGainAlbumPeak,
	"MUSICBRAINZ_TRACKID":        MusicBrainzTrackID,
	"MUSICBRAINZ_ALBUMID":        MusicBrainzAlbumID,
	"MUSICBRAINZ_ARTISTID":       MusicBrainzArtistID,
	"MUSICBRAINZ_RELEASEGROUPID": MusicBrainzReleaseGroupID,
	"ENCODER":                    Encoder,
	"ISRC":                       Isrc,
}

var chapterFieldRe = regexp.MustCompile(`^CHAPTER(\d+)([A-Za-z]*)$`)

// ParseVorbisComment reads a Vorbis comment block (4-byte little-endian
// length-prefixed vendor string, then a 4-byte count of length-prefixed
// "KEY=value" fields) and folds it into a Revision. METADATA_BLOCK_PICTURE
// and COVERART values are base64-decoded into Visuals; CHAPTERnnn /
// CHAPTERnnnFIELD pairs are folded into Chapters.
func ParseVorbisComment(s *bstream.Stream) (Revision, string, error) {
	vendorLen, err := s.ReadU32LE()
	if err != nil {
		return Revision{}, "", err
	}
	vendor, err := readVorbisString(s, vendorLen)
	if err != nil {
		return Revision{}, "", err
	}

	count, err := s.ReadU32LE()
	if err != nil {
		return Revision{}, "", err
	}

	rev := Revision{}
	chapters := map[int]*Chapter{}
	for i := uint32(0); i < count; i++ {
		fieldLen, err := s.ReadU32LE()
		if err != nil {
			return Revision{}, "", err
		}
		field, err := readVorbisString(s, fieldLen)
		if err != nil {
			return Revision{}, "", err
		}
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue // malformed field; skip rather than abort the whole revision
		}
		upper := strings.ToUpper(key)

		if m := chapterFieldRe.FindStringSubmatch(upper); m != nil {
			idx, _ := strconv.Atoi(m[1])
			ch := chapters[idx]
			if ch == nil {
				ch = &Chapter{Index: idx}
				chapters[idx] = ch
			}
			if m[2] == "" {
				ts, err := ParseChapterTimestamp(value)
				if err != nil {
					return Revision{}, "", err
				}
				ch.Start = ts
			} else {
				ch.Tags = append(ch.Tags, Tag{RawKey: m[2], RawValue: value})
			}
			continue
		}

		switch upper {
		case "METADATA_BLOCK_PICTURE", "COVERART":
			data, err := base64.StdEncoding.DecodeString(value)
			if err != nil {
				continue // unknown/corrupt picture encoding is skipped, not fatal
			}
			visual, perr := ParsePicture(data)
			if perr == nil {
				rev.Visuals = append(rev.Visuals, visual)
			}
			continue
		}

		std := standardVorbisKeys[upper]
		rev.Tags = append(rev.Tags, Tag{RawKey: key, RawValue: value, Standard: std})
	}

	for _, ch := range chapters {
		rev.Chapters = append(rev.Chapters, *ch)
	}
	return rev, vendor, nil
}

func readVorbisString(s *bstream.Stream, n uint32) (string, error) {
	if n > 16*1024*1024 {
		return "", sonataerr.Decodef("meta: vorbis comment field absurdly large (%d bytes)", n)
	}
	buf := make([]byte, n)
	if err := s.ReadFull(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
