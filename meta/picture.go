package meta

import (
	"bytes"
	"encoding/binary"

	"github.com/sonatago/sonata/sonataerr"
)

// pictureUsageFromID3 maps the FLAC/ID3v2 APIC picture-type byte (shared
// by METADATA_BLOCK_PICTURE) to the closed VisualUsage sum.
var pictureUsageFromID3 = map[uint32]VisualUsage{
	3: VisualFrontCover,
	4: VisualBackCover,
	1: VisualIcon,
	2: VisualIcon,
	5: VisualLeafletPage,
	6: VisualMedia,
	8: VisualArtist,
}

// ParsePicture decodes a METADATA_BLOCK_PICTURE payload (also used,
// byte-for-byte, as the binary form base64-encoded into a Vorbis comment
// METADATA_BLOCK_PICTURE field):
//
//	type            uint32BE
//	mime_len        uint32BE
//	mime            [mime_len]byte
//	desc_len        uint32BE
//	desc            [desc_len]byte (UTF-8)
//	width,height    uint32BE each
//	depth           uint32BE
//	num_colors      uint32BE
//	data_len        uint32BE
//	data            [data_len]byte
func ParsePicture(b []byte) (Visual, error) {
	r := bytes.NewReader(b)
	readU32 := func() (uint32, error) {
		var v uint32
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return 0, sonataerr.WrapIO(err, "picture block truncated")
		}
		return v, nil
	}
	readStr := func() (string, error) {
		n, err := readU32()
		if err != nil {
			return "", err
		}
		buf := make([]byte, n)
		if _, err := readFull(r, buf); err != nil {
			return "", sonataerr.WrapIO(err, "picture block string truncated")
		}
		return string(buf), nil
	}

	typ, err := readU32()
	if err != nil {
		return Visual{}, err
	}
	mime, err := readStr()
	if err != nil {
		return Visual{}, err
	}
	desc, err := readStr()
	if err != nil {
		return Visual{}, err
	}
	// width, height, depth, num_colors: ingested into the pipeline's
	// contract only as pixel metadata consumers don't need here; skip.
	for i := 0; i < 4; i++ {
		if _, err := readU32(); err != nil {
			return Visual{}, err
		}
	}
	dataLen, err := readU32()
	if err != nil {
		return Visual{}, err
	}
	data := make([]byte, dataLen)
	if _, err := readFull(r, data); err != nil {
		return Visual{}, sonataerr.WrapIO(err, "picture data truncated")
	}

	usage, ok := pictureUsageFromID3[typ]
	if !ok {
		usage = VisualOther
	}
	return Visual{
		Usage:       usage,
		MediaType:   mime,
		Description: desc,
		Data:        data,
	}, nil
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		c, err := r.Read(buf[n:])
		n += c
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
