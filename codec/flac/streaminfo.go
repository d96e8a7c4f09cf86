package flac

// extraInfo is the subset of format/flac's StreamInfo this decoder
// needs, decoded back out of format.CodecParams.ExtraData (see
// format/flac.encodeStreamInfoExtra for the encoding).
type extraInfo struct {
	minBlockSize, maxBlockSize uint16
	channels, bitsPerSample    uint8
	sampleRate                 uint32
	md5                        [16]byte
	hasMD5                     bool
}

func decodeExtra(b []byte) extraInfo {
	if len(b) < 9 {
		return extraInfo{}
	}
	e := extraInfo{
		minBlockSize:  uint16(b[0])<<8 | uint16(b[1]),
		maxBlockSize:  uint16(b[2])<<8 | uint16(b[3]),
		channels:      b[4],
		bitsPerSample: b[5],
		sampleRate:    uint32(b[6])<<16 | uint32(b[7])<<8 | uint32(b[8]),
	}
	if len(b) >= 9+16 {
		copy(e.md5[:], b[9:25])
		for _, v := range e.md5 {
			if v != 0 {
				e.hasMD5 = true
				break
			}
		}
	}
	return e
}
