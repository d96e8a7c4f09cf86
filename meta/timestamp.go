package meta

import (
	"strconv"
	"strings"

	"github.com/sonatago/sonata/sonataerr"
)

// Timestamp is a chapter time expressed in the Vorbis-comment
// "HH:MM:SS.sss" shape. The hour field is stored separately, rather than
// folded into a single time.Duration, because the format's hour field may
// run to any number of digits — "999999999:59:59.999999999" alone already
// exceeds time.Duration's ~2.56 million hour range.
type Timestamp struct {
	Hours   uint64
	Minutes uint8 // 0-59
	Seconds uint8 // 0-59
	Nanos   uint32 // 0-999999999, fractional part of Seconds
}

// ParseChapterTimestamp parses the Vorbis-comment chapter timestamp
// format "HH:MM:SS.sss", where HH may run to any number of digits, MM and
// SS must each be in [0, 59], and sss is a decimal fraction of a second
// of arbitrary precision (truncated to nanoseconds).
func ParseChapterTimestamp(s string) (Timestamp, error) {
	hhRest := strings.SplitN(s, ":", 2)
	if len(hhRest) != 2 {
		return Timestamp{}, sonataerr.Decodef("meta: malformed chapter timestamp %q", s)
	}
	mmRest := strings.SplitN(hhRest[1], ":", 2)
	if len(mmRest) != 2 {
		return Timestamp{}, sonataerr.Decodef("meta: malformed chapter timestamp %q", s)
	}
	hh, err := strconv.ParseUint(hhRest[0], 10, 64)
	if err != nil {
		return Timestamp{}, sonataerr.Decodef("meta: malformed hour field in chapter timestamp %q", s)
	}
	mm, err := strconv.ParseUint(mmRest[0], 10, 8)
	if err != nil || mm > 59 {
		return Timestamp{}, sonataerr.Decodef("meta: minute field out of range in chapter timestamp %q", s)
	}
	secFrac := strings.SplitN(mmRest[1], ".", 2)
	ss, err := strconv.ParseUint(secFrac[0], 10, 8)
	if err != nil || ss > 59 {
		return Timestamp{}, sonataerr.Decodef("meta: second field out of range in chapter timestamp %q", s)
	}
	var nanos uint64
	if len(secFrac) == 2 && secFrac[1] != "" {
		frac := secFrac[1]
		if len(frac) > 9 {
			frac = frac[:9]
		} else {
			frac = frac + strings.Repeat("0", 9-len(frac))
		}
		n, err := strconv.ParseUint(frac, 10, 64)
		if err != nil {
			return Timestamp{}, sonataerr.Decodef("meta: malformed fractional seconds in chapter timestamp %q", s)
		}
		nanos = n
	}

	return Timestamp{Hours: hh, Minutes: uint8(mm), Seconds: uint8(ss), Nanos: uint32(nanos)}, nil
}

// String renders a Timestamp back to "HH:MM:SS.sss".
func (t Timestamp) String() string {
	return strconv.FormatUint(t.Hours, 10) + ":" +
		pad2(int(t.Minutes)) + ":" + pad2(int(t.Seconds)) + "." + pad9(int(t.Nanos))
}

func pad2(v int) string {
	s := strconv.Itoa(v)
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

func pad9(v int) string {
	s := strconv.Itoa(v)
	for len(s) < 9 {
		s = "0" + s
	}
	return s
}
