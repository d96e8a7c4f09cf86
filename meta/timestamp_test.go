package meta

import "testing"

func TestParseChapterTimestamp(t *testing.T) {
	golden := []struct {
		in      string
		want    Timestamp
		wantErr bool
	}{
		{in: "00:01:23.500", want: Timestamp{Hours: 0, Minutes: 1, Seconds: 23, Nanos: 500000000}},
		{in: "999999999:59:59.999999999", want: Timestamp{Hours: 999999999, Minutes: 59, Seconds: 59, Nanos: 999999999}},
		{in: "00:60:00.000", wantErr: true},
	}
	for _, g := range golden {
		got, err := ParseChapterTimestamp(g.in)
		if g.wantErr {
			if err == nil {
				t.Errorf("ParseChapterTimestamp(%q): expected error, got %+v", g.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseChapterTimestamp(%q): unexpected error: %v", g.in, err)
			continue
		}
		if got != g.want {
			t.Errorf("ParseChapterTimestamp(%q) = %+v, want %+v", g.in, got, g.want)
		}
	}
}
