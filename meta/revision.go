package meta

// Revision is one snapshot of metadata: the tags, visuals, and per-track
// tags observed up to the point it was pushed. Format readers append a
// new Revision to the Log whenever they encounter an embedded tag block
// mid-stream (e.g. an updated ID3v2 tag, or a chained Ogg stream's fresh
// Vorbis comment header).
type Revision struct {
	Tags     []Tag
	Visuals  []Visual
	PerTrack []TrackMetadata
	Chapters []Chapter
}

// Log is a FIFO of metadata revisions, oldest at the head. It is never
// emptied below one entry once it has become non-empty: Pop refuses to
// drop the last revision.
type Log struct {
	revisions []Revision
}

// NewLog returns an empty log.
func NewLog() *Log { return &Log{} }

// Push appends a new revision to the tail of the log.
func (l *Log) Push(rev Revision) {
	l.revisions = append(l.revisions, rev)
}

// Current returns the head (oldest) revision, or false if the log is
// empty.
func (l *Log) Current() (Revision, bool) {
	if len(l.revisions) == 0 {
		return Revision{}, false
	}
	return l.revisions[0], true
}

// Pop advances the log to the next revision, discarding the current head,
// only if a newer revision exists. Pop on a log of length 1 (or 0)
// returns false and leaves the log unchanged.
func (l *Log) Pop() (Revision, bool) {
	if len(l.revisions) <= 1 {
		return Revision{}, false
	}
	l.revisions = l.revisions[1:]
	return l.revisions[0], true
}

// SkipToLatest discards every revision except the most recent one,
// leaving exactly one revision in the log.
func (l *Log) SkipToLatest() {
	if len(l.revisions) <= 1 {
		return
	}
	l.revisions = l.revisions[len(l.revisions)-1:]
}

// Len reports the number of revisions currently queued.
func (l *Log) Len() int { return len(l.revisions) }
