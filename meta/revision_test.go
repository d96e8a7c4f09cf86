package meta

import "testing"

func TestLogPopSingleRevisionNoop(t *testing.T) {
	l := NewLog()
	l.Push(Revision{Tags: []Tag{{RawKey: "a"}}})
	if _, ok := l.Pop(); ok {
		t.Fatal("Pop on a length-1 log should return false")
	}
	if l.Len() != 1 {
		t.Fatalf("log length changed by a no-op Pop: %d", l.Len())
	}
}

func TestLogPopAdvancesAndSkipToLatest(t *testing.T) {
	l := NewLog()
	l.Push(Revision{Tags: []Tag{{RawKey: "a"}}})
	l.Push(Revision{Tags: []Tag{{RawKey: "b"}}})
	l.Push(Revision{Tags: []Tag{{RawKey: "c"}}})

	cur, _ := l.Current()
	if cur.Tags[0].RawKey != "a" {
		t.Fatalf("Current() should return the oldest revision first, got %q", cur.Tags[0].RawKey)
	}
	if _, ok := l.Pop(); !ok {
		t.Fatal("Pop should advance when a newer revision exists")
	}
	cur, _ = l.Current()
	if cur.Tags[0].RawKey != "b" {
		t.Fatalf("Current() after Pop = %q, want b", cur.Tags[0].RawKey)
	}

	l.SkipToLatest()
	if l.Len() != 1 {
		t.Fatalf("SkipToLatest should leave exactly one revision, got %d", l.Len())
	}
	cur, _ = l.Current()
	if cur.Tags[0].RawKey != "c" {
		t.Fatalf("SkipToLatest left %q, want c", cur.Tags[0].RawKey)
	}
}
