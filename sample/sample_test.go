package sample

import "testing"

func TestRoundTripNonNarrowing(t *testing.T) {
	// from_sample(to_sample(x)) == x on non-narrowing type pairs.
	for v := int16(-32768); v < 32767; v += 137 {
		got := I16FromI24(I24FromI16(v))
		if got != v {
			t.Fatalf("I16FromI24(I24FromI16(%d)) = %d, want %d", v, got, v)
		}
	}
}

func TestNarrowingClamps(t *testing.T) {
	// On narrowing pairs, the result lies within the target type's
	// min/max; it need not equal the original value.
	got := I16FromI24(i24Max)
	if got > 32767 || got < -32768 {
		t.Fatalf("I16FromI24 escaped int16 range: %d", got)
	}
	got = I16FromI24(i24Min)
	if got > 32767 || got < -32768 {
		t.Fatalf("I16FromI24 escaped int16 range: %d", got)
	}
}

func TestBufferPlanePairDistinctChannels(t *testing.T) {
	b := NewBuffer(44100, FrontLeft|FrontRight, 16)
	if err := b.Render(16); err != nil {
		t.Fatal(err)
	}
	if _, _, err := b.PlanePair(0, 0); err == nil {
		t.Fatal("expected error for non-distinct channel pair")
	}
	if _, _, err := b.PlanePair(0, 1); err != nil {
		t.Fatalf("unexpected error for distinct channel pair: %v", err)
	}
}

func TestBufferTrimInvariant(t *testing.T) {
	b := NewBuffer(44100, FrontLeft, 100)
	if err := b.Render(100); err != nil {
		t.Fatal(err)
	}
	dur := b.Filled()
	trimStart, trimEnd := 10, 5
	if err := b.TrimStart(trimStart); err != nil {
		t.Fatal(err)
	}
	if err := b.TrimEnd(trimEnd); err != nil {
		t.Fatal(err)
	}
	remaining := b.Filled()
	if trimStart+remaining+trimEnd != dur {
		t.Fatalf("trim_start+remaining+trim_end = %d, want %d", trimStart+remaining+trimEnd, dur)
	}
}
