package splice

import (
	"testing"

	"vidx/worker/internal/silence"
)

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"essential", "advanced", "professional", "enterprise"} {
		if _, err := ParseMode(valid); err != nil {
			t.Errorf("ParseMode(%q): %v", valid, err)
		}
	}
	if _, err := ParseMode("silver"); err == nil {
		t.Error("expected unknown mode to fail")
	}
}

func TestParsePosition(t *testing.T) {
	pos, err := ParsePosition("")
	if err != nil || pos != PositionEnd {
		t.Errorf("empty position = (%v, %v), want (end, nil)", pos, err)
	}
	if _, err := ParsePosition("middle"); err == nil {
		t.Error("expected unknown position to fail")
	}
}

func TestInsertAtEnd(t *testing.T) {
	plan, err := InsertAt(9.3, "name.wav", 10.0)
	if err != nil {
		t.Fatalf("InsertAt: %v", err)
	}

	want := []Piece{
		{FromBase: true, Start: 0, Dur: 9.3},
		{Clip: "name.wav"},
		{FromBase: true, Start: 9.3, Dur: 0.7},
	}
	assertPlan(t, plan, want)
}

func TestInsertAtStartDropsEmptyHead(t *testing.T) {
	plan, err := InsertAt(0, "name.wav", 10.0)
	if err != nil {
		t.Fatalf("InsertAt: %v", err)
	}

	want := []Piece{
		{Clip: "name.wav"},
		{FromBase: true, Start: 0, Dur: 10.0},
	}
	assertPlan(t, plan, want)
}

func TestInsertAtRejectsOutOfRange(t *testing.T) {
	if _, err := InsertAt(11, "x.wav", 10); err == nil {
		t.Error("offset past the end should fail")
	}
	if _, err := InsertAt(1, "x.wav", 0); err == nil {
		t.Error("zero-duration base should fail")
	}
}

func TestReplaceSegments(t *testing.T) {
	segments := []silence.Interval{{Start: 1.25, End: 3.0}, {Start: 6.0, End: 7.5}}
	plan, err := ReplaceSegments(segments, []string{"a.wav", "b.wav"}, 10.0)
	if err != nil {
		t.Fatalf("ReplaceSegments: %v", err)
	}

	want := []Piece{
		{FromBase: true, Start: 0, Dur: 1.25},
		{Clip: "a.wav"},
		{FromBase: true, Start: 3.0, Dur: 3.0},
		{Clip: "b.wav"},
		{FromBase: true, Start: 7.5, Dur: 2.5},
	}
	assertPlan(t, plan, want)
}

func TestReplaceSegmentsAtTrackStart(t *testing.T) {
	plan, err := ReplaceSegments([]silence.Interval{{Start: 0, End: 2}}, []string{"a.wav"}, 10)
	if err != nil {
		t.Fatalf("ReplaceSegments: %v", err)
	}
	if plan[0].FromBase {
		t.Errorf("leading sliver should be dropped: %+v", plan[0])
	}
}

func TestReplaceSegmentsCountMismatch(t *testing.T) {
	segments := []silence.Interval{{Start: 1, End: 2}}
	if _, err := ReplaceSegments(segments, []string{"a.wav", "b.wav"}, 10); err == nil {
		t.Error("count mismatch must fail the plan")
	}
	if _, err := ReplaceSegments(nil, nil, 10); err == nil {
		t.Error("empty segment list must fail the plan")
	}
}

func TestMarkerCandidates(t *testing.T) {
	segments := []silence.Interval{
		{Start: 0, End: 0.5},    // marker
		{Start: 1.5, End: 6.0},  // narration, stays
		{Start: 7.0, End: 7.85}, // marker
	}
	got := MarkerCandidates(segments, 0)
	if len(got) != 2 {
		t.Fatalf("got %d markers, want 2: %+v", len(got), got)
	}
	if got[0] != segments[0] || got[1] != segments[2] {
		t.Errorf("markers = %+v, want the two short spans", got)
	}

	if got := MarkerCandidates(segments, 10); len(got) != 3 {
		t.Errorf("loose bound should keep all spans, got %+v", got)
	}
}

func TestReplaceSegmentsRejectsDisorder(t *testing.T) {
	segments := []silence.Interval{{Start: 5, End: 6}, {Start: 2, End: 3}}
	if _, err := ReplaceSegments(segments, []string{"a.wav", "b.wav"}, 10); err == nil {
		t.Error("out-of-order segments must fail the plan")
	}
}

func assertPlan(t *testing.T, got, want []Piece) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("plan has %d pieces, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.FromBase != w.FromBase || g.Clip != w.Clip {
			t.Errorf("piece %d = %+v, want %+v", i, g, w)
			continue
		}
		if g.FromBase && (!approx(g.Start, w.Start) || !approx(g.Dur, w.Dur)) {
			t.Errorf("piece %d = %+v, want %+v", i, g, w)
		}
	}
}

func approx(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
