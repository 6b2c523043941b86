package silence

import (
	"testing"
)

const sampleStderr = `[silencedetect @ 0x55f] silence_start: 0
[silencedetect @ 0x55f] silence_end: 1.25 | silence_duration: 1.25
[silencedetect @ 0x55f] silence_start: 4.5
[silencedetect @ 0x55f] silence_end: 6.0 | silence_duration: 1.5
[silencedetect @ 0x55f] silence_start: 9.75
`

func TestParseEvents(t *testing.T) {
	intervals := ParseEvents(sampleStderr, 12.0)

	want := []Interval{
		{Start: 0, End: 1.25},
		{Start: 4.5, End: 6.0},
		{Start: 9.75, End: 12.0},
	}
	if len(intervals) != len(want) {
		t.Fatalf("got %d intervals, want %d: %+v", len(intervals), len(want), intervals)
	}
	for i, iv := range intervals {
		if iv != want[i] {
			t.Errorf("interval %d = %+v, want %+v", i, iv, want[i])
		}
	}
}

func TestParseEventsEmpty(t *testing.T) {
	if got := ParseEvents("frame=  100 fps= 25", 10); got != nil {
		t.Errorf("expected no intervals, got %+v", got)
	}
}

func TestParseEventsNegativeStartClamped(t *testing.T) {
	intervals := ParseEvents("silence_start: -0.01\nsilence_end: 0.8", 5)
	if len(intervals) != 1 || intervals[0].Start != 0 {
		t.Errorf("expected clamped start at 0, got %+v", intervals)
	}
}

func TestParseEventsLeadInJitter(t *testing.T) {
	// ffmpeg sometimes reports the opening silence a few hundredths in.
	// That must not produce a phantom speech sliver before it.
	stderr := "silence_start: 0.03\nsilence_end: 2.0\nsilence_start: 5.0\nsilence_end: 5.6"
	intervals := ParseEvents(stderr, 10)
	if len(intervals) != 2 || intervals[0] != (Interval{Start: 0, End: 2.0}) {
		t.Fatalf("expected jittered lead-in clamped to zero, got %+v", intervals)
	}

	speech := NonSilent(intervals, 10)
	if len(speech) == 0 || speech[0] != (Interval{Start: 2.0, End: 5.0}) {
		t.Errorf("first speech span = %+v, want {2 5}", speech)
	}
}

func TestNonSilent(t *testing.T) {
	tests := []struct {
		name   string
		silent []Interval
		total  float64
		want   []Interval
	}{
		{
			name:   "interleaved",
			silent: []Interval{{0, 1.25}, {4.5, 6.0}, {9.75, 12.0}},
			total:  12.0,
			want:   []Interval{{1.25, 4.5}, {6.0, 9.75}},
		},
		{
			name:   "no silence means one span",
			silent: nil,
			total:  7.5,
			want:   []Interval{{0, 7.5}},
		},
		{
			name:   "speech leading and trailing",
			silent: []Interval{{3, 4}},
			total:  10,
			want:   []Interval{{0, 3}, {4, 10}},
		},
		{
			name:   "fully silent",
			silent: []Interval{{0, 10}},
			total:  10,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NonSilent(tt.silent, tt.total)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d spans, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("span %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSpeechEnd(t *testing.T) {
	// 10s track with speech stopping into a 9.0-9.3 pause: the insertion
	// point is the end of that pause, not the end of the track.
	if got := SpeechEnd([]Interval{{9.0, 9.3}}, 10); got != 9.3 {
		t.Errorf("SpeechEnd = %v, want 9.3", got)
	}
	// Lead-in silence does not mark the end of speech.
	if got := SpeechEnd([]Interval{{0, 1}, {4.5, 5.0}}, 10); got != 5.0 {
		t.Errorf("SpeechEnd past lead-in = %v, want 5.0", got)
	}
	if got := SpeechEnd([]Interval{{0, 10}}, 10); got != 10 {
		t.Errorf("SpeechEnd for fully silent track = %v, want 10", got)
	}
	if got := SpeechEnd(nil, 6); got != 6 {
		t.Errorf("SpeechEnd with no silence = %v, want 6", got)
	}
}
