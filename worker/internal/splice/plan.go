package splice

import (
	"fmt"

	"vidx/worker/internal/silence"
)

// Mode selects the personalization strategy.
type Mode string

const (
	// ModeEssential produces an audio-only artifact with the name clip
	// inserted at the start or at the end of speech.
	ModeEssential Mode = "essential"
	// ModeAdvanced replaces the first spoken segment in the video's audio,
	// leaving the video track untouched.
	ModeAdvanced Mode = "advanced"
	// ModeProfessional is advanced plus optional lip-sync over the result.
	ModeProfessional Mode = "professional"
	// ModeEnterprise replaces one spoken segment per placeholder marker,
	// then lip-syncs the result.
	ModeEnterprise Mode = "enterprise"
)

// ParseMode validates a mode string from job options.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeEssential, ModeAdvanced, ModeProfessional, ModeEnterprise:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown insert mode %q", s)
	}
}

// NamePosition selects where an inserted clip lands in essential mode.
type NamePosition string

const (
	PositionStart NamePosition = "start"
	PositionEnd   NamePosition = "end"
)

// ParsePosition validates a name position string; empty defaults to end.
func ParsePosition(s string) (NamePosition, error) {
	switch NamePosition(s) {
	case "":
		return PositionEnd, nil
	case PositionStart, PositionEnd:
		return NamePosition(s), nil
	default:
		return "", fmt.Errorf("unknown name position %q", s)
	}
}

// minPieceDur drops base slivers shorter than this from a plan; they are
// artifacts of boundary rounding, not content.
const minPieceDur = 0.01

// DefaultMarkerMaxDur bounds how long a spoken span may be and still count
// as a placeholder marker. Real sentences between markers run well past a
// second and must never be replaced.
const DefaultMarkerMaxDur = 0.9

// MarkerCandidates filters speech segments down to the short spans that
// can be placeholder markers. maxDur values of zero or below fall back to
// DefaultMarkerMaxDur.
func MarkerCandidates(segments []silence.Interval, maxDur float64) []silence.Interval {
	if maxDur <= 0 {
		maxDur = DefaultMarkerMaxDur
	}
	var markers []silence.Interval
	for _, seg := range segments {
		if seg.Duration() <= maxDur {
			markers = append(markers, seg)
		}
	}
	return markers
}

// Piece is one element of a splice plan: either a window of the base
// track or an inserted clip.
type Piece struct {
	FromBase bool
	Start    float64
	Dur      float64
	Clip     string
}

func basePiece(start, end float64) (Piece, bool) {
	if end-start < minPieceDur {
		return Piece{}, false
	}
	return Piece{FromBase: true, Start: start, Dur: end - start}, true
}

// InsertAt plans the insertion of a clip at offset `at` of a base track of
// totalDur seconds, keeping all base content.
func InsertAt(at float64, clip string, totalDur float64) ([]Piece, error) {
	if totalDur <= 0 {
		return nil, fmt.Errorf("base track has no duration")
	}
	if at < 0 || at > totalDur {
		return nil, fmt.Errorf("insert offset %.3f outside track of %.3fs", at, totalDur)
	}

	var plan []Piece
	if p, ok := basePiece(0, at); ok {
		plan = append(plan, p)
	}
	plan = append(plan, Piece{Clip: clip})
	if p, ok := basePiece(at, totalDur); ok {
		plan = append(plan, p)
	}
	return plan, nil
}

// ReplaceSegments plans the replacement of each segment with the clip of
// the same ordinal. Segments must be ordered, non-overlapping and inside
// the track. The counts must match exactly; a partial match aborts the
// plan rather than guessing which markers to honor.
func ReplaceSegments(segments []silence.Interval, clips []string, totalDur float64) ([]Piece, error) {
	if totalDur <= 0 {
		return nil, fmt.Errorf("base track has no duration")
	}
	if len(segments) != len(clips) {
		return nil, fmt.Errorf("found %d placeholder segments for %d clips", len(segments), len(clips))
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("no placeholder segments to replace")
	}

	cursor := 0.0
	var plan []Piece
	for i, seg := range segments {
		if seg.Start < cursor || seg.End <= seg.Start || seg.End > totalDur {
			return nil, fmt.Errorf("placeholder segment %d (%.3f-%.3f) is out of order or out of range", i, seg.Start, seg.End)
		}
		if p, ok := basePiece(cursor, seg.Start); ok {
			plan = append(plan, p)
		}
		plan = append(plan, Piece{Clip: clips[i]})
		cursor = seg.End
	}
	if p, ok := basePiece(cursor, totalDur); ok {
		plan = append(plan, p)
	}
	return plan, nil
}
