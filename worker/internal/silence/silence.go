package silence

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"vidx/worker/internal/media"

	"go.uber.org/zap"
)

// Defaults for silence detection. Jobs may override both.
const (
	DefaultNoiseDB = -35.0
	DefaultMinDur  = 0.5
)

// leadInTolerance treats a silence opening within this many seconds of
// zero as starting at zero. ffmpeg jitters the first silence_start by a
// few hundredths on some inputs, which would otherwise leave a sliver of
// phantom "speech" before the real lead-in.
const leadInTolerance = 0.05

// Interval is a half-open [Start, End) span in seconds.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the interval length in seconds.
func (i Interval) Duration() float64 {
	return i.End - i.Start
}

// Segmenter locates silent and non-silent spans in an audio track by
// running ffmpeg's silencedetect filter and parsing its event log.
type Segmenter struct {
	tool    *media.Tool
	noiseDB float64
	minDur  float64
	logger  *zap.Logger
}

// NewSegmenter creates a segmenter with the given detection thresholds.
// Zero values fall back to the defaults.
func NewSegmenter(tool *media.Tool, noiseDB, minDur float64, logger *zap.Logger) *Segmenter {
	if noiseDB == 0 {
		noiseDB = DefaultNoiseDB
	}
	if minDur <= 0 {
		minDur = DefaultMinDur
	}
	return &Segmenter{tool: tool, noiseDB: noiseDB, minDur: minDur, logger: logger}
}

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(-?\d+(?:\.\d+)?)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*(-?\d+(?:\.\d+)?)`)
)

// ParseEvents extracts silence intervals from silencedetect stderr output.
// A trailing silence_start with no matching silence_end is closed at
// totalDur, since ffmpeg omits the final event when the file ends silent.
func ParseEvents(stderr string, totalDur float64) []Interval {
	starts := silenceStartRe.FindAllStringSubmatch(stderr, -1)
	ends := silenceEndRe.FindAllStringSubmatch(stderr, -1)

	var intervals []Interval
	for i, s := range starts {
		start, err := strconv.ParseFloat(s[1], 64)
		if err != nil {
			continue
		}
		if start < leadInTolerance {
			start = 0
		}
		end := totalDur
		if i < len(ends) {
			if e, err := strconv.ParseFloat(ends[i][1], 64); err == nil {
				end = e
			}
		}
		if end > start {
			intervals = append(intervals, Interval{Start: start, End: end})
		}
	}
	return intervals
}

// Detect returns the silent intervals of the audio at path.
func (s *Segmenter) Detect(ctx context.Context, path string) ([]Interval, error) {
	dur, err := s.tool.Duration(ctx, path)
	if err != nil {
		return nil, err
	}

	stderr, err := s.tool.SilenceDetect(ctx, path, s.noiseDB, s.minDur)
	if err != nil {
		return nil, err
	}

	intervals := ParseEvents(stderr, dur)
	s.logger.Debug("silence detection complete",
		zap.String("path", path),
		zap.Float64("duration", dur),
		zap.Int("silent_intervals", len(intervals)),
	)
	return intervals, nil
}

// NonSilent inverts the silent intervals over [0, totalDur). When no
// silence was detected, the whole track is one speech span.
func NonSilent(silent []Interval, totalDur float64) []Interval {
	if totalDur <= 0 {
		return nil
	}
	if len(silent) == 0 {
		return []Interval{{Start: 0, End: totalDur}}
	}

	var speech []Interval
	cursor := 0.0
	for _, iv := range silent {
		if iv.Start > cursor {
			speech = append(speech, Interval{Start: cursor, End: iv.Start})
		}
		if iv.End > cursor {
			cursor = iv.End
		}
	}
	if cursor < totalDur {
		speech = append(speech, Interval{Start: cursor, End: totalDur})
	}
	return speech
}

// FirstSpeech returns the first non-silent interval, or an error when the
// track is entirely silent. Callers replacing the opening utterance need a
// concrete segment to target.
func (s *Segmenter) FirstSpeech(ctx context.Context, path string) (Interval, error) {
	dur, err := s.tool.Duration(ctx, path)
	if err != nil {
		return Interval{}, err
	}
	stderr, err := s.tool.SilenceDetect(ctx, path, s.noiseDB, s.minDur)
	if err != nil {
		return Interval{}, err
	}

	speech := NonSilent(ParseEvents(stderr, dur), dur)
	if len(speech) == 0 {
		return Interval{}, fmt.Errorf("no speech detected in %s", path)
	}
	return speech[0], nil
}

// SpeechEnd returns the point where the speaker has stopped: the end of
// the first silence gap that does not open the track. A track that never
// goes quiet mid-way takes insertions at totalDur.
func SpeechEnd(silent []Interval, totalDur float64) float64 {
	for _, iv := range silent {
		if iv.Start > 0 {
			return iv.End
		}
	}
	return totalDur
}
