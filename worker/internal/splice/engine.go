package splice

import (
	"context"
	"fmt"
	"path/filepath"

	"vidx/worker/internal/lipsync"
	"vidx/worker/internal/media"
	"vidx/worker/internal/silence"

	"go.uber.org/zap"
)

// Engine executes splice plans against the media tool. Clips handed to the
// engine are expected to be loudness-matched already; the engine never
// rewrites them in place.
type Engine struct {
	tool      *media.Tool
	seg       *silence.Segmenter
	lip       *lipsync.Runner
	markerMax float64
	logger    *zap.Logger
}

// NewEngine creates a splice engine. lip may be nil when lip-sync is
// disabled for the job.
func NewEngine(tool *media.Tool, seg *silence.Segmenter, lip *lipsync.Runner, logger *zap.Logger) *Engine {
	return &Engine{tool: tool, seg: seg, lip: lip, markerMax: DefaultMarkerMaxDur, logger: logger}
}

// WithMarkerMax overrides the maximum duration a spoken span may have to
// count as a placeholder marker in ReplaceMarkers.
func (e *Engine) WithMarkerMax(d float64) *Engine {
	if d > 0 {
		e.markerMax = d
	}
	return e
}

// assemble cuts the base pieces of a plan and concatenates everything in
// order into dst.
func (e *Engine) assemble(ctx context.Context, baseWav string, plan []Piece, workDir, dst string) error {
	inputs := make([]string, 0, len(plan))
	for i, p := range plan {
		if !p.FromBase {
			inputs = append(inputs, p.Clip)
			continue
		}
		piece := filepath.Join(workDir, fmt.Sprintf("piece_%d.wav", i))
		if err := e.tool.CutAudio(ctx, baseWav, piece, p.Start, p.Dur); err != nil {
			return fmt.Errorf("failed to cut base piece %d: %w", i, err)
		}
		inputs = append(inputs, piece)
	}
	return e.tool.ConcatAudio(ctx, inputs, dst)
}

// Essential builds an audio-only mp3: the base audio with the name clip
// inserted at the start or at the end of detected speech. The video track
// is never touched.
func (e *Engine) Essential(ctx context.Context, base, clip string, pos NamePosition, workDir, dst string) error {
	dur, err := e.tool.Duration(ctx, base)
	if err != nil {
		return err
	}

	baseWav := filepath.Join(workDir, "base.wav")
	if err := e.tool.ExtractAudio(ctx, base, baseWav); err != nil {
		return err
	}

	at := 0.0
	if pos == PositionEnd {
		silent, err := e.seg.Detect(ctx, baseWav)
		if err != nil {
			return err
		}
		at = silence.SpeechEnd(silent, dur)
	}

	plan, err := InsertAt(at, clip, dur)
	if err != nil {
		return err
	}

	spliced := filepath.Join(workDir, "spliced.wav")
	if err := e.assemble(ctx, baseWav, plan, workDir, spliced); err != nil {
		return err
	}
	return e.tool.EncodeMP3(ctx, spliced, dst, true)
}

// ReplaceFirstSegment replaces the first spoken segment of the video's
// audio with the clip and muxes the new track back, copying the video
// stream. Minor drift between the clip and the replaced segment length is
// tolerated; the output is trimmed to the base duration.
func (e *Engine) ReplaceFirstSegment(ctx context.Context, video, clip, workDir, dst string) error {
	dur, err := e.tool.Duration(ctx, video)
	if err != nil {
		return err
	}

	baseWav := filepath.Join(workDir, "base.wav")
	if err := e.tool.ExtractAudio(ctx, video, baseWav); err != nil {
		return err
	}

	first, err := e.seg.FirstSpeech(ctx, baseWav)
	if err != nil {
		return err
	}

	// Stretch the clip toward the replaced window so the tail of the
	// track stays roughly in place.
	clipDur, err := e.tool.Duration(ctx, clip)
	if err != nil {
		return err
	}
	fitted := clip
	if clipDur > first.Duration() {
		fitted = filepath.Join(workDir, "clip_fitted.wav")
		if err := e.tool.FitClip(ctx, clip, fitted, clipDur, first.Duration()); err != nil {
			return err
		}
	}

	plan, err := ReplaceSegments([]silence.Interval{first}, []string{fitted}, dur)
	if err != nil {
		return err
	}

	newTrack := filepath.Join(workDir, "personalized.wav")
	if err := e.assemble(ctx, baseWav, plan, workDir, newTrack); err != nil {
		return err
	}
	return e.tool.ReplaceAudio(ctx, video, newTrack, dst, dur, true)
}

// ReplaceFirstSegmentSynced is ReplaceFirstSegment followed by a lip-sync
// pass when a runner is configured.
func (e *Engine) ReplaceFirstSegmentSynced(ctx context.Context, video, clip, workDir, dst string) error {
	if e.lip == nil {
		return e.ReplaceFirstSegment(ctx, video, clip, workDir, dst)
	}

	unsynced := filepath.Join(workDir, "unsynced.mp4")
	if err := e.ReplaceFirstSegment(ctx, video, clip, workDir, unsynced); err != nil {
		return err
	}

	audio := filepath.Join(workDir, "personalized.wav")
	return e.lip.Sync(ctx, unsynced, audio, dst)
}

// ReplaceMarkers replaces each placeholder marker of the video's audio
// with the clip of the same ordinal, then lip-syncs when a runner is
// configured. Only spoken spans no longer than the marker maximum count
// as markers; longer spans are narration and stay untouched. The number
// of markers must equal the number of clips; a partial match fails the
// recipient rather than guessing.
func (e *Engine) ReplaceMarkers(ctx context.Context, video string, clips []string, workDir, dst string) error {
	dur, err := e.tool.Duration(ctx, video)
	if err != nil {
		return err
	}

	baseWav := filepath.Join(workDir, "base.wav")
	if err := e.tool.ExtractAudio(ctx, video, baseWav); err != nil {
		return err
	}

	silent, err := e.seg.Detect(ctx, baseWav)
	if err != nil {
		return err
	}
	segments := MarkerCandidates(silence.NonSilent(silent, dur), e.markerMax)

	plan, err := ReplaceSegments(segments, clips, dur)
	if err != nil {
		return err
	}

	newTrack := filepath.Join(workDir, "personalized.wav")
	if err := e.assemble(ctx, baseWav, plan, workDir, newTrack); err != nil {
		return err
	}

	if e.lip == nil {
		return e.tool.ReplaceAudio(ctx, video, newTrack, dst, dur, true)
	}

	unsynced := filepath.Join(workDir, "unsynced.mp4")
	if err := e.tool.ReplaceAudio(ctx, video, newTrack, unsynced, dur, true); err != nil {
		return err
	}
	return e.lip.Sync(ctx, unsynced, newTrack, dst)
}

// InsertAtStart prepends the clip to the video's audio and pads the video
// with a held first frame for the inserted duration, so nothing is
// dropped or sped up.
func (e *Engine) InsertAtStart(ctx context.Context, video, clip, workDir, dst string) error {
	if _, err := e.tool.Duration(ctx, video); err != nil {
		return err
	}

	clipDur, err := e.tool.Duration(ctx, clip)
	if err != nil {
		return err
	}

	baseWav := filepath.Join(workDir, "base.wav")
	if err := e.tool.ExtractAudio(ctx, video, baseWav); err != nil {
		return err
	}

	newTrack := filepath.Join(workDir, "personalized.wav")
	if err := e.tool.ConcatAudio(ctx, []string{clip, baseWav}, newTrack); err != nil {
		return err
	}

	e.logger.Debug("padding video lead-in", zap.Float64("pad_seconds", clipDur))
	return e.tool.PadStartMux(ctx, video, newTrack, dst, clipDur)
}
