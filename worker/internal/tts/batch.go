package tts

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"vidx/worker/internal/media"
	"vidx/worker/internal/silence"

	"go.uber.org/zap"
)

// pauseSeparator is spoken between phrases in a batch request. The long
// ellipsis makes most providers render a clear gap the splitter can find.
const pauseSeparator = ". ... ... . "

// Thresholds are silence-detection parameters for splitting a batch clip.
type Thresholds struct {
	NoiseDB float64
	MinDur  float64
}

// SplitAttempts returns the escalating threshold ladder used when a batch
// clip does not split into the expected number of segments: first the base
// thresholds, then progressively more sensitive ones that admit quieter
// and shorter pauses.
func SplitAttempts(base Thresholds) []Thresholds {
	return []Thresholds{
		base,
		{NoiseDB: base.NoiseDB + 5, MinDur: base.MinDur * 0.66},
		{NoiseDB: base.NoiseDB + 10, MinDur: base.MinDur * 0.5},
	}
}

// Batch synthesizes many phrases in one provider request and splits the
// result on silence, falling back to per-phrase requests when splitting
// fails. Batching matters for providers that bill per request.
type Batch struct {
	synth  Synthesizer
	tool   *media.Tool
	base   Thresholds
	logger *zap.Logger
}

// NewBatch creates a batch synthesizer. Zero thresholds use the
// segmentation defaults.
func NewBatch(synth Synthesizer, tool *media.Tool, base Thresholds, logger *zap.Logger) *Batch {
	if base.NoiseDB == 0 {
		base.NoiseDB = silence.DefaultNoiseDB
	}
	if base.MinDur <= 0 {
		base.MinDur = silence.DefaultMinDur
	}
	return &Batch{synth: synth, tool: tool, base: base, logger: logger}
}

// Run synthesizes all phrases and returns one WAV path per phrase, in
// order, under workDir.
func (b *Batch) Run(ctx context.Context, phrases []string, workDir string) ([]string, error) {
	if len(phrases) == 0 {
		return nil, nil
	}
	if len(phrases) == 1 {
		path, err := b.single(ctx, phrases[0], filepath.Join(workDir, "phrase_0"))
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	paths, err := b.batched(ctx, phrases, workDir)
	if err == nil {
		return paths, nil
	}
	b.logger.Warn("batch synthesis split failed, falling back to per-phrase requests",
		zap.Int("phrases", len(phrases)),
		zap.Error(err),
	)

	paths = make([]string, len(phrases))
	for i, phrase := range phrases {
		path, err := b.single(ctx, phrase, filepath.Join(workDir, fmt.Sprintf("phrase_%d", i)))
		if err != nil {
			return nil, fmt.Errorf("fallback synthesis failed for phrase %d: %w", i, err)
		}
		paths[i] = path
	}
	return paths, nil
}

func (b *Batch) single(ctx context.Context, phrase, stem string) (string, error) {
	raw := stem + ".raw"
	if err := b.synth.Synthesize(ctx, phrase, raw); err != nil {
		return "", err
	}
	wav := stem + ".wav"
	if err := b.tool.ToWAV(ctx, raw, wav); err != nil {
		return "", err
	}
	return wav, nil
}

func (b *Batch) batched(ctx context.Context, phrases []string, workDir string) ([]string, error) {
	joined := strings.Join(phrases, pauseSeparator)

	raw := filepath.Join(workDir, "batch.raw")
	if err := b.synth.Synthesize(ctx, joined, raw); err != nil {
		return nil, fmt.Errorf("batch synthesis failed: %w", err)
	}
	wav := filepath.Join(workDir, "batch.wav")
	if err := b.tool.ToWAV(ctx, raw, wav); err != nil {
		return nil, err
	}

	dur, err := b.tool.Duration(ctx, wav)
	if err != nil {
		return nil, err
	}

	var spans []silence.Interval
	for _, th := range SplitAttempts(b.base) {
		stderr, err := b.tool.SilenceDetect(ctx, wav, th.NoiseDB, th.MinDur)
		if err != nil {
			return nil, err
		}
		spans = silence.NonSilent(silence.ParseEvents(stderr, dur), dur)
		if len(spans) == len(phrases) {
			return b.cut(ctx, wav, spans, workDir)
		}
		b.logger.Debug("batch split attempt mismatched",
			zap.Float64("noise_db", th.NoiseDB),
			zap.Float64("min_dur", th.MinDur),
			zap.Int("got", len(spans)),
			zap.Int("want", len(phrases)),
		)
	}

	return nil, fmt.Errorf("batch clip split into %d segments, expected %d", len(spans), len(phrases))
}

func (b *Batch) cut(ctx context.Context, wav string, spans []silence.Interval, workDir string) ([]string, error) {
	paths := make([]string, len(spans))
	for i, span := range spans {
		dst := filepath.Join(workDir, fmt.Sprintf("phrase_%d.wav", i))
		if err := b.tool.CutAudio(ctx, wav, dst, span.Start, span.Duration()); err != nil {
			return nil, fmt.Errorf("failed to cut batch segment %d: %w", i, err)
		}
		paths[i] = dst
	}
	return paths, nil
}
