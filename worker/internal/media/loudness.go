package media

import (
	"context"
	"math"

	"go.uber.org/zap"
)

const (
	// maxGainDB bounds the correction applied when matching loudness, so
	// a badly measured clip cannot be blown out or silenced.
	maxGainDB = 8.0
	// minGainDB is the correction below which matching is skipped.
	minGainDB = 0.3
)

// ClampGain bounds a loudness correction to the safe range.
func ClampGain(gainDB float64) float64 {
	if gainDB > maxGainDB {
		return maxGainDB
	}
	if gainDB < -maxGainDB {
		return -maxGainDB
	}
	return gainDB
}

// MatchLoudness adjusts the clip so its mean volume matches the reference
// window of refPath, writing the result to dst. When measurement fails or
// the difference is negligible the clip passes through unchanged. The
// returned gain is what was applied (zero on pass-through).
func (t *Tool) MatchLoudness(ctx context.Context, clip, refPath, dst string, refStart, refDur float64, logger *zap.Logger) (float64, error) {
	refVol, refOK := t.MeanVolumeDB(ctx, refPath, refStart, refDur)
	clipVol, clipOK := t.MeanVolumeDB(ctx, clip, 0, 0)

	if !refOK || !clipOK {
		logger.Warn("loudness measurement unavailable, leaving clip as-is",
			zap.Bool("ref_measured", refOK),
			zap.Bool("clip_measured", clipOK),
		)
		return 0, copyAudio(ctx, t, clip, dst)
	}

	gain := ClampGain(refVol - clipVol)
	if math.Abs(gain) < minGainDB {
		return 0, copyAudio(ctx, t, clip, dst)
	}

	if err := t.ApplyGain(ctx, clip, dst, gain); err != nil {
		return 0, err
	}
	logger.Debug("loudness matched",
		zap.Float64("ref_db", refVol),
		zap.Float64("clip_db", clipVol),
		zap.Float64("gain_db", gain),
	)
	return gain, nil
}

func copyAudio(ctx context.Context, t *Tool, src, dst string) error {
	if src == dst {
		return nil
	}
	return t.ToWAV(ctx, src, dst)
}
