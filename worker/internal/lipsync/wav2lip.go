package lipsync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"vidx/worker/internal/media"

	"go.uber.org/zap"
)

// Options configure a Wav2Lip run. Repo and Checkpoint are required; the
// rest default sensibly.
type Options struct {
	// Repo is the Wav2Lip checkout containing inference.py.
	Repo string
	// Checkpoint is the model weights file.
	Checkpoint string
	// Pads is four integers "top bottom left right" that extend the
	// detected face box.
	Pads string
	// Python is the interpreter to invoke.
	Python string
	// Timeout bounds one inference run. Zero means no bound beyond the
	// caller's context; inference needs far more headroom than ordinary
	// media operations.
	Timeout time.Duration
}

// ParsePads validates and parses a pads string into its four integers.
func ParsePads(pads string) ([4]int, error) {
	fields := strings.Fields(pads)
	if len(fields) != 4 {
		return [4]int{}, fmt.Errorf("pads must be four integers, got %q", pads)
	}
	var out [4]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return [4]int{}, fmt.Errorf("pads must be four integers, got %q", pads)
		}
		out[i] = n
	}
	return out, nil
}

// Runner drives Wav2Lip's inference.py over a video/audio pair.
type Runner struct {
	opts   Options
	runner media.Runner
	logger *zap.Logger
}

// New validates the options and creates a runner. An error here means the
// job should fail before any synthesis work.
func New(opts Options, runner media.Runner, logger *zap.Logger) (*Runner, error) {
	if opts.Repo == "" {
		return nil, fmt.Errorf("wav2lip repo path is required")
	}
	if opts.Checkpoint == "" {
		return nil, fmt.Errorf("wav2lip checkpoint is required")
	}
	if opts.Pads == "" {
		opts.Pads = "0 10 0 0"
	}
	if _, err := ParsePads(opts.Pads); err != nil {
		return nil, err
	}
	if opts.Python == "" {
		opts.Python = "python3"
	}
	return &Runner{opts: opts, runner: runner, logger: logger}, nil
}

// Sync re-renders the mouth region of video to match audio, writing the
// result to dst. This is the slowest stage of the pipeline by far.
func (r *Runner) Sync(ctx context.Context, video, audio, dst string) error {
	pads, err := ParsePads(r.opts.Pads)
	if err != nil {
		return err
	}

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	args := []string{
		filepath.Join(r.opts.Repo, "inference.py"),
		"--checkpoint_path", r.opts.Checkpoint,
		"--face", video,
		"--audio", audio,
		"--outfile", dst,
		"--pads",
	}
	for _, p := range pads {
		args = append(args, strconv.Itoa(p))
	}

	r.logger.Info("running wav2lip",
		zap.String("video", filepath.Base(video)),
		zap.String("audio", filepath.Base(audio)),
	)
	if _, _, err := r.runner.Run(ctx, r.opts.Python, args...); err != nil {
		return fmt.Errorf("wav2lip inference failed: %w", err)
	}

	// inference.py exits zero on some face-detection failures without
	// writing anything; an absent or empty outfile is a failure.
	info, err := os.Stat(dst)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("wav2lip produced no output at %s", dst)
	}
	return nil
}
