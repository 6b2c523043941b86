package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	// SampleRate is the working sample rate for all intermediate WAV files.
	SampleRate = 48000
	// Channels is the working channel count for all intermediate WAV files.
	Channels = 2
)

// Runner executes an external command and returns its stdout and stderr.
// Tests substitute a fake runner; production uses exec.CommandContext.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// DefaultRunner executes commands via exec.CommandContext. Shared by the
// subprocess adapters (external TTS commands, lip-sync).
var DefaultRunner Runner = execRunner{}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	var out, errBuf bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	err := cmd.Run()
	if err != nil {
		return out.String(), errBuf.String(), fmt.Errorf("%s failed: %w: %s", name, err, tail(errBuf.String(), 2000))
	}
	return out.String(), errBuf.String(), nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(s[len(s)-n:])
}

// Tool invokes ffmpeg/ffprobe with explicit parameters. All cutting,
// concatenation, gain and mux operations write to a caller-specified
// output path; a nonzero exit is the sole failure signal.
type Tool struct {
	ffmpegPath  string
	ffprobePath string
	runner      Runner
	logger      *zap.Logger
}

// NewTool creates a media tool using the given binary paths.
func NewTool(ffmpegPath, ffprobePath string, logger *zap.Logger) *Tool {
	return &Tool{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		runner:      execRunner{},
		logger:      logger,
	}
}

// WithRunner replaces the command runner. Used by tests.
func (t *Tool) WithRunner(r Runner) *Tool {
	clone := *t
	clone.runner = r
	return &clone
}

// Duration returns the container duration in seconds via ffprobe.
// A missing or zero-duration input is an error so callers can fail fast
// before any synthesis work.
func (t *Tool) Duration(ctx context.Context, path string) (float64, error) {
	stdout, _, err := t.runner.Run(ctx, t.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(stdout), 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse duration for %s: %w", path, err)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("zero-duration input: %s", path)
	}
	return dur, nil
}

// ExtractAudio extracts the audio track as PCM WAV at the working rate.
func (t *Tool) ExtractAudio(ctx context.Context, src, dst string) error {
	_, _, err := t.runner.Run(ctx, t.ffmpegPath,
		"-y",
		"-i", src,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		dst,
	)
	return err
}

// ToWAV re-encodes any audio input (e.g. a provider mp3) to working-rate PCM.
func (t *Tool) ToWAV(ctx context.Context, src, dst string) error {
	_, _, err := t.runner.Run(ctx, t.ffmpegPath,
		"-y",
		"-i", src,
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		dst,
	)
	return err
}

// CutAudio copies the [start, start+dur) window of src into dst.
// A non-positive dur means "until the end".
func (t *Tool) CutAudio(ctx context.Context, src, dst string, start, dur float64) error {
	args := []string{"-y", "-i", src}
	if start > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", start))
	}
	if dur > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", dur))
	}
	args = append(args,
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		dst,
	)
	_, _, err := t.runner.Run(ctx, t.ffmpegPath, args...)
	return err
}

// ConcatAudio joins the inputs in order using the concat filter.
func (t *Tool) ConcatAudio(ctx context.Context, inputs []string, dst string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("concat requires at least one input")
	}
	args := []string{"-y"}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}
	var labels strings.Builder
	for i := range inputs {
		fmt.Fprintf(&labels, "[%d:0]", i)
	}
	args = append(args,
		"-filter_complex", fmt.Sprintf("%sconcat=n=%d:v=0:a=1[a]", labels.String(), len(inputs)),
		"-map", "[a]",
		dst,
	)
	_, _, err := t.runner.Run(ctx, t.ffmpegPath, args...)
	return err
}

// SilenceClip writes dur seconds of silence at the working rate.
func (t *Tool) SilenceClip(ctx context.Context, dst string, dur float64) error {
	_, _, err := t.runner.Run(ctx, t.ffmpegPath,
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=stereo", SampleRate),
		"-t", fmt.Sprintf("%.3f", dur),
		"-acodec", "pcm_s16le",
		dst,
	)
	return err
}

// SilenceDetect runs the silencedetect filter and returns ffmpeg's stderr,
// which carries the silence_start/silence_end events.
func (t *Tool) SilenceDetect(ctx context.Context, path string, noiseDB, minDur float64) (string, error) {
	_, stderr, err := t.runner.Run(ctx, t.ffmpegPath,
		"-i", path,
		"-af", fmt.Sprintf("silencedetect=noise=%.1fdB:d=%.3f", noiseDB, minDur),
		"-f", "null",
		"-",
	)
	if err != nil {
		return "", fmt.Errorf("silencedetect failed for %s: %w", path, err)
	}
	return stderr, nil
}

var meanVolumeRe = regexp.MustCompile(`mean_volume:\s*(-?\d+(?:\.\d+)?)\s*dB`)

// ParseMeanVolume extracts the volumedetect mean_volume reading from
// ffmpeg stderr output.
func ParseMeanVolume(stderr string) (float64, bool) {
	m := meanVolumeRe.FindStringSubmatch(stderr)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// MeanVolumeDB measures the mean volume of a window of the input in dB.
// Non-positive start/dur disable the respective bound. The boolean is
// false when measurement was not possible.
func (t *Tool) MeanVolumeDB(ctx context.Context, path string, start, dur float64) (float64, bool) {
	args := []string{"-hide_banner", "-y"}
	if start > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", start))
	}
	args = append(args, "-i", path)
	if dur > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", dur))
	}
	args = append(args, "-vn", "-af", "volumedetect", "-f", "null", "-")
	_, stderr, err := t.runner.Run(ctx, t.ffmpegPath, args...)
	if err != nil {
		return 0, false
	}
	return ParseMeanVolume(stderr)
}

// ApplyGain rewrites src with the given gain in dB, limited to avoid clipping.
func (t *Tool) ApplyGain(ctx context.Context, src, dst string, gainDB float64) error {
	_, _, err := t.runner.Run(ctx, t.ffmpegPath,
		"-y",
		"-i", src,
		"-af", fmt.Sprintf("volume=%.3fdB,alimiter=limit=0.95", gainDB),
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		dst,
	)
	return err
}

// AtempoChain builds an atempo filter expression for the given speed.
// ffmpeg's atempo supports [0.5, 2.0] per stage, so stages are chained
// until the remainder fits.
func AtempoChain(speed float64) string {
	if speed <= 0 {
		return "atempo=1.0"
	}
	var stages []string
	remaining := speed
	for remaining > 2.0 {
		stages = append(stages, "atempo=2.0")
		remaining /= 2.0
	}
	for remaining < 0.5 {
		stages = append(stages, "atempo=0.5")
		remaining /= 0.5
	}
	stages = append(stages, fmt.Sprintf("atempo=%.6f", remaining))
	return strings.Join(stages, ",")
}

// FitClip time-stretches src to targetDur seconds and pads the tail with
// silence if the stretched clip comes up short.
func (t *Tool) FitClip(ctx context.Context, src, dst string, sourceDur, targetDur float64) error {
	speed := 1.0
	if targetDur > 0 {
		speed = sourceDur / targetDur
	}
	_, _, err := t.runner.Run(ctx, t.ffmpegPath,
		"-y",
		"-i", src,
		"-af", AtempoChain(speed)+",apad",
		"-t", fmt.Sprintf("%.3f", targetDur),
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		dst,
	)
	return err
}

// EncodeMP3 encodes the input to mp3. When normalize is set, a loudnorm
// finishing pass is applied first.
func (t *Tool) EncodeMP3(ctx context.Context, src, dst string, normalize bool) error {
	args := []string{"-y", "-i", src}
	if normalize {
		args = append(args, "-af", "loudnorm=I=-18:TP=-1.5:LRA=11")
	}
	args = append(args, "-codec:a", "libmp3lame", "-q:a", "2", dst)
	_, _, err := t.runner.Run(ctx, t.ffmpegPath, args...)
	return err
}

// ReplaceAudio muxes a new audio track onto the video, copying the video
// stream. A positive limitDur trims the output to the base duration so
// timing stays aligned. When normalize is set a loudnorm pass is applied
// to the audio.
func (t *Tool) ReplaceAudio(ctx context.Context, video, audio, dst string, limitDur float64, normalize bool) error {
	args := []string{
		"-y",
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
	}
	if normalize {
		args = append(args, "-af", "loudnorm=I=-18:TP=-1.5:LRA=11")
	}
	if limitDur > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", limitDur))
	}
	args = append(args, dst)
	_, _, err := t.runner.Run(ctx, t.ffmpegPath, args...)
	return err
}

// PadStartMux muxes the audio onto the video while padding the video with
// a held first frame for padDur seconds, so audio inserted before the
// speaker starts stays aligned without dropping or speeding up frames.
func (t *Tool) PadStartMux(ctx context.Context, video, audio, dst string, padDur float64) error {
	_, _, err := t.runner.Run(ctx, t.ffmpegPath,
		"-y",
		"-i", video,
		"-i", audio,
		"-filter_complex", fmt.Sprintf("[0:v]tpad=start_duration=%.3f:start_mode=clone[v]", padDur),
		"-map", "[v]",
		"-map", "1:a:0",
		"-c:v", "libx264",
		"-crf", "20",
		"-preset", "medium",
		"-c:a", "aac",
		"-b:a", "160k",
		dst,
	)
	return err
}

// Transcode converts the input container to an MP4 suitable for mobile
// playback.
func (t *Tool) Transcode(ctx context.Context, src, dst string, crf int, preset, audioBitrate string) error {
	_, _, err := t.runner.Run(ctx, t.ffmpegPath,
		"-y",
		"-i", src,
		"-c:v", "libx264",
		"-preset", preset,
		"-crf", strconv.Itoa(crf),
		"-c:a", "aac",
		"-b:a", audioBitrate,
		"-movflags", "+faststart",
		dst,
	)
	return err
}
