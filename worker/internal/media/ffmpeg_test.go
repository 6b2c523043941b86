package media

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type fakeRunner struct {
	stdout string
	stderr string
	err    error

	gotName string
	gotArgs []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, string, error) {
	f.gotName = name
	f.gotArgs = args
	return f.stdout, f.stderr, f.err
}

func TestAtempoChain(t *testing.T) {
	tests := []struct {
		name  string
		speed float64
		want  string
	}{
		{"identity", 1.0, "atempo=1.000000"},
		{"in range speedup", 1.5, "atempo=1.500000"},
		{"in range slowdown", 0.75, "atempo=0.750000"},
		{"above two chains", 3.0, "atempo=2.0,atempo=1.500000"},
		{"far above two", 5.0, "atempo=2.0,atempo=2.0,atempo=1.250000"},
		{"below half chains", 0.3, "atempo=0.5,atempo=0.600000"},
		{"non positive falls back", 0, "atempo=1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AtempoChain(tt.speed); got != tt.want {
				t.Errorf("AtempoChain(%v) = %q, want %q", tt.speed, got, tt.want)
			}
		})
	}
}

func TestParseMeanVolume(t *testing.T) {
	stderr := `[Parsed_volumedetect_0 @ 0x7f8] n_samples: 4800000
[Parsed_volumedetect_0 @ 0x7f8] mean_volume: -23.4 dB
[Parsed_volumedetect_0 @ 0x7f8] max_volume: -5.1 dB`

	got, ok := ParseMeanVolume(stderr)
	if !ok {
		t.Fatal("expected mean_volume to parse")
	}
	if got != -23.4 {
		t.Errorf("mean volume = %v, want -23.4", got)
	}

	if _, ok := ParseMeanVolume("no measurement here"); ok {
		t.Error("expected parse failure for output without mean_volume")
	}
}

func TestDuration(t *testing.T) {
	runner := &fakeRunner{stdout: "12.480000\n"}
	tool := NewTool("ffmpeg", "ffprobe", zap.NewNop()).WithRunner(runner)

	dur, err := tool.Duration(context.Background(), "/tmp/in.mp4")
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if dur != 12.48 {
		t.Errorf("duration = %v, want 12.48", dur)
	}
	if runner.gotName != "ffprobe" {
		t.Errorf("expected ffprobe invocation, got %q", runner.gotName)
	}
}

func TestDurationRejectsZero(t *testing.T) {
	runner := &fakeRunner{stdout: "0.000000\n"}
	tool := NewTool("ffmpeg", "ffprobe", zap.NewNop()).WithRunner(runner)

	if _, err := tool.Duration(context.Background(), "/tmp/in.mp4"); err == nil {
		t.Fatal("expected error for zero-duration input")
	}
}

func TestSilenceDetectArgs(t *testing.T) {
	runner := &fakeRunner{stderr: "silence_start: 1.0"}
	tool := NewTool("ffmpeg", "ffprobe", zap.NewNop()).WithRunner(runner)

	out, err := tool.SilenceDetect(context.Background(), "/tmp/a.wav", -35, 0.5)
	if err != nil {
		t.Fatalf("SilenceDetect: %v", err)
	}
	if out != "silence_start: 1.0" {
		t.Errorf("unexpected stderr passthrough: %q", out)
	}

	joined := strings.Join(runner.gotArgs, " ")
	if !strings.Contains(joined, "silencedetect=noise=-35.0dB:d=0.500") {
		t.Errorf("silencedetect filter not built as expected: %s", joined)
	}
}

func TestReplaceAudioCopiesVideoStream(t *testing.T) {
	runner := &fakeRunner{}
	tool := NewTool("ffmpeg", "ffprobe", zap.NewNop()).WithRunner(runner)

	if err := tool.ReplaceAudio(context.Background(), "v.mp4", "a.wav", "out.mp4", 10.5, true); err != nil {
		t.Fatalf("ReplaceAudio: %v", err)
	}

	joined := strings.Join(runner.gotArgs, " ")
	for _, want := range []string{"-c:v copy", "loudnorm=I=-18:TP=-1.5:LRA=11", "-t 10.500"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected %q in args: %s", want, joined)
		}
	}
}
