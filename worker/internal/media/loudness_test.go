package media

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestClampGain(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{3.5, 3.5},
		{-4.2, -4.2},
		{12, 8},
		{-15, -8},
	}
	for _, tt := range tests {
		if got := ClampGain(tt.in); got != tt.want {
			t.Errorf("ClampGain(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// scriptedRunner answers volumedetect probes with canned mean volumes and
// records any gain application.
type scriptedRunner struct {
	volumes []string
	call    int

	gainArgs []string
}

func (s *scriptedRunner) Run(_ context.Context, name string, args ...string) (string, string, error) {
	joined := strings.Join(args, " ")
	if strings.Contains(joined, "volumedetect") {
		v := s.volumes[s.call]
		s.call++
		return "", "mean_volume: " + v + " dB", nil
	}
	if strings.Contains(joined, "volume=") {
		s.gainArgs = args
	}
	return "", "", nil
}

func TestMatchLoudnessAppliesGain(t *testing.T) {
	runner := &scriptedRunner{volumes: []string{"-20.0", "-26.0"}}
	tool := NewTool("ffmpeg", "ffprobe", zap.NewNop()).WithRunner(runner)

	gain, err := tool.MatchLoudness(context.Background(), "clip.wav", "ref.wav", "out.wav", 1.0, 2.0, zap.NewNop())
	if err != nil {
		t.Fatalf("MatchLoudness: %v", err)
	}
	if gain != 6.0 {
		t.Errorf("gain = %v, want 6.0", gain)
	}
	joined := strings.Join(runner.gainArgs, " ")
	if !strings.Contains(joined, "volume=6.000dB,alimiter=limit=0.95") {
		t.Errorf("gain filter not applied as expected: %s", joined)
	}
}

func TestMatchLoudnessClampsLargeDifference(t *testing.T) {
	runner := &scriptedRunner{volumes: []string{"-10.0", "-40.0"}}
	tool := NewTool("ffmpeg", "ffprobe", zap.NewNop()).WithRunner(runner)

	gain, err := tool.MatchLoudness(context.Background(), "clip.wav", "ref.wav", "out.wav", 0, 0, zap.NewNop())
	if err != nil {
		t.Fatalf("MatchLoudness: %v", err)
	}
	if gain != 8.0 {
		t.Errorf("gain = %v, want clamp at 8.0", gain)
	}
}

func TestMatchLoudnessSkipsNegligibleDifference(t *testing.T) {
	runner := &scriptedRunner{volumes: []string{"-20.0", "-20.2"}}
	tool := NewTool("ffmpeg", "ffprobe", zap.NewNop()).WithRunner(runner)

	gain, err := tool.MatchLoudness(context.Background(), "clip.wav", "ref.wav", "out.wav", 0, 0, zap.NewNop())
	if err != nil {
		t.Fatalf("MatchLoudness: %v", err)
	}
	if gain != 0 {
		t.Errorf("gain = %v, want 0 for a 0.2dB difference", gain)
	}
	if runner.gainArgs != nil {
		t.Error("no gain filter should run for a negligible difference")
	}
}

func TestMatchLoudnessPassThroughWhenUnmeasurable(t *testing.T) {
	runner := &scriptedRunner{volumes: []string{"", ""}}
	tool := NewTool("ffmpeg", "ffprobe", zap.NewNop()).WithRunner(runner)

	gain, err := tool.MatchLoudness(context.Background(), "clip.wav", "ref.wav", "out.wav", 0, 0, zap.NewNop())
	if err != nil {
		t.Fatalf("MatchLoudness: %v", err)
	}
	if gain != 0 {
		t.Errorf("gain = %v, want 0 when measurement fails", gain)
	}
}
