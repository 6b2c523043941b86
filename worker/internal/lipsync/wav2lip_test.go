package lipsync

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

// recordingRunner captures the invocation and, unless writeNothing is set,
// creates the requested outfile the way a successful inference run would.
type recordingRunner struct {
	gotName      string
	gotArgs      []string
	hadDeadline  bool
	remaining    time.Duration
	writeNothing bool
}

func (r *recordingRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	r.gotName = name
	r.gotArgs = args
	if dl, ok := ctx.Deadline(); ok {
		r.hadDeadline = true
		r.remaining = time.Until(dl)
	}
	if !r.writeNothing {
		for i, a := range args {
			if a == "--outfile" && i+1 < len(args) {
				_ = os.WriteFile(args[i+1], []byte("mp4-bytes"), 0o644)
			}
		}
	}
	return "", "", nil
}

func TestParsePads(t *testing.T) {
	pads, err := ParsePads("0 10 0 0")
	if err != nil {
		t.Fatalf("ParsePads: %v", err)
	}
	if pads != [4]int{0, 10, 0, 0} {
		t.Errorf("pads = %v, want [0 10 0 0]", pads)
	}

	for _, bad := range []string{"", "0 10", "0 10 0 0 0", "a b c d"} {
		if _, err := ParsePads(bad); err == nil {
			t.Errorf("ParsePads(%q) should fail", bad)
		}
	}
}

func TestNewValidatesOptions(t *testing.T) {
	if _, err := New(Options{Checkpoint: "w.pth"}, &recordingRunner{}, zap.NewNop()); err == nil {
		t.Error("missing repo should fail")
	}
	if _, err := New(Options{Repo: "/opt/wav2lip"}, &recordingRunner{}, zap.NewNop()); err == nil {
		t.Error("missing checkpoint should fail")
	}
	if _, err := New(Options{Repo: "/opt/wav2lip", Checkpoint: "w.pth", Pads: "1 2 3"}, &recordingRunner{}, zap.NewNop()); err == nil {
		t.Error("malformed pads should fail")
	}
}

func TestSyncBuildsInvocation(t *testing.T) {
	runner := &recordingRunner{}
	r, err := New(Options{Repo: "/opt/wav2lip", Checkpoint: "/opt/wav2lip/w.pth"}, runner, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "out.mp4")
	if err := r.Sync(context.Background(), "in.mp4", "voice.wav", dst); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if runner.gotName != "python3" {
		t.Errorf("interpreter = %q, want python3", runner.gotName)
	}
	joined := strings.Join(runner.gotArgs, " ")
	for _, want := range []string{
		"/opt/wav2lip/inference.py",
		"--checkpoint_path /opt/wav2lip/w.pth",
		"--face in.mp4",
		"--audio voice.wav",
		"--outfile " + dst,
		"--pads 0 10 0 0",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected %q in invocation: %s", want, joined)
		}
	}
}

func TestSyncRequiresOutput(t *testing.T) {
	runner := &recordingRunner{writeNothing: true}
	r, err := New(Options{Repo: "/opt/wav2lip", Checkpoint: "w.pth"}, runner, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "out.mp4")
	err = r.Sync(context.Background(), "in.mp4", "voice.wav", dst)
	if err == nil || !strings.Contains(err.Error(), "no output") {
		t.Fatalf("expected missing-output failure, got %v", err)
	}
}

func TestSyncAppliesTimeout(t *testing.T) {
	runner := &recordingRunner{}
	r, err := New(Options{Repo: "/opt/wav2lip", Checkpoint: "w.pth", Timeout: time.Minute}, runner, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "out.mp4")
	if err := r.Sync(context.Background(), "in.mp4", "voice.wav", dst); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if !runner.hadDeadline {
		t.Fatal("inference ran without a deadline")
	}
	if runner.remaining > time.Minute || runner.remaining < 50*time.Second {
		t.Errorf("deadline %v away, want about a minute", runner.remaining)
	}
}
