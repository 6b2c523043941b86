package tts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		person   string
		want     string
	}{
		{"placeholder substituted", "Hi {name}, welcome!", "Alice", "Hi Alice, welcome!"},
		{"placeholder repeated", "{name}, yes {name}", "Bob", "Bob, yes Bob"},
		{"no placeholder appends", "Hello", "Carol", "Hello Carol"},
		{"empty template is just the name", "", "Dave", "Dave"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderTemplate(tt.template, tt.person); got != tt.want {
				t.Errorf("RenderTemplate(%q, %q) = %q, want %q", tt.template, tt.person, got, tt.want)
			}
		})
	}
}

func TestClampSpeed(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{0.5, 0.7},
		{0.7, 0.7},
		{1.0, 1.0},
		{1.2, 1.2},
		{2.0, 1.2},
	}
	for _, tt := range tests {
		if got := ClampSpeed(tt.in); got != tt.want {
			t.Errorf("ClampSpeed(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidateCommandTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		wantErr  string
	}{
		{"valid", "say -o {out} {text}", ""},
		{"empty", "   ", "empty"},
		{"missing text", "say -o {out}", "{text}"},
		{"missing output", "say {text}", "{out}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCommandTemplate(tt.template)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

// recordingRunner captures the invocation and writes out so Synthesize
// sees the file a real command would have produced. Leave out empty to
// model a command that exits clean without writing anything.
type recordingRunner struct {
	gotName string
	gotArgs []string
	out     string
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) (string, string, error) {
	r.gotName = name
	r.gotArgs = args
	if r.out != "" {
		_ = os.WriteFile(r.out, []byte("wav-bytes"), 0o644)
	}
	return "", "", nil
}

func TestCommandSubstitutesPlaceholders(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.wav")
	runner := &recordingRunner{out: dst}
	cmd, err := NewCommand("espeak -v {voice} -w {out} {text}", "en-us", runner, zap.NewNop())
	if err != nil {
		t.Fatalf("NewCommand: %v", err)
	}

	if err := cmd.Synthesize(context.Background(), "Hello", dst); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if runner.gotName != "espeak" {
		t.Errorf("command = %q, want espeak", runner.gotName)
	}
	want := []string{"-v", "en-us", "-w", dst, "Hello"}
	if len(runner.gotArgs) != len(want) {
		t.Fatalf("args = %v, want %v", runner.gotArgs, want)
	}
	for i := range want {
		if runner.gotArgs[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, runner.gotArgs[i], want[i])
		}
	}
}

func TestCommandRequiresOutput(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.wav")
	cmd, err := NewCommand("espeak -w {out} {text}", "", &recordingRunner{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewCommand: %v", err)
	}

	err = cmd.Synthesize(context.Background(), "Hello", dst)
	if err == nil || !strings.Contains(err.Error(), "no output") {
		t.Fatalf("expected missing-output failure, got %v", err)
	}
}

func TestNewCommandRejectsBadTemplate(t *testing.T) {
	if _, err := NewCommand("say something", "", &recordingRunner{}, zap.NewNop()); err == nil {
		t.Fatal("expected template validation error")
	}
	if _, err := NewCommand("say {text} {out} {voice}", "", &recordingRunner{}, zap.NewNop()); err == nil {
		t.Fatal("expected error for {voice} with no voice supplied")
	}
}

func TestSplitAttempts(t *testing.T) {
	attempts := SplitAttempts(Thresholds{NoiseDB: -35, MinDur: 0.5})
	if len(attempts) != 3 {
		t.Fatalf("got %d attempts, want 3", len(attempts))
	}
	if attempts[0] != (Thresholds{NoiseDB: -35, MinDur: 0.5}) {
		t.Errorf("first attempt must be the base thresholds: %+v", attempts[0])
	}
	if attempts[1].NoiseDB != -30 || attempts[1].MinDur != 0.33 {
		t.Errorf("second attempt = %+v, want noise -30, dur 0.33", attempts[1])
	}
	if attempts[2].NoiseDB != -25 || attempts[2].MinDur != 0.25 {
		t.Errorf("third attempt = %+v, want noise -25, dur 0.25", attempts[2])
	}
}

func TestNoneSynthesizerRefuses(t *testing.T) {
	if err := NewNone().Synthesize(context.Background(), "x", "/tmp/x"); err == nil {
		t.Fatal("expected the disabled provider to refuse synthesis")
	}
}
