package tts

import (
	"context"
	"fmt"
	"os"
	"strings"

	"vidx/worker/internal/media"

	"go.uber.org/zap"
)

// Command runs a user-supplied synthesis command. The template must contain
// the {text} and {out} placeholders; {voice} is substituted when a voice
// is configured. The command is split on whitespace; shell features are
// not interpreted.
type Command struct {
	template string
	voice    string
	runner   media.Runner
	logger   *zap.Logger
}

// NewCommand creates a command synthesizer after validating the template.
// voice may be empty when the template carries no {voice} placeholder.
func NewCommand(template, voice string, runner media.Runner, logger *zap.Logger) (*Command, error) {
	if err := ValidateCommandTemplate(template); err != nil {
		return nil, err
	}
	if strings.Contains(template, "{voice}") && voice == "" {
		return nil, fmt.Errorf("tts command uses {voice} but no voice was supplied")
	}
	return &Command{template: template, voice: voice, runner: runner, logger: logger}, nil
}

// ValidateCommandTemplate checks that a command template carries both
// required placeholders. Run at job submission so a bad template fails
// before any work is queued.
func ValidateCommandTemplate(template string) error {
	if strings.TrimSpace(template) == "" {
		return fmt.Errorf("tts command is empty")
	}
	if !strings.Contains(template, "{text}") {
		return fmt.Errorf("tts command is missing the {text} placeholder")
	}
	if !strings.Contains(template, "{out}") {
		return fmt.Errorf("tts command is missing the {out} placeholder")
	}
	return nil
}

// Provider implements Synthesizer.
func (c *Command) Provider() string { return ProviderCommand }

// Synthesize implements Synthesizer.
func (c *Command) Synthesize(ctx context.Context, text, dst string) error {
	fields := strings.Fields(c.template)
	if len(fields) == 0 {
		return fmt.Errorf("tts command is empty")
	}

	args := make([]string, 0, len(fields)-1)
	for _, f := range fields[1:] {
		f = strings.ReplaceAll(f, "{text}", text)
		f = strings.ReplaceAll(f, "{out}", dst)
		f = strings.ReplaceAll(f, "{voice}", c.voice)
		args = append(args, f)
	}

	c.logger.Debug("running tts command", zap.String("command", fields[0]))
	_, _, err := c.runner.Run(ctx, fields[0], args...)
	if err != nil {
		return fmt.Errorf("tts command failed: %w", err)
	}

	// A command can exit zero without writing anything; an absent or empty
	// file is a synthesis failure, not a valid clip.
	info, err := os.Stat(dst)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("tts command produced no output at %s", dst)
	}
	return nil
}
