package tts

import (
	"context"
	"fmt"
	"strings"
)

// Provider names accepted in job options.
const (
	ProviderGTTS       = "gtts"
	ProviderElevenLabs = "elevenlabs"
	ProviderCommand    = "command"
	ProviderNone       = "none"
)

// Synthesizer renders text to an audio file at dst. Implementations write
// the provider's native format; callers re-encode to the working WAV rate.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, dst string) error
	Provider() string
}

// noneSynthesizer refuses all synthesis. Selected for jobs that only cut
// and splice pre-recorded audio.
type noneSynthesizer struct{}

func (noneSynthesizer) Synthesize(_ context.Context, _, _ string) error {
	return fmt.Errorf("tts provider is disabled for this job")
}

func (noneSynthesizer) Provider() string { return ProviderNone }

// NewNone returns the disabled synthesizer.
func NewNone() Synthesizer { return noneSynthesizer{} }

// RenderTemplate substitutes the recipient name into a text template.
// A template without the {name} placeholder gets the name appended, so a
// bare greeting like "Hello" still personalizes.
func RenderTemplate(template, name string) string {
	if template == "" {
		return name
	}
	if strings.Contains(template, "{name}") {
		return strings.ReplaceAll(template, "{name}", name)
	}
	return strings.TrimSpace(template) + " " + name
}
