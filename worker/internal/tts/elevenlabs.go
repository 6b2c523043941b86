package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Speed bounds accepted by the ElevenLabs voice settings API.
const (
	minSpeed = 0.7
	maxSpeed = 1.2
)

// ElevenLabs synthesizes speech with a specific (possibly cloned) voice.
// Output is mp3.
type ElevenLabs struct {
	baseURL    string
	apiKey     string
	voiceID    string
	modelID    string
	speed      float64
	httpClient *http.Client
	logger     *zap.Logger
}

// NewElevenLabs creates an ElevenLabs synthesizer bound to one voice.
// Speed is clamped to the provider's supported range; zero means default.
func NewElevenLabs(baseURL, apiKey, voiceID, modelID string, speed float64, logger *zap.Logger) *ElevenLabs {
	if modelID == "" {
		modelID = "eleven_multilingual_v2"
	}
	return &ElevenLabs{
		baseURL: baseURL,
		apiKey:  apiKey,
		voiceID: voiceID,
		modelID: modelID,
		speed:   ClampSpeed(speed),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// ClampSpeed bounds a speed to the provider's supported range. Zero is
// passed through and means "provider default".
func ClampSpeed(speed float64) float64 {
	if speed == 0 {
		return 0
	}
	if speed < minSpeed {
		return minSpeed
	}
	if speed > maxSpeed {
		return maxSpeed
	}
	return speed
}

// Provider implements Synthesizer.
func (e *ElevenLabs) Provider() string { return ProviderElevenLabs }

type elevenLabsRequest struct {
	Text          string                 `json:"text"`
	ModelID       string                 `json:"model_id"`
	VoiceSettings map[string]interface{} `json:"voice_settings,omitempty"`
}

// Synthesize implements Synthesizer.
func (e *ElevenLabs) Synthesize(ctx context.Context, text, dst string) error {
	if e.voiceID == "" {
		return fmt.Errorf("elevenlabs voice id is required")
	}

	payload := elevenLabsRequest{
		Text:    text,
		ModelID: e.modelID,
	}
	if e.speed != 0 {
		payload.VoiceSettings = map[string]interface{}{"speed": e.speed}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode elevenlabs request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", e.baseURL, e.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create elevenlabs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("elevenlabs returned status %d: %s", resp.StatusCode, string(msg))
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create elevenlabs output: %w", err)
	}
	defer out.Close()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to write elevenlabs output: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("elevenlabs returned empty audio for %q", text)
	}

	e.logger.Debug("elevenlabs synthesis complete",
		zap.String("voice_id", e.voiceID),
		zap.Int64("bytes", n),
	)
	return nil
}

type cloneResponse struct {
	VoiceID string `json:"voice_id"`
}

// CloneVoice creates a new provider voice from a reference sample and
// returns its voice ID. Callers cache the result by sample hash so the
// same sample never clones twice.
func (e *ElevenLabs) CloneVoice(ctx context.Context, name, samplePath string) (string, error) {
	sample, err := os.Open(samplePath)
	if err != nil {
		return "", fmt.Errorf("failed to open voice sample: %w", err)
	}
	defer sample.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("name", name); err != nil {
		return "", fmt.Errorf("failed to build clone request: %w", err)
	}
	part, err := w.CreateFormFile("files", filepath.Base(samplePath))
	if err != nil {
		return "", fmt.Errorf("failed to build clone request: %w", err)
	}
	if _, err := io.Copy(part, sample); err != nil {
		return "", fmt.Errorf("failed to read voice sample: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize clone request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/voices/add", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create clone request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("voice clone request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("voice clone returned status %d: %s", resp.StatusCode, string(msg))
	}

	var result cloneResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode clone response: %w", err)
	}
	if result.VoiceID == "" {
		return "", fmt.Errorf("voice clone returned no voice id")
	}

	e.logger.Info("voice cloned", zap.String("voice_id", result.VoiceID))
	return result.VoiceID, nil
}

// WithVoice returns a copy bound to a different voice ID. Used after a
// clone resolves the effective voice for a job.
func (e *ElevenLabs) WithVoice(voiceID string) *ElevenLabs {
	clone := *e
	clone.voiceID = voiceID
	return &clone
}
