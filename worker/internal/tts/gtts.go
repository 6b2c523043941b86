package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"
)

// GTTS synthesizes speech through the Google Translate TTS endpoint (or a
// compatible proxy). Output is mp3.
type GTTS struct {
	endpoint   string
	lang       string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGTTS creates a gTTS synthesizer for the given language.
func NewGTTS(endpoint, lang string, logger *zap.Logger) *GTTS {
	if lang == "" {
		lang = "en"
	}
	return &GTTS{
		endpoint: endpoint,
		lang:     lang,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Provider implements Synthesizer.
func (g *GTTS) Provider() string { return ProviderGTTS }

// Synthesize implements Synthesizer.
func (g *GTTS) Synthesize(ctx context.Context, text, dst string) error {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", g.lang)
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create gtts request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gtts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gtts returned status %d: %s", resp.StatusCode, string(body))
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create gtts output: %w", err)
	}
	defer out.Close()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to write gtts output: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("gtts returned empty audio for %q", text)
	}

	g.logger.Debug("gtts synthesis complete", zap.Int64("bytes", n))
	return nil
}
