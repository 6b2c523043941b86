package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Key identifies a synthesized name clip. Two requests with the same key
// are guaranteed to produce byte-identical cache entries, so every field
// that influences synthesis output must be part of it.
type Key struct {
	Provider        string
	Lang            string
	TextTemplate    string
	Command         string
	VoiceID         string
	ModelID         string
	Speed           float64
	VoiceSampleHash string
	Name            string
}

// digest returns the content hash over all synthesis-relevant fields.
func (k Key) digest() string {
	h := sha1.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s|%.4f|%s|%s",
		k.Provider, k.Lang, k.TextTemplate, k.Command,
		k.VoiceID, k.ModelID, k.Speed, k.VoiceSampleHash, k.Name,
	)
	return hex.EncodeToString(h.Sum(nil))
}

// Filename returns the cache file name: a readable slug of the recipient
// name plus a short content hash, so a listing stays human-scannable while
// collisions remain impossible in practice.
func (k Key) Filename() string {
	return fmt.Sprintf("%s_%s.wav", Slug(k.Name), k.digest()[:12])
}

// Slug lowercases the name and reduces it to [a-z0-9-] for use in file names.
func Slug(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	s := strings.Trim(b.String(), "-")
	if s == "" {
		return "name"
	}
	return s
}

// NameAudio is a directory-backed cache of synthesized name clips. Lookups
// for the same key are single-flighted, so concurrent recipients sharing a
// name synthesize once and everyone else waits for the result.
type NameAudio struct {
	dir    string
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]*call
}

type call struct {
	done chan struct{}
	path string
	err  error
}

// NewNameAudio creates the cache rooted at dir, creating it if needed.
func NewNameAudio(dir string, logger *zap.Logger) (*NameAudio, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create name cache dir: %w", err)
	}
	return &NameAudio{dir: dir, logger: logger, pending: make(map[string]*call)}, nil
}

// Dir returns the cache directory.
func (c *NameAudio) Dir() string {
	return c.dir
}

// Path returns the cache path a key maps to, whether or not it exists.
func (c *NameAudio) Path(key Key) string {
	return filepath.Join(c.dir, key.Filename())
}

// GetOrCreate returns the cached clip for key, invoking synthesize on a
// miss. synthesize must write a complete clip to the path it is given;
// the file is then moved into place atomically so a crash never leaves a
// partial entry behind.
func (c *NameAudio) GetOrCreate(ctx context.Context, key Key, synthesize func(ctx context.Context, dst string) error) (string, error) {
	target := c.Path(key)

	c.mu.Lock()
	if inflight, ok := c.pending[target]; ok {
		c.mu.Unlock()
		select {
		case <-inflight.done:
			return inflight.path, inflight.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if _, err := os.Stat(target); err == nil {
		c.mu.Unlock()
		c.logger.Debug("name audio cache hit", zap.String("file", filepath.Base(target)))
		return target, nil
	}

	cl := &call{done: make(chan struct{})}
	c.pending[target] = cl
	c.mu.Unlock()

	cl.path, cl.err = c.create(ctx, target, synthesize)
	close(cl.done)

	c.mu.Lock()
	delete(c.pending, target)
	c.mu.Unlock()

	return cl.path, cl.err
}

func (c *NameAudio) create(ctx context.Context, target string, synthesize func(ctx context.Context, dst string) error) (string, error) {
	tmp, err := os.CreateTemp(c.dir, ".tmp-*.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := synthesize(ctx, tmpPath); err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	info, err := os.Stat(tmpPath)
	if err != nil || info.Size() == 0 {
		os.Remove(tmpPath)
		return "", fmt.Errorf("synthesis produced no audio for %s", filepath.Base(target))
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to commit cache entry: %w", err)
	}

	c.logger.Info("name audio synthesized", zap.String("file", filepath.Base(target)))
	return target, nil
}

// Clear removes every cached clip and reports how many files were removed.
func (c *NameAudio) Clear() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove cache entry %s: %w", entry.Name(), err)
		}
		removed++
	}

	c.logger.Info("name audio cache cleared", zap.Int("removed_files", removed))
	return removed, nil
}
