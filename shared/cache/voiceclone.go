package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CloneEntry records a provider voice created from a reference sample.
type CloneEntry struct {
	VoiceID   string    `json:"voice_id"`
	CreatedAt time.Time `json:"created_at"`
}

// VoiceClone maps voice sample content hashes to provider voice IDs, so
// the same reference sample never clones a second voice. The index is a
// JSON file rewritten atomically on every update.
type VoiceClone struct {
	path   string
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]CloneEntry
}

// NewVoiceClone loads (or initializes) the clone index at path.
func NewVoiceClone(path string, logger *zap.Logger) (*VoiceClone, error) {
	c := &VoiceClone{
		path:    path,
		logger:  logger,
		entries: make(map[string]CloneEntry),
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// first run
	case err != nil:
		return nil, fmt.Errorf("failed to read voice clone index: %w", err)
	default:
		if err := json.Unmarshal(data, &c.entries); err != nil {
			// A corrupt index only costs re-cloning; start fresh.
			logger.Warn("voice clone index unreadable, starting empty", zap.Error(err))
			c.entries = make(map[string]CloneEntry)
		}
	}

	return c, nil
}

// HashSample returns the SHA-256 hex digest of the sample at path.
func HashSample(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open voice sample: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash voice sample: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Lookup returns the cached voice ID for a sample hash.
func (c *VoiceClone) Lookup(sampleHash string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[sampleHash]
	return entry.VoiceID, ok
}

// Store records a cloned voice ID for a sample hash and persists the index.
func (c *VoiceClone) Store(sampleHash, voiceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[sampleHash] = CloneEntry{VoiceID: voiceID, CreatedAt: time.Now().UTC()}
	return c.persist()
}

func (c *VoiceClone) persist() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode voice clone index: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create voice clone index dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write voice clone index: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to commit voice clone index: %w", err)
	}
	return nil
}
