package config

import (
	"fmt"
	"time"

	sharedconfig "vidx/shared/config"
)

// Aliases for shared configuration structures to keep existing references intact.
type DatabaseConfig = sharedconfig.DatabaseConfig
type MinIOConfig = sharedconfig.MinIOConfig
type RabbitMQConfig = sharedconfig.RabbitMQConfig
type TTSConfig = sharedconfig.TTSConfig
type LipSyncConfig = sharedconfig.LipSyncConfig

// Config holds all configuration for the worker.
type Config struct {
	sharedconfig.BaseConfig
	FFmpeg     FFmpegConfig
	Silence    SilenceConfig
	Cache      CacheConfig
	Processing ProcessingConfig
	Timeouts   StepTimeouts
}

// FFmpegConfig holds media tool binary paths.
type FFmpegConfig struct {
	Path        string
	FFprobePath string
}

// SilenceConfig holds default silence-detection thresholds. Jobs may
// override both per submission.
type SilenceConfig struct {
	NoiseDB float64
	MinDur  float64
}

// CacheConfig locates the on-disk caches shared across jobs.
type CacheConfig struct {
	NameAudioDir    string
	VoiceCloneIndex string
}

// ProcessingConfig tunes recipient concurrency within a job, the gap
// inserted between names on the master track and the longest spoken span
// still treated as a placeholder marker. A zero or negative gap disables
// the master track.
type ProcessingConfig struct {
	RecipientConcurrency int
	NamesTrackGap        float64
	MarkerMaxDur         float64
}

// StepTimeouts contains per-operation timeout configuration.
type StepTimeouts struct {
	Media   time.Duration
	TTS     time.Duration
	LipSync time.Duration
	Job     time.Duration
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	loader := sharedconfig.NewLoader(
		sharedconfig.WithMinIOPublicFallback(),
	)

	v := loader.Viper()
	v.SetDefault("FFMPEG_PATH", "/usr/bin/ffmpeg")
	v.SetDefault("FFPROBE_PATH", "/usr/bin/ffprobe")
	v.SetDefault("SILENCE_NOISE_DB", -35.0)
	v.SetDefault("SILENCE_MIN_DURATION", 0.5)
	v.SetDefault("NAME_CACHE_DIR", "/var/lib/vidx/name_cache")
	v.SetDefault("VOICE_CLONE_INDEX", "/var/lib/vidx/voice_clones.json")
	v.SetDefault("RECIPIENT_CONCURRENCY", 2)
	v.SetDefault("NAMES_TRACK_GAP_SECONDS", 0.5)
	v.SetDefault("MARKER_MAX_SECONDS", 0.9)
	v.SetDefault("TIMEOUT_MEDIA_SECONDS", 600)
	v.SetDefault("TIMEOUT_TTS_SECONDS", 300)
	v.SetDefault("TIMEOUT_LIPSYNC_SECONDS", 3600)
	v.SetDefault("TIMEOUT_JOB_SECONDS", 14400)

	baseCfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	cfg := &Config{
		BaseConfig: *baseCfg,
		FFmpeg: FFmpegConfig{
			Path:        v.GetString("FFMPEG_PATH"),
			FFprobePath: v.GetString("FFPROBE_PATH"),
		},
		Silence: SilenceConfig{
			NoiseDB: v.GetFloat64("SILENCE_NOISE_DB"),
			MinDur:  v.GetFloat64("SILENCE_MIN_DURATION"),
		},
		Cache: CacheConfig{
			NameAudioDir:    v.GetString("NAME_CACHE_DIR"),
			VoiceCloneIndex: v.GetString("VOICE_CLONE_INDEX"),
		},
		Processing: ProcessingConfig{
			RecipientConcurrency: v.GetInt("RECIPIENT_CONCURRENCY"),
			NamesTrackGap:        v.GetFloat64("NAMES_TRACK_GAP_SECONDS"),
			MarkerMaxDur:         v.GetFloat64("MARKER_MAX_SECONDS"),
		},
		Timeouts: StepTimeouts{
			Media:   time.Duration(v.GetInt("TIMEOUT_MEDIA_SECONDS")) * time.Second,
			TTS:     time.Duration(v.GetInt("TIMEOUT_TTS_SECONDS")) * time.Second,
			LipSync: time.Duration(v.GetInt("TIMEOUT_LIPSYNC_SECONDS")) * time.Second,
			Job:     time.Duration(v.GetInt("TIMEOUT_JOB_SECONDS")) * time.Second,
		},
	}

	if cfg.Processing.RecipientConcurrency < 1 {
		cfg.Processing.RecipientConcurrency = 1
	}

	return cfg, nil
}
