package config

import (
	"fmt"

	sharedconfig "vidx/shared/config"
)

// Aliases for shared configuration structures to keep existing references intact.
type DatabaseConfig = sharedconfig.DatabaseConfig
type MinIOConfig = sharedconfig.MinIOConfig
type RabbitMQConfig = sharedconfig.RabbitMQConfig

// Config holds all configuration for the API service.
type Config struct {
	sharedconfig.BaseConfig
	Server ServerConfig
	Cache  CacheConfig
	Upload UploadConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string
	Port int
}

// CacheConfig locates the name-audio cache. The directory is a volume
// shared with the worker; the API only serves the administrative clear.
type CacheConfig struct {
	NameAudioDir string
}

// UploadConfig bounds incoming multipart uploads.
type UploadConfig struct {
	MaxVideoBytes int64
	MaxAudioBytes int64
	MaxListBytes  int64
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	loader := sharedconfig.NewLoader(
		sharedconfig.WithMinIOPublicFallback(),
	)

	v := loader.Viper()
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("NAME_CACHE_DIR", "/var/lib/vidx/name_cache")
	v.SetDefault("UPLOAD_MAX_VIDEO_MB", 1024)
	v.SetDefault("UPLOAD_MAX_AUDIO_MB", 50)
	v.SetDefault("UPLOAD_MAX_LIST_MB", 5)

	baseCfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	cfg := &Config{
		BaseConfig: *baseCfg,
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Cache: CacheConfig{
			NameAudioDir: v.GetString("NAME_CACHE_DIR"),
		},
		Upload: UploadConfig{
			MaxVideoBytes: v.GetInt64("UPLOAD_MAX_VIDEO_MB") << 20,
			MaxAudioBytes: v.GetInt64("UPLOAD_MAX_AUDIO_MB") << 20,
			MaxListBytes:  v.GetInt64("UPLOAD_MAX_LIST_MB") << 20,
		},
	}

	return cfg, nil
}
