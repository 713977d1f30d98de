package server

import (
	"os"

	"gopkg.in/yaml.v3"

	"keyward/internal/errs"
)

// Config holds keywardd runtime options, loaded from YAML with environment
// overrides for the connection strings.
type Config struct {
	Listen             string  `yaml:"listen"`
	PostgresDSN        string  `yaml:"postgres_dsn"`
	RedisAddr          string  `yaml:"redis_addr"`
	BlobDir            string  `yaml:"blob_dir"`
	UploadsEnabled     bool    `yaml:"uploads_enabled"`
	MaxAttachmentBytes int64   `yaml:"max_attachment_bytes"`
	RateLimitRPS       float64 `yaml:"rate_limit_rps"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Listen:             ":8470",
		PostgresDSN:        "postgres://localhost/keyward?sslmode=disable",
		RedisAddr:          "localhost:6379",
		BlobDir:            "/var/lib/keywardd/blobs",
		UploadsEnabled:     true,
		MaxAttachmentBytes: 25 << 20,
		RateLimitRPS:       20,
		RateLimitBurst:     40,
	}
}

// LoadConfig reads path (optional) over DefaultConfig and applies
// KEYWARDD_POSTGRES_DSN / KEYWARDD_REDIS_ADDR overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, errs.Wrap(errs.KindIO, "read config", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, errs.Wrap(errs.KindInvalidArgument, "parse config", err)
		}
	}
	if dsn := os.Getenv("KEYWARDD_POSTGRES_DSN"); dsn != "" {
		cfg.PostgresDSN = dsn
	}
	if addr := os.Getenv("KEYWARDD_REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	}
	return cfg, nil
}
