// Package configs loads and validates the application configuration.
package configs

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage backend types selectable via Storage.Type.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMySQL    = "mysql"
)

// Config is the full application configuration.
type Config struct {
	Audio       AudioConfig       `yaml:"audio"`
	Fingerprint FingerprintConfig `yaml:"fingerprint"`
	Storage     StorageConfig     `yaml:"storage"`
	Server      ServerConfig      `yaml:"server"`
	Indexing    IndexingConfig    `yaml:"indexing"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// AudioConfig holds the DSP front-end parameters. These are fixed for the
// lifetime of an index: every indexed track and every query must share them.
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	NFFT       int `yaml:"n_fft"`
	HopLength  int `yaml:"hop_length"`
}

// FingerprintConfig holds the peak picking and hashing parameters. Tunable
// per deployment, but shared by all indexed tracks and queries.
type FingerprintConfig struct {
	PeakNeighborhoodSize int     `yaml:"peak_neighborhood_size"`
	MinAmplitude         float64 `yaml:"min_amplitude"`
	FanValue             int     `yaml:"fan_value"`
}

// StorageConfig selects and configures the index backend.
type StorageConfig struct {
	Type     string `yaml:"type"` // memory, sqlite, postgres, mysql
	Path     string `yaml:"path"` // sqlite database file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host              string   `yaml:"host"`
	Port              int      `yaml:"port"`
	MaxContentLength  int64    `yaml:"max_content_length"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// IndexingConfig configures batch indexing.
type IndexingConfig struct {
	Workers int `yaml:"workers"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the built-in defaults. They match the parameters
// the reference deployment was tuned with.
func DefaultConfig() Config {
	return Config{
		Audio: AudioConfig{
			SampleRate: 11025,
			NFFT:       2048,
			HopLength:  512,
		},
		Fingerprint: FingerprintConfig{
			PeakNeighborhoodSize: 20,
			MinAmplitude:         10,
			FanValue:             5,
		},
		Storage: StorageConfig{
			Type:    StorageMemory,
			Path:    "fingerprint.db",
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			MaxContentLength:  16 * 1024 * 1024,
			AllowedExtensions: []string{"wav", "mp3", "flac", "ogg"},
		},
		Indexing: IndexingConfig{
			Workers: 4,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads a YAML configuration file and merges it over the
// defaults. A missing file is not an error: the defaults are returned, so
// the engine runs out of the box with an in-memory index.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %v", path, err)
		}
	case os.IsNotExist(err):
		// No file: run on defaults.
	default:
		return nil, fmt.Errorf("failed to read config file %s: %v", path, err)
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides applies environment values that should not live in a
// checked-in YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STORAGE_PASSWORD"); v != "" {
		cfg.Storage.Password = v
	}
	if v := os.Getenv("STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("invalid sample_rate: %d", c.Audio.SampleRate)
	}
	if c.Audio.NFFT <= 0 || c.Audio.NFFT&(c.Audio.NFFT-1) != 0 {
		return fmt.Errorf("n_fft must be a positive power of two, got %d", c.Audio.NFFT)
	}
	if c.Audio.HopLength <= 0 {
		return fmt.Errorf("invalid hop_length: %d", c.Audio.HopLength)
	}
	if c.Fingerprint.PeakNeighborhoodSize <= 0 {
		return fmt.Errorf("invalid peak_neighborhood_size: %d", c.Fingerprint.PeakNeighborhoodSize)
	}
	if c.Fingerprint.FanValue <= 0 {
		return fmt.Errorf("invalid fan_value: %d", c.Fingerprint.FanValue)
	}
	switch c.Storage.Type {
	case StorageMemory, StorageSQLite, StoragePostgres, StorageMySQL:
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	if c.Indexing.Workers <= 0 {
		return fmt.Errorf("invalid worker count: %d", c.Indexing.Workers)
	}
	return nil
}

// ExtensionAllowed reports whether the given file extension (with or
// without a leading dot, case-insensitive) is accepted for upload and
// indexing.
func (c *Config) ExtensionAllowed(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, allowed := range c.Server.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
