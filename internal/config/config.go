// Package config loads the vfsmount configuration from an optional YAML
// file and VFS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"time"

	"vfskit/internal/logging"
	"vfskit/internal/objstore"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Supported backends.
const (
	BackendHost   = "host"
	BackendMemory = "memory"
	BackendS3     = "s3"
)

// Config is the complete configuration of the mount command.
type Config struct {
	// MountPoint is where the filesystem is attached.
	MountPoint string `yaml:"mount_point" env:"VFS_MOUNT_POINT"`

	// Backend selects the Filesystem: host, memory or s3.
	Backend string `yaml:"backend" env:"VFS_BACKEND" env-default:"host"`

	// Source is the host directory served by the host backend.
	Source string `yaml:"source" env:"VFS_SOURCE"`

	// FreeBytes is the capacity reported by the memory backend.
	FreeBytes uint64 `yaml:"free_bytes" env:"VFS_FREE_BYTES" env-default:"1073741824"`

	Logging LoggingConfig `yaml:"logging"`
	S3      S3Config      `yaml:"s3"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"VFS_LOG_LEVEL" env-default:"info"`
	Format     string `yaml:"format" env:"VFS_LOG_FORMAT" env-default:"text"`
	FilePath   string `yaml:"file_path" env:"VFS_LOG_FILE_PATH"`
	MaxSize    int    `yaml:"max_size" env:"VFS_LOG_MAX_SIZE" env-default:"100"`
	MaxBackups int    `yaml:"max_backups" env:"VFS_LOG_MAX_BACKUPS" env-default:"3"`
	MaxAge     int    `yaml:"max_age" env:"VFS_LOG_MAX_AGE" env-default:"7"`
	Compress   bool   `yaml:"compress" env:"VFS_LOG_COMPRESS"`
}

// S3Config configures the s3 backend. Bools default to false so that a YAML
// false is not replaced by an env-default.
type S3Config struct {
	Endpoint  string        `yaml:"endpoint" env:"VFS_S3_ENDPOINT"`
	Bucket    string        `yaml:"bucket" env:"VFS_S3_BUCKET"`
	Prefix    string        `yaml:"prefix" env:"VFS_S3_PREFIX"`
	AccessKey string        `yaml:"access_key" env:"VFS_S3_ACCESS_KEY"`
	SecretKey string        `yaml:"secret_key" env:"VFS_S3_SECRET_KEY"`
	Region    string        `yaml:"region" env:"VFS_S3_REGION"`
	Insecure  bool          `yaml:"insecure" env:"VFS_S3_INSECURE"`
	Timeout   time.Duration `yaml:"timeout" env:"VFS_S3_TIMEOUT" env-default:"30s"`
}

// Load reads path, when given, and then the environment. Environment
// variables override file values.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration describes a mountable backend.
func (c *Config) Validate() error {
	var errs []error
	if c.MountPoint == "" {
		errs = append(errs, errors.New("mount point is required"))
	}

	switch c.Backend {
	case BackendHost:
		if c.Source == "" {
			errs = append(errs, errors.New("source is required for the host backend"))
		}
	case BackendMemory:
	case BackendS3:
		if err := c.S3.ObjectStore().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("s3: %w", err))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if f := c.Logging.Format; f != logging.FormatText && f != logging.FormatJSON {
		errs = append(errs, fmt.Errorf("unknown log format %q", f))
	}
	return errors.Join(errs...)
}

// Logging converts the logging section for logging.Configure.
func (c LoggingConfig) Logging() logging.Config {
	return logging.Config{
		Level:      c.Level,
		Format:     c.Format,
		FilePath:   c.FilePath,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
	}
}

// ObjectStore converts the s3 section for objstore.New.
func (c S3Config) ObjectStore() objstore.Config {
	return objstore.Config{
		Endpoint:  c.Endpoint,
		Bucket:    c.Bucket,
		Prefix:    c.Prefix,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Region:    c.Region,
		UseSSL:    !c.Insecure,
		Timeout:   c.Timeout,
	}
}

// Dump writes the effective configuration as YAML with secrets redacted.
func (c *Config) Dump(w io.Writer) error {
	redacted := *c
	if redacted.S3.SecretKey != "" {
		redacted.S3.SecretKey = "<redacted>"
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&redacted); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
