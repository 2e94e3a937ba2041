// Package objstore serves a read-only vfs filesystem from an S3-compatible
// bucket through minio-go.
package objstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultTimeout bounds each request to the object store.
const DefaultTimeout = 30 * time.Second

// Config describes how to reach the bucket.
type Config struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Timeout   time.Duration

	// Client, when set, is used instead of dialing Endpoint.
	Client *minio.Client
}

// Validate checks that the configuration can produce a client.
func (c Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("bucket is required")
	}
	if c.Client == nil && c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

func (c Config) newClient() (*minio.Client, error) {
	if c.Client != nil {
		return c.Client, nil
	}
	client, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.UseSSL,
		Region: c.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", c.Endpoint, err)
	}
	return client, nil
}
