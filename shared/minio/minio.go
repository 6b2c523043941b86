// Package minio dials the object store that holds every job artifact:
// uploaded base videos, recipient CSVs, voice samples, per-recipient
// outputs and the final archives.
package minio

import (
	"context"
	"fmt"
	"time"

	"vidx/shared/config"

	miniosdk "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// bucketProbeTimeout bounds the startup bucket check so a wedged store
// fails service boot quickly instead of hanging it.
const bucketProbeTimeout = 10 * time.Second

// Client is the object-store handle shared by the api and the worker.
// All job keys live in a single artifact bucket; the public client signs
// download URLs against the externally reachable endpoint when one is
// configured.
type Client struct {
	*miniosdk.Client
	publicClient *miniosdk.Client
	bucket       string
}

// Option adjusts how the client boots.
type Option func(*settings)

type settings struct {
	requireExistingBucket bool
}

// WithExistingBucketOnly fails startup when the artifact bucket is
// missing instead of creating it. Deployments that provision buckets out
// of band use this to surface misconfiguration early.
func WithExistingBucketOnly() Option {
	return func(s *settings) {
		s.requireExistingBucket = true
	}
}

func dial(endpoint string, cfg config.MinIOConfig) (*miniosdk.Client, error) {
	return miniosdk.New(endpoint, &miniosdk.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
}

// New dials the store, prepares the artifact bucket and, when a distinct
// public endpoint is configured, a second client whose presigned URLs a
// browser outside the cluster can follow.
func New(cfg config.MinIOConfig, opts ...Option) (*Client, error) {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	client, err := dial(cfg.Endpoint, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	publicClient := client
	if cfg.PublicEndpoint != "" && cfg.PublicEndpoint != cfg.Endpoint {
		if publicClient, err = dial(cfg.PublicEndpoint, cfg); err != nil {
			return nil, fmt.Errorf("failed to create public MinIO client: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), bucketProbeTimeout)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check artifact bucket %s: %w", cfg.Bucket, err)
	}
	switch {
	case exists:
	case s.requireExistingBucket:
		return nil, fmt.Errorf("artifact bucket %s does not exist", cfg.Bucket)
	default:
		if err := client.MakeBucket(ctx, cfg.Bucket, miniosdk.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create artifact bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &Client{Client: client, publicClient: publicClient, bucket: cfg.Bucket}, nil
}

// Bucket returns the artifact bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// PublicClient returns the client that signs download URLs. It is the
// internal client when no separate public endpoint is configured.
func (c *Client) PublicClient() *miniosdk.Client {
	return c.publicClient
}
