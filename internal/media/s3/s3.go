// Package s3 implements media.Releaser removing objects from a S3 compatible bucket.
package s3

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/agora/internal/media"
)

var log = logrus.WithField("package", "s3")

// ObjectRemover is a part of minio client used by releaser.
type ObjectRemover interface {
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Options ...
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	Insecure  bool
}

type releaser struct {
	c      ObjectRemover
	bucket string
}

// New creates new instance of releaser connected to the bucket.
func New(opts Options) (media.Releaser, error) {
	c, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: !opts.Insecure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	return NewWithClient(c, opts.Bucket), nil
}

// NewWithClient creates new instance of releaser using an existing client.
func NewWithClient(c ObjectRemover, bucket string) media.Releaser {
	return releaser{
		c:      c,
		bucket: bucket,
	}
}

func (r releaser) Release(ctx context.Context, url string) error {
	name, err := media.ObjectName(url)
	if err != nil {
		return err
	}

	if err := r.c.RemoveObject(ctx, r.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", name, err)
	}

	log.WithField("bucket", r.bucket).WithField("object", name).Debug("object removed")

	return nil
}
