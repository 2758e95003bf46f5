package receipt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Archive keeps rendered receipt documents by name.
type Archive interface {
	Put(ctx context.Context, name string, body []byte, contentType string) error
	HasPrefix(ctx context.Context, prefix string) (bool, error)
}

// S3API is the subset of *s3.Client the archive uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Archive stores receipts under prefix in an S3 bucket.
type S3Archive struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Archive creates an archive writing to bucket. prefix is prepended to
// every key, e.g. "receipts/".
func NewS3Archive(client S3API, bucket, prefix string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket, prefix: prefix}
}

func (a *S3Archive) Put(ctx context.Context, name string, body []byte, contentType string) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.prefix + name),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"archived-at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", name, err)
	}
	return nil
}

func (a *S3Archive) HasPrefix(ctx context.Context, prefix string) (bool, error) {
	out, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(a.bucket),
		Prefix:  aws.String(a.prefix + prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("s3 list %s: %w", prefix, err)
	}
	return len(out.Contents) > 0, nil
}

// DirArchive stores receipts as files in a local directory.  It is used
// when no bucket is configured.
type DirArchive struct {
	dir string
}

// NewDirArchive returns an archive rooted at dir.  The directory is created
// on first write.
func NewDirArchive(dir string) *DirArchive { return &DirArchive{dir: dir} }

func (a *DirArchive) Put(_ context.Context, name string, body []byte, _ string) error {
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid receipt name %q", name)
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", a.dir, err)
	}
	return os.WriteFile(filepath.Join(a.dir, name), body, 0o644)
}

func (a *DirArchive) HasPrefix(_ context.Context, prefix string) (bool, error) {
	entries, err := os.ReadDir(a.dir)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			return true, nil
		}
	}
	return false, nil
}
