package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/iliyamo/smartpark/internal/receipt"
)

// ArchiveConfig selects where rendered receipts are kept.  With a bucket
// they go to S3 (or any S3-compatible endpoint), otherwise to Dir.
type ArchiveConfig struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string // e.g. a MinIO URL; empty uses AWS
	Dir      string
}

// LoadArchiveConfig reads RECEIPT_BUCKET, RECEIPT_PREFIX, AWS_REGION,
// S3_ENDPOINT and RECEIPT_DIR.
func LoadArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		Bucket:   getenv("RECEIPT_BUCKET", ""),
		Prefix:   getenv("RECEIPT_PREFIX", "receipts/"),
		Region:   getenv("AWS_REGION", "us-west-1"),
		Endpoint: getenv("S3_ENDPOINT", ""),
		Dir:      getenv("RECEIPT_DIR", "recibos"),
	}
}

// NewArchive builds the receipt archive described by cfg.
func NewArchive(ctx context.Context, cfg ArchiveConfig) (receipt.Archive, error) {
	if cfg.Bucket == "" {
		return receipt.NewDirArchive(cfg.Dir), nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return receipt.NewS3Archive(client, cfg.Bucket, cfg.Prefix), nil
}
