package s3archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/ark-network/wager/internal/core/ports"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const keyPrefix = "settlements"

type Config struct {
	// Endpoint overrides the AWS endpoint for S3 compatible stores, like
	// minio. Path style addressing is used when set.
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// archive stores one JSON receipt per pool at settlements/{id}.json.
type archive struct {
	client *s3.Client
	bucket string
}

func NewArchive(ctx context.Context, cfg Config) (ports.SettlementArchive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("missing s3 bucket")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("missing s3 region")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &archive{client, cfg.Bucket}, nil
}

func (a *archive) Store(ctx context.Context, receipt ports.SettlementReceipt) error {
	buf, err := json.Marshal(receipt)
	if err != nil {
		return err
	}

	key := ReceiptKey(receipt.PoolId)
	if _, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return fmt.Errorf("failed to store receipt %s: %w", key, err)
	}
	return nil
}

func ReceiptKey(poolId uint64) string {
	return fmt.Sprintf("%s/%d.json", keyPrefix, poolId)
}
