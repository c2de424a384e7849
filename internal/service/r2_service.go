package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/maheshrc27/clipposter/configs"
)

// MediaHost stores a media file somewhere publicly reachable and returns the
// download URL.
type MediaHost interface {
	Store(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type R2Service struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func NewR2Service(ctx context.Context, c cfg.Config) (*R2Service, error) {
	client, err := R2Client(ctx, c.R2, fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.R2.AccountID))
	if err != nil {
		return nil, err
	}
	return &R2Service{client: client, bucket: c.R2.BucketName, publicURL: c.R2.PublicURL}, nil
}

func R2Client(ctx context.Context, r2 cfg.R2, endpoint string) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r2.AccessKey, r2.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	}), nil
}

func (r *R2Service) Store(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	if _, err := r.client.PutObject(ctx, input); err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("failed to store %s in r2: %w", key, err)
	}

	return strings.TrimRight(r.publicURL, "/") + "/" + key, nil
}
