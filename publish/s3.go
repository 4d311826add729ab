// Package publish mirrors a finished digest to S3. Publishing is optional
// and never fails a run; local artifacts are the store of record.
package publish

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config selects the target bucket. An empty Bucket disables publishing.
type Config struct {
	Bucket string
	Prefix string
	Region string
}

// Publisher uploads digest artifacts to S3.
type Publisher struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates a publisher using the default AWS credential chain. Returns
// nil when no bucket is configured.
func New(ctx context.Context, cfg Config) (*Publisher, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Publisher{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

var contentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".json": "application/json",
	".txt":  "text/plain; charset=utf-8",
}

// Publish uploads each local file under the configured prefix. Individual
// upload failures are logged and skipped.
func (p *Publisher) Publish(ctx context.Context, paths ...string) {
	if p == nil {
		return
	}
	for _, local := range paths {
		if err := p.upload(ctx, local); err != nil {
			log.Printf("publish %s: %v", local, err)
		} else {
			log.Printf("published %s to s3://%s/%s", local, p.bucket, p.key(local))
		}
	}
}

func (p *Publisher) key(local string) string {
	return path.Join(p.prefix, filepath.Base(local))
}

func (p *Publisher) upload(ctx context.Context, local string) error {
	f, err := os.Open(local)
	if err != nil {
		return err
	}
	defer f.Close()

	in := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key(local)),
		Body:   f,
	}
	if ct, ok := contentTypes[filepath.Ext(local)]; ok {
		in.ContentType = aws.String(ct)
	}

	_, err = p.client.PutObject(ctx, in)
	return err
}
