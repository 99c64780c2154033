package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tubedesk/backend/internal/config"
)

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// SnapshotArchive stores raw YouTube video payloads in an S3-compatible bucket.
type SnapshotArchive struct {
	uploader uploader
	bucket   string
	now      func() time.Time
}

// NewSnapshotArchive configures an uploader targeting the snapshot bucket.
func NewSnapshotArchive(ctx context.Context, cfg config.Config) (*SnapshotArchive, error) {
	if strings.TrimSpace(cfg.SnapshotBucket) == "" {
		return nil, fmt.Errorf("snapshot archive: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.SnapshotRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.SnapshotEndpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return newSnapshotArchive(manager.NewUploader(client), cfg.SnapshotBucket), nil
}

func newSnapshotArchive(u uploader, bucket string) *SnapshotArchive {
	return &SnapshotArchive{uploader: u, bucket: bucket, now: time.Now}
}

// Archive uploads raw as videos/<youtubeVideoID>/<unix>.json and returns the object key.
func (a *SnapshotArchive) Archive(ctx context.Context, youtubeVideoID string, raw []byte) (string, error) {
	youtubeVideoID = strings.Trim(strings.TrimSpace(youtubeVideoID), "/")
	if youtubeVideoID == "" {
		return "", fmt.Errorf("snapshot archive: empty video id")
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("snapshot archive: empty payload for %s", youtubeVideoID)
	}

	key := fmt.Sprintf("videos/%s/%d.json", youtubeVideoID, a.now().Unix())
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("snapshot archive upload %s: %w", key, err)
	}
	return key, nil
}
