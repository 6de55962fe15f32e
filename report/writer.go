package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// WriteJSON writes v as indented JSON to resultDir/name and returns the path.
func WriteJSON(resultDir string, name string, v any) (string, error) {
	err := os.MkdirAll(resultDir, fs.ModePerm)
	if err != nil {
		return "", err
	}

	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshalling report failed: %w", err)
	}
	p := path.Join(resultDir, name)
	err = os.WriteFile(p, bytes, 0o644)
	if err != nil {
		return "", err
	}
	return p, nil
}

type Uploader interface {
	Upload(ctx context.Context, key string, localPath string) error
}

type s3Uploader struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

type S3UploaderInput struct {
	AwsConfig aws.Config
	Bucket    string
	Prefix    string // prepended to every key, e.g. "net-benchmarks/"
}

func NewS3Uploader(input *S3UploaderInput) Uploader {
	return &s3Uploader{
		uploader: manager.NewUploader(s3.NewFromConfig(input.AwsConfig)),
		bucket:   input.Bucket,
		prefix:   input.Prefix,
	}
}

func (u *s3Uploader) Upload(ctx context.Context, key string, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	fullKey := u.objectKey(key)
	_, err = u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      &u.bucket,
		Key:         &fullKey,
		Body:        f,
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("uploading report to s3://%s/%s failed: %w", u.bucket, fullKey, err)
	}
	slog.Info("uploaded report", slog.String("bucket", u.bucket), slog.String("key", fullKey))
	return nil
}

func (u *s3Uploader) objectKey(key string) string {
	if u.prefix == "" {
		return key
	}
	return strings.TrimSuffix(u.prefix, "/") + "/" + key
}
