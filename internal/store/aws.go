package store

import (
	"bytes"
	"context"
	"fmt"
	"mime"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/errs"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/log"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3API interface {
	PutObject(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

type S3Uploader struct {
	Client S3API
	Bucket string
	Region string
}

func (u *S3Uploader) configured() error {
	if u.Bucket == "" || u.Region == "" {
		return errs.Configuration("Missing AWS_REGION or S3_BUCKET environment variables")
	}
	return nil
}

// URL is the virtual-hosted address of key.
func (u *S3Uploader) URL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.Bucket, u.Region, key)
}

func (u *S3Uploader) Upload(ctx context.Context, params UploadParams) (string, error) {
	if err := u.configured(); err != nil {
		return "", err
	}

	log := log.FromContextOrDiscard(ctx).WithGroup("s3").With(
		"bucket", u.Bucket,
		"key", params.Key,
		"content-type", params.ContentType,
		"bytes", len(params.Data),
	)
	log.Info("uploading to s3")

	_, err := u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.Bucket),
		Key:         aws.String(params.Key),
		ContentType: aws.String(params.ContentType),
		Body:        bytes.NewReader(params.Data),
		Tagging:     aws.String(Tagging(params.Tags)),
		Metadata:    headerSafe(params.Metadata),
	})
	if err != nil {
		log.Error("s3 upload failed", "error", err)
		return "", errs.Persistence("Upload failed", err)
	}
	return u.URL(params.Key), nil
}

// Ping checks that the bucket exists and is reachable with our credentials.
func (u *S3Uploader) Ping(ctx context.Context) error {
	if err := u.configured(); err != nil {
		return err
	}
	_, err := u.Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(u.Bucket)})
	return err
}

// headerSafe RFC 2047 encodes non-ASCII values; S3 metadata travels as HTTP
// headers.
func headerSafe(md map[string]string) map[string]string {
	out := make(map[string]string, len(md))
	for k, v := range md {
		if isASCII(v) {
			out[k] = v
			continue
		}
		out[k] = mime.QEncoding.Encode("utf-8", v)
	}
	return out
}
