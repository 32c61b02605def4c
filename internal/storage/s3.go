package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// presigned URLs cannot outlive seven days with SigV4
const maxPresignExpiry = 7 * 24 * time.Hour

// S3Options configures where media lands and how its URLs are built.
type S3Options struct {
	Bucket string
	// PublicBaseURL, when set, is joined with the object key to build
	// permanent URLs (bucket website, CDN). Otherwise URLs are presigned.
	PublicBaseURL string
	PresignExpiry time.Duration
}

// S3Service uploads media to Amazon S3 (or compatible APIs).
type S3Service struct {
	client   *s3.Client
	uploader *manager.Uploader
	presign  *s3.PresignClient
	opts     S3Options
}

func NewS3Service(client *s3.Client, opts S3Options) (*S3Service, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	if opts.PresignExpiry <= 0 || opts.PresignExpiry > maxPresignExpiry {
		opts.PresignExpiry = maxPresignExpiry
	}
	opts.PublicBaseURL = strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/")
	return &S3Service{
		client:   client,
		uploader: manager.NewUploader(client),
		presign:  s3.NewPresignClient(client),
		opts:     opts,
	}, nil
}

func (s *S3Service) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", fmt.Errorf("object key is required")
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if s.opts.PublicBaseURL == "" {
		input.ACL = types.ObjectCannedACLPrivate
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.ObjectURL(ctx, key)
}

func (s *S3Service) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.opts.Bucket),
	}
	if strings.TrimSpace(prefix) != "" {
		input.Prefix = aws.String(prefix)
	}

	var objects []ObjectInfo
	for {
		output, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}

		for _, obj := range output.Contents {
			key := aws.ToString(obj.Key)
			url, err := s.ObjectURL(ctx, key)
			if err != nil {
				return nil, err
			}
			objects = append(objects, ObjectInfo{
				Key:          key,
				URL:          url,
				Size:         aws.ToInt64(obj.Size),
				LastModified: obj.LastModified,
			})
		}

		if !aws.ToBool(output.IsTruncated) || output.NextContinuationToken == nil {
			break
		}
		input.ContinuationToken = output.NextContinuationToken
	}

	return objects, nil
}

// ObjectURL returns a URL clients can fetch key from.
func (s *S3Service) ObjectURL(ctx context.Context, key string) (string, error) {
	if s.opts.PublicBaseURL != "" {
		return s.opts.PublicBaseURL + "/" + strings.TrimLeft(key, "/"), nil
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.opts.PresignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

var _ Service = (*S3Service)(nil)
