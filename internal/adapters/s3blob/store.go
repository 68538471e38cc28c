// Package s3blob implements the blob store on an S3-compatible object store.
// Blob refs are object keys; uploads go straight to the bucket through
// presigned PUT URLs and reads are served through presigned GET URLs.
package s3blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"reserve_catalog/internal/adapters/observability"
	"reserve_catalog/internal/domain"
)

const storeLabel = "s3"

type Options struct {
	Bucket      string
	Region      string
	Endpoint    string // empty for AWS; set for MinIO and friends
	AccessKey   string
	SecretKey   string
	PathStyle   bool
	KeyPrefix   string
	UploadTTL   time.Duration
	DownloadTTL time.Duration
}

type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	opts    Options
}

func New(ctx context.Context, o Options) (*Store, error) {
	if o.Bucket == "" {
		return nil, fmt.Errorf("s3blob: bucket is required")
	}
	if o.Region == "" {
		o.Region = "us-east-1"
	}
	if o.UploadTTL <= 0 {
		o.UploadTTL = 15 * time.Minute
	}
	if o.DownloadTTL <= 0 {
		o.DownloadTTL = time.Hour
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(o.Region)}
	if o.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3blob: load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
		}
		so.UsePathStyle = o.PathStyle
	})
	return &Store{client: client, presign: s3.NewPresignClient(client), opts: o}, nil
}

func (s *Store) newKey() string { return s.opts.KeyPrefix + uuid.NewString() }

// GenerateUploadURL returns a presigned PUT for a fresh object key. The key is
// the blob ref the caller stores once the upload succeeds.
func (s *Store) GenerateUploadURL(ctx context.Context) (domain.UploadTarget, error) {
	start := time.Now()
	key := s.newKey()
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.opts.UploadTTL))
	observability.ObserveBlob(storeLabel, "presign", err, time.Since(start))
	if err != nil {
		return domain.UploadTarget{}, fmt.Errorf("s3blob: presign put: %w", err)
	}

	var headers map[string][]string
	if len(req.SignedHeader) > 0 {
		headers = make(map[string][]string, len(req.SignedHeader))
		for k, v := range req.SignedHeader {
			// Host is set by the HTTP client itself
			if http.CanonicalHeaderKey(k) == "Host" {
				continue
			}
			headers[k] = v
		}
	}
	return domain.UploadTarget{
		URL:       req.URL,
		Method:    req.Method,
		Headers:   headers,
		BlobRef:   key,
		ExpiresAt: start.Add(s.opts.UploadTTL).UTC(),
	}, nil
}

// ResolveURL checks that the object exists and returns a presigned GET for it.
func (s *Store) ResolveURL(ctx context.Context, blobRef string) (string, error) {
	start := time.Now()
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(blobRef),
	})
	if err != nil {
		observability.ObserveBlob(storeLabel, "resolve", err, time.Since(start))
		if isNotFound(err) {
			return "", fmt.Errorf("blob %s: %w", blobRef, domain.ErrNotFound)
		}
		return "", fmt.Errorf("s3blob: head %s: %w", blobRef, err)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(blobRef),
	}, s3.WithPresignExpires(s.opts.DownloadTTL))
	observability.ObserveBlob(storeLabel, "resolve", err, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("s3blob: presign get: %w", err)
	}
	return req.URL, nil
}

// Put stores r under a fresh key and returns it as the blob ref.
func (s *Store) Put(ctx context.Context, r io.Reader, contentType string) (string, error) {
	// the SDK needs a seekable body to compute the payload hash
	body, ok := r.(io.ReadSeeker)
	if !ok {
		b, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		body = bytes.NewReader(b)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	start := time.Now()
	key := s.newKey()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	observability.ObserveBlob(storeLabel, "put", err, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("s3blob: put: %w", err)
	}
	return key, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var ae smithy.APIError
	if errors.As(err, &ae) && (ae.ErrorCode() == "NotFound" || ae.ErrorCode() == "NoSuchKey") {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
