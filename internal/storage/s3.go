package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/supportdeskhq/tenantcore/internal/tenant"
	"github.com/supportdeskhq/tenantcore/pkg/logger"
)

// S3API is the subset of the S3 client the service uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Presigner issues signed GET URLs.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4PresignedRequest, error)
}

// v4PresignedRequest mirrors the fields of the SDK's signed request that we
// consume, keeping the Presigner interface mockable.
type v4PresignedRequest struct {
	URL string
}

type sdkPresigner struct {
	inner *s3.PresignClient
}

func (p sdkPresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4PresignedRequest, error) {
	req, err := p.inner.PresignGetObject(ctx, params, optFns...)
	if err != nil {
		return nil, err
	}
	return &v4PresignedRequest{URL: req.URL}, nil
}

// Service stores objects under tenant-prefixed keys and refuses any access
// whose key prefix does not match the caller's tenant scope.
type Service struct {
	client    S3API
	presigner Presigner
	bucket    string
	keys      *KeyBuilder
	log       *logger.Logger
}

func NewService(client *s3.Client, bucket string, keys *KeyBuilder, log *logger.Logger) *Service {
	return &Service{
		client:    client,
		presigner: sdkPresigner{inner: s3.NewPresignClient(client)},
		bucket:    bucket,
		keys:      keys,
		log:       log,
	}
}

// NewServiceWithClients wires explicit API implementations, used by tests.
func NewServiceWithClients(client S3API, presigner Presigner, bucket string, keys *KeyBuilder, log *logger.Logger) *Service {
	return &Service{client: client, presigner: presigner, bucket: bucket, keys: keys, log: log}
}

// Upload stores a file under the current tenant's prefix and returns the key.
func (s *Service) Upload(ctx context.Context, fileType, fileName, contentType string, body io.Reader) (string, error) {
	tenantID, ok := tenant.CurrentTenant(ctx)
	if !ok {
		return "", tenant.ErrTenantRequired
	}

	key := s.keys.Build(tenantID, fileType, fileName, time.Now())
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}

// SignedURL verifies key ownership and issues a presigned GET URL.
func (s *Service) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if err := s.VerifyAccess(ctx, key); err != nil {
		return "", err
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// Delete verifies key ownership and removes the object.
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.VerifyAccess(ctx, key); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// VerifyAccess checks that the key's tenant prefix matches the caller's
// scope. Master-unscoped and bypass contexts pass.
func (s *Service) VerifyAccess(ctx context.Context, key string) error {
	owner, ok := KeyTenant(key)
	if !ok {
		return tenant.ErrCrossTenantDenied.WithDetails(map[string]any{"key": key})
	}

	scope, scoped := tenant.ScopeFrom(ctx)
	if scoped && scope.Unscoped() {
		return nil
	}
	if !scoped || scope.TenantID == "" {
		return tenant.ErrTenantRequired
	}
	if scope.TenantID != owner {
		return tenant.ErrCrossTenantDenied
	}
	return nil
}
