// Package storage concentra as operações de objeto no S3 usadas pelo
// cliente (upload) e pela função de classificação (download e movimentação).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var (
	// ErrBucketNotFound indica que o bucket não existe (HTTP 404).
	ErrBucketNotFound = errors.New("storage: bucket not found")
	// ErrBucketForbidden indica falta de permissão no bucket (HTTP 403).
	ErrBucketForbidden = errors.New("storage: access to bucket denied")
)

// S3Client interface para Mock
type S3Client interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var _ S3Client = (*s3.Client)(nil)

// Store executa as operações de objeto.
type Store struct {
	client S3Client
}

// New cria o Store.
func New(client S3Client) *Store {
	return &Store{client: client}
}

// CheckBucket confirma que o bucket existe e é acessível.
func (s *Store) CheckBucket(ctx context.Context, bucket string) error {
	if bucket == "" {
		return fmt.Errorf("storage: bucket name is empty")
	}

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}

	var nf *types.NotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %s", ErrBucketNotFound, bucket)
	}
	switch StatusCode(err) {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrBucketNotFound, bucket)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrBucketForbidden, bucket)
	}
	return fmt.Errorf("storage: head bucket %s: %w", bucket, err)
}

// Object é o conteúdo de um objeto com os seus metadados de usuário.
type Object struct {
	Body     []byte
	Metadata map[string]string
}

// GetObject baixa o conteúdo completo de um objeto e os seus metadados.
func (s *Store) GetObject(ctx context.Context, bucket, key string) (*Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("storage: read s3://%s/%s: %w", bucket, key, err)
	}
	return &Object{Body: data, Metadata: out.Metadata}, nil
}

// GetObjectBytes baixa o conteúdo completo de um objeto.
func (s *Store) GetObjectBytes(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	return obj.Body, nil
}

// MetadataFileName é o metadado com o nome original do arquivo enviado.
const MetadataFileName = "original-file-name"

// PutOption altera o PutObjectInput de um Upload.
type PutOption func(*s3.PutObjectInput)

// WithMetadata adiciona metadados de usuário ao objeto.
func WithMetadata(m map[string]string) PutOption {
	return func(in *s3.PutObjectInput) {
		if in.Metadata == nil {
			in.Metadata = make(map[string]string, len(m))
		}
		for k, v := range m {
			in.Metadata[k] = v
		}
	}
}

// Upload grava um objeto.
func (s *Store) Upload(ctx context.Context, bucket, key string, body []byte, contentType string, opts ...PutOption) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	for _, opt := range opts {
		opt(in)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("storage: put s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// Move copia o objeto para outro bucket, com a mesma chave, e remove o original.
// Retorna a nova localização no formato "bucket/key".
func (s *Store) Move(ctx context.Context, srcBucket, dstBucket, key string) (string, error) {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(key),
		CopySource: aws.String(srcBucket + "/" + url.PathEscape(key)),
		ACL:        types.ObjectCannedACLBucketOwnerFullControl,
	})
	if err != nil {
		return "", fmt.Errorf("storage: copy %s/%s to %s: %w", srcBucket, key, dstBucket, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(srcBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("storage: delete %s/%s after copy: %w", srcBucket, key, err)
	}
	return Location(dstBucket, key), nil
}

// Location formata bucket e chave como "bucket/key".
func Location(bucket, key string) string {
	return bucket + "/" + key
}

// StatusCode extrai o status HTTP de um erro do SDK, ou 0 quando não houver.
func StatusCode(err error) int {
	var re interface{ HTTPStatusCode() int }
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}
