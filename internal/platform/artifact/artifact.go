// Package artifact publishes finished documents to long-term storage. Reports
// are always written to the local report directory first; publication is a
// best-effort copy that never blocks generation.
package artifact

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrMissingKey     = errors.New("object key is required")
)

// MaxObjectSize caps a single published document (25 MB).
const MaxObjectSize = 25 * 1024 * 1024

// Object describes a published document.
type Object struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	PublishedAt time.Time `json:"published_at"`
}

type Publisher interface {
	Publish(ctx context.Context, key, contentType string, body io.Reader) (*Object, error)
}

// readBody drains body, enforcing MaxObjectSize, and fingerprints it.
func readBody(key, contentType string, body io.Reader) ([]byte, *Object, error) {
	if strings.TrimSpace(key) == "" {
		return nil, nil, ErrMissingKey
	}
	data, err := io.ReadAll(io.LimitReader(body, MaxObjectSize+1))
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", key, err)
	}
	if int64(len(data)) > MaxObjectSize {
		return nil, nil, fmt.Errorf("%s exceeds %d bytes", key, MaxObjectSize)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, &Object{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		Hash:        fmt.Sprintf("%x", sha256.Sum256(data)),
		PublishedAt: time.Now().UTC(),
	}, nil
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

type storedObject struct {
	meta    Object
	content []byte
}

// MemoryPublisher keeps published objects in memory. Used when no bucket is
// configured and in tests.
type MemoryPublisher struct {
	mu      sync.RWMutex
	objects map[string]*storedObject
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{objects: make(map[string]*storedObject)}
}

func (m *MemoryPublisher) Publish(_ context.Context, key, contentType string, body io.Reader) (*Object, error) {
	data, meta, err := readBody(key, contentType, body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.objects[key] = &storedObject{meta: *meta, content: data}
	m.mu.Unlock()

	out := *meta
	return &out, nil
}

// Open returns a published object's content.
func (m *MemoryPublisher) Open(key string) (io.ReadCloser, *Object, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, nil, ErrObjectNotFound
	}
	meta := obj.meta
	return io.NopCloser(bytes.NewReader(obj.content)), &meta, nil
}

// Keys lists published keys.
func (m *MemoryPublisher) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}

// ---------------------------------------------------------------------------
// S3 implementation
// ---------------------------------------------------------------------------

// S3API is the subset of the S3 client the publisher calls.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher writes objects under prefix in bucket.
type S3Publisher struct {
	client S3API
	bucket string
	prefix string
}

func NewS3Publisher(client S3API, bucket, prefix string) *S3Publisher {
	return &S3Publisher{client: client, bucket: bucket, prefix: prefix}
}

// NewS3Client builds a client from the default AWS credential chain. Path
// style addressing keeps S3-compatible stores such as MinIO working.
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
		UsePathStyle: true,
	}), nil
}

// ObjectKey is where key lands in the bucket.
func (p *S3Publisher) ObjectKey(key string) string {
	if p.prefix == "" {
		return key
	}
	return path.Join(p.prefix, key)
}

func (p *S3Publisher) Publish(ctx context.Context, key, contentType string, body io.Reader) (*Object, error) {
	data, meta, err := readBody(key, contentType, body)
	if err != nil {
		return nil, err
	}
	meta.Key = p.ObjectKey(key)

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(meta.Key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(meta.ContentType),
		ContentLength: aws.Int64(meta.Size),
		Metadata:      map[string]string{"sha256": meta.Hash},
	})
	if err != nil {
		return nil, fmt.Errorf("put s3://%s/%s: %w", p.bucket, meta.Key, err)
	}
	return meta, nil
}
