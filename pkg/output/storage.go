// Package output writes coverage tables and report files to local disk or
// S3, optionally compressed.
package output

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Storage is where output files are created. Names are relative to the
// storage base.
type Storage interface {
	// Create opens name for writing; the file is complete after Close
	Create(name string) (io.WriteCloser, error)

	// WriteFile writes a whole file
	WriteFile(name string, data []byte) error

	// Location returns the full path or URI of name
	Location(name string) string

	// IsS3 returns true if this is S3 storage
	IsS3() bool
}

// LocalStorage implements Storage for local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage backend
func NewLocalStorage(basePath string) *LocalStorage {
	if basePath == "" {
		basePath = "."
	}
	return &LocalStorage{basePath: basePath}
}

func (s *LocalStorage) Create(name string) (io.WriteCloser, error) {
	fullPath := filepath.Join(s.basePath, name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, err
	}
	f, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", fullPath, err)
	}
	return f, nil
}

func (s *LocalStorage) WriteFile(name string, data []byte) error {
	fullPath := filepath.Join(s.basePath, name)
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, data, 0644)
}

func (s *LocalStorage) Location(name string) string {
	return filepath.Join(s.basePath, name)
}

func (s *LocalStorage) IsS3() bool {
	return false
}

// S3Storage implements Storage for AWS S3
type S3Storage struct {
	bucket   string
	prefix   string
	uploader *manager.Uploader
	ctx      context.Context
}

// S3URI represents a parsed S3 URI
type S3URI struct {
	Bucket string
	Prefix string
}

// ParseS3URI parses an S3 URI like s3://bucket/path/to/object
func ParseS3URI(uri string) (*S3URI, error) {
	if !IsS3URI(uri) {
		return nil, fmt.Errorf("invalid S3 URI: must start with s3://")
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, "s3://"), "/", 2)
	if parts[0] == "" {
		return nil, fmt.Errorf("invalid S3 URI: missing bucket name")
	}

	uriParts := &S3URI{Bucket: parts[0]}
	if len(parts) == 2 {
		uriParts.Prefix = strings.Trim(parts[1], "/")
	}
	return uriParts, nil
}

// IsS3URI checks if a path is an S3 URI
func IsS3URI(p string) bool {
	return strings.HasPrefix(p, "s3://")
}

// NewS3Storage creates a new S3 storage backend for s3://bucket/prefix
func NewS3Storage(ctx context.Context, uri string) (*S3Storage, error) {
	parsed, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024
		u.Concurrency = 3
	})

	return &S3Storage{
		bucket:   parsed.Bucket,
		prefix:   parsed.Prefix,
		uploader: uploader,
		ctx:      ctx,
	}, nil
}

func (s *S3Storage) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Create streams the written bytes to S3 through a multipart upload. The
// object exists once Close returns without error.
func (s *S3Storage) Create(name string) (io.WriteCloser, error) {
	pr, pw := io.Pipe()
	up := &s3Upload{pw: pw, done: make(chan error, 1)}

	key := s.key(name)
	go func() {
		_, err := s.uploader.Upload(s.ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Body:   pr,
		})
		if err != nil {
			err = fmt.Errorf("failed to upload s3://%s/%s: %w", s.bucket, key, err)
			// unblock the writer side
			pr.CloseWithError(err)
		}
		up.done <- err
	}()
	return up, nil
}

func (s *S3Storage) WriteFile(name string, data []byte) error {
	key := s.key(name)
	_, err := s.uploader.Upload(s.ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *S3Storage) Location(name string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key(name))
}

func (s *S3Storage) IsS3() bool {
	return true
}

type s3Upload struct {
	pw   *io.PipeWriter
	done chan error
}

func (u *s3Upload) Write(p []byte) (int, error) {
	return u.pw.Write(p)
}

func (u *s3Upload) Close() error {
	if err := u.pw.Close(); err != nil {
		return err
	}
	return <-u.done
}

// NewStorage creates the appropriate storage backend based on path
func NewStorage(ctx context.Context, base string) (Storage, error) {
	if IsS3URI(base) {
		return NewS3Storage(ctx, base)
	}
	return NewLocalStorage(base), nil
}

// SplitOutput splits an output path or URI into its storage base and file
// name.
func SplitOutput(output string) (base, name string) {
	if IsS3URI(output) {
		rest := strings.TrimPrefix(output, "s3://")
		i := strings.LastIndex(rest, "/")
		if i < 0 {
			return "s3://" + rest, ""
		}
		return "s3://" + rest[:i], rest[i+1:]
	}
	return filepath.Dir(output), filepath.Base(output)
}
