package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// TestNewS3Storage tests creating S3 storage with valid config
func TestNewS3Storage(t *testing.T) {
	config := S3Config{
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		Bucket:          "test-bucket",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		UsePathStyle:    true,
	}

	ctx := context.Background()
	storage, err := NewS3Storage(ctx, config)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	if storage == nil {
		t.Fatal("Expected storage to be non-nil")
	}
	if storage.Location() != "s3://test-bucket" {
		t.Errorf("unexpected location %q", storage.Location())
	}
}

// TestNewS3StorageInvalidConfig tests error handling for incomplete configs
func TestNewS3StorageInvalidConfig(t *testing.T) {
	valid := S3Config{
		Region:          "us-east-1",
		Bucket:          "test-bucket",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
	}

	tests := []struct {
		name   string
		mutate func(*S3Config)
	}{
		{"missing bucket", func(c *S3Config) { c.Bucket = "" }},
		{"missing region", func(c *S3Config) { c.Region = "" }},
		{"missing access key", func(c *S3Config) { c.AccessKeyID = "" }},
		{"missing secret", func(c *S3Config) { c.SecretAccessKey = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			tt.mutate(&config)
			if _, err := NewS3Storage(context.Background(), config); err == nil {
				t.Fatal("Expected error, got nil")
			}
		})
	}
}

type recordingS3 struct {
	keys   []string
	bodies []string
	types  []string
}

func (r *recordingS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	r.keys = append(r.keys, aws.ToString(params.Key))
	r.bodies = append(r.bodies, string(body))
	r.types = append(r.types, aws.ToString(params.ContentType))
	return &s3.PutObjectOutput{}, nil
}

// TestS3StoragePut tests key prefixing and content type propagation
func TestS3StoragePut(t *testing.T) {
	client := &recordingS3{}
	storage := &S3Storage{
		client: client,
		bucket: "test-bucket",
		config: S3Config{Bucket: "test-bucket", Prefix: "/images/"},
	}

	if err := storage.MakeDir(context.Background(), "abc/cover"); err != nil {
		t.Fatalf("MakeDir failed: %v", err)
	}
	err := storage.Put(context.Background(), "abc/cover/1.webp", strings.NewReader("data"), "image/webp")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if len(client.keys) != 1 || client.keys[0] != "images/abc/cover/1.webp" {
		t.Errorf("unexpected keys %v", client.keys)
	}
	if client.bodies[0] != "data" || client.types[0] != "image/webp" {
		t.Errorf("unexpected upload body=%q type=%q", client.bodies[0], client.types[0])
	}
	if storage.Location() != "s3://test-bucket/images" {
		t.Errorf("unexpected location %q", storage.Location())
	}
}

// TestFilesystemPut tests writing nested keys under the base path
func TestFilesystemPut(t *testing.T) {
	base := t.TempDir()
	storage, err := New(Config{BasePath: base})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := storage.MakeDir(ctx, "abc/thumbnail"); err != nil {
		t.Fatalf("MakeDir failed: %v", err)
	}
	if info, err := os.Stat(filepath.Join(base, "abc", "thumbnail")); err != nil || !info.IsDir() {
		t.Fatalf("expected thumbnail directory, err=%v", err)
	}

	if err := storage.Put(ctx, "abc/cover/1.webp", strings.NewReader("cover"), "image/webp"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(base, "abc", "cover", "1.webp"))
	if err != nil {
		t.Fatalf("Failed to read stored file: %v", err)
	}
	if string(data) != "cover" {
		t.Errorf("stored %q, want cover", data)
	}
}

// TestFilesystemKeysStayInsideBase tests that dot segments cannot escape the base path
func TestFilesystemKeysStayInsideBase(t *testing.T) {
	base := t.TempDir()
	storage, err := New(Config{BasePath: base})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	full := storage.GetFullPath("../../etc/passwd")
	if !strings.HasPrefix(full, base) {
		t.Errorf("path %q escapes base %q", full, base)
	}
}

func TestNewRequiresBasePath(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("Expected error for empty base path")
	}
}

func TestContentTypeForExtension(t *testing.T) {
	tests := map[string]string{
		"webp":  "image/webp",
		".JPEG": "image/jpeg",
		"jpg":   "image/jpeg",
		"png":   "image/png",
		"avif":  "image/avif",
		"jxl":   "image/jxl",
		"bin":   "application/octet-stream",
	}
	for ext, want := range tests {
		if got := ContentTypeForExtension(ext); got != want {
			t.Errorf("ContentTypeForExtension(%q) = %q, want %q", ext, got, want)
		}
	}
}
