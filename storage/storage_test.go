package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestNewS3Mirror tests creating an S3 mirror with valid config
func TestNewS3Mirror(t *testing.T) {
	config := S3Config{
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		Bucket:          "test-bucket",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		UsePathStyle:    true,
	}

	ctx := context.Background()
	mirror, err := NewS3Mirror(ctx, config)
	if err != nil {
		t.Fatalf("Failed to create mirror: %v", err)
	}

	if mirror == nil {
		t.Fatal("Expected mirror to be non-nil")
	}

	if got := mirror.Key("example-com", "1700000000000-1.png"); got != "images/example-com/1700000000000-1.png" {
		t.Errorf("Key() = %q, want %q", got, "images/example-com/1700000000000-1.png")
	}
}

// TestNewS3MirrorInvalidConfig tests error handling for incomplete configs
func TestNewS3MirrorInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config S3Config
	}{
		{
			name: "missing bucket",
			config: S3Config{
				Region:          "us-east-1",
				AccessKeyID:     "test-key",
				SecretAccessKey: "test-secret",
			},
		},
		{
			name: "missing region",
			config: S3Config{
				Bucket:          "test-bucket",
				AccessKeyID:     "test-key",
				SecretAccessKey: "test-secret",
			},
		},
		{
			name: "missing credentials",
			config: S3Config{
				Region: "us-east-1",
				Bucket: "test-bucket",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3Mirror(context.Background(), tt.config)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
		})
	}
}

// TestExtensionFromContentType tests content type to extension mapping
func TestExtensionFromContentType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        string
	}{
		{"jpeg", "image/jpeg", ".jpg"},
		{"jpg", "image/jpg", ".jpg"},
		{"png", "image/png", ".png"},
		{"gif", "image/gif", ".gif"},
		{"webp", "image/webp", ".webp"},
		{"svg", "image/svg+xml", ".svg"},
		{"bmp", "image/bmp", ".bmp"},
		{"tiff", "image/tiff", ".tiff"},
		{"with charset", "image/jpeg; charset=utf-8", ".jpg"},
		{"unknown", "image/unknown", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extensionFromContentType(tt.contentType)
			if got != tt.want {
				t.Errorf("extensionFromContentType(%q) = %q, want %q", tt.contentType, got, tt.want)
			}
		})
	}
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		url         string
		want        string
	}{
		{"content type wins over url", "image/png", "https://example.com/photo.jpg?x=1", "png"},
		{"unknown image subtype", "image/heic", "https://example.com/photo.jpg", "heic"},
		{"vendor image subtype", "image/x-icon", "https://example.com/favicon", "icon"},
		{"url extension with query", "application/octet-stream", "https://example.com/a/photo.GIF?size=large", "gif"},
		{"url extension without query", "", "https://example.com/a/photo.webp", "webp"},
		{"no hints", "", "https://example.com/image", "jpg"},
		{"non word extension", "", "https://example.com/file.tar-gz", "jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtensionFor(tt.contentType, tt.url); got != tt.want {
				t.Errorf("ExtensionFor(%q, %q) = %q, want %q", tt.contentType, tt.url, got, tt.want)
			}
		})
	}
}

func TestWebPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`C:\Users\agent\work\1-1.png`, "/Users/agent/work/1-1.png"},
		{`d:\work\1-2.png`, "/work/1-2.png"},
		{"/home/agent/work/1-3.png", "/home/agent/work/1-3.png"},
	}

	for _, tt := range tests {
		if got := WebPath(tt.in); got != tt.want {
			t.Errorf("WebPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSaveAndReadImage(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Config{BasePath: dir})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	name := ImageFileName(1700000000000, 3, "png")
	if name != "1700000000000-3.png" {
		t.Fatalf("ImageFileName() = %q", name)
	}

	ref, err := s.SaveImage([]byte("png-bytes"), name)
	if err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}

	if !strings.HasSuffix(ref, "/"+name) {
		t.Errorf("Expected reference to end with %q, got %q", name, ref)
	}
	if strings.Contains(ref, `\`) {
		t.Errorf("Expected forward slashes only, got %q", ref)
	}
	if !s.Contains(ref) {
		t.Errorf("Expected %q to be inside the working directory", ref)
	}

	onDisk, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("Expected file on disk: %v", err)
	}
	if string(onDisk) != "png-bytes" {
		t.Errorf("Unexpected file content %q", onDisk)
	}

	data, err := s.ReadImage(name)
	if err != nil {
		t.Fatalf("ReadImage failed: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("ReadImage returned %q", data)
	}
}

func TestSaveImageKeepsExistingFile(t *testing.T) {
	s, err := New(Config{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	name := ImageFileName(1700000000000, 1, "png")
	if _, err := s.SaveImage([]byte("first"), name); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	if _, err := s.SaveImage([]byte("second"), name); err == nil {
		t.Error("Expected an error when the file already exists")
	}

	data, err := s.ReadImage(name)
	if err != nil {
		t.Fatalf("ReadImage failed: %v", err)
	}
	if string(data) != "first" {
		t.Errorf("Existing file was overwritten, got %q", data)
	}
}

func TestSaveImageRejectsTraversal(t *testing.T) {
	s, err := New(Config{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for _, name := range []string{"", "../escape.png", "nested/file.png"} {
		if _, err := s.SaveImage([]byte("x"), name); err == nil {
			t.Errorf("Expected error for file name %q", name)
		}
		if _, err := s.ReadImage(name); err == nil {
			t.Errorf("Expected read error for file name %q", name)
		}
	}
}

func TestContains(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Config{BasePath: dir})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if !s.Contains(filepath.Join(dir, "1-1.png")) {
		t.Error("Expected file inside working directory to be contained")
	}
	if s.Contains("https://example.com/1-1.png") {
		t.Error("Expected remote URL not to be contained")
	}
}
