package storage

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultExtension is used when neither the response nor the URL names one
const DefaultExtension = "jpg"

var (
	imageSubtypePattern = regexp.MustCompile(`image/(?:x-)?(\w+)`)
	urlExtensionPattern = regexp.MustCompile(`^\w+$`)
	drivePrefixPattern  = regexp.MustCompile(`^[A-Za-z]:`)
)

// Config contains storage configuration
type Config struct {
	BasePath string // Working directory that bounds every written file
}

// DefaultConfig returns default storage configuration
func DefaultConfig() Config {
	return Config{
		BasePath: "./storage",
	}
}

// Storage writes acquired images into the working directory
type Storage struct {
	config Config
}

// New creates a new Storage instance rooted at an absolute working directory
func New(config Config) (*Storage, error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("working directory is required")
	}

	abs, err := filepath.Abs(config.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	config.BasePath = abs

	// Create base directory if it doesn't exist
	if err := os.MkdirAll(config.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}

	return &Storage{
		config: config,
	}, nil
}

// BasePath returns the absolute working directory
func (s *Storage) BasePath() string {
	return s.config.BasePath
}

// Contains reports whether ref already points inside the working directory.
// Both the native form and the web form of the directory are recognised.
func (s *Storage) Contains(ref string) bool {
	base := s.config.BasePath
	return strings.HasPrefix(ref, base) || strings.HasPrefix(ref, WebPath(base))
}

// SaveImage writes an image under the working directory.
// It fails if filename already exists. Returns the web-style path of the written file.
func (s *Storage) SaveImage(imageData []byte, filename string) (string, error) {
	if filename == "" || filepath.Base(filename) != filename {
		return "", fmt.Errorf("invalid image file name %q", filename)
	}

	// Never replace an existing file: another acquisition may already reference it
	filePath := filepath.Join(s.config.BasePath, filename)
	f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	if _, err := f.Write(imageData); err != nil {
		f.Close()
		os.Remove(filePath)
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	return WebPath(filePath), nil
}

// ReadImage reads a previously written image by file name
func (s *Storage) ReadImage(filename string) ([]byte, error) {
	if filename == "" || filepath.Base(filename) != filename {
		return nil, fmt.Errorf("invalid image file name %q", filename)
	}

	data, err := os.ReadFile(filepath.Join(s.config.BasePath, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}

	return data, nil
}

// GetFullPath returns the full filesystem path for a file name
func (s *Storage) GetFullPath(filename string) string {
	return filepath.Join(s.config.BasePath, filename)
}

// ImageFileName builds the on-disk name for the image at a 1-based position
// within one acquisition that started at timestamp (Unix milliseconds).
func ImageFileName(timestamp int64, position int, ext string) string {
	return fmt.Sprintf("%d-%d.%s", timestamp, position, ext)
}

// WebPath normalizes a filesystem path for use as a web-style reference:
// forward slashes only and no leading drive letter.
func WebPath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	return drivePrefixPattern.ReplaceAllString(p, "")
}

// ExtensionFor picks the file extension for a downloaded image.
// The response content type wins, then the extension in the URL path, then DefaultExtension.
func ExtensionFor(contentType, sourceURL string) string {
	if ext := extensionFromContentType(contentType); ext != "" {
		return strings.TrimPrefix(ext, ".")
	}
	if m := imageSubtypePattern.FindStringSubmatch(strings.ToLower(contentType)); m != nil {
		return m[1]
	}
	if ext := extensionFromURL(sourceURL); ext != "" {
		return ext
	}
	return DefaultExtension
}

// extensionFromURL returns the extension of the URL path, ignoring any query string
func extensionFromURL(rawURL string) string {
	p := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		p = parsed.Path
	} else if idx := strings.IndexAny(p, "?#"); idx != -1 {
		p = p[:idx]
	}

	ext := strings.TrimPrefix(path.Ext(p), ".")
	if !urlExtensionPattern.MatchString(ext) {
		return ""
	}
	return strings.ToLower(ext)
}

// extensionFromContentType returns the file extension for a content type
func extensionFromContentType(contentType string) string {
	// Normalize content type (remove charset, etc.)
	contentType = strings.ToLower(strings.Split(contentType, ";")[0])
	contentType = strings.TrimSpace(contentType)

	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	case "image/bmp":
		return ".bmp"
	case "image/tiff":
		return ".tiff"
	case "image/avif":
		return ".avif"
	default:
		return ""
	}
}
