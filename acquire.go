package visitor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/docutag/visitor/metrics"
	"github.com/docutag/visitor/models"
	"github.com/docutag/visitor/slug"
	"github.com/docutag/visitor/storage"
)

// Mirror copies an acquired image somewhere beyond the working directory
type Mirror interface {
	Mirror(ctx context.Context, group, filename string, data []byte, contentType string) (string, error)
}

// downloadAbortedMessage marks an item skipped because the caller cancelled
const downloadAbortedMessage = "download aborted"

// acquisitionClock hands out strictly increasing millisecond timestamps, so concurrent
// acquisitions in one process never share a file name prefix.
var acquisitionClock = &monotonicClock{now: func() int64 { return time.Now().UnixMilli() }}

type monotonicClock struct {
	mu   sync.Mutex
	last int64
	now  func() int64
}

// Next returns max(now, last+1)
func (c *monotonicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now()
	if ts <= c.last {
		ts = c.last + 1
	}
	c.last = ts
	return ts
}

// Acquire downloads every URL concurrently into the working directory.
// Outcomes are returned in input order; a failed item never affects its siblings.
// URLs already inside the working directory are passed through without a request.
func (v *Visitor) Acquire(ctx context.Context, urls []string, n Notifier) []models.DownloadOutcome {
	n = notifierOrDiscard(n)
	outcomes := make([]models.DownloadOutcome, len(urls))
	if len(urls) == 0 {
		return outcomes
	}

	// Shared by every item of this call; positions keep them apart
	timestamp := acquisitionClock.Next()

	var g errgroup.Group
	for i, u := range urls {
		g.Go(func() error {
			outcomes[i] = v.acquireOne(ctx, u, i+1, timestamp, n)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// acquireOne fetches and stores the image at a 1-based position
func (v *Visitor) acquireOne(ctx context.Context, imageURL string, position int, timestamp int64, n Notifier) models.DownloadOutcome {
	outcome := models.DownloadOutcome{SourceURL: imageURL}

	if v.store.Contains(imageURL) {
		outcome.AlreadyLocal = true
		v.metrics.ObserveImage(metrics.OutcomeLocal, 0)
		return outcome
	}

	data, contentType, err := v.downloadImage(ctx, imageURL)
	if err != nil {
		if canceled(ctx, err) {
			outcome.Aborted = true
			outcome.Error = downloadAbortedMessage
			v.metrics.ObserveImage(metrics.OutcomeAborted, 0)
			return outcome
		}

		var statusErr *StatusError
		switch {
		case errors.As(err, &statusErr):
			n.Warn(fmt.Sprintf("Failed to fetch image %d: %s", position, statusErr.Text()))
		case errors.Is(err, ErrEmptyImage):
			n.Warn(fmt.Sprintf("Image %d is empty: %s", position, imageURL))
		default:
			n.Warn(fmt.Sprintf("Error fetching image %d: %v", position, err))
		}
		v.logger.Debug("image download failed", "url", imageURL, "position", position, "error", err)
		outcome.Error = err.Error()
		v.metrics.ObserveImage(metrics.OutcomeFailed, 0)
		return outcome
	}

	filename := storage.ImageFileName(timestamp, position, storage.ExtensionFor(contentType, imageURL))
	localPath, err := v.store.SaveImage(data, filename)
	if err != nil {
		n.Warn(fmt.Sprintf("Error fetching image %d: %v", position, err))
		outcome.Error = err.Error()
		v.metrics.ObserveImage(metrics.OutcomeFailed, 0)
		return outcome
	}

	outcome.LocalPath = localPath
	outcome.ContentType = mediaType(contentType, data)
	outcome.FileSizeBytes = int64(len(data))
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		outcome.Width = cfg.Width
		outcome.Height = cfg.Height
	}

	if v.mirror != nil {
		key, err := v.mirror.Mirror(ctx, slug.FromURL(imageURL, "unknown"), filename, data, outcome.ContentType)
		if err != nil {
			n.Warn(fmt.Sprintf("Failed to mirror image %d: %v", position, err))
		} else {
			outcome.MirrorKey = key
		}
	}

	v.metrics.ObserveImage(metrics.OutcomeSuccess, outcome.FileSizeBytes)
	return outcome
}

// downloadImage downloads an image with the per-image timeout and size limit.
// Returns the payload and the response content type.
func (v *Visitor) downloadImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	// Create request with timeout context
	ctx, cancel := context.WithTimeout(ctx, v.config.ImageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	spoofHeaders(req)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	// Check content length if available
	if resp.ContentLength > v.config.MaxImageSizeBytes {
		return nil, "", fmt.Errorf("image too large: %d bytes (max: %d)", resp.ContentLength, v.config.MaxImageSizeBytes)
	}

	// Read with size limit
	imageData, err := io.ReadAll(io.LimitReader(resp.Body, v.config.MaxImageSizeBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}

	// Check if we exceeded the limit
	if int64(len(imageData)) > v.config.MaxImageSizeBytes {
		return nil, "", fmt.Errorf("image too large: exceeds %d bytes", v.config.MaxImageSizeBytes)
	}
	if len(imageData) == 0 {
		return nil, "", ErrEmptyImage
	}

	return imageData, resp.Header.Get("Content-Type"), nil
}

// mediaType strips parameters from the declared content type, sniffing when absent
func mediaType(contentType string, data []byte) string {
	if mt := strings.TrimSpace(strings.Split(contentType, ";")[0]); mt != "" {
		return strings.ToLower(mt)
	}
	return strings.Split(http.DetectContentType(data), ";")[0]
}
