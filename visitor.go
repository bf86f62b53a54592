// Package visitor fetches a web page and reduces it to a bounded, relevance-ranked summary
// of its title, headings, links, images and text, optionally downloading the images.
package visitor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/docutag/visitor/config"
	"github.com/docutag/visitor/metrics"
	"github.com/docutag/visitor/models"
	"github.com/docutag/visitor/storage"
)

// DefaultMaxPageSizeBytes caps the size of a fetched page
const DefaultMaxPageSizeBytes = 10 * 1024 * 1024

// Config contains visitor configuration
type Config struct {
	HTTPTimeout       time.Duration
	ImageTimeout      time.Duration // Timeout for downloading individual images
	MaxPageSizeBytes  int64
	MaxImageSizeBytes int64 // Maximum image size to download (bytes)
	Profile           Profile
	Budgets           config.Budgets // Configured maxLinks, maxImages and contentLimit
}

// DefaultConfig returns default visitor configuration
func DefaultConfig() Config {
	return Config{
		HTTPTimeout:       30 * time.Second,
		ImageTimeout:      15 * time.Second,
		MaxPageSizeBytes:  DefaultMaxPageSizeBytes,
		MaxImageSizeBytes: config.DefaultMaxImageBytes,
		Profile:           ProfileFull,
	}
}

// ConfigFrom derives visitor settings from loaded configuration
func ConfigFrom(cfg *config.Config) (Config, error) {
	c := DefaultConfig()
	if cfg == nil {
		return c, nil
	}

	profile, err := ParseProfile(cfg.Profile)
	if err != nil {
		return Config{}, err
	}
	c.Profile = profile
	c.Budgets = cfg.Budgets
	if cfg.HTTPTimeoutSecs > 0 {
		c.HTTPTimeout = cfg.HTTPTimeout()
	}
	if cfg.ImageTimeoutSecs > 0 {
		c.ImageTimeout = cfg.ImageTimeout()
	}
	if cfg.MaxImageBytes > 0 {
		c.MaxImageSizeBytes = cfg.MaxImageBytes
	}
	return c, nil
}

// Visitor visits pages and acquires their images
type Visitor struct {
	config  Config
	client  *http.Client
	store   *storage.Storage
	ranker  Ranker
	mirror  Mirror
	metrics *metrics.VisitorMetrics
	logger  *slog.Logger
}

// Option customises a Visitor
type Option func(*Visitor)

// WithMirror copies every acquired image through m
func WithMirror(m Mirror) Option {
	return func(v *Visitor) { v.mirror = m }
}

// WithRanker replaces the profile's default ranker
func WithRanker(r Ranker) Option {
	return func(v *Visitor) { v.ranker = r }
}

// WithMetrics records fetches and downloads on m
func WithMetrics(m *metrics.VisitorMetrics) Option {
	return func(v *Visitor) { v.metrics = m }
}

// WithLogger sets the operator log
func WithLogger(l *slog.Logger) Option {
	return func(v *Visitor) { v.logger = l }
}

// New creates a new Visitor writing images into store
func New(cfg Config, store *storage.Storage, opts ...Option) *Visitor {
	if cfg.MaxPageSizeBytes <= 0 {
		cfg.MaxPageSizeBytes = DefaultMaxPageSizeBytes
	}
	if cfg.MaxImageSizeBytes <= 0 {
		cfg.MaxImageSizeBytes = config.DefaultMaxImageBytes
	}
	if cfg.ImageTimeout <= 0 {
		cfg.ImageTimeout = DefaultConfig().ImageTimeout
	}
	if cfg.Profile == "" {
		cfg.Profile = ProfileFull
	}

	v := &Visitor{
		config: cfg,
		client: &http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		store:  store,
		ranker: NewRanker(cfg.Profile),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Config returns the visitor's configuration
func (v *Visitor) Config() Config {
	return v.config
}

// Visit fetches a page and assembles its bounded summary.
// A zero budget omits the corresponding field; so does an empty result.
func (v *Visitor) Visit(ctx context.Context, req models.VisitRequest, n Notifier) (*models.VisitResult, error) {
	n = notifierOrDiscard(n)

	maxLinks := v.config.Budgets.Links(req.MaxLinks)
	maxImages := v.config.Budgets.Images(req.MaxImages)
	contentLimit := v.config.Budgets.Content(req.ContentLimit)

	n.Status("Visiting website...")
	page, err := v.Fetch(ctx, req.URL, n)
	if err != nil {
		return nil, err
	}
	n.Status("Website visited successfully.")

	result := &models.VisitResult{
		URL:   req.URL,
		Title: ExtractTitle(page.Head),
		H1:    ExtractHeading(page.Body, 1),
		H2:    ExtractHeading(page.Body, 2),
		H3:    ExtractHeading(page.Body, 3),
	}

	if maxLinks > 0 {
		for _, link := range v.ranker.RankLinks(ExtractLinks(page.Body, page.URL), req.FindInPage, maxLinks) {
			result.Links = append(result.Links, [2]string{link.Label, link.URL})
		}
	}

	if maxImages > 0 {
		images := v.ranker.RankImages(ExtractImages(page.Body, page.URL, v.ranker.Profile), req.FindInPage, maxImages)
		if len(images) > 0 {
			urls := make([]string, len(images))
			for i, img := range images {
				urls[i] = img.URL
			}
			for i, markdown := range v.renderOutcomes(ctx, urls, n) {
				result.Images = append(result.Images, [2]string{images[i].AltText, markdown})
			}
		}
	}

	if contentLimit > 0 {
		result.Content = v.ranker.ExtractContent(CleanText(page.Body), req.FindInPage, contentLimit)
	}

	return result, nil
}

// ViewImages downloads the given image URLs plus the top images of an optional website.
// It returns one markdown reference or error line per image, or the (empty) URL list
// when there is nothing to download.
func (v *Visitor) ViewImages(ctx context.Context, req models.ViewImagesRequest, n Notifier) ([]string, error) {
	n = notifierOrDiscard(n)
	maxImages := v.config.Budgets.Images(req.MaxImages)

	urls := append([]string{}, req.ImageURLs...)
	if req.WebsiteURL != "" {
		n.Status("Fetching image URLs from website...")
		page, err := v.Fetch(ctx, req.WebsiteURL, n)
		if err != nil {
			return nil, err
		}
		for _, img := range v.ranker.RankImages(ExtractImages(page.Body, page.URL, v.ranker.Profile), nil, maxImages) {
			urls = append(urls, img.URL)
		}
	}

	if len(urls) == 0 {
		n.Warn("Error fetching images")
		return urls, nil
	}

	return v.renderOutcomes(ctx, urls, n), nil
}

// renderOutcomes acquires urls and renders each as markdown or an inline error
func (v *Visitor) renderOutcomes(ctx context.Context, urls []string, n Notifier) []string {
	n.Status("Downloading images...")
	outcomes := v.Acquire(ctx, urls, n)

	rendered := make([]string, len(outcomes))
	ok := 0
	for i, o := range outcomes {
		if o.OK() {
			ok++
			rendered[i] = fmt.Sprintf("![Image %d](%s)", i+1, o.Reference())
		} else {
			rendered[i] = "Error fetching image from URL: " + o.SourceURL
		}
	}
	n.Status(fmt.Sprintf("Downloaded %d of %d images successfully.", ok, len(outcomes)))
	return rendered
}
