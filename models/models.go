package models

// VisitResult is the bounded summary of a visited page.
// Optional fields are omitted when their budget is zero or nothing was found.
type VisitResult struct {
	URL     string      `json:"url"`
	Title   string      `json:"title"`
	H1      string      `json:"h1"`
	H2      string      `json:"h2"`
	H3      string      `json:"h3"`
	Links   [][2]string `json:"links,omitempty"`   // (label, url) pairs
	Images  [][2]string `json:"images,omitempty"`  // (alt text, markdown or error) pairs
	Content string      `json:"content,omitempty"` // cleaned or windowed page text
}

// FetchResult holds a fetched page split into sections.
// It lives only for the duration of one visit.
type FetchResult struct {
	URL         string `json:"url"`
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
	RawHTML     string `json:"-"`
	Head        string `json:"-"`
	Body        string `json:"-"`
}

// LinkCandidate is an anchor found in the page body before ranking
type LinkCandidate struct {
	OriginalIndex int     `json:"original_index"` // Match order in the body
	Label         string  `json:"label"`
	URL           string  `json:"url"` // Always absolute http(s)
	Score         float64 `json:"score"`
}

// ImageCandidate is an <img> found in the page body before ranking
type ImageCandidate struct {
	OriginalIndex int     `json:"original_index"`
	AltText       string  `json:"alt_text"`
	URL           string  `json:"url"`
	Score         float64 `json:"score"`
}

// ContentWindow is a span of the cleaned page text around a search term match.
// Offsets and lengths count characters, not bytes.
type ContentWindow struct {
	Term        string `json:"term"`
	StartOffset int    `json:"start_offset"`
	Length      int    `json:"length"`
	Text        string `json:"text"`
}

// DownloadOutcome is the result of acquiring one image.
// Exactly one of LocalPath and Error is set, unless the source was already local.
type DownloadOutcome struct {
	SourceURL     string `json:"source_url"`
	LocalPath     string `json:"local_path,omitempty"`
	Error         string `json:"error,omitempty"`
	AlreadyLocal  bool   `json:"already_local,omitempty"` // Passed through without a download
	Aborted       bool   `json:"aborted,omitempty"`       // Cancelled before completion
	ContentType   string `json:"content_type,omitempty"`  // MIME type (e.g., "image/png")
	FileSizeBytes int64  `json:"file_size_bytes,omitempty"`
	Width         int    `json:"width,omitempty"`  // Image width in pixels, when decodable
	Height        int    `json:"height,omitempty"` // Image height in pixels, when decodable
	MirrorKey     string `json:"mirror_key,omitempty"`
}

// OK reports whether the outcome carries a usable local reference
func (o DownloadOutcome) OK() bool {
	return o.Error == "" && (o.LocalPath != "" || o.AlreadyLocal)
}

// Reference returns the path to show for the outcome (local path or untouched source)
func (o DownloadOutcome) Reference() string {
	if o.AlreadyLocal {
		return o.SourceURL
	}
	return o.LocalPath
}

// VisitRequest represents a request to visit a website
type VisitRequest struct {
	URL          string   `json:"url"`
	FindInPage   []string `json:"findInPage,omitempty"`
	MaxLinks     *int     `json:"maxLinks,omitempty"`
	MaxImages    *int     `json:"maxImages,omitempty"`
	ContentLimit *int     `json:"contentLimit,omitempty"`
}

// ViewImagesRequest represents a request to download images for viewing
type ViewImagesRequest struct {
	ImageURLs  []string `json:"imageURLs,omitempty"`
	WebsiteURL string   `json:"websiteURL,omitempty"`
	MaxImages  *int     `json:"maxImages,omitempty"`
}
