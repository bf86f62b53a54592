// Package tools exposes the visitor operations as agent tools: bounded arguments in,
// a result or a single error string out. Every transport (MCP, HTTP, CLI) goes through here.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"runtime/debug"

	"github.com/docutag/visitor"
	"github.com/docutag/visitor/metrics"
	"github.com/docutag/visitor/models"
)

// Tool names and descriptions shown to agents
const (
	VisitWebsiteName        = "visit_website"
	VisitWebsiteDescription = "Visit a website and return its title, headings, links, images, and text content. Images are automatically downloaded and viewable."

	ViewImagesName        = "view_images"
	ViewImagesDescription = "Download images from a website or a list of image URLs to make them viewable."
)

// Argument bounds
const (
	MaxLinksBound     = 200
	MaxImagesBound    = 200
	ContentLimitBound = 10000
)

const (
	visitAbortedMessage  = "Website visit aborted by user."
	imagesAbortedMessage = "Image download aborted by user."

	visitFailurePrefix  = "Error during website visit"
	imagesFailurePrefix = "Error during image download"
)

// Kind classifies a tool reply
type Kind string

const (
	KindOK      Kind = "ok"
	KindInvalid Kind = "invalid"
	KindFailed  Kind = "failed"
	KindAborted Kind = "aborted"
)

// Reply is the outcome of one tool call. Value is set for KindOK, Message otherwise.
type Reply struct {
	Kind    Kind
	Value   any
	Message string
}

// OK reports whether the call produced a value
func (r Reply) OK() bool {
	return r.Kind == KindOK
}

// MarshalJSON encodes the value, or the message as a bare JSON string
func (r Reply) MarshalJSON() ([]byte, error) {
	if r.OK() {
		return json.Marshal(r.Value)
	}
	return json.Marshal(r.Message)
}

// Text renders the reply for a text-only channel
func (r Reply) Text() string {
	if !r.OK() {
		return r.Message
	}
	data, err := json.Marshal(r.Value)
	if err != nil {
		return "Error: " + err.Error()
	}
	return string(data)
}

// VisitArgs are the visit_website parameters
type VisitArgs struct {
	URL          string   `json:"url" jsonschema:"The URL of the website to visit"`
	FindInPage   []string `json:"findInPage,omitempty" jsonschema:"Highly recommended! Optional search terms to prioritize which links, images, and content to return."`
	MaxLinks     *int     `json:"maxLinks,omitempty" jsonschema:"Maximum number of links to extract from the page."`
	MaxImages    *int     `json:"maxImages,omitempty" jsonschema:"Maximum number of images to extract from the page."`
	ContentLimit *int     `json:"contentLimit,omitempty" jsonschema:"Maximum text content length to extract from the page."`
}

// Validate checks the URL is present and every budget is within bounds
func (a VisitArgs) Validate() error {
	if a.URL == "" {
		return fmt.Errorf("url is required")
	}
	if err := checkBound("maxLinks", a.MaxLinks, 0, MaxLinksBound); err != nil {
		return err
	}
	if err := checkBound("maxImages", a.MaxImages, 0, MaxImagesBound); err != nil {
		return err
	}
	return checkBound("contentLimit", a.ContentLimit, 0, ContentLimitBound)
}

// Request converts the arguments into a visit request
func (a VisitArgs) Request() models.VisitRequest {
	return models.VisitRequest{
		URL:          a.URL,
		FindInPage:   a.FindInPage,
		MaxLinks:     a.MaxLinks,
		MaxImages:    a.MaxImages,
		ContentLimit: a.ContentLimit,
	}
}

// ViewImagesArgs are the view_images parameters
type ViewImagesArgs struct {
	ImageURLs  []string `json:"imageURLs,omitempty" jsonschema:"List of image URLs to view that were not obtained via the Visit Website tool."`
	WebsiteURL string   `json:"websiteURL,omitempty" jsonschema:"The URL of the website, whose images to view."`
	MaxImages  *int     `json:"maxImages,omitempty" jsonschema:"Maximum number of images to view when websiteURL is provided."`
}

// Validate checks every URL is absolute http(s) and the image budget is within bounds.
// Absolute local paths are accepted in imageURLs; they name files acquired earlier.
func (a ViewImagesArgs) Validate() error {
	for i, ref := range a.ImageURLs {
		if path.IsAbs(ref) || filepath.IsAbs(ref) {
			continue
		}
		if err := visitor.ValidateURL(ref); err != nil {
			return fmt.Errorf("imageURLs[%d] %q: %w", i, ref, err)
		}
	}
	if a.WebsiteURL != "" {
		if err := visitor.ValidateURL(a.WebsiteURL); err != nil {
			return fmt.Errorf("websiteURL %q: %w", a.WebsiteURL, err)
		}
	}
	return checkBound("maxImages", a.MaxImages, 1, MaxImagesBound)
}

// Request converts the arguments into a view-images request
func (a ViewImagesArgs) Request() models.ViewImagesRequest {
	return models.ViewImagesRequest{
		ImageURLs:  a.ImageURLs,
		WebsiteURL: a.WebsiteURL,
		MaxImages:  a.MaxImages,
	}
}

func checkBound(name string, value *int, lo, hi int) error {
	if value == nil {
		return nil
	}
	if *value < lo || *value > hi {
		return fmt.Errorf("%s must be between %d and %d, got %d", name, lo, hi, *value)
	}
	return nil
}

// Toolbox runs tool calls against a visitor
type Toolbox struct {
	visitor *visitor.Visitor
	metrics *metrics.VisitorMetrics
	logger  *slog.Logger
}

// Option customises a Toolbox
type Option func(*Toolbox)

// WithMetrics counts tool calls by outcome
func WithMetrics(m *metrics.VisitorMetrics) Option {
	return func(t *Toolbox) { t.metrics = m }
}

// WithLogger sets the log used for unexpected failures
func WithLogger(l *slog.Logger) Option {
	return func(t *Toolbox) { t.logger = l }
}

// New creates a Toolbox backed by v
func New(v *visitor.Visitor, opts ...Option) *Toolbox {
	t := &Toolbox{
		visitor: v,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// VisitWebsite visits a page and returns its bounded summary
func (t *Toolbox) VisitWebsite(ctx context.Context, args VisitArgs, n visitor.Notifier) (reply Reply) {
	n = notifier(n)
	defer t.observe(VisitWebsiteName, &reply)
	defer t.recoverPanic(VisitWebsiteName, visitFailurePrefix, n, &reply)

	if err := args.Validate(); err != nil {
		return invalid(err)
	}

	result, err := t.visitor.Visit(ctx, args.Request(), n)
	if err != nil {
		return failure(err, visitAbortedMessage, visitFailurePrefix, n)
	}
	return Reply{Kind: KindOK, Value: result}
}

// ViewImages downloads images and returns one markdown reference or error line per image
func (t *Toolbox) ViewImages(ctx context.Context, args ViewImagesArgs, n visitor.Notifier) (reply Reply) {
	n = notifier(n)
	defer t.observe(ViewImagesName, &reply)
	defer t.recoverPanic(ViewImagesName, imagesFailurePrefix, n, &reply)

	if err := args.Validate(); err != nil {
		return invalid(err)
	}

	lines, err := t.visitor.ViewImages(ctx, args.Request(), n)
	if err != nil {
		return failure(err, imagesAbortedMessage, imagesFailurePrefix, n)
	}
	if lines == nil {
		lines = []string{}
	}
	return Reply{Kind: KindOK, Value: lines}
}

// Describe converts an operation error into its tool-boundary kind and message
func Describe(err error, abortedMessage string) (Kind, string) {
	if visitor.IsAborted(err) {
		return KindAborted, abortedMessage
	}
	return KindFailed, "Error: " + err.Error()
}

func failure(err error, abortedMessage, warnPrefix string, n visitor.Notifier) Reply {
	kind, message := Describe(err, abortedMessage)
	if kind == KindFailed {
		n.Warn(fmt.Sprintf("%s: %s", warnPrefix, err.Error()))
	}
	return Reply{Kind: kind, Message: message}
}

func invalid(err error) Reply {
	return Reply{Kind: KindInvalid, Message: "Error: " + err.Error()}
}

// recoverPanic turns a panic inside an operation into a failed reply
func (t *Toolbox) recoverPanic(tool, warnPrefix string, n visitor.Notifier, reply *Reply) {
	r := recover()
	if r == nil {
		return
	}
	t.logger.Error("tool panicked", "tool", tool, "panic", r, "stack", string(debug.Stack()))
	*reply = failure(fmt.Errorf("internal error: %v", r), "", warnPrefix, n)
}

func (t *Toolbox) observe(tool string, reply *Reply) {
	t.metrics.ObserveOperation(tool, string(reply.Kind))
}

func notifier(n visitor.Notifier) visitor.Notifier {
	if n == nil {
		return visitor.LogNotifier{}
	}
	return n
}
