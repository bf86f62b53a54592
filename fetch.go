package visitor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/docutag/visitor/metrics"
	"github.com/docutag/visitor/models"
)

// Realistic browser user agents; one is picked at random per request
var spoofedUserAgents = []string{
	"Mozilla/5.0 (Linux; Android 10; SM-M515F) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/87.0.4280.141 Mobile Safari/537.36",
	"Mozilla/5.0 (Linux; Android 6.0; E5533) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/83.0.4103.101 Mobile Safari/537.36",
	"Mozilla/5.0 (Linux; Android 8.1.0; AX1082) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/83.0.4103.83 Mobile Safari/537.36",
	"Mozilla/5.0 (Linux; Android 8.1.0; TM-MID1020A) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/83.0.4103.96 Safari/537.36",
	"Mozilla/5.0 (Linux; Android 9; POT-LX1) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.45 Mobile Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/97.0.4692.71 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/98.0.4758.80 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0.3 Safari/605.1.15",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.3.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:97.0) Gecko/20100101 Firefox/97.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/134.0.0.0 Safari/537.36 Edg/134.0.0.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/97.0.4692.71 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/98.0.4758.80 Safari/537.36",
	"Mozilla/5.0 (X11; CrOS x86_64 14541.0.0) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/134.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/97.0.4692.71 Safari/537.36",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:97.0) Gecko/20100101 Firefox/97.0",
}

// spoofHeaders dresses a request up as a top-level browser navigation.
// Accept-Encoding is left to the transport so compressed bodies are decoded transparently.
func spoofHeaders(req *http.Request) {
	host := req.URL.Hostname()

	req.Header.Set("User-Agent", spoofedUserAgents[rand.IntN(len(spoofedUserAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", "https://"+host+"/")
	req.Header.Set("Origin", "https://"+host)
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-User", "?1")
	req.Header.Set("Cache-Control", "max-age=0")
}

// parseTarget validates that rawURL is an absolute http(s) URL
func parseTarget(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: URL must be http or https", ErrInvalidURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("%w: URL has no host", ErrInvalidURL)
	}
	return parsed, nil
}

// ValidateURL reports whether rawURL is an absolute http(s) URL, wrapping ErrInvalidURL if not
func ValidateURL(rawURL string) error {
	_, err := parseTarget(rawURL)
	return err
}

// Fetch performs a single GET of the page and splits it into head and body.
// Non-success statuses are reported to n and returned wrapping *StatusError.
func (v *Visitor) Fetch(ctx context.Context, targetURL string, n Notifier) (*models.FetchResult, error) {
	n = notifierOrDiscard(n)
	start := time.Now()

	result, err := v.fetch(ctx, targetURL, n)
	switch {
	case err == nil:
		v.metrics.ObserveFetch(metrics.OutcomeSuccess, time.Since(start))
	case IsAborted(err):
		v.metrics.ObserveFetch(metrics.OutcomeAborted, time.Since(start))
	default:
		v.metrics.ObserveFetch(metrics.OutcomeFailed, time.Since(start))
	}
	return result, err
}

func (v *Visitor) fetch(ctx context.Context, targetURL string, n Notifier) (*models.FetchResult, error) {
	parsed, err := parseTarget(targetURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	spoofHeaders(req)

	resp, err := v.client.Do(req)
	if err != nil {
		if canceled(ctx, err) {
			return nil, ErrAborted
		}
		return nil, fmt.Errorf("failed to fetch website: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Code: resp.StatusCode, Status: resp.Status}
		n.Warn(fmt.Sprintf("Failed to fetch website: %s", statusErr.Text()))
		return nil, fmt.Errorf("failed to fetch website: %w", statusErr)
	}

	contentType := resp.Header.Get("Content-Type")
	raw, err := io.ReadAll(io.LimitReader(resp.Body, v.config.MaxPageSizeBytes+1))
	if err != nil {
		if canceled(ctx, err) {
			return nil, ErrAborted
		}
		return nil, fmt.Errorf("failed to read website: %w", err)
	}
	if int64(len(raw)) > v.config.MaxPageSizeBytes {
		return nil, fmt.Errorf("website too large: exceeds %d bytes", v.config.MaxPageSizeBytes)
	}

	page := decodePage(raw, contentType)
	sections := Section(page)

	return &models.FetchResult{
		URL:         parsed.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		RawHTML:     page,
		Head:        sections.Head,
		Body:        sections.Body,
	}, nil
}

// decodePage converts the payload to UTF-8 using the declared or sniffed charset
func decodePage(raw []byte, contentType string) string {
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return string(raw)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
