package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/docutag/visitor/metrics"
)

// 1x1 PNG image
var testPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53, 0xde, 0x00, 0x00, 0x00,
	0x0c, 0x49, 0x44, 0x41, 0x54, 0x08, 0xd7, 0x63, 0xf8, 0xcf, 0xc0, 0x00,
	0x00, 0x03, 0x01, 0x01, 0x00, 0x18, 0xdd, 0x8d, 0xb4, 0x00, 0x00, 0x00,
	0x00, 0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func setupTestServer(t *testing.T, corsEnabled bool) (*Server, *httptest.Server) {
	t.Helper()

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(`<html><head><title>API Test</title></head><body><h1>Welcome</h1><a href="/docs">Read the docs</a><img src="/logo.png" alt="Logo"></body></html>`))
		case "/logo.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(testPNG)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(site.Close)

	config := DefaultConfig()
	config.Addr = ":0"
	config.StoragePath = t.TempDir()
	config.CORSEnabled = corsEnabled
	config.Metrics = metrics.NewVisitorMetrics("visitor")
	config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	server, err := NewServer(config)
	if err != nil {
		t.Fatalf("Failed to create test server: %v", err)
	}

	return server, site
}

func doRequest(t *testing.T, s *Server, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var bodyBytes []byte
	if body != nil {
		if str, ok := body.(string); ok {
			bodyBytes = []byte(str)
		} else {
			var err error
			bodyBytes, err = json.Marshal(body)
			if err != nil {
				t.Fatalf("Failed to marshal request body: %v", err)
			}
		}
	}

	req := httptest.NewRequest(method, target, bytes.NewReader(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleVisit(t *testing.T) {
	server, site := setupTestServer(t, false)

	tests := []struct {
		name           string
		method         string
		body           interface{}
		wantStatusCode int
		wantErrMsg     string
		checkResponse  func(t *testing.T, body []byte)
	}{
		{
			name:           "valid request",
			method:         http.MethodPost,
			body:           map[string]interface{}{"url": site.URL + "/", "maxImages": 0},
			wantStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var resp VisitResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				if resp.VisitResult == nil || resp.Title != "API Test" || resp.H1 != "Welcome" {
					t.Errorf("Unexpected response %s", body)
				}
				if len(resp.Links) != 1 || resp.Links[0][1] != site.URL+"/docs" {
					t.Errorf("Unexpected links %v", resp.Links)
				}
				if strings.Contains(string(body), `"images"`) {
					t.Errorf("images should be omitted: %s", body)
				}
			},
		},
		{
			name:           "missing URL",
			method:         http.MethodPost,
			body:           map[string]interface{}{},
			wantStatusCode: http.StatusBadRequest,
			wantErrMsg:     "Error: url is required",
		},
		{
			name:           "budget out of range",
			method:         http.MethodPost,
			body:           map[string]interface{}{"url": site.URL + "/", "contentLimit": 20000},
			wantStatusCode: http.StatusBadRequest,
			wantErrMsg:     "Error: contentLimit must be between 0 and 10000, got 20000",
		},
		{
			name:           "invalid JSON",
			method:         http.MethodPost,
			body:           "invalid json",
			wantStatusCode: http.StatusBadRequest,
			wantErrMsg:     "invalid request body",
		},
		{
			name:           "GET method not allowed",
			method:         http.MethodGet,
			wantStatusCode: http.StatusMethodNotAllowed,
			wantErrMsg:     "method not allowed",
		},
		{
			name:           "upstream not found",
			method:         http.MethodPost,
			body:           map[string]interface{}{"url": site.URL + "/gone"},
			wantStatusCode: http.StatusBadGateway,
			wantErrMsg:     "Error: failed to fetch website: HTTP error: 404 Not Found",
			checkResponse: func(t *testing.T, body []byte) {
				var resp ErrorResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				if len(resp.Warnings) != 2 || resp.Warnings[0] != "Failed to fetch website: Not Found" {
					t.Errorf("Unexpected warnings %v", resp.Warnings)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, server, tt.method, "/api/visit", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Errorf("Status code = %d, want %d (body %s)", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantErrMsg != "" {
				var errResp ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
					t.Fatalf("Failed to decode error response: %v", err)
				}
				if errResp.Error != tt.wantErrMsg {
					t.Errorf("Error message = %q, want %q", errResp.Error, tt.wantErrMsg)
				}
			}

			if tt.checkResponse != nil {
				tt.checkResponse(t, w.Body.Bytes())
			}
		})
	}
}

func TestHandleViewImagesAndServeFile(t *testing.T) {
	server, site := setupTestServer(t, false)

	w := doRequest(t, server, http.MethodPost, "/api/view-images", map[string]interface{}{
		"imageURLs": []string{site.URL + "/logo.png", site.URL + "/missing.png"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Status code = %d, body %s", w.Code, w.Body.String())
	}

	var resp ViewImagesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Images) != 2 {
		t.Fatalf("Expected 2 entries, got %v", resp.Images)
	}
	if resp.Images[1] != "Error fetching image from URL: "+site.URL+"/missing.png" {
		t.Errorf("Unexpected error line %q", resp.Images[1])
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0] != "Failed to fetch image 2: Not Found" {
		t.Errorf("Unexpected warnings %v", resp.Warnings)
	}

	markdown := resp.Images[0]
	if !strings.HasPrefix(markdown, "![Image 1](") || !strings.HasSuffix(markdown, ")") {
		t.Fatalf("Unexpected markdown %q", markdown)
	}
	localPath := strings.TrimSuffix(strings.TrimPrefix(markdown, "![Image 1]("), ")")
	if !strings.HasPrefix(localPath, server.Storage().BasePath()) {
		t.Errorf("Expected %q inside the working directory", localPath)
	}

	// The acquired file is served back by name
	w = doRequest(t, server, http.MethodGet, "/api/images/"+path.Base(localPath), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Status code = %d, body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if !bytes.Equal(w.Body.Bytes(), testPNG) {
		t.Error("Served bytes differ from the downloaded image")
	}
}

func TestHandleViewImagesNothingToDownload(t *testing.T) {
	server, _ := setupTestServer(t, false)

	w := doRequest(t, server, http.MethodPost, "/api/view-images", map[string]interface{}{})
	if w.Code != http.StatusOK {
		t.Fatalf("Status code = %d", w.Code)
	}

	var resp ViewImagesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Images == nil || len(resp.Images) != 0 {
		t.Errorf("Expected an empty list, got %v", resp.Images)
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0] != "Error fetching images" {
		t.Errorf("Unexpected warnings %v", resp.Warnings)
	}
}

func TestHandleImage(t *testing.T) {
	server, _ := setupTestServer(t, false)

	tests := []struct {
		name           string
		method         string
		path           string
		wantStatusCode int
	}{
		{"missing file", http.MethodGet, "/api/images/nothing.png", http.StatusNotFound},
		{"empty name", http.MethodGet, "/api/images/", http.StatusBadRequest},
		{"nested path", http.MethodGet, "/api/images/a/b.png", http.StatusBadRequest},
		{"POST not allowed", http.MethodPost, "/api/images/x.png", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, server, tt.method, tt.path, nil)
			if w.Code != tt.wantStatusCode {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatusCode)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	server, _ := setupTestServer(t, false)

	w := doRequest(t, server, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Status code = %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["status"] != "healthy" || resp["working_directory"] != server.Storage().BasePath() {
		t.Errorf("Unexpected health response %v", resp)
	}
}

func TestMiddleware(t *testing.T) {
	t.Run("request id generated", func(t *testing.T) {
		server, _ := setupTestServer(t, false)
		w := doRequest(t, server, http.MethodGet, "/health", nil)
		if _, err := uuid.Parse(w.Header().Get(RequestIDHeader)); err != nil {
			t.Errorf("Expected generated UUID request id, got %q", w.Header().Get(RequestIDHeader))
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Error("CORS headers set while disabled")
		}
	})

	t.Run("request id propagated", func(t *testing.T) {
		server, _ := setupTestServer(t, false)
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		server.Handler().ServeHTTP(w, req)
		if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
			t.Errorf("Request id = %q, want abc-123", got)
		}
	})

	t.Run("CORS preflight", func(t *testing.T) {
		server, _ := setupTestServer(t, true)
		w := doRequest(t, server, http.MethodOptions, "/api/visit", nil)
		if w.Code != http.StatusOK {
			t.Errorf("Status code = %d, want 200", w.Code)
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Error("Expected CORS headers")
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	server, site := setupTestServer(t, false)

	doRequest(t, server, http.MethodPost, "/api/visit", map[string]interface{}{"url": site.URL + "/", "maxImages": 0})

	w := doRequest(t, server, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Status code = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`visitor_operations_total{operation="visit_website",outcome="ok"} 1`,
		`visitor_page_fetches_total{outcome="success"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %q in metrics output", want)
		}
	}
}
