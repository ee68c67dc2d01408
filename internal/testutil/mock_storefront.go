// Package testutil provides a mock storefront search API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines a canned response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockItem is a row served by MockStorefront.
type MockItem struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Title string `json:"title"`
}

type mockPage struct {
	Rows    []MockItem `json:"rows"`
	Total   int        `json:"total"`
	HasMore bool       `json:"hasMore"`
}

// MockStorefront is a configurable mock of the storefront search API. Each
// kind ("product", "booth") serves a catalog of a configurable size; rows
// are named after the query keyword so tests can tell queries apart.
type MockStorefront struct {
	server *httptest.Server

	mu       sync.RWMutex
	totals   map[string]int
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	queued   []MockResponse
	delay    time.Duration

	// Tracking
	RequestCount      int
	LastRequestURL    *url.URL
	LastRequestHeader http.Header
}

// NewMockStorefront creates a mock serving total rows for every kind.
func NewMockStorefront(total int) *MockStorefront {
	mock := &MockStorefront{
		totals:   map[string]int{"product": total, "booth": total},
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestURL = r.URL
		mock.LastRequestHeader = r.Header.Clone()
		var queued *MockResponse
		if len(mock.queued) > 0 {
			resp := mock.queued[0]
			mock.queued = mock.queued[1:]
			queued = &resp
		}
		handler, exists := mock.handlers[r.URL.Path]
		delay := mock.delay
		mock.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		if queued != nil {
			writeResponse(w, *queued)
			return
		}
		if exists {
			handler(w, r)
			return
		}
		mock.searchHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockStorefront) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockStorefront) Close() {
	m.server.Close()
}

// Reset clears tracking counters and queued responses.
func (m *MockStorefront) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestURL = nil
	m.LastRequestHeader = nil
	m.queued = nil
}

// SetTotal sets the catalog size for kind.
func (m *MockStorefront) SetTotal(kind string, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals[kind] = total
}

// SetDelay delays every response by d.
func (m *MockStorefront) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetHandler sets a custom handler for a specific path.
func (m *MockStorefront) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// Enqueue makes the next len(resps) requests answer with resps, in order,
// before normal serving resumes.
func (m *MockStorefront) Enqueue(resps ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, resps...)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockStorefront) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastRequestURL returns the URL of the most recent request.
func (m *MockStorefront) GetLastRequestURL() *url.URL {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestURL
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockStorefront) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

// searchHandler serves GET /v1/search/{kind}s?q=&page=&size=.
func (m *MockStorefront) searchHandler(w http.ResponseWriter, r *http.Request) {
	kind, ok := strings.CutPrefix(r.URL.Path, "/v1/search/")
	kind = strings.TrimSuffix(kind, "s")

	m.mu.RLock()
	total, known := m.totals[kind]
	m.mu.RUnlock()

	if !ok || !known {
		writeResponse(w, MockResponse{StatusCode: http.StatusNotFound, Body: `{"error": "unknown resource"}`})
		return
	}

	query := r.URL.Query()
	page, err1 := strconv.Atoi(query.Get("page"))
	size, err2 := strconv.Atoi(query.Get("size"))
	if err1 != nil || err2 != nil || page < 1 || size < 1 {
		writeResponse(w, NewBadRequestResponse())
		return
	}

	keyword := query.Get("q")
	if keyword == "" {
		keyword = query.Get("image")
	}

	resp := mockPage{Rows: []MockItem{}, Total: total}
	for i := (page - 1) * size; i < page*size && i < total; i++ {
		resp.Rows = append(resp.Rows, MockItem{
			ID:    fmt.Sprintf("%s-%s-%d", kind, keyword, i),
			Kind:  kind,
			Title: fmt.Sprintf("%s #%d", keyword, i),
		})
	}
	resp.HasMore = page*size < total

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		_, _ = w.Write([]byte(resp.Body))
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers:    map[string]string{"Retry-After": "1"},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}

// NewBadRequestResponse creates a 400 Bad Request response.
func NewBadRequestResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       `{"error": "Bad request"}`,
	}
}
