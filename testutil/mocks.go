package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sync"
	"testing"
)

var apiVersionPrefix = regexp.MustCompile(`^/api/v\d+`)

// MockDiscordServer creates a test server that mocks Discord REST API responses.
// Handlers are keyed by "METHOD /path" with the /api/vN prefix stripped.
type MockDiscordServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc

	mu       sync.Mutex
	requests []string
}

// NewMockDiscordServer creates a new mock Discord API server
func NewMockDiscordServer(t *testing.T) *MockDiscordServer {
	t.Helper()
	m := &MockDiscordServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + apiVersionPrefix.ReplaceAllString(r.URL.Path, "")
		m.mu.Lock()
		m.requests = append(m.requests, key)
		handler, ok := m.Handlers[key]
		m.mu.Unlock()
		if ok {
			handler(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "404: Not Found", "code": 0}`))
	}))
	t.Cleanup(m.Close)
	return m
}

// Handle registers a handler for method and path (without the /api/vN prefix).
func (m *MockDiscordServer) Handle(method, path string, h http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Handlers[method+" "+path] = h
}

// Requests returns every request key received so far.
func (m *MockDiscordServer) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

// Client returns an http.Client that sends every request to the mock server
// regardless of the host in the URL.
func (m *MockDiscordServer) Client() *http.Client {
	target, _ := url.Parse(m.URL)
	return &http.Client{Transport: &rewriteTransport{target: target, base: m.Server.Client().Transport}}
}

type rewriteTransport struct {
	target *url.URL
	base   http.RoundTripper
}

func (rt *rewriteTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.URL.Scheme = rt.target.Scheme
	r.URL.Host = rt.target.Host
	r.Host = rt.target.Host
	return rt.base.RoundTrip(r)
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // test mock response
}

// MockChannelDelete answers deletion of channelID with success.
func (m *MockDiscordServer) MockChannelDelete(channelID string) {
	m.Handle(http.MethodDelete, "/channels/"+channelID, func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]interface{}{"id": channelID, "type": 2})
	})
}

// MockUnknownChannel answers deletion of channelID with Discord's "Unknown Channel" error.
func (m *MockDiscordServer) MockUnknownChannel(channelID string) {
	m.Handle(http.MethodDelete, "/channels/"+channelID, func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusNotFound, map[string]interface{}{"message": "Unknown Channel", "code": 10003})
	})
}
