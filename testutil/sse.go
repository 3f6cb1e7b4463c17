package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// RecordedRequest is a request seen by an SSEServer
type RecordedRequest struct {
	Method      string
	Path        string
	Accept      string
	ContentType string
	Body        []byte
}

// SSEServer is an httptest server that answers every request with a fixed
// status and event stream body
type SSEServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []RecordedRequest
}

// NewSSEServer starts a server replying with status and body. The server is
// closed when the test ends.
func NewSSEServer(t *testing.T, status int, body string) *SSEServer {
	t.Helper()
	s := &SSEServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			Accept:      r.Header.Get("Accept"),
			ContentType: r.Header.Get("Content-Type"),
			Body:        data,
		})
		s.mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(status)
		flusher, _ := w.(http.Flusher)
		for _, line := range strings.SplitAfter(body, "\n") {
			_, _ = io.WriteString(w, line)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	t.Cleanup(s.Close)
	return s
}

// Requests returns the requests received so far
func (s *SSEServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Event formats one event as it appears on the wire
func Event(eventType, data string) string {
	return "event: " + eventType + "\ndata: " + data + "\n\n"
}
