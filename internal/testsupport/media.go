package testsupport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// MediaHost serves fixed bytes for any path and counts requests per path.
type MediaHost struct {
	Server *httptest.Server

	mu    sync.Mutex
	hits  map[string]int
	fails map[string]bool
}

// NewMediaHost starts a fake media host and registers cleanup.
func NewMediaHost(t testing.TB) *MediaHost {
	t.Helper()
	h := &MediaHost{hits: map[string]int{}, fails: map[string]bool{}}
	h.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.hits[r.URL.Path]++
		fail := h.fails[r.URL.Path]
		h.mu.Unlock()
		if fail {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("image:" + strings.TrimPrefix(r.URL.Path, "/")))
	}))
	t.Cleanup(h.Server.Close)
	return h
}

// URL returns the absolute URL of path on the host, with a signature-like query string.
func (h *MediaHost) URL(path string) string {
	return h.Server.URL + "/" + strings.TrimPrefix(path, "/") + "?X-Amz-Signature=abc"
}

// Fail makes requests for path return 500.
func (h *MediaHost) Fail(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fails["/"+strings.TrimPrefix(path, "/")] = true
}

// Hits reports how many times path was requested.
func (h *MediaHost) Hits(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits["/"+strings.TrimPrefix(path, "/")]
}

// TotalHits reports the number of requests served.
func (h *MediaHost) TotalHits() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	total := 0
	for _, n := range h.hits {
		total += n
	}
	return total
}
