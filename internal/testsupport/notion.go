package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// FakeNotion is an in-memory stand-in for the Notion REST API. It serves the
// child-database listing of any page, database schemas and unsorted queries.
type FakeNotion struct {
	Server *httptest.Server

	mu        sync.Mutex
	order     []string
	databases map[string]*fakeDatabase
	listCalls int
	sorted    map[string]bool
}

type fakeDatabase struct {
	id         string
	title      string
	properties []string
	pages      []map[string]any
	fail       bool
}

// NewFakeNotion starts a fake CMS and registers cleanup.
func NewFakeNotion(t testing.TB) *FakeNotion {
	t.Helper()
	f := &FakeNotion{databases: map[string]*fakeDatabase{}, sorted: map[string]bool{}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL to configure as notion.base_url.
func (f *FakeNotion) URL() string {
	return f.Server.URL
}

// AddDatabase registers a database with the given property names and returns its id.
func (f *FakeNotion) AddDatabase(title string, properties ...string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("db-%d", len(f.order)+1)
	f.order = append(f.order, id)
	f.databases[id] = &fakeDatabase{id: id, title: title, properties: properties}
	return id
}

// AddPage appends a row to the database with the given title.
func (f *FakeNotion) AddPage(title, pageID string, properties map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	db := f.byTitle(title)
	if db == nil {
		panic("fake notion: unknown database " + title)
	}
	db.pages = append(db.pages, map[string]any{"id": pageID, "properties": properties})
}

// ClearPages removes every row from the database with the given title.
func (f *FakeNotion) ClearPages(title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if db := f.byTitle(title); db != nil {
		db.pages = nil
	}
}

// FailQueries makes queries against the named database return 500.
func (f *FakeNotion) FailQueries(title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if db := f.byTitle(title); db != nil {
		db.fail = true
	}
}

// ListCalls reports how many child listings were served.
func (f *FakeNotion) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

// SortRequested reports whether the last query of the named database asked for a sort.
func (f *FakeNotion) SortRequested(title string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if db := f.byTitle(title); db != nil {
		return f.sorted[db.id]
	}
	return false
}

func (f *FakeNotion) byTitle(title string) *fakeDatabase {
	for _, id := range f.order {
		if db := f.databases[id]; strings.EqualFold(db.title, title) {
			return db
		}
	}
	return nil
}

func (f *FakeNotion) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 3 && parts[0] == "blocks" && parts[2] == "children":
		f.listCalls++
		results := make([]map[string]any, 0, len(f.order))
		for _, id := range f.order {
			results = append(results, map[string]any{"id": id, "type": "child_database"})
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results, "has_more": false, "next_cursor": nil})
	case len(parts) == 2 && parts[0] == "databases" && r.Method == http.MethodGet:
		db, ok := f.databases[parts[1]]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"status": 404, "code": "object_not_found"})
			return
		}
		props := map[string]any{}
		for _, name := range db.properties {
			props[name] = map[string]any{"id": name, "name": name, "type": "unknown"}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":         db.id,
			"title":      []map[string]any{{"plain_text": db.title}},
			"properties": props,
		})
	case len(parts) == 3 && parts[0] == "databases" && parts[2] == "query":
		db, ok := f.databases[parts[1]]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"status": 404, "code": "object_not_found"})
			return
		}
		if db.fail {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"status": 500, "code": "internal_server_error"})
			return
		}
		var body struct {
			Sorts []any `json:"sorts"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.sorted[db.id] = len(body.Sorts) > 0
		pages := db.pages
		if pages == nil {
			pages = []map[string]any{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": pages, "has_more": false, "next_cursor": nil})
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"status": 404, "code": "invalid_request_url"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Title builds a title property value.
func Title(text string) map[string]any {
	return map[string]any{"type": "title", "title": []map[string]any{{"plain_text": text}}}
}

// RichText builds a rich_text property value.
func RichText(text string) map[string]any {
	return map[string]any{"type": "rich_text", "rich_text": []map[string]any{{"plain_text": text}}}
}

// Number builds a number property value.
func Number(n float64) map[string]any {
	return map[string]any{"type": "number", "number": n}
}

// URL builds a url property value.
func URL(u string) map[string]any {
	return map[string]any{"type": "url", "url": u}
}

// Files builds a files property value of hosted files.
func Files(urls ...string) map[string]any {
	files := make([]map[string]any, 0, len(urls))
	for _, u := range urls {
		files = append(files, map[string]any{"type": "file", "name": u, "file": map[string]any{"url": u}})
	}
	return map[string]any{"type": "files", "files": files}
}
