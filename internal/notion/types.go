package notion

import "strings"

// RichText is one run of a title or rich_text property.
type RichText struct {
	PlainText string `json:"plain_text"`
}

// PlainText returns the plain text of the first run, matching how the portfolio
// treats single-line title and rich_text cells.
func PlainText(runs []RichText) string {
	if len(runs) == 0 {
		return ""
	}
	return runs[0].PlainText
}

// FileObject is an entry of a files property. Hosted files carry File, linked files carry External.
type FileObject struct {
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	File     *FileLink `json:"file,omitempty"`
	External *FileLink `json:"external,omitempty"`
}

// FileLink holds the URL of a hosted or external file. Hosted URLs are signed and expire.
type FileLink struct {
	URL        string `json:"url"`
	ExpiryTime string `json:"expiry_time,omitempty"`
}

// URL returns the hosted URL when present, else the external URL.
func (f FileObject) URL() string {
	if f.File != nil && f.File.URL != "" {
		return f.File.URL
	}
	if f.External != nil {
		return f.External.URL
	}
	return ""
}

// SelectOption is the value of a select property.
type SelectOption struct {
	Name string `json:"name"`
}

// PropertyValue is a cell of a database row.
type PropertyValue struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Title    []RichText    `json:"title,omitempty"`
	RichText []RichText    `json:"rich_text,omitempty"`
	Number   *float64      `json:"number,omitempty"`
	URL      *string       `json:"url,omitempty"`
	Files    []FileObject  `json:"files,omitempty"`
	Select   *SelectOption `json:"select,omitempty"`
}

// Page is a row of a database.
type Page struct {
	ID         string                   `json:"id"`
	Properties map[string]PropertyValue `json:"properties"`
}

// PropertySchema describes a column of a database.
type PropertySchema struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Database describes a database and its schema.
type Database struct {
	ID         string                    `json:"id"`
	Title      []RichText                `json:"title"`
	Properties map[string]PropertySchema `json:"properties"`
}

// PlainTitle returns the database title text.
func (d Database) PlainTitle() string {
	return PlainText(d.Title)
}

// HasProperty reports whether the schema defines the named property.
func (d Database) HasProperty(name string) bool {
	_, ok := d.Properties[name]
	return ok
}

// TitleMatches reports whether the database title equals name, ignoring case.
func (d Database) TitleMatches(name string) bool {
	return strings.EqualFold(strings.TrimSpace(d.PlainTitle()), strings.TrimSpace(name))
}

// Block is a child block of a page. Only the id and type are modelled.
type Block struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Sort orders query results by a property.
type Sort struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

// Query describes a database query. Pagination is handled by the client.
// Limit stops pagination once that many rows have been read; zero reads all.
type Query struct {
	Sorts    []Sort
	PageSize int
	Limit    int
}

type listResponse[T any] struct {
	Results    []T     `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

type queryRequest struct {
	Sorts       []Sort `json:"sorts,omitempty"`
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}

type createDatabaseRequest struct {
	Parent     parent         `json:"parent"`
	Title      []textRun      `json:"title"`
	Properties map[string]any `json:"properties"`
}

type parent struct {
	Type   string `json:"type"`
	PageID string `json:"page_id"`
}

type textRun struct {
	Type string      `json:"type"`
	Text textContent `json:"text"`
}

type textContent struct {
	Content string `json:"content"`
}

type updateDatabaseRequest struct {
	Properties map[string]any `json:"properties"`
}

type updatePageRequest struct {
	Properties map[string]any `json:"properties"`
}
