package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"folio/internal/logging"
)

// ErrNotFound is returned when the API answers 404 for an object.
var ErrNotFound = errors.New("notion object not found")

// APIError carries the error payload returned by the API.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notion api returned %d", e.Status)
	}
	return fmt.Sprintf("notion api returned %d %s: %s", e.Status, e.Code, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Client provides access to the Notion REST API.
type Client struct {
	secret     string
	baseURL    string
	version    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger used for non-fatal per-database failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// New creates a Notion client.
func New(secret, baseURL, version string, opts ...Option) (*Client, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("notion integration secret required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("notion base url required")
	}
	version = strings.TrimSpace(version)
	if version == "" {
		return nil, errors.New("notion api version required")
	}
	client := &Client{
		secret:     secret,
		baseURL:    strings.TrimRight(baseURL, "/"),
		version:    version,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "notion")
	return client, nil
}

// ListChildBlocks returns every child block of blockID, following pagination cursors.
func (c *Client) ListChildBlocks(ctx context.Context, blockID string) ([]Block, error) {
	if strings.TrimSpace(blockID) == "" {
		return nil, errors.New("block id must not be empty")
	}
	var blocks []Block
	cursor := ""
	for {
		params := url.Values{}
		params.Set("page_size", "100")
		if cursor != "" {
			params.Set("start_cursor", cursor)
		}
		var page listResponse[Block]
		path := "/blocks/" + url.PathEscape(blockID) + "/children?" + params.Encode()
		if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, fmt.Errorf("list children of %s: %w", blockID, err)
		}
		blocks = append(blocks, page.Results...)
		if !page.HasMore || page.NextCursor == nil || *page.NextCursor == "" {
			return blocks, nil
		}
		cursor = *page.NextCursor
	}
}

// ListChildDatabases returns the schema of every database embedded in pageID.
// Databases that cannot be retrieved are logged and skipped.
func (c *Client) ListChildDatabases(ctx context.Context, pageID string) ([]Database, error) {
	blocks, err := c.ListChildBlocks(ctx, pageID)
	if err != nil {
		return nil, err
	}
	databases := make([]Database, 0, len(blocks))
	for _, block := range blocks {
		if block.Type != "child_database" {
			continue
		}
		db, err := c.RetrieveDatabase(ctx, block.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logging.WarnWithContext(c.logger, "database retrieval failed; skipping", "notion_database_skipped",
				logging.String("database_id", block.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "share the database with the integration"),
				logging.String(logging.FieldImpact, "collection stored in this database will be empty"),
			)
			continue
		}
		databases = append(databases, *db)
	}
	return databases, nil
}

// RetrieveDatabase returns the schema of a database.
func (c *Client) RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error) {
	var db Database
	if err := c.do(ctx, http.MethodGet, "/databases/"+url.PathEscape(databaseID), nil, &db); err != nil {
		return nil, fmt.Errorf("retrieve database %s: %w", databaseID, err)
	}
	return &db, nil
}

// QueryDatabase returns the rows of a database matching q, following
// pagination cursors until the rows run out or q.Limit is reached.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, q Query) ([]Page, error) {
	body := queryRequest{Sorts: q.Sorts, PageSize: q.PageSize}
	if body.PageSize <= 0 && q.Limit > 0 {
		body.PageSize = q.Limit
	}
	if body.PageSize <= 0 || body.PageSize > 100 {
		body.PageSize = 100
	}
	var pages []Page
	for {
		var resp listResponse[Page]
		if err := c.do(ctx, http.MethodPost, "/databases/"+url.PathEscape(databaseID)+"/query", body, &resp); err != nil {
			return nil, fmt.Errorf("query database %s: %w", databaseID, err)
		}
		pages = append(pages, resp.Results...)
		if q.Limit > 0 && len(pages) >= q.Limit {
			return pages[:q.Limit], nil
		}
		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			return pages, nil
		}
		body.StartCursor = *resp.NextCursor
	}
}

// CreateDatabase creates a database titled title under parentPageID with the given property schema.
func (c *Client) CreateDatabase(ctx context.Context, parentPageID, title string, properties map[string]any) (*Database, error) {
	req := createDatabaseRequest{
		Parent:     parent{Type: "page_id", PageID: parentPageID},
		Title:      []textRun{{Type: "text", Text: textContent{Content: title}}},
		Properties: properties,
	}
	var db Database
	if err := c.do(ctx, http.MethodPost, "/databases", req, &db); err != nil {
		return nil, fmt.Errorf("create database %q: %w", title, err)
	}
	return &db, nil
}

// UpdateDatabase adds or changes properties of an existing database.
func (c *Client) UpdateDatabase(ctx context.Context, databaseID string, properties map[string]any) (*Database, error) {
	var db Database
	if err := c.do(ctx, http.MethodPatch, "/databases/"+url.PathEscape(databaseID), updateDatabaseRequest{Properties: properties}, &db); err != nil {
		return nil, fmt.Errorf("update database %s: %w", databaseID, err)
	}
	return &db, nil
}

// UpdatePage sets property values of a database row.
func (c *Client) UpdatePage(ctx context.Context, pageID string, properties map[string]any) error {
	if err := c.do(ctx, http.MethodPatch, "/pages/"+url.PathEscape(pageID), updatePageRequest{Properties: properties}, nil); err != nil {
		return fmt.Errorf("update page %s: %w", pageID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(data, apiErr)
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	c.logger.Debug("notion request",
		logging.String("method", method),
		logging.String("path", path),
		logging.Duration("latency", latency),
	)

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode notion response: %w", err)
	}
	return nil
}
