// Implements the Notion API client with rate limiting.

package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the Notion API base URL.
	BaseURL = "https://api.notion.com/v1"
	// APIVersion is the pinned Notion API version.
	APIVersion = "2022-06-28"
	// MinInterval is the minimum time between requests (3 req/sec).
	MinInterval = 334 * time.Millisecond
)

// Client is a rate-limited Notion API client.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithInterval overrides the minimum time between requests. Zero disables
// rate limiting.
func WithInterval(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
		} else {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// NewClient creates a new Notion API client.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: BaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(MinInterval), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// do performs an HTTP request with rate limiting.
//
// Any status >= 400 is returned as *Error with the raw body attached.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", APIVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{}
		_ = json.Unmarshal(respBody, apiErr)
		apiErr.Status = resp.StatusCode
		apiErr.Body = string(respBody)
		return nil, apiErr
	}

	return respBody, nil
}

// QueryOptions defines options for querying a database.
type QueryOptions struct {
	Filter      *Filter `json:"filter,omitempty"`
	Sorts       []Sort  `json:"sorts,omitempty"`
	StartCursor string  `json:"start_cursor,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
}

// Sort defines a sort order for database queries.
type Sort struct {
	Property  string `json:"property,omitempty"`
	Timestamp string `json:"timestamp,omitempty"` // "created_time" or "last_edited_time"
	Direction string `json:"direction"`           // "ascending" or "descending"
}

// QueryDatabase queries one page of rows from a database.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, opts *QueryOptions) (*QueryResponse, error) {
	if opts == nil {
		opts = &QueryOptions{}
	}
	if opts.PageSize == 0 {
		opts.PageSize = 100
	}

	data, err := c.do(ctx, http.MethodPost, "/databases/"+url.PathEscape(databaseID)+"/query", opts)
	if err != nil {
		return nil, err
	}

	var resp QueryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse query response: %w", err)
	}
	return &resp, nil
}

// GetPageProperty retrieves one property of a page.
func (c *Client) GetPageProperty(ctx context.Context, pageID, propertyID string) (*PropertyItemResponse, error) {
	path := "/pages/" + url.PathEscape(pageID) + "/properties/" + url.PathEscape(propertyID)
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var resp PropertyItemResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse property response: %w", err)
	}
	return &resp, nil
}

var errNoTitle = errors.New("page has no title")

// PageTitle returns the plain text title of a page.
//
// Only the first run of the title is read; relation targets are short names.
func (c *Client) PageTitle(ctx context.Context, pageID string) (string, error) {
	resp, err := c.GetPageProperty(ctx, pageID, "title")
	if err != nil {
		return "", err
	}
	if len(resp.Results) == 0 || resp.Results[0].Title == nil {
		return "", errNoTitle
	}
	return resp.Results[0].Title.PlainText, nil
}

// CreatePageRequest is the request body for the page create endpoint.
type CreatePageRequest struct {
	Parent     Parent     `json:"parent"`
	Icon       *Icon      `json:"icon,omitempty"`
	Properties Properties `json:"properties"`
}

// NewDatabasePage builds a create request for a row in databaseID.
// The icon is only set when iconURL is not empty.
func NewDatabasePage(databaseID, iconURL string, props Properties) *CreatePageRequest {
	req := &CreatePageRequest{
		Parent:     Parent{Type: "database_id", DatabaseID: databaseID},
		Properties: props,
	}
	if iconURL != "" {
		req.Icon = &Icon{Type: "external", External: &File{URL: iconURL}}
	}
	return req
}

// CreatePage creates a page.
func (c *Client) CreatePage(ctx context.Context, req *CreatePageRequest) (*Page, error) {
	data, err := c.do(ctx, http.MethodPost, "/pages", req)
	if err != nil {
		return nil, err
	}

	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to parse page response: %w", err)
	}
	return &page, nil
}

// UpdatePage patches the given properties of a page. Other properties are left
// untouched.
func (c *Client) UpdatePage(ctx context.Context, pageID string, props Properties) (*Page, error) {
	body := struct {
		Properties Properties `json:"properties"`
	}{props}
	data, err := c.do(ctx, http.MethodPatch, "/pages/"+url.PathEscape(pageID), body)
	if err != nil {
		return nil, err
	}

	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to parse page response: %w", err)
	}
	return &page, nil
}
