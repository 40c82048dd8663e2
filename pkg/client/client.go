// Package client is a Go client for the CRUD and revision endpoints.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/records"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/triplestore"
)

// Error is a non-2xx response decoded from the server's error body.
type Error struct {
	StatusCode int
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
}

type errorBody struct {
	Error *Error `json:"error"`
}

// Client calls the OSF CRUD HTTP endpoints.
type Client struct {
	http *resty.Client
}

// New returns a client for the server at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("User-Agent", "osfctl"),
	}
}

// SetDebug logs every request and response to stderr.
func (c *Client) SetDebug(on bool) *Client {
	c.http.SetDebug(on)
	return c
}

// UpdateParams are the form fields of POST /crud/update.
type UpdateParams struct {
	Dataset   string
	Document  []byte
	MediaType string
	Lifecycle string
	Performer string
	// nil keeps the server default
	Revision *bool
}

func (c *Client) Update(ctx context.Context, p UpdateParams) (*records.UpdateResult, error) {
	form := map[string]string{
		"dataset":  p.Dataset,
		"document": string(p.Document),
	}
	if p.MediaType != "" {
		form["mime"] = p.MediaType
	}
	if p.Lifecycle != "" {
		form["lifecycle"] = p.Lifecycle
	}
	if p.Performer != "" {
		form["performer"] = p.Performer
	}
	if p.Revision != nil {
		form["revision"] = strconv.FormatBool(*p.Revision)
	}

	var out records.UpdateResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&out).
		Post("/crud/update")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// Read returns the N-Triples of one live record.
func (c *Client) Read(ctx context.Context, dataset, uri string) ([]byte, error) {
	return c.get(ctx, "/crud/read", map[string]string{"dataset": dataset, "uri": uri})
}

// RevisionRead returns the N-Triples of one revision record.
func (c *Client) RevisionRead(ctx context.Context, dataset, revision string) ([]byte, error) {
	return c.get(ctx, "/revisions/read", map[string]string{"dataset": dataset, "revision": revision})
}

// Revisions lists the revisions of a record, newest first.
func (c *Client) Revisions(ctx context.Context, dataset, uri string) ([]triplestore.RevisionHead, error) {
	b, err := c.get(ctx, "/revisions", map[string]string{"dataset": dataset, "uri": uri})
	if err != nil {
		return nil, err
	}
	var heads []triplestore.RevisionHead
	if err := json.Unmarshal(b, &heads); err != nil {
		return nil, fmt.Errorf("decode revisions: %w", err)
	}
	return heads, nil
}

// ReindexResult counts the documents the server re-projected or removed.
type ReindexResult struct {
	Indexed int `json:"indexed"`
	Deleted int `json:"deleted"`
}

func (c *Client) Reindex(ctx context.Context, dataset string, uris []string) (*ReindexResult, error) {
	form := url.Values{"dataset": {dataset}, "uri": uris}

	var out ReindexResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormDataFromValues(form).
		SetResult(&out).
		Post("/crud/reindex")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	var body errorBody
	if json.Unmarshal(resp.Body(), &body) == nil && body.Error != nil {
		body.Error.StatusCode = resp.StatusCode()
		return body.Error
	}
	return &Error{StatusCode: resp.StatusCode(), Message: http.StatusText(resp.StatusCode())}
}
