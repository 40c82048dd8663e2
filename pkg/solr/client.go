// Package solr is a minimal client for a Solr core's update, schema and ping
// APIs.
package solr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/logger"
)

// Document maps a field name to its values, in insertion order.
type Document map[string][]any

// Add appends v to field.
func (d Document) Add(field string, v any) {
	d[field] = append(d[field], v)
}

// Has reports whether field holds at least one value.
func (d Document) Has(field string) bool {
	return len(d[field]) > 0
}

// Error carries the message Solr returned verbatim.
type Error struct {
	StatusCode int
	Msg        string
}

func (e *Error) Error() string {
	return fmt.Sprintf("solr returned %d: %s", e.StatusCode, e.Msg)
}

type errorBody struct {
	Error struct {
		Msg  string `json:"msg"`
		Code int    `json:"code"`
	} `json:"error"`
}

type fieldsBody struct {
	Fields        []struct{ Name string } `json:"fields"`
	DynamicFields []struct{ Name string } `json:"dynamicFields"`
}

// Client talks to one core.
type Client struct {
	http *resty.Client
	log  *slog.Logger
}

// NewClient builds a client for baseURL/core.
func NewClient(baseURL, core string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	h := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/") + "/" + core).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{
		http: h,
		log:  log.With(logger.Scope("solr")),
	}
}

// Add submits docs without committing.
func (c *Client) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	return c.post(ctx, "/update", docs)
}

// Commit makes submitted documents visible.
func (c *Client) Commit(ctx context.Context) error {
	return c.post(ctx, "/update", map[string]any{"commit": map[string]any{}})
}

// DeleteByID removes documents by unique key.
func (c *Client) DeleteByID(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.post(ctx, "/update", map[string]any{"delete": ids})
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	var eb errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetError(&eb).
		Post(path)
	if err != nil {
		return fmt.Errorf("solr %s: %w", path, err)
	}
	if resp.IsError() {
		return c.responseError(resp.StatusCode(), eb, resp.String())
	}
	return nil
}

// Fields lists the static and dynamic field names of the core's schema.
func (c *Client) Fields(ctx context.Context) ([]string, error) {
	var names []string
	for _, path := range []string{"/schema/fields", "/schema/dynamicfields"} {
		var fb fieldsBody
		var eb errorBody
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&fb).
			SetError(&eb).
			Get(path)
		if err != nil {
			return nil, fmt.Errorf("solr %s: %w", path, err)
		}
		if resp.IsError() {
			return nil, c.responseError(resp.StatusCode(), eb, resp.String())
		}
		for _, f := range fb.Fields {
			names = append(names, f.Name)
		}
		for _, f := range fb.DynamicFields {
			names = append(names, f.Name)
		}
	}
	return names, nil
}

// Ping checks that the core answers.
func (c *Client) Ping(ctx context.Context) error {
	var eb errorBody
	resp, err := c.http.R().SetContext(ctx).SetError(&eb).Get("/admin/ping")
	if err != nil {
		return fmt.Errorf("solr ping: %w", err)
	}
	if resp.IsError() {
		return c.responseError(resp.StatusCode(), eb, resp.String())
	}
	return nil
}

func (c *Client) responseError(status int, eb errorBody, raw string) error {
	msg := eb.Error.Msg
	if msg == "" {
		msg = strings.TrimSpace(raw)
	}
	c.log.Debug("solr rejected request", slog.Int("status", status), slog.String("msg", msg))
	return &Error{StatusCode: status, Msg: msg}
}
