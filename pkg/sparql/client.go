// Package sparql is an HTTP client for SPARQL 1.1 query, update and graph
// store endpoints.
package sparql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/logger"
)

// ErrForbidden matches any *Error whose status is 403.
var ErrForbidden = errors.New("sparql: access denied")

// Error is a non-2xx response from the endpoint.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("sparql endpoint returned %d: %s", e.StatusCode, e.Body)
}

func (e *Error) Is(target error) bool {
	return target == ErrForbidden && e.StatusCode == http.StatusForbidden
}

// Config describes the endpoints of one store.
type Config struct {
	QueryURL      string
	UpdateURL     string
	GraphStoreURL string
	User          string
	Password      string
	Timeout       time.Duration
}

// Client talks to one store.
type Client struct {
	http *resty.Client
	cfg  Config
	log  *slog.Logger
}

// NewClient builds a client. UpdateURL and GraphStoreURL default to QueryURL.
func NewClient(cfg Config, log *slog.Logger) *Client {
	if cfg.UpdateURL == "" {
		cfg.UpdateURL = cfg.QueryURL
	}
	if cfg.GraphStoreURL == "" {
		cfg.GraphStoreURL = strings.TrimSuffix(cfg.QueryURL, "/sparql") + "/sparql-graph-crud"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	h := resty.New().SetTimeout(cfg.Timeout)
	if cfg.User != "" {
		h.SetBasicAuth(cfg.User, cfg.Password)
	}

	return &Client{
		http: h,
		cfg:  cfg,
		log:  log.With(logger.Scope("sparql")),
	}
}

// Binding is one solution row; unbound variables are absent.
type Binding map[string]Term

// Term is a bound value in the SPARQL JSON results format.
type Term struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

type resultsDoc struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Boolean *bool `json:"boolean,omitempty"`
	Results struct {
		Bindings []Binding `json:"bindings"`
	} `json:"results"`
}

// Select runs a SELECT query.
func (c *Client) Select(ctx context.Context, query string) ([]Binding, error) {
	doc, err := c.query(ctx, query)
	if err != nil {
		return nil, err
	}
	return doc.Results.Bindings, nil
}

// Ask runs an ASK query.
func (c *Client) Ask(ctx context.Context, query string) (bool, error) {
	doc, err := c.query(ctx, query)
	if err != nil {
		return false, err
	}
	if doc.Boolean == nil {
		return false, fmt.Errorf("sparql: ASK response without boolean")
	}
	return *doc.Boolean, nil
}

func (c *Client) query(ctx context.Context, query string) (*resultsDoc, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/sparql-results+json").
		SetFormData(map[string]string{"query": query}).
		Post(c.cfg.QueryURL)
	if err != nil {
		return nil, fmt.Errorf("sparql query: %w", err)
	}
	if resp.IsError() {
		return nil, &Error{StatusCode: resp.StatusCode(), Body: strings.TrimSpace(resp.String())}
	}

	var doc resultsDoc
	if err := json.Unmarshal(resp.Body(), &doc); err != nil {
		return nil, fmt.Errorf("decode sparql results: %w", err)
	}
	return &doc, nil
}

// Update runs a SPARQL 1.1 update request, which may hold several
// operations separated by ";".
func (c *Client) Update(ctx context.Context, update string) error {
	c.log.Debug("sparql update", slog.Int("bytes", len(update)))

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"update": update}).
		Post(c.cfg.UpdateURL)
	if err != nil {
		return fmt.Errorf("sparql update: %w", err)
	}
	if resp.IsError() {
		return &Error{StatusCode: resp.StatusCode(), Body: strings.TrimSpace(resp.String())}
	}
	return nil
}

// Load appends a Turtle document to graph through the graph store protocol.
func (c *Client) Load(ctx context.Context, graph string, turtle []byte) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("graph", graph).
		SetHeader("Content-Type", "text/turtle").
		SetBody(turtle).
		Post(c.cfg.GraphStoreURL)
	if err != nil {
		return fmt.Errorf("sparql load: %w", err)
	}
	if resp.IsError() {
		return &Error{StatusCode: resp.StatusCode(), Body: strings.TrimSpace(resp.String())}
	}
	return nil
}

// Ping checks that the query endpoint answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Ask(ctx, "ASK { }")
	return err
}
