// Package contentstore is a thin HTTP client for the hosted document
// store that holds the site's content and the admin security documents.
// The auth core only ever uses three primitives: Fetch (query), Create
// (append a document), and Patch (partial update).
package contentstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/magnetacademy/tma-server/internal/config"
)

// Client talks to one project/dataset of the document store.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient builds a client from store configuration.
func NewClient(cfg *config.ContentStoreConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: fmt.Sprintf("https://%s.api.sanity.io/v%s/data", cfg.ProjectID, cfg.APIVersion) +
			"/" + url.PathEscape(cfg.Dataset),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// newClientForURL is used by tests to point the client at a local server.
func newClientForURL(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

type queryRequest struct {
	Query  string                 `json:"query"`
	Params map[string]interface{} `json:"params,omitempty"`
}

type queryResponse struct {
	Result json.RawMessage `json:"result"`
}

type mutation struct {
	Create interface{} `json:"create,omitempty"`
	Patch  *patchBody  `json:"patch,omitempty"`
}

type patchBody struct {
	ID    string                 `json:"id"`
	Set   map[string]interface{} `json:"set,omitempty"`
	Unset []string               `json:"unset,omitempty"`
}

type mutateRequest struct {
	Mutations []mutation `json:"mutations"`
}

// Fetch runs a query against the store and decodes the result into dest.
// A query with no matches decodes a JSON null; callers detect that by
// leaving dest at its zero value.
func (c *Client) Fetch(ctx context.Context, query string, params map[string]interface{}, dest interface{}) error {
	body, err := json.Marshal(queryRequest{Query: query, Params: params})
	if err != nil {
		return fmt.Errorf("failed to encode query: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/query", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("content store query failed: status %d", resp.StatusCode)
	}

	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return fmt.Errorf("failed to decode query response: %w", err)
	}
	if dest == nil || len(qr.Result) == 0 || string(qr.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(qr.Result, dest); err != nil {
		return fmt.Errorf("failed to decode query result: %w", err)
	}
	return nil
}

// Create appends a new document to the store.
func (c *Client) Create(ctx context.Context, doc interface{}) error {
	return c.mutate(ctx, []mutation{{Create: doc}})
}

// Patch starts a partial update of the document with the given id.
// Nothing is sent until Commit is called.
func (c *Client) Patch(id string) *Patch {
	return &Patch{client: c, body: patchBody{ID: id}}
}

// Patch accumulates set/unset operations for one document.
type Patch struct {
	client *Client
	body   patchBody
}

// Set stages field assignments.
func (p *Patch) Set(fields map[string]interface{}) *Patch {
	if p.body.Set == nil {
		p.body.Set = make(map[string]interface{}, len(fields))
	}
	for k, v := range fields {
		p.body.Set[k] = v
	}
	return p
}

// Unset stages field removals.
func (p *Patch) Unset(fields ...string) *Patch {
	p.body.Unset = append(p.body.Unset, fields...)
	return p
}

// Commit sends the accumulated patch.
func (p *Patch) Commit(ctx context.Context) error {
	body := p.body
	return p.client.mutate(ctx, []mutation{{Patch: &body}})
}

// Ping runs a trivial query to confirm the store answers. Used by the
// health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.Fetch(ctx, "true", nil, nil)
}

func (c *Client) mutate(ctx context.Context, muts []mutation) error {
	body, err := json.Marshal(mutateRequest{Mutations: muts})
	if err != nil {
		return fmt.Errorf("failed to encode mutation: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/mutate", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("content store mutation failed: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build store request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("content store unreachable: %w", err)
	}
	return resp, nil
}
