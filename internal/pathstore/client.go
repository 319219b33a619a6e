// Package pathstore is a client for the pathstore HTTP key-value API, used to
// publish and load shared link content.
package pathstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client communicates with the pathstore HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// PutRequest is the body for PUT /kv/{key}.
type PutRequest struct {
	Value     any    `json:"value"`
	MergeMode string `json:"merge_mode,omitempty"`
	Source    string `json:"source,omitempty"`
}

// Entry is one stored key and its JSON value.
type Entry struct {
	Key   string          `json:"key_path"`
	Value json.RawMessage `json:"value"`
}

// Decode unmarshals the entry value into v.
func (e Entry) Decode(v any) error {
	if err := json.Unmarshal(e.Value, v); err != nil {
		return fmt.Errorf("decode %s: %w", e.Key, err)
	}
	return nil
}

// Put stores or replaces the value at key.
func (c *Client) Put(ctx context.Context, key string, req PutRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPut, c.keyURL(key), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	defer resp.Body.Close()
	return expect(resp, "put "+key, http.StatusOK, http.StatusCreated)
}

// Get retrieves a key. A missing key returns (nil, nil).
func (c *Client) Get(ctx context.Context, key string) (*Entry, error) {
	resp, err := c.do(ctx, http.MethodGet, c.keyURL(key), nil)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err := expect(resp, "get "+key, http.StatusOK); err != nil {
		return nil, err
	}

	var e Entry
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if e.Key == "" {
		e.Key = key
	}
	return &e, nil
}

// Delete removes a key, and everything under it when recursive is set.
func (c *Client) Delete(ctx context.Context, key string, recursive bool) error {
	u := c.keyURL(key)
	if recursive {
		u += "?children=true"
	}
	resp, err := c.do(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	defer resp.Body.Close()
	return expect(resp, "delete "+key, http.StatusOK, http.StatusNoContent, http.StatusNotFound)
}

// List does a prefix scan under key. A limit of zero means no limit.
func (c *Client) List(ctx context.Context, key string, limit int) ([]Entry, error) {
	u := c.keyURL(key) + "/*"
	if limit > 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}
	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", key, err)
	}
	defer resp.Body.Close()
	if err := expect(resp, "list "+key, http.StatusOK); err != nil {
		return nil, err
	}

	var result struct {
		Nodes []Entry `json:"nodes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode list %s: %w", key, err)
	}
	return result.Nodes, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) keyURL(key string) string {
	parts := strings.Split(strings.Trim(key, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return c.baseURL + "/kv/" + strings.Join(parts, "/")
}

func (c *Client) do(ctx context.Context, method, u string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return c.httpClient.Do(req)
}

func expect(resp *http.Response, op string, codes ...int) error {
	for _, code := range codes {
		if resp.StatusCode == code {
			return nil
		}
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, string(body))
}
