// Package client provides a Go SDK for talking to a causalkv node.
//
// Big idea:
//
// Instead of writing raw HTTP requests everywhere,
// we wrap them inside a clean Go API.
//
// So instead of:
//
//	http.NewRequest(...)
//	json.Marshal(...)
//
// Users can simply call:
//
//	client.Create(ctx, "A", payload)
//	client.Get(ctx, "A")
//
// This is called a "client library" or "SDK".
//
// It hides:
//   - HTTP details
//   - JSON encoding/decoding
//   - Error handling
//
// And exposes a clean Go interface.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to ONE causalkv node.
//
// Important:
//
// A node coordinates its own replication to its peers. The client does
// NOT implement any distributed logic itself — it just talks to the
// one node it was built with.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new Client.
//
// baseURL example:
//
//	"http://localhost:8080"
//
// timeout protects us from hanging forever.
// In distributed systems:
//
//	NEVER call network without timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WriteResponse is returned after a successful CREATE or UPDATE.
//
// Why return a vector clock?
//
// Because this is a causally consistent system. Each write advances
// the origin node's clock entry, and callers (and tests) may need that
// clock to reason about ordering.
type WriteResponse struct {
	Key string            `json:"key"`
	VC  map[string]uint64 `json:"vc"`
}

// Record is the value returned by Get: the opaque payload plus the
// vector clock it was written with.
type Record struct {
	Key       string            `json:"key"`
	Payload   json.RawMessage   `json:"payload"`
	VCWritten map[string]uint64 `json:"vc_written"`
}

// Create stores a new record under key.
//
// Flow:
//
//  1. Build the JSON body (with "key" merged in)
//  2. POST it to /alumnos
//  3. Check status
//  4. Decode response
//
// The replication logic happens inside the server. This client only
// performs the HTTP call.
func (c *Client) Create(ctx context.Context, key string, payload any) (*WriteResponse, error) {
	body, err := withKey(key, payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/alumnos", c.baseURL), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST /alumnos failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result WriteResponse
	return &result, json.NewDecoder(resp.Body).Decode(&result)
}

// Update mutates an existing record's payload.
func (c *Client) Update(ctx context.Context, key string, payload any) (*WriteResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		fmt.Sprintf("%s/alumnos/%s", c.baseURL, key), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("PUT /alumnos/%s failed: %w", key, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result WriteResponse
	return &result, json.NewDecoder(resp.Body).Decode(&result)
}

// Get retrieves the record stored at key.
//
// Special case:
//
//	If the server returns 404
//	we convert it into ErrNotFound.
func (c *Client) Get(ctx context.Context, key string) (*Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/alumnos/%s", c.baseURL, key), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET /alumnos/%s failed: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result Record
	return &result, json.NewDecoder(resp.Body).Decode(&result)
}

// List returns every record currently held by the node.
func (c *Client) List(ctx context.Context) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/alumnos", c.baseURL), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET /alumnos failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result []Record
	return result, json.NewDecoder(resp.Body).Decode(&result)
}

// HealthResponse mirrors the node's GET /health body.
type HealthResponse struct {
	NodeID      string            `json:"node_id"`
	VectorClock map[string]uint64 `json:"vector_clock"`
	StoreSize   int               `json:"store_size"`
	QueueSize   int               `json:"queue_size"`
	LogSize     int               `json:"log_size"`
}

// Health fetches the node's liveness and observability snapshot.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET /health failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result HealthResponse
	return &result, json.NewDecoder(resp.Body).Decode(&result)
}

// withKey merges "key" into the caller's payload object, since the
// wire body for CREATE must carry both.
func withKey(key string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	keyJSON, err := json.Marshal(key)
	if err != nil {
		return nil, err
	}
	merged["key"] = keyJSON
	return json.Marshal(merged)
}

// ─── Errors ───────────────────────────────────────────────────────────────────

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = fmt.Errorf("key not found")

// APIError carries the HTTP status, error kind, and message from the server.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d (%s): %s", e.Status, e.Kind, e.Message)
}

// checkStatus converts HTTP error responses into Go errors.
//
// If status is 2xx → success.
// Otherwise:
//
//  1. Read response body
//  2. Try parsing {"kind": "...", "error": "..."} JSON
//  3. Return APIError
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	var apiErr struct {
		Kind  string `json:"kind"`
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &apiErr)
	msg := apiErr.Error
	if msg == "" {
		msg = string(body)
	}
	return &APIError{Status: resp.StatusCode, Kind: apiErr.Kind, Message: msg}
}
