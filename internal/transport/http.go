package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"causalkv/internal/oplog"
)

// HTTPTransport sends operations to peers over HTTP POST /replicate,
// using a fixed address book resolved at construction time (the peer
// set is static for the lifetime of a node — see spec Non-goals).
type HTTPTransport struct {
	peers  map[string]string // peer node id -> base URL
	client *http.Client
}

// NewHTTP returns an HTTPTransport that knows how to reach every peer in
// peers (node id -> "http://host:port").
func NewHTTP(peers map[string]string) *HTTPTransport {
	return &HTTPTransport{
		peers:  peers,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Send POSTs op to the peer's /replicate endpoint. Retries and backoff
// are the caller's responsibility (the replication controller's
// outbound dispatcher) — this method makes exactly one attempt, bounded
// by ctx.
func (t *HTTPTransport) Send(ctx context.Context, peerID string, op oplog.Operation) error {
	base, ok := t.peers[peerID]
	if !ok {
		return fmt.Errorf("transport: unknown peer %q", peerID)
	}

	body, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("marshal operation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/replicate", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("replicate to %s: %w", peerID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("peer %s returned HTTP %d", peerID, resp.StatusCode)
	}
	return nil
}
