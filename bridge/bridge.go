// Package bridge correlates outbound requests to a remote signer context
// (injected iframe, popup window, or cross-process channel) with their
// asynchronous responses.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Envelope is the outbound cross-context request frame.
type Envelope struct {
	Flag    string          `json:"flag"`
	Method  string          `json:"method"`
	Request json.RawMessage `json:"request"`
	ID      string          `json:"id"`
}

// Response is the inbound frame, matched to its request strictly by ID.
type Response struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Payload json.RawMessage `json:"payload"`
}

// Transport delivers envelopes to the remote context.
type Transport interface {
	Send(ctx context.Context, env Envelope) error
}

// Bridge keeps a pending-request table keyed by correlation id. Each entry
// is resolved at most once and removed on every exit path, so no listener
// outlives its request.
type Bridge struct {
	flag      string
	transport Transport

	mu      sync.Mutex
	pending map[string]chan Response
}

// New creates a bridge over the given transport. flag namespaces the frames
// so unrelated traffic on a shared channel is ignored by the counterpart.
func New(flag string, transport Transport) *Bridge {
	return &Bridge{
		flag:      flag,
		transport: transport,
		pending:   make(map[string]chan Response),
	}
}

// SetTransport attaches the transport. Needed when the transport's dialer
// itself requires the bridge for its read loop.
func (b *Bridge) SetTransport(transport Transport) {
	b.mu.Lock()
	b.transport = transport
	b.mu.Unlock()
}

// Call sends a request and blocks until its response arrives or ctx is
// done. The pending entry is deregistered on both paths.
func (b *Bridge) Call(ctx context.Context, method string, request interface{}) (json.RawMessage, error) {
	raw, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	id := uuid.NewString()
	ch := make(chan Response, 1)

	b.mu.Lock()
	transport := b.transport
	b.pending[id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	if transport == nil {
		return nil, fmt.Errorf("bridge has no transport")
	}

	env := Envelope{Flag: b.flag, Method: method, Request: raw, ID: id}
	if err := transport.Send(ctx, env); err != nil {
		return nil, fmt.Errorf("failed to send %s request: %w", method, err)
	}

	select {
	case resp := <-ch:
		if !resp.Success {
			return nil, fmt.Errorf("remote %s request failed: %s", method, string(resp.Payload))
		}
		return resp.Payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dispatch routes an inbound response to its pending request. The entry is
// removed before delivery, so a duplicate response for the same id is
// dropped. Responses for unknown ids are ignored.
func (b *Bridge) Dispatch(resp Response) {
	b.mu.Lock()
	ch, ok := b.pending[resp.ID]
	if ok {
		delete(b.pending, resp.ID)
	}
	b.mu.Unlock()

	if ok {
		ch <- resp
	}
}

// PendingCount reports the number of unresolved requests, for tests and
// leak checks.
func (b *Bridge) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
