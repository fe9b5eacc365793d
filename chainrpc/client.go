package chainrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 30 * time.Second

// Config configures the chain RPC client.
type Config struct {
	// URL is the chain RPC endpoint.
	URL string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *http.Client

	// Timeout for requests (optional, defaults to 30s).
	Timeout time.Duration
}

// Client is a JSON-RPC client for chain transaction status queries.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a chain RPC client.
func NewClient(config Config) *Client {
	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		url:        config.URL,
		httpClient: httpClient,
	}
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error,omitempty"`
}

// TxStatus fetches the execution outcome for a transaction, requesting
// execution to completion. Transactions the chain does not know yet map to
// ErrUnknownTransaction.
func (c *Client) TxStatus(ctx context.Context, txHash, senderID string) (*ExecutionOutcome, error) {
	params := map[string]interface{}{
		"tx_hash":           txHash,
		"sender_account_id": senderID,
		"wait_until":        "EXECUTED",
	}

	result, err := c.call(ctx, "tx", params)
	if err != nil {
		return nil, err
	}

	var outcome ExecutionOutcome
	if err := json.Unmarshal(result, &outcome); err != nil {
		return nil, fmt.Errorf("failed to decode execution outcome: %w", err)
	}
	return &outcome, nil
}

func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chain rpc %s failed (%d): %s", method, resp.StatusCode, string(responseBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(responseBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		if isUnknownTransaction(rpcResp.Error) {
			return nil, ErrUnknownTransaction
		}
		return nil, fmt.Errorf("chain rpc %s error: %s", method, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

func isUnknownTransaction(e *rpcError) bool {
	msg := strings.ToLower(e.Message + string(e.Data))
	return strings.Contains(msg, "unknown_transaction") ||
		strings.Contains(msg, "doesn't exist") ||
		strings.Contains(msg, "not started")
}
