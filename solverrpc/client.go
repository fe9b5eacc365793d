// Package solverrpc is the JSON-RPC 2.0 client for the solver network.
// Publish and view-style calls are all addressed to a fixed settlement
// contract identity.
package solverrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	intents "github.com/omnisdk/intents-go"
)

// DefaultSolverURL is the default public solver relay.
const DefaultSolverURL = "https://solver-relay.omni.example/rpc"

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 30 * time.Second

// Config configures the solver RPC client.
type Config struct {
	// URL is the solver relay endpoint. Defaults to DefaultSolverURL.
	URL string

	// Contract is the settlement contract view calls are addressed to.
	// Defaults to intents.VerifyingContract.
	Contract string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *http.Client

	// Timeout for requests (optional, defaults to 30s).
	Timeout time.Duration
}

// Client implements intents.SolverClient over HTTPS.
type Client struct {
	url        string
	contract   string
	httpClient *http.Client
}

// NewClient creates a solver RPC client.
func NewClient(config Config) *Client {
	url := config.URL
	if url == "" {
		url = DefaultSolverURL
	}

	contract := config.Contract
	if contract == "" {
		contract = intents.VerifyingContract
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		url:        url,
		contract:   contract,
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

// PublishIntents submits signed intents to the solver network.
func (c *Client) PublishIntents(ctx context.Context, signed []intents.SignedIntent, quoteHashes []string) (*intents.PublishResult, error) {
	if quoteHashes == nil {
		quoteHashes = []string{}
	}
	params := map[string]interface{}{
		"signed_datas": signed,
		"quote_hashes": quoteHashes,
	}

	result, err := c.call(ctx, "publish_intents", params)
	if err != nil {
		return nil, err
	}

	var out intents.PublishResult
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, fmt.Errorf("failed to decode publish_intents response: %w", err)
	}
	return &out, nil
}

// GetStatus queries the settlement status of one intent hash.
func (c *Client) GetStatus(ctx context.Context, intentHash string) (*intents.StatusResult, error) {
	result, err := c.call(ctx, "get_status", map[string]interface{}{
		"intent_hash": intentHash,
	})
	if err != nil {
		return nil, err
	}

	// The settlement data hash arrives nested under data.hash.
	var raw struct {
		Status intents.SettlementStatus `json:"status"`
		Reason string                   `json:"reason,omitempty"`
		Data   struct {
			Hash string `json:"hash"`
		} `json:"data"`
	}
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode get_status response: %w", err)
	}
	return &intents.StatusResult{Status: raw.Status, Hash: raw.Data.Hash, Reason: raw.Reason}, nil
}

// SimulateIntents dry-runs signed intents without publishing them.
func (c *Client) SimulateIntents(ctx context.Context, signed []intents.SignedIntent) (json.RawMessage, error) {
	return c.call(ctx, "simulate_intents", map[string]interface{}{
		"contract_id":  c.contract,
		"signed_datas": signed,
	})
}

// MTBatchBalanceOf returns smallest-unit balances for the given token ids.
func (c *Client) MTBatchBalanceOf(ctx context.Context, accountID string, tokenIDs []string) (map[string]string, error) {
	result, err := c.call(ctx, "mt_batch_balance_of", map[string]interface{}{
		"contract_id": c.contract,
		"account_id":  accountID,
		"token_ids":   tokenIDs,
	})
	if err != nil {
		return nil, err
	}

	var balances map[string]string
	if err := json.Unmarshal(result, &balances); err != nil {
		return nil, fmt.Errorf("failed to decode mt_batch_balance_of response: %w", err)
	}
	return balances, nil
}

// MTTokensForOwner returns one page of token ids owned by the account.
func (c *Client) MTTokensForOwner(ctx context.Context, accountID string, offset, limit int) ([]string, error) {
	result, err := c.call(ctx, "mt_tokens_for_owner", map[string]interface{}{
		"contract_id": c.contract,
		"account_id":  accountID,
		"from_index":  offset,
		"limit":       limit,
	})
	if err != nil {
		return nil, err
	}

	var page []struct {
		TokenID string `json:"token_id"`
	}
	if err := json.Unmarshal(result, &page); err != nil {
		return nil, fmt.Errorf("failed to decode mt_tokens_for_owner response: %w", err)
	}

	ids := make([]string, len(page))
	for i, token := range page {
		ids[i] = token.TokenID
	}
	return ids, nil
}

// HasPublicKey reports whether the key is registered for the account on the
// settlement contract.
func (c *Client) HasPublicKey(ctx context.Context, accountID, publicKey string) (bool, error) {
	result, err := c.call(ctx, "has_public_key", map[string]interface{}{
		"contract_id": c.contract,
		"account_id":  accountID,
		"public_key":  publicKey,
	})
	if err != nil {
		return false, err
	}

	var has bool
	if err := json.Unmarshal(result, &has); err != nil {
		return false, fmt.Errorf("failed to decode has_public_key response: %w", err)
	}
	return has, nil
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
		return nil, fmt.Errorf("solver %s failed (%d): %s", method, resp.StatusCode, string(responseBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(responseBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("solver %s error: %s", method, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}
