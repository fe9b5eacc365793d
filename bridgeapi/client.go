// Package bridgeapi is the client for the cross-chain bridge HTTP API:
// deposit addresses, deposit observation and withdrawal estimates against
// the settlement contract.
package bridgeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBridgeURL is the default public bridge endpoint.
const DefaultBridgeURL = "https://bridge.omni.example/api"

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 30 * time.Second

// memoRequiredNetworks lists chains whose deposit flow cannot attribute
// funds without a transfer memo. Requests for these never omit the memo.
var memoRequiredNetworks = map[string]bool{
	"stellar": true,
}

// Config configures the bridge API client.
type Config struct {
	// URL is the bridge API endpoint. Defaults to DefaultBridgeURL.
	URL string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *http.Client

	// Timeout for requests (optional, defaults to 30s).
	Timeout time.Duration
}

// Client talks to the bridge API. All calls POST a method-keyed JSON body.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a bridge API client.
func NewClient(config Config) *Client {
	url := config.URL
	if url == "" {
		url = DefaultBridgeURL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{url: url, httpClient: httpClient}
}

// Asset is one bridgeable asset.
type Asset struct {
	AssetID      string `json:"asset_id"`
	Network      string `json:"network"`
	Symbol       string `json:"symbol"`
	Decimals     int    `json:"decimals"`
	MinDeposit   string `json:"min_deposit_amount"`
	MinWithdraw  string `json:"min_withdrawal_amount"`
	WithdrawFee  string `json:"withdrawal_fee"`
	DepositOpen  bool   `json:"deposit_enabled"`
	WithdrawOpen bool   `json:"withdrawal_enabled"`
}

// DepositAddress is where funds on a source network must be sent to credit
// the settlement account. Memo is set for networks that require one; funds
// sent without it cannot be attributed.
type DepositAddress struct {
	Address string `json:"address"`
	Memo    string `json:"memo,omitempty"`
	Network string `json:"network"`
}

// Deposit is one observed inbound transfer.
type Deposit struct {
	TxHash    string `json:"tx_hash"`
	AssetID   string `json:"asset_id"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
	Network   string `json:"network"`
	CreatedAt string `json:"created_at"`
}

// WithdrawalEstimate prices a withdrawal before it is signed.
type WithdrawalEstimate struct {
	AssetID        string `json:"asset_id"`
	Amount         string `json:"amount"`
	Fee            string `json:"fee"`
	ReceivedAmount string `json:"received_amount"`
	ExpiresAt      string `json:"expires_at"`
}

// WithdrawalStatus tracks one withdrawal through the bridge.
type WithdrawalStatus struct {
	WithdrawalID string `json:"withdrawal_id"`
	Status       string `json:"status"`
	TxHash       string `json:"tx_hash,omitempty"`
}

// Assets lists every bridgeable asset.
func (c *Client) Assets(ctx context.Context) ([]Asset, error) {
	var out struct {
		Assets []Asset `json:"assets"`
	}
	if err := c.post(ctx, "supported_assets", map[string]interface{}{}, &out); err != nil {
		return nil, err
	}
	return out.Assets, nil
}

// DepositAddress returns the deposit address crediting accountID for the
// given asset. Networks that require a transfer memo always get one in the
// response; its absence there is an error.
func (c *Client) DepositAddress(ctx context.Context, accountID, assetID, network string) (*DepositAddress, error) {
	var out DepositAddress
	err := c.post(ctx, "deposit_address", map[string]interface{}{
		"account_id": accountID,
		"asset_id":   assetID,
		"network":    network,
	}, &out)
	if err != nil {
		return nil, err
	}

	if memoRequiredNetworks[network] && out.Memo == "" {
		return nil, fmt.Errorf("bridge returned no memo for memo-required network %s", network)
	}
	return &out, nil
}

// RecentDeposits lists deposits observed for the account.
func (c *Client) RecentDeposits(ctx context.Context, accountID string) ([]Deposit, error) {
	var out struct {
		Deposits []Deposit `json:"deposits"`
	}
	err := c.post(ctx, "recent_deposits", map[string]interface{}{
		"account_id": accountID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Deposits, nil
}

// NotifyDeposit tells the bridge to look at a specific source transaction
// instead of waiting for its own observer to find it.
func (c *Client) NotifyDeposit(ctx context.Context, accountID, txHash, network string) error {
	var out struct {
		Accepted bool `json:"accepted"`
	}
	err := c.post(ctx, "notify_deposit", map[string]interface{}{
		"account_id": accountID,
		"tx_hash":    txHash,
		"network":    network,
	}, &out)
	if err != nil {
		return err
	}
	if !out.Accepted {
		return fmt.Errorf("bridge did not accept deposit notification for %s", txHash)
	}
	return nil
}

// EstimateWithdrawal prices a withdrawal of the given smallest-unit amount.
func (c *Client) EstimateWithdrawal(ctx context.Context, assetID, amount, network string) (*WithdrawalEstimate, error) {
	var out WithdrawalEstimate
	err := c.post(ctx, "estimate_withdrawal", map[string]interface{}{
		"asset_id": assetID,
		"amount":   amount,
		"network":  network,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// WithdrawalStatus returns the bridge-side status of one withdrawal.
func (c *Client) WithdrawalStatus(ctx context.Context, withdrawalID string) (*WithdrawalStatus, error) {
	var out WithdrawalStatus
	err := c.post(ctx, "withdrawal_status", map[string]interface{}{
		"withdrawal_id": withdrawalID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, method string, params interface{}, out interface{}) error {
	body, err := json.Marshal(map[string]interface{}{
		"method": method,
		"params": params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge %s failed (%d): %s", method, resp.StatusCode, string(responseBody))
	}

	if err := json.Unmarshal(responseBody, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	return nil
}
