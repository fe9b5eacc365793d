// Package tokens maps asset identifiers to display metadata and converts
// between display amounts and smallest-unit integer strings.
package tokens

import (
	"fmt"
	"math/big"
)

// Meta describes one asset.
type Meta struct {
	Decimals   int
	Symbol     string
	ContractID string
}

// Registry is a pure lookup table, immutable after construction.
type Registry struct {
	assets map[string]Meta
}

// NewRegistry copies the given table into an immutable registry.
func NewRegistry(assets map[string]Meta) *Registry {
	copied := make(map[string]Meta, len(assets))
	for id, meta := range assets {
		copied[id] = meta
	}
	return &Registry{assets: copied}
}

// DefaultRegistry returns the registry of assets the SDK knows out of the
// box. Callers with additional assets build their own table.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]Meta{
		"usdc":  {Decimals: 6, Symbol: "USDC", ContractID: "usdc.token.omni"},
		"usdt":  {Decimals: 6, Symbol: "USDT", ContractID: "usdt.token.omni"},
		"wnear": {Decimals: 24, Symbol: "wNEAR", ContractID: "wrap.token.omni"},
		"weth":  {Decimals: 18, Symbol: "wETH", ContractID: "eth.token.omni"},
		"wbtc":  {Decimals: 8, Symbol: "wBTC", ContractID: "btc.token.omni"},
	})
}

// Lookup returns the metadata for an asset id.
func (r *Registry) Lookup(assetID string) (Meta, bool) {
	meta, ok := r.assets[assetID]
	return meta, ok
}

// ToUnits quantizes a display amount into a smallest-unit integer string:
// floor(amount * 10^decimals). Computed in big.Float so large decimals do
// not lose precision through float64 multiplication.
func (r *Registry) ToUnits(assetID string, amount float64) (string, error) {
	meta, ok := r.assets[assetID]
	if !ok {
		return "", fmt.Errorf("unknown asset: %s", assetID)
	}
	if amount < 0 {
		return "", fmt.Errorf("amount must be non-negative, got %v", amount)
	}

	scale := new(big.Float).SetInt(pow10(meta.Decimals))
	scaled := new(big.Float).Mul(big.NewFloat(amount), scale)

	units, _ := scaled.Int(nil) // truncation == floor for non-negative values
	return units.String(), nil
}

// FromUnits converts a smallest-unit integer string back to a display float:
// integer / 10^decimals.
func (r *Registry) FromUnits(assetID, units string) (float64, error) {
	meta, ok := r.assets[assetID]
	if !ok {
		return 0, fmt.Errorf("unknown asset: %s", assetID)
	}

	value, ok := new(big.Int).SetString(units, 10)
	if !ok {
		return 0, fmt.Errorf("invalid integer amount: %q", units)
	}

	scaled := new(big.Float).Quo(
		new(big.Float).SetInt(value),
		new(big.Float).SetInt(pow10(meta.Decimals)),
	)
	out, _ := scaled.Float64()
	return out, nil
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
