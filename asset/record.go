package asset

import (
	"errors"
	"strings"

	prt "github.com/sgawallet/sga-wallet/protocol"
)

// Both are recovered inside a pass; they are logged and counted, never
// returned from Refresh.
var (
	ErrAssetQueryFailed  = errors.New("asset query failed")
	ErrPriceLookupFailed = errors.New("price lookup failed")
)

// AssetRecord is one valued holding of a connection. Records are rebuilt on
// every pass and carry no identity across passes.
type AssetRecord struct {
	Family    prt.Family `json:"family"`
	Owner     string     `json:"owner"`
	Network   string     `json:"network"`
	Symbol    string     `json:"symbol"`
	Amount    float64    `json:"amount"`
	UnitPrice float64    `json:"unitPrice"`
	FiatValue float64    `json:"fiatValue"`
	// Unpriced marks a zero valuation that is not a real quote.
	Unpriced     bool     `json:"unpriced,omitempty"`
	CostBasis    *float64 `json:"costBasis,omitempty"`
	ProfitOrLoss *float64 `json:"profitOrLoss,omitempty"`
}

// AssetID names the holding within its owner; the cost-basis book is keyed
// by it.
func (r AssetRecord) AssetID() string {
	return r.Network + "/" + r.Symbol
}

// Key is unique across the whole snapshot.
func (r AssetRecord) Key() string {
	return string(r.Family) + ":" + r.Owner + ":" + r.AssetID()
}

func (r *AssetRecord) applyBasis(book map[string]float64) {
	r.CostBasis, r.ProfitOrLoss = nil, nil
	basis, ok := book[strings.ToUpper(r.AssetID())]
	if !ok {
		return
	}
	pnl := r.FiatValue - basis
	r.CostBasis = &basis
	r.ProfitOrLoss = &pnl
}
