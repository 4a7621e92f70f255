package rest

import (
	"github.com/sgawallet/sga-wallet/asset"
	prt "github.com/sgawallet/sga-wallet/protocol"
)

// General response structure
type RestResp struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"` // stable error code, see errors.go
}

// Family capability response
type FamilyResp struct {
	Family    prt.Family         `json:"family"`
	ChainID   string             `json:"chainId"` // CAIP-2
	Providers []prt.ProviderKind `json:"providers"`
}

type GenerateReq struct {
	Family string `json:"family"` // family name or CAIP-2 id
}

// Generated key handle. The secret stays in the session vault until exported.
type GeneratedKeyResp struct {
	ID          string     `json:"id"`
	Family      prt.Family `json:"family"`
	Address     string     `json:"address"`
	HasMnemonic bool       `json:"hasMnemonic"`
}

type ConnectReq struct {
	Family   string `json:"family"`
	Provider string `json:"provider"`
	Label    string `json:"label"`
	// Accounts approved by a wallet living with the caller (injected
	// extension, wallet adapter, vendor SDK). Omit when no wallet was found;
	// send [] when the user declined.
	Accounts []string `json:"accounts"`
}

type RelabelReq struct {
	Label string `json:"label"`
}

type AssetsResp struct {
	Records   []asset.AssetRecord `json:"records"`
	TotalFiat float64             `json:"totalFiat"`
	LastPass  int64               `json:"lastPass"` // unix seconds, 0 before the first pass
}

type CostBasisReq struct {
	Family  string  `json:"family"`
	Owner   string  `json:"owner"`
	AssetID string  `json:"assetId"` // AssetRecord.AssetID, e.g. "ethereum/ETH"
	Cost    float64 `json:"cost"`
}

type DeriveReq struct {
	Known     float64 `json:"known"`
	Price     float64 `json:"price"`
	Direction string  `json:"direction"` // "amount" or "fiat"
}

type DeriveResp struct {
	Value float64 `json:"value"`
}
