package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sgawallet/sga-wallet/api"
	"github.com/sgawallet/sga-wallet/asset"
	"github.com/sgawallet/sga-wallet/chain"
	"github.com/sgawallet/sga-wallet/connect"
	prt "github.com/sgawallet/sga-wallet/protocol"
	"github.com/sgawallet/sga-wallet/storage"
	"github.com/sgawallet/sga-wallet/wallet"
)

// Services are the components the REST surface drives.
type Services struct {
	Registry   *chain.Registry
	Generator  *wallet.Generator
	Vault      *wallet.Vault
	Manager    *connect.Manager
	Aggregator *asset.Aggregator
	Basis      *storage.BasisBook // optional
}

// get home response
func HomeHandler(w http.ResponseWriter, r *http.Request) {
	info := map[string]string{
		"name":    "sga-wallet API",
		"version": "1.0.0",
	}
	sendResp(w, http.StatusOK, info, nil)
}

// GetFamilies lists supported families with their provider capabilities
func GetFamilies(reg *chain.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var out []FamilyResp
		for _, id := range reg.Families() {
			f, err := reg.Family(id)
			if err != nil {
				continue
			}
			caip, _ := chain.CAIP2(id)
			out = append(out, FamilyResp{Family: id, ChainID: caip, Providers: f.Providers()})
		}
		sendResp(w, http.StatusOK, out, nil)
	}
}

// GetProviders gets the provider kinds of one family
func GetProviders(m *connect.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		family, err := chain.Parse(mux.Vars(r)["family"])
		if err != nil {
			sendResp(w, 0, nil, err)
			return
		}
		kinds, err := m.ListProviders(family)
		if err != nil {
			sendResp(w, 0, nil, err)
			return
		}
		sendResp(w, http.StatusOK, kinds, nil)
	}
}

// GenerateKey creates key material and keeps it in the session vault
func GenerateKey(gen *wallet.Generator, vault *wallet.Vault) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GenerateReq
		if err := decodeJSON(r, &req); err != nil {
			sendResp(w, 0, nil, err)
			return
		}
		family, err := chain.Parse(req.Family)
		if err != nil {
			sendResp(w, 0, nil, err)
			return
		}

		km, err := gen.Generate(family)
		if err != nil {
			sendResp(w, 0, nil, err)
			return
		}
		id := vault.Put(km)
		sendResp(w, http.StatusCreated, keyResp(id, km), nil)
	}
}

// GetVault lists generated keys of this session (no secrets)
func GetVault(vault *wallet.Vault) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := make([]GeneratedKeyResp, 0, vault.Len())
		for _, id := range vault.IDs() {
			km, err := vault.Get(id)
			if err != nil {
				continue
			}
			out = append(out, keyResp(id, km))
		}
		sendResp(w, http.StatusOK, out, nil)
	}
}

// ExportKey reveals one generated secret to its owner
func ExportKey(vault *wallet.Vault) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		km, err := vault.Get(mux.Vars(r)["id"])
		if err != nil {
			sendResp(w, 0, nil, err)
			return
		}
		exported, err := km.Export()
		if err != nil {
			sendResp(w, 0, nil, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		sendResp(w, http.StatusOK, exported, nil)
	}
}

// DiscardKey zeroes and forgets one generated key
func DiscardKey(vault *wallet.Vault) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vault.Discard(mux.Vars(r)["id"])
		sendResp(w, http.StatusOK, nil, nil)
	}
}

// ClearVault zeroes every generated key (logout)
func ClearVault(vault *wallet.Vault) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vault.Clear()
		sendResp(w, http.StatusOK, nil, nil)
	}
}

// GetConnections gets the active connection set
func GetConnections(m *connect.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sendResp(w, http.StatusOK, m.List(), nil)
	}
}

// Connect asks a wallet provider for approval. Relay pairing URIs are pushed
// over the websocket while the request is pending.
func Connect(m *connect.Manager, hub *api.WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ConnectReq
		if err := decodeJSON(r, &req); err != nil {
			sendResp(w, 0, nil, err)
			return
		}
		family, err := chain.Parse(req.Family)
		if err != nil {
			sendResp(w, 0, nil, err)
			return
		}
		kind := prt.ProviderKind(req.Provider)

		ctx := r.Context()
		if req.Accounts != nil {
			ctx = connect.WithPresentedAccounts(ctx, kind, req.Accounts)
		}
		opts := []connect.Option{connect.WithLabel(req.Label)}
		if hub != nil {
			opts = append(opts, connect.WithPairing(func(uri string) {
				hub.BroadcastPairing(family, uri)
			}))
		}

		c, err := m.Connect(ctx, family, kind, opts...)
		if err != nil {
			sendResp(w, 0, nil, err)
			return
		}
		sendResp(w, http.StatusOK, c, nil)
	}
}

// Disconnect removes a connection and its asset records
func Disconnect(m *connect.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		family, err := chain.Parse(vars["family"])
		if err != nil {
			sendResp(w, 0, nil, err)
			return
		}
		if err := m.Disconnect(family, vars["address"]); err != nil {
			sendResp(w, 0, nil, err)
			return
		}
		sendResp(w, http.StatusOK, nil, nil)
	}
}

// Relabel changes the display label of a connection
func Relabel(m *connect.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		family, err := chain.Parse(vars["family"])
		if err != nil {
			sendResp(w, 0, nil, err)
			return
		}
		var req RelabelReq
		if err := decodeJSON(r, &req); err != nil {
			sendResp(w, 0, nil, err)
			return
		}
		c, err := m.Relabel(family, vars["address"], req.Label)
		if err != nil {
			sendResp(w, 0, nil, err)
			return
		}
		sendResp(w, http.StatusOK, c, nil)
	}
}

// GetAssets gets the latest asset records
func GetAssets(agg *asset.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sendResp(w, http.StatusOK, assetsResp(agg), nil)
	}
}

// RefreshAssets runs one aggregation pass and returns its result
func RefreshAssets(agg *asset.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := agg.Refresh(r.Context()); err != nil {
			sendResp(w, 0, nil, err)
			return
		}
		sendResp(w, http.StatusOK, assetsResp(agg), nil)
	}
}

// SetCostBasis records what the owner paid for a holding
func SetCostBasis(book *storage.BasisBook, reg *chain.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if book == nil {
			sendResp(w, http.StatusServiceUnavailable, nil, fmt.Errorf("cost basis book not configured"))
			return
		}
		var req CostBasisReq
		if err := decodeJSON(r, &req); err != nil {
			sendResp(w, 0, nil, err)
			return
		}
		family, err := chain.Parse(req.Family)
		if err != nil {
			sendResp(w, 0, nil, err)
			return
		}
		if req.AssetID == "" && r.Method != http.MethodDelete {
			sendResp(w, 0, nil, badRequest("assetId is required"))
			return
		}
		if err := reg.ValidateAddress(family, req.Owner); err != nil {
			sendResp(w, 0, nil, err)
			return
		}
		owner := reg.NormalizeAddress(family, req.Owner)

		switch {
		case r.Method == http.MethodDelete && req.AssetID == "":
			// without assetId the whole book of the owner goes
			err = book.DeleteOwner(family, owner)
		case r.Method == http.MethodDelete:
			err = book.Delete(family, owner, req.AssetID)
		default:
			if req.Cost < 0 {
				sendResp(w, 0, nil, badRequest("cost must be non-negative"))
				return
			}
			err = book.Set(family, owner, req.AssetID, req.Cost)
		}
		if err != nil {
			sendResp(w, 0, nil, err)
			return
		}
		sendResp(w, http.StatusOK, nil, nil)
	}
}

// DeriveValue converts between an amount and its fiat value
func DeriveValue(w http.ResponseWriter, r *http.Request) {
	var req DeriveReq
	if err := decodeJSON(r, &req); err != nil {
		sendResp(w, 0, nil, err)
		return
	}
	dir, err := asset.ParseDirection(req.Direction)
	if err != nil {
		sendResp(w, 0, nil, badRequest("%v", err))
		return
	}
	v, err := asset.Derive(req.Known, req.Price, dir)
	if err != nil {
		if err != asset.ErrNoPrice {
			err = badRequest("%v", err)
		}
		sendResp(w, 0, nil, err)
		return
	}
	sendResp(w, http.StatusOK, DeriveResp{Value: v}, nil)
}

// GetWSStatus gets WebSocket connection status
func GetWSStatus(hub *api.WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			sendResp(w, http.StatusInternalServerError, nil, fmt.Errorf("WebSocket hub not initialized"))
			return
		}

		status := map[string]interface{}{
			"connected_clients": hub.GetClientCount(),
			"endpoint":          "/ws",
		}

		sendResp(w, http.StatusOK, status, nil)
	}
}

// sendResp writes the envelope. A zero statusCode derives status and code
// from err.
func sendResp(w http.ResponseWriter, statusCode int, data interface{}, err error) {
	response := RestResp{
		Success: err == nil,
		Data:    data,
	}

	if err != nil {
		status, code := classify(err)
		if statusCode == 0 {
			statusCode = status
		}
		response.Error = err.Error()
		response.Code = code
	}
	if statusCode == 0 {
		statusCode = http.StatusOK
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return badRequest("empty body")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid json: %v", err)
	}
	return nil
}

func keyResp(id string, km *wallet.KeyMaterial) GeneratedKeyResp {
	return GeneratedKeyResp{
		ID:          id,
		Family:      km.Family,
		Address:     km.Address,
		HasMnemonic: km.HasMnemonic(),
	}
}

func assetsResp(agg *asset.Aggregator) AssetsResp {
	records := agg.ListAssets()
	if records == nil {
		records = []asset.AssetRecord{}
	}
	resp := AssetsResp{Records: records}
	for _, rec := range records {
		resp.TotalFiat += rec.FiatValue
	}
	if t := agg.LastPass(); !t.IsZero() {
		resp.LastPass = t.Unix()
	}
	return resp
}
