package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sgawallet/sga-wallet/api"
	"github.com/sgawallet/sga-wallet/common/metrics"
)

func setupRouter(svc *Services, wsHub *api.WSHub, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()

	// Middleware setup
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(CORSMiddleware(allowedOrigins))

	// Base route
	r.HandleFunc("/", HomeHandler).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws", api.HandleWebSocket(wsHub))

	// Prometheus
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods("GET")

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	// preflight
	apiRouter.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Families and wallet providers
	apiRouter.HandleFunc("/families", GetFamilies(svc.Registry)).Methods("GET")
	apiRouter.HandleFunc("/providers/{family}", GetProviders(svc.Manager)).Methods("GET")

	// Key generation (session vault)
	apiRouter.HandleFunc("/wallets/generate", GenerateKey(svc.Generator, svc.Vault)).Methods("POST")
	apiRouter.HandleFunc("/wallets", GetVault(svc.Vault)).Methods("GET")
	apiRouter.HandleFunc("/wallets", ClearVault(svc.Vault)).Methods("DELETE")
	apiRouter.HandleFunc("/wallets/{id}/export", ExportKey(svc.Vault)).Methods("GET")
	apiRouter.HandleFunc("/wallets/{id}", DiscardKey(svc.Vault)).Methods("DELETE")

	// Connections
	apiRouter.HandleFunc("/connections", GetConnections(svc.Manager)).Methods("GET")
	apiRouter.HandleFunc("/connections", Connect(svc.Manager, wsHub)).Methods("POST")
	apiRouter.HandleFunc("/connections/{family}/{address}", Disconnect(svc.Manager)).Methods("DELETE")
	apiRouter.HandleFunc("/connections/{family}/{address}", Relabel(svc.Manager)).Methods("PATCH")

	// Assets
	apiRouter.HandleFunc("/assets", GetAssets(svc.Aggregator)).Methods("GET")
	apiRouter.HandleFunc("/assets/refresh", RefreshAssets(svc.Aggregator)).Methods("POST")
	apiRouter.HandleFunc("/assets/basis", SetCostBasis(svc.Basis, svc.Registry)).Methods("PUT", "DELETE")
	apiRouter.HandleFunc("/valuation/derive", DeriveValue).Methods("POST")

	// WebSocket status API
	apiRouter.HandleFunc("/ws/status", GetWSStatus(wsHub)).Methods("GET")

	return r
}
