package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/sgawallet/sga-wallet/api"
	"github.com/sgawallet/sga-wallet/common/logger"
)

// LoggingMiddleware HTTP request logging middleware
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Call next handler
		next.ServeHTTP(w, r)

		// path only; query strings are not logged
		logger.Debug("Request: ", r.Method, " ", r.URL.Path, " Duration: ", time.Since(start))
	})
}

// RecoveryMiddleware panic recovery middleware
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("API Panic recovered: ", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware answers browser origins listed in allowed. An empty list
// allows any origin.
func CORSMiddleware(allowed []string) func(http.Handler) http.Handler {
	check := api.OriginChecker(allowed)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if !check(r) {
					sendResp(w, http.StatusForbidden, nil, errOriginDenied)
					return
				}
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", strings.Join([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}, ", "))
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}
			next.ServeHTTP(w, r)
		})
	}
}
