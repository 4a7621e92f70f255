package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sgawallet/sga-wallet/asset"
	"github.com/sgawallet/sga-wallet/chain"
	"github.com/sgawallet/sga-wallet/connect"
	"github.com/sgawallet/sga-wallet/wallet"
)

var (
	errBadRequest   = errors.New("bad request")
	errOriginDenied = errors.New("origin not allowed")
)

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Connection failures get distinct codes so a client can tell "no wallet
// found" from "origin not authorized" from "user declined".
var errorMappings = []errorMapping{
	{errBadRequest, http.StatusBadRequest, "bad_request"},
	{errOriginDenied, http.StatusForbidden, "origin_denied"},
	{chain.ErrUnsupportedFamily, http.StatusBadRequest, "unsupported_family"},
	{chain.ErrInvalidAddressEncoding, http.StatusBadRequest, "invalid_address"},
	{wallet.ErrRandomnessUnavailable, http.StatusServiceUnavailable, "randomness_unavailable"},
	{wallet.ErrNotFound, http.StatusNotFound, "not_found"},
	{wallet.ErrKeyCleared, http.StatusGone, "key_cleared"},
	{connect.ErrUnsupportedProvider, http.StatusBadRequest, "unsupported_provider"},
	{connect.ErrProviderNotDetected, http.StatusNotFound, "provider_not_detected"},
	{connect.ErrOriginNotWhitelisted, http.StatusForbidden, "origin_not_whitelisted"},
	{connect.ErrConnectionRefused, http.StatusConflict, "connection_refused"},
	{connect.ErrNotConnected, http.StatusNotFound, "not_connected"},
	{asset.ErrNoPrice, http.StatusUnprocessableEntity, "no_price"},
}

func classify(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}
