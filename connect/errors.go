package connect

import "errors"

var (
	// ErrProviderNotDetected: no compatible wallet is present for the kind.
	ErrProviderNotDetected = errors.New("no compatible wallet found")
	// ErrOriginNotWhitelisted: the relay rejected this application's origin.
	// The origin must be authorized with the relay operator.
	ErrOriginNotWhitelisted = errors.New("origin not authorized by relay")
	// ErrConnectionRefused: the user declined, or the handshake failed.
	ErrConnectionRefused   = errors.New("connection refused")
	ErrUnsupportedProvider = errors.New("provider not supported for chain family")
	ErrNotConnected        = errors.New("no active connection")
)
