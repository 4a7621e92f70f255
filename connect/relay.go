package connect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sgawallet/sga-wallet/chain"
	"github.com/sgawallet/sga-wallet/common/logger"
	conf "github.com/sgawallet/sga-wallet/config"
	prt "github.com/sgawallet/sga-wallet/protocol"
)

// Relay error and close codes.
const (
	CodeOriginNotAllowed = 3000
	CodeUserRejected     = 5000
	CodeUnsupportedChain = 5100
)

const (
	MethodSessionPropose = "session_propose"
	MethodPairing        = "pairing"
)

// RelayMessage is the relay envelope, JSON-RPC shaped.
type RelayMessage struct {
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RelayError     `json:"error,omitempty"`
}

type RelayError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RelayError) Error() string { return fmt.Sprintf("relay error %d: %s", e.Code, e.Message) }

type SessionProposal struct {
	Chains  []string `json:"chains"`
	Methods []string `json:"methods"`
}

type SessionResult struct {
	Accounts []string `json:"accounts"`
}

type PairingParams struct {
	URI string `json:"uri"`
}

// RelayProvider obtains approval from a remote wallet through a websocket
// relay. The user approves on their own device after opening the pairing URI.
type RelayProvider struct {
	cfg    conf.Relay
	dialer *websocket.Dialer
}

func NewRelayProvider(cfg conf.Relay) *RelayProvider {
	if cfg.ApprovalTimeoutSec <= 0 {
		cfg.ApprovalTimeoutSec = 120
	}
	return &RelayProvider{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: time.Duration(cfg.HandshakeTimeoutSec) * time.Second,
		},
	}
}

func (p *RelayProvider) Kind() prt.ProviderKind { return prt.ProviderRelay }

func (p *RelayProvider) endpoint() (string, error) {
	u, err := url.Parse(p.cfg.URL)
	if err != nil {
		return "", err
	}
	if p.cfg.ProjectID != "" {
		q := u.Query()
		q.Set("projectId", p.cfg.ProjectID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (p *RelayProvider) RequestAccounts(ctx context.Context, family prt.Family, onPairing func(string)) ([]string, error) {
	if p.cfg.URL == "" {
		return nil, ErrProviderNotDetected
	}
	caip, err := chain.CAIP2(family)
	if err != nil {
		return nil, err
	}
	endpoint, err := p.endpoint()
	if err != nil {
		return nil, fmt.Errorf("%w: bad relay url: %v", ErrConnectionRefused, err)
	}

	header := http.Header{}
	if p.cfg.Origin != "" {
		header.Set("Origin", p.cfg.Origin)
	}
	conn, resp, err := p.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("%w: %s", ErrOriginNotWhitelisted, p.cfg.Origin)
		}
		return nil, fmt.Errorf("%w: relay handshake: %v", ErrConnectionRefused, err)
	}
	defer conn.Close()

	approval := time.Duration(p.cfg.ApprovalTimeoutSec) * time.Second
	actx, cancel := context.WithTimeout(ctx, approval)
	defer cancel()

	// unblock ReadJSON when the caller gives up
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-actx.Done():
			conn.SetReadDeadline(time.Now())
		case <-stop:
		}
	}()

	params, err := json.Marshal(SessionProposal{Chains: []string{caip}, Methods: []string{"accounts"}})
	if err != nil {
		return nil, fmt.Errorf("%w: encode proposal: %v", ErrConnectionRefused, err)
	}
	id := uuid.NewString()
	if err := conn.WriteJSON(RelayMessage{ID: id, Method: MethodSessionPropose, Params: params}); err != nil {
		return nil, fmt.Errorf("%w: send proposal: %v", ErrConnectionRefused, err)
	}

	for {
		var msg RelayMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if actx.Err() != nil {
				return nil, fmt.Errorf("%w: approval not received: %v", ErrConnectionRefused, actx.Err())
			}
			return nil, closeError(err)
		}

		if msg.Method == MethodPairing {
			var pp PairingParams
			if err := json.Unmarshal(msg.Params, &pp); err == nil && onPairing != nil {
				onPairing(pp.URI)
			}
			continue
		}
		if msg.ID != id {
			logger.Debug("[Relay] ignoring message for ", msg.ID)
			continue
		}
		if msg.Error != nil {
			return nil, codeError(msg.Error.Code, msg.Error)
		}
		var res SessionResult
		if err := json.Unmarshal(msg.Result, &res); err != nil {
			return nil, fmt.Errorf("%w: bad session result: %v", ErrConnectionRefused, err)
		}
		if len(res.Accounts) == 0 {
			return nil, fmt.Errorf("%w: wallet approved no accounts", ErrConnectionRefused)
		}
		return res.Accounts, nil
	}
}

func closeError(err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return codeError(ce.Code, err)
	}
	return fmt.Errorf("%w: %v", ErrConnectionRefused, err)
}

func codeError(code int, cause error) error {
	if code == CodeOriginNotAllowed {
		return fmt.Errorf("%w: %v", ErrOriginNotWhitelisted, cause)
	}
	return fmt.Errorf("%w: %v", ErrConnectionRefused, cause)
}
