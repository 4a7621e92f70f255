package connect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	conf "github.com/sgawallet/sga-wallet/config"
	prt "github.com/sgawallet/sga-wallet/protocol"
	"github.com/stretchr/testify/require"
)

type relayMode int

const (
	relayApprove relayMode = iota
	relayReject
	relayCloseOrigin
	relaySilent
)

const allowedOrigin = "https://app.example"

// newFakeRelay accepts allowedOrigin only, sends a pairing URI, then answers
// the proposal according to mode.
func newFakeRelay(t *testing.T, mode relayMode, accounts []string) *httptest.Server {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Origin") != allowedOrigin {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}
		if r.URL.Query().Get("projectId") != "proj" {
			http.Error(w, "bad project", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var proposal RelayMessage
		if err := conn.ReadJSON(&proposal); err != nil {
			return
		}
		// a malformed proposal never gets an answer
		var sp SessionProposal
		if err := json.Unmarshal(proposal.Params, &sp); err != nil || len(sp.Chains) != 1 || len(sp.Methods) == 0 {
			return
		}

		pairing, _ := json.Marshal(PairingParams{URI: "wc:" + proposal.ID + "@2"})
		conn.WriteJSON(RelayMessage{Method: MethodPairing, Params: pairing})
		conn.WriteJSON(RelayMessage{ID: "someone-else", Result: json.RawMessage(`{}`)})

		switch mode {
		case relayApprove:
			out := make([]string, 0, len(accounts))
			for _, a := range accounts {
				out = append(out, sp.Chains[0]+":"+a)
			}
			res, _ := json.Marshal(SessionResult{Accounts: out})
			conn.WriteJSON(RelayMessage{ID: proposal.ID, Result: res})
		case relayReject:
			conn.WriteJSON(RelayMessage{ID: proposal.ID, Error: &RelayError{Code: CodeUserRejected, Message: "User rejected."}})
		case relayCloseOrigin:
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(CodeOriginNotAllowed, "origin not allowed"))
		case relaySilent:
			time.Sleep(500 * time.Millisecond)
			return
		}
		// wait for the client to hang up
		conn.ReadMessage()
	}))
}

func relayConfig(srv *httptest.Server, origin string) conf.Relay {
	return conf.Relay{
		URL:                 "ws" + strings.TrimPrefix(srv.URL, "http"),
		ProjectID:           "proj",
		Origin:              origin,
		HandshakeTimeoutSec: 5,
		ApprovalTimeoutSec:  5,
	}
}

func TestRelayApprove(t *testing.T) {
	const addr = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"
	srv := newFakeRelay(t, relayApprove, []string{addr})
	defer srv.Close()

	var uri string
	p := NewRelayProvider(relayConfig(srv, allowedOrigin))
	accounts, err := p.RequestAccounts(context.Background(), prt.FamilyXRPL, func(u string) { uri = u })
	require.NoError(t, err)
	require.Equal(t, []string{"xrpl:0:" + addr}, accounts)
	require.True(t, strings.HasPrefix(uri, "wc:"))
}

func TestRelayOriginRejectedAtHandshake(t *testing.T) {
	srv := newFakeRelay(t, relayApprove, nil)
	defer srv.Close()

	p := NewRelayProvider(relayConfig(srv, "https://evil.example"))
	_, err := p.RequestAccounts(context.Background(), prt.FamilyEVM, nil)
	require.ErrorIs(t, err, ErrOriginNotWhitelisted)
	require.NotErrorIs(t, err, ErrConnectionRefused)
}

func TestRelayOriginRejectedByCloseCode(t *testing.T) {
	srv := newFakeRelay(t, relayCloseOrigin, nil)
	defer srv.Close()

	p := NewRelayProvider(relayConfig(srv, allowedOrigin))
	_, err := p.RequestAccounts(context.Background(), prt.FamilyEVM, nil)
	require.ErrorIs(t, err, ErrOriginNotWhitelisted)
}

func TestRelayUserRejected(t *testing.T) {
	srv := newFakeRelay(t, relayReject, nil)
	defer srv.Close()

	p := NewRelayProvider(relayConfig(srv, allowedOrigin))
	_, err := p.RequestAccounts(context.Background(), prt.FamilyBitcoin, nil)
	require.ErrorIs(t, err, ErrConnectionRefused)
	require.NotErrorIs(t, err, ErrOriginNotWhitelisted)
}

func TestRelayHandshakeFailure(t *testing.T) {
	srv := newFakeRelay(t, relayApprove, nil)
	cfg := relayConfig(srv, allowedOrigin)
	cfg.ProjectID = "wrong"
	defer srv.Close()

	_, err := NewRelayProvider(cfg).RequestAccounts(context.Background(), prt.FamilyEVM, nil)
	require.ErrorIs(t, err, ErrConnectionRefused)
}

func TestRelayApprovalTimeout(t *testing.T) {
	srv := newFakeRelay(t, relaySilent, nil)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := NewRelayProvider(relayConfig(srv, allowedOrigin)).RequestAccounts(ctx, prt.FamilySolana, nil)
	require.ErrorIs(t, err, ErrConnectionRefused)
}

func TestRelayNotConfigured(t *testing.T) {
	_, err := NewRelayProvider(conf.Relay{}).RequestAccounts(context.Background(), prt.FamilyEVM, nil)
	require.ErrorIs(t, err, ErrProviderNotDetected)
}
