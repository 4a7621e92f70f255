package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sgawallet/sga-wallet/api"
	"github.com/sgawallet/sga-wallet/common/logger"
	conf "github.com/sgawallet/sga-wallet/config"
)

// Server REST API 서버 구조체
type Server struct {
	port       int
	httpServer *http.Server
	handler    http.Handler
	wsHub      *api.WSHub
	// relay approvals hold the connect request open
	writeTimeout time.Duration
}

// NewServer API 서버 인스턴스 생성
func NewServer(cfg *conf.Config, svc *Services) *Server {
	wsHub := api.NewWSHub(cfg.Server.AllowedOrigins)
	return &Server{
		port:         cfg.Server.RestPort,
		handler:      setupRouter(svc, wsHub, cfg.Server.AllowedOrigins),
		wsHub:        wsHub,
		writeTimeout: time.Duration(cfg.Relay.ApprovalTimeoutSec)*time.Second + 10*time.Second,
	}
}

// Handler is the routed handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start API 서버 시작
func (s *Server) Start() error {
	// WebSocket Hub 시작
	go s.wsHub.Run()

	addr := fmt.Sprintf(":%d", s.port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("REST API Server starting on port ", s.port)
	logger.Info("WebSocket available at ws://localhost:", s.port, "/ws")
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("REST API Server error: ", err)
		}
	}()

	return nil
}

// Stop API 서버 종료
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("Shutting down REST API Server...")
	s.wsHub.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// GetWSHub WebSocket Hub 반환
func (s *Server) GetWSHub() *api.WSHub {
	return s.wsHub
}
