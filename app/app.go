package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sgawallet/sga-wallet/api"
	"github.com/sgawallet/sga-wallet/api/rest"
	"github.com/sgawallet/sga-wallet/asset"
	"github.com/sgawallet/sga-wallet/chain"
	"github.com/sgawallet/sga-wallet/chain/families"
	"github.com/sgawallet/sga-wallet/common/logger"
	conf "github.com/sgawallet/sga-wallet/config"
	"github.com/sgawallet/sga-wallet/connect"
	"github.com/sgawallet/sga-wallet/price"
	prt "github.com/sgawallet/sga-wallet/protocol"
	"github.com/sgawallet/sga-wallet/storage"
	"github.com/sgawallet/sga-wallet/wallet"
	"github.com/syndtr/goleveldb/leveldb"
)

type App struct {
	stop     chan struct{}
	stopOnce sync.Once
	Conf     conf.Config
	DB       *leveldb.DB // Mutex within db should not be copied

	Registry   *chain.Registry
	Generator  *wallet.Generator
	Vault      *wallet.Vault
	Manager    *connect.Manager
	Aggregator *asset.Aggregator
	Basis      *storage.BasisBook

	restServer *rest.Server
	cancelRun  context.CancelFunc
	runDone    chan struct{}
}

func New(configPath string) (*App, error) {
	cfg, err := conf.NewConfig(configPath)
	if err != nil {
		fmt.Println("Failed to initialized application: ", err)
		return nil, err
	}

	if err := logger.InitLogger(cfg); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	db, err := storage.InitDB(cfg)
	if err != nil {
		logger.Error("Failed to load db: ", err)
		return nil, err
	}

	app, err := Assemble(cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return app, nil
}

// Assemble wires every component over an open db. Nothing talks to the
// network until Start.
func Assemble(cfg *conf.Config, db *leveldb.DB) (*App, error) {
	client := &http.Client{Timeout: cfg.CallTimeout()}

	registry, err := families.WithSources(cfg, client)
	if err != nil {
		logger.Error("Failed to build chain sources: ", err)
		return nil, err
	}

	basis := storage.NewBasisBook(db)
	oracle := price.NewCoinGecko(cfg.Price, client)
	aggregator := asset.NewAggregator(cfg.Aggregator, registry, oracle, basis)

	manager := connect.NewManager(registry, storage.NewConnectionStore(db),
		connect.NewBridgeProvider(prt.ProviderInjected),
		connect.NewBridgeProvider(prt.ProviderWalletAdapter),
		connect.NewBridgeProvider(prt.ProviderVendorSDK),
		connect.NewRelayProvider(cfg.Relay),
	)
	manager.AddObserver(aggregator)

	app := &App{
		stop:       make(chan struct{}),
		Conf:       *cfg,
		DB:         db,
		Registry:   registry,
		Generator:  wallet.NewGenerator(registry),
		Vault:      wallet.NewVault(),
		Manager:    manager,
		Aggregator: aggregator,
		Basis:      basis,
	}

	app.restServer = rest.NewServer(cfg, &rest.Services{
		Registry:   registry,
		Generator:  app.Generator,
		Vault:      app.Vault,
		Manager:    manager,
		Aggregator: aggregator,
		Basis:      basis,
	})

	// push connection and asset changes to websocket clients
	hub := app.restServer.GetWSHub()
	manager.AddObserver(hub)
	aggregator.OnUpdate(hub.BroadcastAssets)
	hub.SetSnapshotProvider(func() []api.WSMessage {
		return []api.WSMessage{
			{Event: api.EventConnectionsSnapshot, Data: manager.List()},
			{Event: api.EventAssetsUpdated, Data: aggregator.ListAssets()},
		}
	})

	return app, nil
}

// Restore replays the persisted connection set; no wallet is prompted.
func (p *App) Restore() int {
	return p.Manager.Restore()
}

// StartAggregator runs periodic and connection-triggered aggregation passes.
func (p *App) StartAggregator() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancelRun = cancel
	p.runDone = make(chan struct{})
	go func() {
		defer close(p.runDone)
		p.Aggregator.Run(ctx, p.Conf.RefreshInterval())
	}()
	logger.Info("Aggregator started, interval ", p.Conf.RefreshInterval())
}

func (p *App) NewRest() error {
	// Start REST API server
	if err := p.restServer.Start(); err != nil {
		return fmt.Errorf("failed to start REST API server: %w", err)
	}
	return nil
}

// StartAll 모든 서비스 시작 (Restore, Aggregator, REST)
func (p *App) StartAll() error {
	restored := p.Restore()
	p.StartAggregator()

	if err := p.NewRest(); err != nil {
		return err
	}

	// 복원된 연결이 있으면 첫 집계를 바로 시작
	if restored > 0 {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if err := p.Aggregator.Refresh(ctx); err != nil {
				logger.Warn("[Aggregator] initial pass: ", err)
			}
		}()
	}

	logger.Info("All services started successfully")
	return nil
}

// Cleanup 애플리케이션 정리
func (p *App) Cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 집계 루프 종료
	if p.cancelRun != nil {
		p.cancelRun()
		<-p.runDone
	}

	// REST API 서버 종료
	if p.restServer != nil {
		if err := p.restServer.Stop(ctx); err != nil {
			logger.Error("Error stopping REST API server: ", err)
		}
	}

	// 세션 키 소거
	if p.Vault != nil {
		p.Vault.Clear()
	}

	// DB 연결 닫기
	if p.DB != nil {
		if err := p.DB.Close(); err != nil {
			logger.Error("Error closing DB connection: ", err)
		}
	}

	logger.Info("All resources cleaned up")
	logger.Sync()
}

func (p *App) Wait() {
	<-p.stop // 채널에서 값 읽으려고 시도
}

func (p *App) Terminate() {
	p.stopOnce.Do(func() {
		p.Cleanup() // 자원 정리 후 종료
		close(p.stop)
	})
}

func (p *App) SigHandler() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM) // OS 시그널을 채널로 전달
	go func() {
		sig := <-sigCh
		logger.Info("Arrived terminate signal: ", sig)
		p.Terminate()
	}()
}
