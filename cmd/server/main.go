package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"fedra/api/httpserver"
	"fedra/config"
	"fedra/deploy"
	"fedra/domain/federation"
	"fedra/infra/events"
	"fedra/infra/journal"
	"fedra/infra/ledger"
	"fedra/jobs/exporter"
	"fedra/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the node configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------- Journal ----------------

	jrnl, err := journal.Open(cfg.JournalDir)
	if err != nil {
		logger.Fatal("journal init failed", zap.Error(err))
	}
	defer jrnl.Close()

	// ---------------- Ledger ----------------

	client, err := ledger.Dial(ctx, ledger.Config{
		NodeURL:         cfg.Ledger.NodeURL,
		ContractAddress: cfg.Ledger.ContractAddress,
		PrivateKey:      cfg.Ledger.PrivateKey,
	}, logger)
	if err != nil {
		logger.Fatal("ledger dial failed", zap.Error(err))
	}
	defer client.Close()

	cursor, err := events.New(client.Eth(), common.HexToAddress(cfg.Ledger.ContractAddress), logger)
	if err != nil {
		logger.Fatal("event cursor init failed", zap.Error(err))
	}

	// ---------------- Exporter ----------------

	if len(cfg.Export.Brokers) > 0 {
		exp, err := exporter.New(jrnl, cfg.Export.Brokers, cfg.Export.Topic, logger)
		if err != nil {
			logger.Fatal("exporter init failed", zap.Error(err))
		}
		defer exp.Close()
		go exp.Run(ctx)
	}

	// ---------------- Orchestration ----------------

	sessions := service.NewSessions()
	runner := &negotiationRunner{
		cfg:      cfg,
		client:   client,
		cursor:   cursor,
		journal:  jrnl,
		sessions: sessions,
		logger:   logger,
	}

	// ---------------- HTTP ----------------

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpserver.New(client, sessions, runner, logger).Handler(),
	}
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("role", cfg.Role),
			zap.String("domain", cfg.Domain.Name))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

// negotiationRunner builds a fresh orchestrator per triggered run so
// every run gets its own recorder and timeline.
type negotiationRunner struct {
	cfg      config.Config
	client   *ledger.Client
	cursor   *events.Cursor
	journal  *journal.Journal
	sessions *service.Sessions
	logger   *zap.Logger
}

func (r *negotiationRunner) endpoint() federation.Endpoint {
	return federation.Endpoint{
		IPAddress:     r.cfg.Network.IPAddress,
		VXLANID:       r.cfg.Network.VXLANID,
		VXLANPort:     r.cfg.Network.VXLANPort,
		FederationNet: r.cfg.Network.FederationNet,
	}
}

func (r *negotiationRunner) backoff() service.Backoff {
	return service.Backoff{
		Initial:  r.cfg.Negotiation.PollInitial,
		Max:      r.cfg.Negotiation.PollMax,
		Deadline: r.cfg.Negotiation.Deadline,
	}
}

func (r *negotiationRunner) RunConsumer(ctx context.Context) (service.ConsumerResult, error) {
	rec := service.NewRecorder("consumer", r.journal, r.logger)
	c := service.NewConsumer(
		r.client,
		r.cursor,
		deploy.NewVXLANTunneler(r.logger),
		r.sessions,
		rec,
		service.ConsumerConfig{
			Requirements: federation.Requirements{
				ServiceType: r.cfg.Consumer.ServiceType,
				Replicas:    r.cfg.Consumer.Replicas,
			},
			Endpoint:  r.endpoint(),
			DomainID:  r.cfg.Domain.ID,
			Interface: r.cfg.Network.Interface,
			Quorum:    r.cfg.Consumer.Quorum,
			Backoff:   r.backoff(),
			ExportDir: r.cfg.Export.Dir,
			Lookback:  r.cfg.Negotiation.LookbackBlks,
		},
		r.logger,
	)
	return c.Run(ctx)
}

func (r *negotiationRunner) deployer() deploy.Deployer {
	if r.cfg.Deploy.Backend == "kubernetes" {
		return deploy.NewKubeDeployer(r.cfg.Deploy.Namespace, r.cfg.Deploy.Kubeconfig, r.logger)
	}
	return deploy.NewDockerDeployer(r.logger)
}

func (r *negotiationRunner) RunProvider(ctx context.Context) (service.ProviderResult, error) {
	rec := service.NewRecorder("provider", r.journal, r.logger)
	p := service.NewProvider(
		r.client,
		r.cursor,
		r.deployer(),
		deploy.NewVXLANTunneler(r.logger),
		r.journal,
		r.sessions,
		rec,
		service.ProviderConfig{
			Capability:  federation.Capability{ServiceTypes: r.cfg.Provider.ServiceTypes},
			Price:       r.cfg.Provider.Price,
			Endpoint:    r.endpoint(),
			DomainID:    r.cfg.Domain.ID,
			Interface:   r.cfg.Network.Interface,
			Image:       r.cfg.Provider.Image,
			NetworkName: r.cfg.Network.NetworkName,
			Backoff:     r.backoff(),
			ExportDir:   r.cfg.Export.Dir,
			Lookback:    r.cfg.Negotiation.LookbackBlks,
		},
		r.logger,
	)
	return p.Run(ctx)
}
