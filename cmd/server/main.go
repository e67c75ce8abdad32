// Package main runs the hat storefront frame server:
// - Frame routes (home, ad, coupon, finish, sold-out, buy, buy-discount)
// - Sponsored discount mints through the configured signing key
// - Interaction analytics to the configured event store and Pinata
// - /health, /metrics and /status endpoints
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"hat-store/internal/analytics"
	"hat-store/internal/chain"
	"hat-store/internal/config"
	"hat-store/internal/engine"
	"hat-store/internal/frame"
	"hat-store/internal/identity"
	"hat-store/internal/observability"
	"hat-store/internal/storage"
	chstore "hat-store/internal/storage/clickhouse"
	"hat-store/internal/storage/memory"
	"hat-store/internal/storage/migrations"
	pgstore "hat-store/internal/storage/postgres"
)

// Server holds all components of the storefront service.
type Server struct {
	cfg      config.Config
	chain    *chain.EthClient
	engine   *engine.Engine
	recorder *analytics.Recorder
	logger   *zap.Logger

	mu      sync.Mutex
	started time.Time
}

func main() {
	configPath := flag.String("config", os.Getenv("HAT_STORE_CONFIG"), "Path to YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	store := flag.String("analytics-store", "", "Analytics store: none, memory, postgres, clickhouse (overrides config)")
	migrate := flag.Bool("migrate", true, "Apply embedded migrations to the analytics store on startup")

	flag.Parse()

	cfg, err := loadConfig(*configPath, *addr, *store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Log.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, cleanup, err := newServer(ctx, cfg, *migrate, logger)
	if err != nil {
		logger.Fatal("failed to initialise server", zap.Error(err))
	}
	defer cleanup()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, initiating graceful shutdown", zap.String("signal", sig.String()))
		cancel()

		// Second signal forces exit
		sig = <-sigCh
		logger.Warn("received second signal, forcing immediate shutdown", zap.String("signal", sig.String()))
		os.Exit(1)
	}()

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("server error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

func loadConfig(path, addr, store string) (config.Config, error) {
	return config.LoadWithOverrides(path, func(cfg *config.Config) {
		if addr != "" {
			cfg.Server.Addr = addr
		}
		if store != "" {
			cfg.Analytics.Store = store
		}
	})
}

// newServer wires the chain client, identity resolver, analytics and engine.
func newServer(ctx context.Context, cfg config.Config, migrate bool, logger *zap.Logger) (*Server, func(), error) {
	chainOpts := []chain.ClientOption{
		chain.WithTokenID(cfg.Chain.TokenIDBig()),
		chain.WithChainID(cfg.Chain.ChainIDBig()),
		chain.WithPollInterval(cfg.Chain.PollInterval),
		chain.WithLogger(logger.Named("chain")),
	}
	if !cfg.Chain.ReadOnly() {
		chainOpts = append(chainOpts, chain.WithPrivateKey(cfg.Chain.PrivateKey))
	}

	dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := chain.DialEthClient(dialCtx, cfg.Chain.RPCURL, cfg.Chain.ContractAddress(), chainOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connect chain: %w", err)
	}
	if cfg.Chain.ReadOnly() {
		logger.Warn("no PRIVATE_KEY configured, sponsored mints are disabled")
	}

	eventStore, closeStore, err := createEventStore(ctx, cfg, migrate)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("create analytics store: %w", err)
	}

	recorder := analytics.NewRecorder(analytics.RecorderOptions{
		Sinks:      createSinks(cfg, eventStore, logger),
		BufferSize: cfg.Analytics.BufferSize,
		Logger:     logger.Named("analytics"),
	})

	engineOpts := engine.Options{
		Chain:       client,
		ReadTimeout: cfg.Chain.ReadTimeout,
		MintTimeout: cfg.Chain.MintTimeout,
		Logger:      logger.Named("engine"),
	}
	if cfg.Identity.BaseURL != "" {
		engineOpts.Resolver = identity.NewHTTPClient(cfg.Identity.BaseURL, cfg.Identity.Token,
			identity.WithTimeout(cfg.Identity.Timeout),
			identity.WithRateLimit(cfg.Identity.RateLimit, cfg.Identity.Burst),
		)
	}

	s := &Server{
		cfg:      cfg,
		chain:    client,
		engine:   engine.New(engineOpts),
		recorder: recorder,
		logger:   logger,
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := recorder.Close(ctx); err != nil {
			logger.Warn("analytics drain incomplete", zap.Error(err))
		}
		closeStore()
		client.Close()
	}

	return s, cleanup, nil
}

// createEventStore opens the configured analytics store. A nil store means none.
func createEventStore(ctx context.Context, cfg config.Config, migrate bool) (storage.InteractionEventStore, func(), error) {
	switch cfg.Analytics.Store {
	case config.StoreNone:
		return nil, func() {}, nil

	case config.StoreMemory:
		return memory.NewInteractionEventStore(), func() {}, nil

	case config.StorePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return pgstore.NewInteractionEventStore(pool), pool.Close, nil

	case config.StoreClickhouse:
		if migrate {
			if err := chstore.EnsureDatabase(ctx, cfg.Storage.ClickhouseDSN); err != nil {
				return nil, nil, err
			}
		}
		conn, err := chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return nil, nil, err
		}
		if migrate {
			if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
				conn.Close()
				return nil, nil, err
			}
		}
		return chstore.NewInteractionEventStore(conn), func() { conn.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unknown analytics store %q", cfg.Analytics.Store)
}

// createSinks builds the analytics sinks. A rejected Pinata token disables
// that sink only.
func createSinks(cfg config.Config, store storage.InteractionEventStore, logger *zap.Logger) []analytics.Sink {
	var sinks []analytics.Sink
	if store != nil {
		sinks = append(sinks, analytics.NewStoreSink(store))
	}

	if cfg.Analytics.PinataJWT != "" {
		var opts []analytics.PinataOption
		if cfg.Analytics.PinataEndpoint != "" {
			opts = append(opts, analytics.WithPinataEndpoint(cfg.Analytics.PinataEndpoint))
		}
		sink, err := analytics.NewPinataSink(cfg.Analytics.PinataJWT, opts...)
		if err != nil {
			logger.Warn("pinata analytics disabled", zap.Error(err))
		} else {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	s.started = time.Now()
	s.mu.Unlock()

	httpServer := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.routes(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			zap.String("addr", s.cfg.Server.Addr),
			zap.String("public_url", s.cfg.Server.PublicURL),
			zap.String("contract", s.chain.Address().Hex()),
			zap.String("signer", s.chain.Signer().Hex()),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return ctx.Err()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	r.Handle("/metrics", observability.Handler())

	// Status endpoint
	r.Get("/status", s.handleStatus)

	frames := frame.NewHandler(frame.Options{
		Engine:    s.engine,
		Recorder:  s.recorder,
		PublicURL: s.cfg.Server.PublicURL,
		BasePath:  s.cfg.Server.BasePath,
		Contract:  s.cfg.Chain.ContractAddress(),
		ChainID:   s.cfg.Chain.CAIP2(),
		MintLimiter: frame.NewMintLimiter(
			s.cfg.Chain.MintInterval, s.cfg.Chain.MintRate, s.cfg.Chain.MintBurst),
		Logger: s.logger.Named("frame"),
	})
	r.Mount(s.cfg.Server.BasePath, frames.Routes())

	return r
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Contract  string `json:"contract"`
	Signer    string `json:"signer,omitempty"`
	ReadOnly  bool   `json:"read_only"`
	Supply    string `json:"supply,omitempty"`
	SupplyErr string `json:"supply_error,omitempty"`
	Analytics string `json:"analytics_store"`
}

// handleStatus returns server status as JSON, including a live supply read.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	resp := StatusResponse{
		Status:    "running",
		Uptime:    time.Since(started).Round(time.Second).String(),
		Contract:  s.chain.Address().Hex(),
		ReadOnly:  s.cfg.Chain.ReadOnly(),
		Analytics: s.cfg.Analytics.Store,
	}
	if !resp.ReadOnly {
		resp.Signer = s.chain.Signer().Hex()
	}

	d := s.engine.DecideHomeScreen(r.Context())
	if d.Failure != nil {
		resp.Status = "degraded"
		resp.SupplyErr = d.Failure.Error()
	} else {
		resp.Supply = d.Supply.String()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
