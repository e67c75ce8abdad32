package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hat-store/internal/chain"
	"hat-store/internal/config"
	"hat-store/internal/engine"
	"hat-store/internal/identity"
	"hat-store/internal/storage"
	chstore "hat-store/internal/storage/clickhouse"
	"hat-store/internal/storage/memory"
	pgstore "hat-store/internal/storage/postgres"
)

// dialTimeout bounds connecting to the RPC endpoint or a database.
const dialTimeout = 30 * time.Second

// RootOptions holds flags and collaborators shared by every subcommand.
type RootOptions struct {
	ConfigPath string
	Format     string
	Verbose    bool

	// Overridable for tests.
	loadConfig   func(path string) (config.Config, error)
	dialChain    func(ctx context.Context, cfg config.Config, logger *zap.Logger) (chain.Client, func(), error)
	openResolver func(cfg config.Config) (identity.Resolver, error)
	openStore    func(ctx context.Context, cfg config.Config) (storage.InteractionEventStore, func(), error)
}

func defaultRootOptions() *RootOptions {
	return &RootOptions{
		loadConfig:   config.Load,
		dialChain:    dialChain,
		openResolver: openResolver,
		openStore:    openStore,
	}
}

// NewRootCommand creates the hatctl root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultRootOptions())
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hatctl",
		Short: "Operator CLI for the hat storefront",
		Long: `hatctl inspects the hat contract, the identity service and the
analytics store with the same configuration the frame server uses.

Reads go through the pricing and eligibility engine; hatctl never sends a
sponsored mint.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != "text" && opts.Format != "json" {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be 'text' or 'json'", opts.Format))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log collaborator calls to stderr")

	cmd.AddCommand(NewSupplyCommand(opts))
	cmd.AddCommand(NewBalanceCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewQuoteCommand(opts))
	cmd.AddCommand(NewEligibilityCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))

	return cmd
}

// config loads the configuration, mapping failures to ExitCommandError.
func (o *RootOptions) config() (config.Config, error) {
	cfg, err := o.loadConfig(o.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "load config", err)
	}
	return cfg, nil
}

// logger is a development logger on stderr when verbose, a no-op otherwise.
func (o *RootOptions) logger(cmd *cobra.Command) *zap.Logger {
	if !o.Verbose {
		return zap.NewNop()
	}
	logger, err := config.LogConfig{Level: "debug", Development: true}.Build()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "logger:", err)
		return zap.NewNop()
	}
	return logger
}

// newEngine builds a read-only engine over the configured collaborators.
func (o *RootOptions) newEngine(ctx context.Context, cfg config.Config, logger *zap.Logger) (*engine.Engine, func(), error) {
	client, closeChain, err := o.dialChain(ctx, cfg, logger)
	if err != nil {
		return nil, nil, WrapExitError(ExitFailure, "connect chain", err)
	}

	resolver, err := o.openResolver(cfg)
	if err != nil {
		closeChain()
		return nil, nil, WrapExitError(ExitCommandError, "identity", err)
	}

	eng := engine.New(engine.Options{
		Chain:       client,
		Resolver:    resolver,
		ReadTimeout: cfg.Chain.ReadTimeout,
		MintTimeout: cfg.Chain.MintTimeout,
		Logger:      logger,
	})
	return eng, closeChain, nil
}

// dialChain connects a read-only contract client. The signing key is never
// loaded by the CLI.
func dialChain(ctx context.Context, cfg config.Config, logger *zap.Logger) (chain.Client, func(), error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	client, err := chain.DialEthClient(dialCtx, cfg.Chain.RPCURL, cfg.Chain.ContractAddress(),
		chain.WithTokenID(cfg.Chain.TokenIDBig()),
		chain.WithChainID(cfg.Chain.ChainIDBig()),
		chain.WithPollInterval(cfg.Chain.PollInterval),
		chain.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

// openResolver returns a nil resolver when no identity service is configured.
func openResolver(cfg config.Config) (identity.Resolver, error) {
	if cfg.Identity.BaseURL == "" {
		return nil, nil
	}
	return identity.NewHTTPClient(cfg.Identity.BaseURL, cfg.Identity.Token,
		identity.WithTimeout(cfg.Identity.Timeout),
		identity.WithRateLimit(cfg.Identity.RateLimit, cfg.Identity.Burst),
	), nil
}

// openStore opens the configured analytics store without migrating it.
func openStore(ctx context.Context, cfg config.Config) (storage.InteractionEventStore, func(), error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	switch cfg.Analytics.Store {
	case config.StoreMemory:
		return memory.NewInteractionEventStore(), func() {}, nil

	case config.StorePostgres:
		pool, err := pgstore.NewPool(dialCtx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pgstore.NewInteractionEventStore(pool), pool.Close, nil

	case config.StoreClickhouse:
		conn, err := chstore.NewConn(dialCtx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return nil, nil, err
		}
		return chstore.NewInteractionEventStore(conn), func() { conn.Close() }, nil
	}

	return nil, nil, fmt.Errorf("analytics store %q cannot be queried", cfg.Analytics.Store)
}
