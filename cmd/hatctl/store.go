package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"hat-store/internal/analytics"
	"hat-store/internal/config"
	chstore "hat-store/internal/storage/clickhouse"
	"hat-store/internal/storage/migrations"
	pgstore "hat-store/internal/storage/postgres"
)

// MigrateResult is the output of the migrate command.
type MigrateResult struct {
	Store   string `json:"store"`
	Applied bool   `json:"applied"`
}

// EventCount is one custom id's interaction count.
type EventCount struct {
	CustomID string `json:"custom_id"`
	Count    int64  `json:"count"`
}

// EventsResult is the output of the events command.
type EventsResult struct {
	FrameID string       `json:"frame_id"`
	From    time.Time    `json:"from"`
	To      time.Time    `json:"to"`
	Total   int64        `json:"total"`
	Counts  []EventCount `json:"counts"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [postgres|clickhouse]",
		Short: "Apply the embedded analytics migrations",
		Long: `Apply the embedded analytics migrations. Without an argument the
configured analytics store is migrated. Migrations are idempotent.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := ""
			if len(args) == 1 {
				store = args[0]
			}
			return runMigrate(rootOpts, store, cmd)
		},
	}
}

func runMigrate(rootOpts *RootOptions, store string, cmd *cobra.Command) error {
	cfg, err := rootOpts.config()
	if err != nil {
		return err
	}
	if store == "" {
		store = cfg.Analytics.Store
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), dialTimeout)
	defer cancel()

	switch store {
	case config.StorePostgres:
		err = migratePostgres(ctx, cfg.Storage.PostgresDSN)
	case config.StoreClickhouse:
		err = migrateClickhouse(ctx, cfg.Storage.ClickhouseDSN)
	default:
		return NewExitError(ExitCommandError,
			fmt.Sprintf("store %q has no migrations: must be 'postgres' or 'clickhouse'", store))
	}
	if err != nil {
		return WrapExitError(ExitFailure, "migrate "+store, err)
	}

	result := MigrateResult{Store: store, Applied: true}
	return printResult(cmd.OutOrStdout(), rootOpts.Format, result, []field{
		{"Store", store},
		{"Migrations", "applied"},
	})
}

func migratePostgres(ctx context.Context, dsn string) error {
	if dsn == "" {
		return errors.New("POSTGRES_DSN is not set")
	}
	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()
	return migrations.RunPostgresMigrations(ctx, pool)
}

func migrateClickhouse(ctx context.Context, dsn string) error {
	if dsn == "" {
		return errors.New("CLICKHOUSE_DSN is not set")
	}
	if err := chstore.EnsureDatabase(ctx, dsn); err != nil {
		return err
	}
	conn, err := chstore.NewConn(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close()
	return migrations.RunClickhouseMigrations(ctx, conn)
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		since   time.Duration
		frameID string
	)

	cmd := &cobra.Command{
		Use:           "events",
		Short:         "Count recorded frame interactions per custom id",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(rootOpts, frameID, since, time.Now().UTC(), cmd)
		},
	}

	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "count interactions within this window before now")
	cmd.Flags().StringVar(&frameID, "frame", analytics.FrameID, "frame id to count")

	return cmd
}

func runEvents(rootOpts *RootOptions, frameID string, since time.Duration, now time.Time, cmd *cobra.Command) error {
	if since <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --since %s: must be positive", since))
	}

	cfg, err := rootOpts.config()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, closeStore, err := rootOpts.openStore(ctx, cfg)
	if err != nil {
		return WrapExitError(ExitFailure, "open analytics store", err)
	}
	defer closeStore()

	from := now.Add(-since)
	counts, err := store.CountByCustomID(ctx, frameID, from, now)
	if err != nil {
		return WrapExitError(ExitFailure, "count events", err)
	}

	result := EventsResult{FrameID: frameID, From: from, To: now, Counts: []EventCount{}}
	for id, n := range counts {
		result.Counts = append(result.Counts, EventCount{CustomID: id, Count: n})
		result.Total += n
	}
	sort.Slice(result.Counts, func(i, j int) bool {
		if result.Counts[i].Count != result.Counts[j].Count {
			return result.Counts[i].Count > result.Counts[j].Count
		}
		return result.Counts[i].CustomID < result.Counts[j].CustomID
	})

	fields := []field{
		{"Frame", frameID},
		{"From", from.Format(time.RFC3339)},
		{"To", now.Format(time.RFC3339)},
	}
	for _, c := range result.Counts {
		fields = append(fields, field{c.CustomID, fmt.Sprint(c.Count)})
	}
	fields = append(fields, field{"Total", fmt.Sprint(result.Total)})

	return printResult(cmd.OutOrStdout(), rootOpts.Format, result, fields)
}
