// Package cmd wires the CLI subcommands: backfill, daily-sync, ask, status.
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/ortalis97/garmin-ai-explorer/internal/config"
	"github.com/ortalis97/garmin-ai-explorer/internal/domain"
	"github.com/ortalis97/garmin-ai-explorer/internal/garmin"
	"github.com/ortalis97/garmin-ai-explorer/internal/store/postgres"
	syncengine "github.com/ortalis97/garmin-ai-explorer/internal/sync"
)

var rootCmd = &cobra.Command{
	Use:   "garminsync",
	Short: "Sync Garmin wellness data into Postgres and explore it in natural language",
	Long: `garminsync pulls activities, sleep, and daily wellness summaries from
Garmin Connect into a local Postgres database, incrementally and idempotently,
and lets you ask questions about the data in natural language.`,
	SilenceUsage: true,
}

// ExecuteContext runs the CLI; ctx cancellation aborts in-flight syncs.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// openStore connects to Postgres and ensures the schema exists. The returned
// cleanup closes the pool.
func openStore(ctx context.Context, cfg config.Config) (*postgres.Store, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	store := postgres.New(pool)
	if err := store.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := store.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}

func newEngine(cfg config.Config, store *postgres.Store) (*syncengine.Engine, error) {
	if cfg.GarminEmail == "" || cfg.GarminPassword == "" {
		return nil, fmt.Errorf("GARMIN_EMAIL and GARMIN_PASSWORD must be set")
	}
	source := garmin.New(garmin.Config{
		BaseURL:    cfg.GarminAPIBase,
		Email:      cfg.GarminEmail,
		Password:   cfg.GarminPassword,
		SessionDir: cfg.GarminSessionDir,
		Timeout:    cfg.HTTPTimeout,
		PageSize:   cfg.ActivityPageSize,
	})
	return syncengine.New(source, store, cfg.LookbackDays), nil
}

// parseEntities resolves the --entities flag value. Empty means all entities.
func parseEntities(names []string) ([]domain.Entity, error) {
	if len(names) == 0 {
		return domain.AllEntities(), nil
	}
	entities := make([]domain.Entity, 0, len(names))
	for _, name := range names {
		entity, err := domain.ParseEntity(name)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// parseDateFlag parses a YYYY-MM-DD flag value, returning nil when unset.
func parseDateFlag(value, flag string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q: expected YYYY-MM-DD", flag, value)
	}
	day := domain.Day(parsed)
	return &day, nil
}
