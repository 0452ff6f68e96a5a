package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/carechain/carechain/internal/config"
	"github.com/carechain/carechain/internal/platform/db"
	"github.com/carechain/carechain/internal/platform/recordsource"
)

// openSource connects the record store selected by RECORD_SOURCE. The
// Postgres store applies pending migrations before first use.
func openSource(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (recordsource.Source, error) {
	switch cfg.RecordSource {
	case config.SourceMultiChain:
		mc := recordsource.NewMultiChain(recordsource.MultiChainConfig{
			URL:      cfg.MultiChainURL,
			User:     cfg.MultiChainUser,
			Password: cfg.MultiChainPassword,
			Chain:    cfg.MultiChainChain,
			Timeout:  cfg.MultiChainTimeout,
		}, logger)
		if err := mc.Ping(ctx); err != nil {
			logger.Warn().Err(err).Str("url", cfg.MultiChainURL).Msg("multichain node not reachable yet")
		}
		return mc, nil

	case config.SourceLevelDB:
		return recordsource.OpenLevelDB(cfg.LevelDBPath)

	case config.SourcePostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		n, err := db.NewMigrator(pool, db.Migrations()).Up(ctx)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate record store: %w", err)
		}
		if n > 0 {
			logger.Info().Int("applied", n).Msg("record store migrated")
		}
		return recordsource.NewPostgres(pool), nil
	}
	return nil, fmt.Errorf("unknown record source %q", cfg.RecordSource)
}
