package main

import (
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/sandevgo/parley/internal/config"
	"github.com/sandevgo/parley/pkg/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:          "migrate",
	Short:        "Apply memory store migrations",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		logger := log.FromCtx(ctx)
		if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
			logger.Fatal().Err(err).Msg("failed to init env")
		}

		appCfg := config.NewAppConfig(ctx)
		memCfg := config.NewMemoryConfig(ctx)

		// Opening a backend applies its pending migrations.
		db, _, err := initStorage(ctx, appCfg, memCfg)
		if err != nil {
			return err
		}
		if db == nil {
			logger.Info().Msg("memory backend is disabled, nothing to migrate")
			return nil
		}
		defer db.Close()

		version, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		logger.Info().Str("backend", memCfg.Backend).Int64("version", version).Msg("memory store is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
