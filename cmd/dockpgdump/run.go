package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dhaller/dockpgdump/internal/config"
	"github.com/dhaller/dockpgdump/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the backup workflow",
	Long: `Execute the complete backup workflow:
1. Create the backup directory (if needed)
2. Check the target container is running
3. For each configured database: read credentials from the server config
   inside the container, run pg_dump via the container runtime, compress
   the output to <database>_<timestamp>.sql.gz

A database with missing credentials is skipped; a failed dump is logged and
its partial output removed. Any skipped or failed database makes the command
exit non-zero after the remaining databases were attempted.`,
	RunE: runBackup,
}

func runBackup(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	// Load configuration
	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return err
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return err
	}

	log.Info().
		Str("config", configFile).
		Str("container", cfg.Runtime.Container).
		Str("backup_dir", cfg.Backup.Directory).
		Msg("configuration loaded")

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	// Run backup
	runnerSvc := runner.New(log.Logger, *cfg)
	if err := runnerSvc.Run(ctx); err != nil {
		log.Error().Err(err).Msg("backup failed")
		return err
	}

	log.Info().Msg("backup completed successfully")
	return nil
}
