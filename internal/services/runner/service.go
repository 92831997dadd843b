// Package runner orchestrates the backup workflow.
package runner

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dhaller/dockpgdump/internal/models"
	"github.com/dhaller/dockpgdump/internal/services/container"
	"github.com/dhaller/dockpgdump/internal/services/dump"
	"github.com/dhaller/dockpgdump/internal/services/serverconfig"
	"github.com/rs/zerolog"
)

// Service defines the interface for the backup runner.
type Service interface {
	Run(ctx context.Context) error
}

// Impl implements the Service interface.
type Impl struct {
	cfg          models.Config
	containerSvc container.Service
	dumpSvc      dump.Service
	logger       zerolog.Logger
	now          func() time.Time
}

// New creates a new runner service.
func New(logger zerolog.Logger, cfg models.Config) *Impl {
	containerSvc := container.New(logger, cfg.Runtime.Binary)
	configSvc := serverconfig.New(logger, containerSvc, cfg.Runtime.Container, cfg.ServerConfig.Path)
	dumpSvc := dump.New(logger, containerSvc, configSvc, cfg.Runtime.Container, cfg.Backup.Directory)

	return &Impl{
		cfg:          cfg,
		containerSvc: containerSvc,
		dumpSvc:      dumpSvc,
		logger:       logger,
		now:          time.Now,
	}
}

// NewWithServices creates a new runner service with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	cfg models.Config,
	containerSvc container.Service,
	dumpSvc dump.Service,
	now func() time.Time,
) *Impl {
	return &Impl{
		cfg:          cfg,
		containerSvc: containerSvc,
		dumpSvc:      dumpSvc,
		logger:       logger,
		now:          now,
	}
}

// Run executes the backup workflow: pre-flight checks, then one dump per
// configured database prefix, strictly sequentially. A failed or skipped
// database does not stop the remaining ones, but any failure makes Run
// return an error so the process exits non-zero.
func (s *Impl) Run(ctx context.Context) error {
	s.logger.Info().
		Str("container", s.cfg.Runtime.Container).
		Str("backup_dir", s.cfg.Backup.Directory).
		Msg("starting backup run")

	// Pre-flight: backup directory and container state.
	if err := os.MkdirAll(s.cfg.Backup.Directory, 0o750); err != nil {
		return fmt.Errorf("creating backup directory: %w", err)
	}

	running, err := s.containerSvc.Running(ctx, s.cfg.Runtime.Container)
	if err != nil {
		return fmt.Errorf("checking container state: %w", err)
	}
	if !running {
		return fmt.Errorf("container %s is not running", s.cfg.Runtime.Container)
	}

	// One timestamp per run, shared by all databases.
	timestamp := s.now().Format(s.cfg.Backup.TimestampFormat)

	var failed []string
	for _, prefix := range s.cfg.Databases.Prefixes {
		result, err := s.dumpSvc.Dump(ctx, prefix, timestamp)
		if err != nil {
			failed = append(failed, prefix)
			s.logger.Error().Err(err).Str("prefix", prefix).Msg("database dump failed")
			continue
		}

		if result.Error != nil {
			failed = append(failed, prefix)
			if result.Skipped {
				s.logger.Warn().Err(result.Error).Str("prefix", prefix).Msg("database skipped")
			} else {
				s.logger.Error().Err(result.Error).Str("prefix", prefix).Msg("database dump failed")
			}
			continue
		}

		s.logger.Info().
			Str("prefix", prefix).
			Str("database", result.Database).
			Str("output", result.OutputPath).
			Int64("size_bytes", result.SizeBytes).
			Dur("duration", result.Duration).
			Msg("database backed up")
	}

	if len(failed) > 0 {
		return fmt.Errorf("backup failed for: %s", strings.Join(failed, ", "))
	}

	s.logger.Info().Msg("backup run completed successfully")
	return nil
}
