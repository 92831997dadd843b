// Package dump performs a single database dump through the container runtime.
package dump

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhaller/dockpgdump/internal/models"
	"github.com/dhaller/dockpgdump/internal/services/container"
	"github.com/dhaller/dockpgdump/internal/services/serverconfig"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
)

// Config key suffixes within a database prefix.
const (
	keyUser        = "user"
	keyPassword    = "password"
	keyName        = "name"
	keyHost        = "host"
	keyPort        = "port"
	keySSL         = "ssl"
	keySSLRootCert = "ssl-root-cert"
)

// Defaults applied when the server config omits host or port.
const (
	defaultHost = "localhost"
	defaultPort = "5432"
)

// Service defines the interface for database dump operations.
type Service interface {
	Dump(ctx context.Context, prefix, timestamp string) (*models.DumpResult, error)
}

// Impl implements the Service interface.
type Impl struct {
	containerSvc  container.Service
	configSvc     serverconfig.Service
	containerName string
	backupDir     string
	logger        zerolog.Logger
}

// New creates a new dump service.
func New(
	logger zerolog.Logger,
	containerSvc container.Service,
	configSvc serverconfig.Service,
	containerName string,
	backupDir string,
) *Impl {
	return &Impl{
		containerSvc:  containerSvc,
		configSvc:     configSvc,
		containerName: containerName,
		backupDir:     backupDir,
		logger:        logger,
	}
}

// Dump backs up the database identified by prefix into the backup directory
// as <name>_<timestamp>.sql.gz. Dump failures are reported inside the result,
// with the partial output file removed.
func (s *Impl) Dump(ctx context.Context, prefix, timestamp string) (*models.DumpResult, error) {
	start := time.Now()
	result := &models.DumpResult{Prefix: prefix}

	params := s.readParams(ctx, prefix)

	if missing := missingKeys(params); len(missing) > 0 {
		s.logger.Warn().
			Str("prefix", prefix).
			Strs("missing", missing).
			Msg("skipping database, required config values missing")

		result.Skipped = true
		result.Error = fmt.Errorf("missing required config values: %s", strings.Join(missing, ", "))
		result.Duration = time.Since(start)
		return result, nil
	}

	result.Database = params.Name

	env := s.buildEnv(ctx, prefix, params)

	outputPath := filepath.Join(s.backupDir, fmt.Sprintf("%s_%s.sql.gz", params.Name, timestamp))
	result.OutputPath = outputPath

	s.logger.Info().
		Str("database", params.Name).
		Str("output", outputPath).
		Msg("starting database dump")

	if err := s.dumpToFile(ctx, env, outputPath); err != nil {
		// Clean up partial file
		_ = os.Remove(outputPath)
		result.Error = err
		result.Duration = time.Since(start)
		return result, nil //nolint:nilerr // error is stored in result struct by design
	}

	if info, err := os.Stat(outputPath); err == nil {
		result.SizeBytes = info.Size()
	}
	result.Duration = time.Since(start)

	s.logger.Info().
		Str("database", params.Name).
		Str("output", outputPath).
		Int64("size_bytes", result.SizeBytes).
		Dur("duration", result.Duration).
		Msg("database dump completed")

	return result, nil
}

// readParams reads the connection settings for one prefix. Each lookup
// re-reads the server config file; values are never cached.
func (s *Impl) readParams(ctx context.Context, prefix string) models.DatabaseParams {
	lookup := func(suffix string) string {
		return s.configSvc.Lookup(ctx, prefix+"."+suffix)
	}

	return models.DatabaseParams{
		Username: lookup(keyUser),
		Password: lookup(keyPassword),
		Name:     lookup(keyName),
		Host:     lookup(keyHost),
		Port:     lookup(keyPort),
		SSL:      lookup(keySSL),
	}
}

func missingKeys(p models.DatabaseParams) []string {
	var missing []string
	if p.Username == "" {
		missing = append(missing, keyUser)
	}
	if p.Password == "" {
		missing = append(missing, keyPassword)
	}
	if p.Name == "" {
		missing = append(missing, keyName)
	}
	return missing
}

// buildEnv constructs the PG* environment for the in-container pg_dump. The
// root certificate is only looked up when the ssl flag is set to "1".
func (s *Impl) buildEnv(ctx context.Context, prefix string, p models.DatabaseParams) []string {
	host := p.Host
	if host == "" {
		host = defaultHost
	}
	port := p.Port
	if port == "" {
		port = defaultPort
	}

	env := []string{
		fmt.Sprintf("PGUSER=%s", p.Username),
		fmt.Sprintf("PGPASSWORD=%s", p.Password),
		fmt.Sprintf("PGDATABASE=%s", p.Name),
		fmt.Sprintf("PGHOST=%s", host),
		fmt.Sprintf("PGPORT=%s", port),
	}

	if p.SSL == "1" {
		rootCert := s.configSvc.Lookup(ctx, prefix+"."+keySSLRootCert)
		if rootCert != "" {
			env = append(env, "PGSSLMODE=verify-ca", fmt.Sprintf("PGSSLROOTCERT=%s", rootCert))
		} else {
			s.logger.Warn().
				Str("prefix", prefix).
				Msg("ssl enabled but no root cert configured, falling back to sslmode=require")
			env = append(env, "PGSSLMODE=require")
		}
	}

	return env
}

// dumpToFile streams pg_dump output through gzip onto path. The dump counts
// as failed if either the command or the compressed write fails.
func (s *Impl) dumpToFile(ctx context.Context, env []string, path string) error {
	output, err := os.Create(path) //nolint:gosec // path is controlled by caller
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}

	gz := gzip.NewWriter(output)

	execErr := s.containerSvc.ExecToWriter(ctx, s.containerName, env, gz, "pg_dump")
	gzErr := gz.Close()
	closeErr := output.Close()

	if execErr != nil {
		return fmt.Errorf("pg_dump failed: %w", execErr)
	}
	if gzErr != nil {
		return fmt.Errorf("compressing dump: %w", gzErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing output file: %w", closeErr)
	}

	return nil
}
