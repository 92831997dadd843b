// Package config provides configuration file parsing.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/dhaller/dockpgdump/internal/models"
	"github.com/spf13/viper"
)

// DefaultTimestampFormat is the time layout used for backup file names.
const DefaultTimestampFormat = "20060102-150405"

// DefaultPrefixes are the config key namespaces of the application server's
// two logical databases.
var DefaultPrefixes = []string{"database", "report-database"}

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v}
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.Config, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a string (useful for testing).
func (p *Parser) LoadReader(content string) (*models.Config, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

func (p *Parser) parse() (*models.Config, error) {
	cfg := &models.Config{}

	// Parse runtime config (container is required).
	cfg.Runtime = models.RuntimeConfig{
		Binary:    p.v.GetString("runtime.binary"),
		Container: p.expandEnv(p.v.GetString("runtime.container")),
	}

	if cfg.Runtime.Binary == "" {
		cfg.Runtime.Binary = "docker"
	}
	if cfg.Runtime.Container == "" {
		return nil, fmt.Errorf("runtime.container is required")
	}

	// Parse server config location (required).
	cfg.ServerConfig = models.ServerConfigSettings{
		Path: p.expandEnv(p.v.GetString("server_config.path")),
	}

	if cfg.ServerConfig.Path == "" {
		return nil, fmt.Errorf("server_config.path is required")
	}

	// Parse backup settings (directory is required).
	cfg.Backup = models.BackupSettings{
		Directory:       p.expandEnv(p.v.GetString("backup.directory")),
		TimestampFormat: p.v.GetString("backup.timestamp_format"),
	}

	if cfg.Backup.Directory == "" {
		return nil, fmt.Errorf("backup.directory is required")
	}
	if cfg.Backup.TimestampFormat == "" {
		cfg.Backup.TimestampFormat = DefaultTimestampFormat
	}

	// Parse database prefixes, defaulting to the server's two databases.
	cfg.Databases = models.DatabaseSettings{
		Prefixes: p.v.GetStringSlice("databases.prefixes"),
	}

	if len(cfg.Databases.Prefixes) == 0 {
		cfg.Databases.Prefixes = append([]string{}, DefaultPrefixes...)
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if cfg.Runtime.Container == "" {
		return fmt.Errorf("runtime.container is required")
	}

	if cfg.ServerConfig.Path == "" {
		return fmt.Errorf("server_config.path is required")
	}

	if cfg.Backup.Directory == "" {
		return fmt.Errorf("backup.directory is required")
	}

	if len(cfg.Databases.Prefixes) == 0 {
		return fmt.Errorf("databases.prefixes must not be empty")
	}

	return nil
}
