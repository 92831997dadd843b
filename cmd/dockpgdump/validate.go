package main

import (
	"fmt"
	"os"

	"github.com/dhaller/dockpgdump/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file without executing any backup operations.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	// Check if file exists
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		log.Error().Str("file", configFile).Msg("config file not found")
		return fmt.Errorf("config file not found: %s", configFile)
	}

	// Load configuration
	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to parse config")
		return err
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	// Print configuration summary
	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  Runtime: %s\n", cfg.Runtime.Binary)
	fmt.Printf("  Container: %s\n", cfg.Runtime.Container)
	fmt.Printf("  Server config: %s\n", cfg.ServerConfig.Path)
	fmt.Println()
	fmt.Println("Backup:")
	fmt.Printf("  Directory: %s\n", cfg.Backup.Directory)
	fmt.Printf("  Timestamp format: %s\n", cfg.Backup.TimestampFormat)
	fmt.Println()
	fmt.Println("Databases:")
	for _, prefix := range cfg.Databases.Prefixes {
		fmt.Printf("  - %s\n", prefix)
	}

	return nil
}
