// Package models contains the data structures used throughout dockpgdump.
package models

// Config holds the complete host-side configuration for a backup run.
type Config struct {
	Runtime      RuntimeConfig
	ServerConfig ServerConfigSettings
	Backup       BackupSettings
	Databases    DatabaseSettings
}

// RuntimeConfig identifies the container runtime and the target container.
type RuntimeConfig struct {
	Binary    string // "docker" (default) or "podman"
	Container string
}

// ServerConfigSettings locates the application server's configuration file
// inside the container.
type ServerConfigSettings struct {
	Path string
}

// BackupSettings holds host-side output settings.
type BackupSettings struct {
	Directory       string
	TimestampFormat string
}

// DatabaseSettings lists the config key prefixes, one per logical database.
type DatabaseSettings struct {
	Prefixes []string
}
