package models

import "time"

// DatabaseParams holds the connection parameters read from the server config
// file for one database prefix. All values are kept as the raw strings found
// in the file.
type DatabaseParams struct {
	Username string
	Password string
	Name     string
	Host     string
	Port     string
	SSL      string // "1" means TLS is enabled
}

// DumpResult holds the result of one database dump.
type DumpResult struct {
	Prefix     string
	Database   string
	OutputPath string
	SizeBytes  int64
	Duration   time.Duration
	Skipped    bool // required config values were missing, pg_dump never ran
	Error      error
}
