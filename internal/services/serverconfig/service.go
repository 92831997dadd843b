// Package serverconfig reads scalar values from the application server's
// configuration file inside the container.
package serverconfig

import (
	"context"
	"strings"

	"github.com/dhaller/dockpgdump/internal/services/container"
	"github.com/rs/zerolog"
)

// Service defines the interface for server config lookups.
type Service interface {
	Lookup(ctx context.Context, key string) string
}

// Impl implements the Service interface.
type Impl struct {
	containerSvc  container.Service
	containerName string
	path          string
	logger        zerolog.Logger
}

// New creates a new server config reader.
func New(logger zerolog.Logger, containerSvc container.Service, containerName, path string) *Impl {
	return &Impl{
		containerSvc:  containerSvc,
		containerName: containerName,
		path:          path,
		logger:        logger,
	}
}

// Lookup returns the value for key from the server config file, re-reading
// the file on every call. It returns "" when the key is absent or the file
// cannot be read; callers cannot distinguish the two cases.
func (s *Impl) Lookup(ctx context.Context, key string) string {
	content, err := s.containerSvc.ReadFile(ctx, s.containerName, s.path)
	if err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("server config read failed")
		return ""
	}

	return extractValue(string(content), key)
}

// extractValue finds the first line beginning with "<key> " and returns the
// text after the first " = " separator.
func extractValue(content, key string) string {
	for _, line := range strings.Split(content, "\n") {
		if !strings.HasPrefix(line, key+" ") {
			continue
		}

		_, value, found := strings.Cut(line, " = ")
		if !found {
			return ""
		}
		return strings.TrimSpace(value)
	}

	return ""
}
