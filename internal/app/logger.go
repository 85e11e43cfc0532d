package app

import (
	"strings"

	"github.com/mysite19/mysite/pkg/logger"
)

// ConfigureLogging initialises the global logger, defaulting to info.
func ConfigureLogging(level string) error {
	level = strings.TrimSpace(level)
	if level == "" {
		level = "info"
	}
	return logger.Init(level)
}
