package logging

import (
	"os"
	"strings"

	"github.com/ashendes/neurophoto-storefront/internal/config"
	log "github.com/sirupsen/logrus"
)

// Setup configures the global logrus logger from config. Unknown levels
// fall back to info.
func Setup(cfg config.Log) {
	switch strings.ToLower(cfg.Format) {
	case "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		log.SetFormatter(&log.JSONFormatter{})
	}

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
}
