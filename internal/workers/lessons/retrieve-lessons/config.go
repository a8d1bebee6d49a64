// internal/workers/lessons/retrieve-lessons/config.go
package retrievelessons

import (
	"time"

	"astroscope/internal/common/config"
)

type Config struct {
	// LiveTimeout bounds the live search call.
	LiveTimeout time.Duration
	MaxResults  int
	// CacheTTL of zero disables the live-result cache.
	CacheTTL    time.Duration
	CachePrefix string
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		LiveTimeout: config.GetDuration(cfg.LLIS.Timeout),
		MaxResults:  cfg.LLIS.MaxResults,
		CacheTTL:    config.GetDuration(cfg.Pipeline.CacheTTL),
		CachePrefix: "astroscope:lessons:",
	}
}
