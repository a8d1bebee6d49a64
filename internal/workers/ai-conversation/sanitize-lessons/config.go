// internal/workers/ai-conversation/sanitize-lessons/config.go
package sanitizelessons

import (
	"time"

	"astroscope/internal/common/config"
)

type Config struct {
	// Timeout bounds the single generative call.
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout: config.GetDuration(cfg.GenAI.Timeout),
	}
}
