// internal/workers/ai-conversation/synthesize-answer/config.go
package synthesizeanswer

import (
	"time"

	"astroscope/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// MaxFallbackCitations caps the ids attached to a templated answer.
	MaxFallbackCitations int
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:              config.GetDuration(cfg.GenAI.Timeout),
		MaxFallbackCitations: 3,
	}
}
