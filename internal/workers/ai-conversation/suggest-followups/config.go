// internal/workers/ai-conversation/suggest-followups/config.go
package suggestfollowups

import (
	"time"

	"astroscope/internal/common/config"
)

type Config struct {
	Timeout      time.Duration
	MaxExchanges int
	MaxQuestions int
	// AnswerPreview is the number of answer characters quoted per exchange.
	AnswerPreview int
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:       config.GetDuration(cfg.GenAI.Timeout),
		MaxExchanges:  3,
		MaxQuestions:  3,
		AnswerPreview: 200,
	}
}
