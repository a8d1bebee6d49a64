// internal/conversation/pipeline.go
package conversation

import (
	"context"

	"astroscope/internal/common/observability"
	"astroscope/internal/models"
	suggestfollowups "astroscope/internal/workers/ai-conversation/suggest-followups"
)

// Retriever finds candidate lessons for a question. It never fails.
type Retriever interface {
	Search(ctx context.Context, query string) models.RetrievalResult
}

// Sanitizer returns one SanitizedLesson per record, in order. It never fails.
type Sanitizer interface {
	Sanitize(ctx context.Context, records []models.LessonRecord) []models.SanitizedLesson
}

// Synthesizer answers a question from sanitized lessons. It never fails.
type Synthesizer interface {
	Answer(ctx context.Context, question string, lessons []models.SanitizedLesson) models.Answer
}

// LessonLookup resolves a cited lesson id.
type LessonLookup interface {
	ByID(id int) (models.LessonRecord, bool)
}

// FollowUpSuggester proposes next questions for a conversation.
type FollowUpSuggester interface {
	SuggestFollowUps(ctx context.Context, exchanges []suggestfollowups.Exchange) []string
}

// Pipeline groups the stages shared by every conversation. Build it once and
// hand it to the Manager.
type Pipeline struct {
	Retriever   Retriever
	Sanitizer   Sanitizer
	Synthesizer Synthesizer
	Lessons     LessonLookup
	// FollowUps is optional.
	FollowUps FollowUpSuggester

	// MaxContextLessons caps the records passed to sanitization.
	MaxContextLessons int

	Observability *observability.Observability
}

func (p *Pipeline) contextLessons(records []models.LessonRecord) []models.LessonRecord {
	if p.MaxContextLessons > 0 && len(records) > p.MaxContextLessons {
		return records[:p.MaxContextLessons]
	}
	return records
}
