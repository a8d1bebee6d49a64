// internal/workers/ai-conversation/sanitize-lessons/models.go
package sanitizelessons

import "astroscope/internal/models"

type Input struct {
	Lessons []models.LessonRecord `json:"lessons"`
}

type Output struct {
	Lessons []models.SanitizedLesson `json:"sanitizedLessons"`
	// Fallback is set when the deterministic mapping was used for every lesson.
	Fallback bool `json:"sanitizeFallback"`
}

const inputSchema = `{
	"type": "object",
	"required": ["lessons"],
	"properties": {
		"lessons": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["lesson_id"],
				"properties": {"lesson_id": {"type": "integer", "minimum": 1}}
			}
		}
	}
}`

// outputSchema is the shape expected back from the provider.
const outputSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["lesson_id"],
		"properties": {
			"lesson_id": {"type": "integer"},
			"title": {"type": "string"},
			"abstract": {"type": "string"},
			"driving_event": {"type": "string"},
			"root_cause": {"type": "string"},
			"recommendation": {"type": "string"},
			"metadata": {
				"type": "object",
				"properties": {
					"mission": {"type": "string"},
					"center": {"type": "string"},
					"date": {"type": "string"},
					"subjects": {"type": "array", "items": {"type": "string"}}
				}
			}
		}
	}
}`
