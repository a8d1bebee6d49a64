// internal/workers/ai-conversation/synthesize-answer/models.go
package synthesizeanswer

import "astroscope/internal/models"

type Input struct {
	Question string                   `json:"question"`
	Lessons  []models.SanitizedLesson `json:"sanitizedLessons"`
}

type Output struct {
	Answer         string `json:"answer"`
	CitedLessonIDs []int  `json:"citedLessonIds"`
	Fallback       bool   `json:"synthesisFallback"`
}

const inputSchema = `{
	"type": "object",
	"required": ["question", "sanitizedLessons"],
	"properties": {
		"question": {"type": "string", "minLength": 1},
		"sanitizedLessons": {"type": "array"}
	}
}`
