// internal/workers/lessons/retrieve-lessons/models.go
package retrievelessons

import "astroscope/internal/models"

type Input struct {
	Query string `json:"query"`
}

type Output struct {
	Lessons []models.LessonRecord  `json:"lessons"`
	Source  models.RetrievalSource `json:"source"`
	Total   int                    `json:"total"`
}

const inputSchema = `{
	"type": "object",
	"required": ["query"],
	"properties": {
		"query": {"type": "string", "minLength": 1, "pattern": "\\S"}
	}
}`
