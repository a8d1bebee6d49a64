// internal/workers/ai-conversation/suggest-followups/models.go
package suggestfollowups

// Exchange is one question and the answer it received.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Input struct {
	Exchanges []Exchange `json:"exchanges"`
}

type Output struct {
	Questions []string `json:"followUpQuestions"`
}

const inputSchema = `{
	"type": "object",
	"required": ["exchanges"],
	"properties": {
		"exchanges": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["question", "answer"],
				"properties": {
					"question": {"type": "string"},
					"answer": {"type": "string"}
				}
			}
		}
	}
}`

const outputSchema = `{"type": "array", "items": {"type": "string"}}`
