// internal/models/retrieval.go
package models

// RetrievalSource tags where a RetrievalResult came from.
type RetrievalSource string

const (
	SourceLive  RetrievalSource = "live"
	SourceLocal RetrievalSource = "local"
)

// RetrievalResult is the transient outcome of one lesson search. Total may
// exceed len(Lessons) when the match list was truncated.
type RetrievalResult struct {
	Lessons []LessonRecord  `json:"lessons"`
	Source  RetrievalSource `json:"source"`
	Total   int             `json:"total"`
}

// Answer is a synthesized response with the lesson ids it cites.
type Answer struct {
	Text           string `json:"text"`
	CitedLessonIDs []int  `json:"citedLessonIds"`
	// Fallback is set when the text is the templated degraded answer.
	Fallback bool `json:"fallback"`
}
