// internal/models/conversation.go
package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one entry of a conversation's append-only turn list.
// Pending turns are placeholders; they are removed, never updated in place.
type ConversationTurn struct {
	ID             string    `json:"id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	CitedLessonIDs []int     `json:"citedLessonIds,omitempty"`
	IsPending      bool      `json:"isPending"`
	IsError        bool      `json:"isError,omitempty"`
	Degraded       bool      `json:"degraded,omitempty"`
}

// TurnPhase is the state of the turn currently being processed.
type TurnPhase string

const (
	PhaseIdle         TurnPhase = "idle"
	PhaseRetrieving   TurnPhase = "retrieving"
	PhaseSanitizing   TurnPhase = "sanitizing"
	PhaseSynthesizing TurnPhase = "synthesizing"
	PhaseDone         TurnPhase = "done"
	PhaseError        TurnPhase = "error"
)

// Terminal reports whether no further transition follows this phase.
func (p TurnPhase) Terminal() bool {
	return p == PhaseDone || p == PhaseError
}
