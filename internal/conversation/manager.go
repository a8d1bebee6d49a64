// internal/conversation/manager.go
package conversation

import (
	"sync"

	"astroscope/internal/common/logger"
	"astroscope/internal/common/metrics"
	"astroscope/internal/models"

	"github.com/google/uuid"
)

// Manager holds independent conversations by id. Conversations share the
// pipeline stages but no mutable state.
type Manager struct {
	pipeline *Pipeline
	logger   logger.Logger

	mu            sync.RWMutex
	conversations map[string]*Conversation
}

func NewManager(p *Pipeline, log logger.Logger) *Manager {
	return &Manager{
		pipeline:      p,
		logger:        log,
		conversations: make(map[string]*Conversation),
	}
}

func (m *Manager) Create() *Conversation {
	c := newConversation(uuid.NewString(), m.pipeline, m.logger)

	m.mu.Lock()
	m.conversations[c.id] = c
	n := len(m.conversations)
	m.mu.Unlock()

	metrics.ActiveConversations.Set(float64(n))
	m.logger.Info("conversation created", map[string]interface{}{"conversationId": c.id})
	return c
}

func (m *Manager) Get(id string) (*Conversation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conversations[id]
	return c, ok
}

// Remove forgets a conversation. A turn still in flight finishes unobserved.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	_, ok := m.conversations[id]
	delete(m.conversations, id)
	n := len(m.conversations)
	m.mu.Unlock()

	metrics.ActiveConversations.Set(float64(n))
	return ok
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conversations)
}

// LookupLesson resolves a lesson id without a conversation.
func (m *Manager) LookupLesson(id int) (models.LessonRecord, bool) {
	return m.pipeline.Lessons.ByID(id)
}
