// Package conversation runs the per-turn question answering state machine:
// retrieve, sanitize, synthesize, with one turn in flight per conversation.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "astroscope/internal/common/errors"
	"astroscope/internal/common/logger"
	"astroscope/internal/common/metrics"
	"astroscope/internal/common/observability"
	"astroscope/internal/models"
	suggestfollowups "astroscope/internal/workers/ai-conversation/suggest-followups"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrBlankQuestion  = errors.New("BLANK_QUESTION")
	ErrTurnInFlight   = errors.New("TURN_IN_FLIGHT")
	ErrLessonNotFound = errors.New("LESSON_NOT_FOUND")
)

// Snapshot is an immutable view of a conversation.
type Snapshot struct {
	ID    string                    `json:"id"`
	Phase models.TurnPhase          `json:"phase"`
	Turns []models.ConversationTurn `json:"turns"`
}

type Conversation struct {
	id       string
	pipeline *Pipeline
	logger   logger.Logger

	mu          sync.Mutex
	turns       []models.ConversationTurn
	phase       models.TurnPhase
	pendingID   string
	subscribers map[int]chan Snapshot
	nextSubID   int
}

func newConversation(id string, p *Pipeline, log logger.Logger) *Conversation {
	return &Conversation{
		id:          id,
		pipeline:    p,
		logger:      log.WithFields(map[string]interface{}{"conversationId": id}),
		turns:       []models.ConversationTurn{},
		phase:       models.PhaseIdle,
		subscribers: make(map[int]chan Snapshot),
	}
}

func (c *Conversation) ID() string { return c.id }

// Submit appends the user turn and a pending assistant placeholder, then runs
// the pipeline in the background under ctx, which must outlive the caller
// when the caller is a request handler. The returned channel is closed once the
// placeholder has been replaced by an answer or an error turn.
func (c *Conversation) Submit(ctx context.Context, question string) (<-chan struct{}, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrBlankQuestion
	}

	c.mu.Lock()
	if c.pendingID != "" {
		c.mu.Unlock()
		return nil, ErrTurnInFlight
	}
	now := time.Now().UTC()
	c.turns = append(c.turns,
		models.ConversationTurn{ID: uuid.NewString(), Role: models.RoleUser, Content: question, Timestamp: now},
	)
	c.pendingID = uuid.NewString()
	c.turns = append(c.turns, models.ConversationTurn{
		ID:        c.pendingID,
		Role:      models.RoleAssistant,
		Timestamp: now,
		IsPending: true,
	})
	c.setPhaseLocked(models.PhaseRetrieving)
	c.publishLocked()
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.run(ctx, question)
	}()
	return done, nil
}

// run drives one turn to done or error. Panics from any stage become a
// generic error turn.
func (c *Conversation) run(ctx context.Context, question string) {
	start := time.Now()
	ctx, span := c.pipeline.Observability.StartSpan(ctx, "conversation.turn",
		attribute.String("conversation.id", c.id))

	var runErr error
	defer func() {
		if r := recover(); r != nil {
			runErr = apperrors.NewPipelineFailedError(fmt.Errorf("panic: %v", r))
			c.logger.Error("pipeline panicked", map[string]interface{}{"panic": fmt.Sprint(r)})
			c.fail(runErr)
		}
		outcome := "done"
		if runErr != nil {
			outcome = string(apperrors.CodeOf(runErr))
		}
		c.pipeline.Observability.RecordRun(ctx, time.Since(start), outcome)
		observability.EndSpan(span, runErr)
	}()

	result := c.retrieve(ctx, question)
	if len(result.Lessons) == 0 {
		runErr = apperrors.NewNoLessonsFoundError(question)
		c.fail(runErr)
		return
	}

	c.setPhase(models.PhaseSanitizing)
	sanitized := c.sanitize(ctx, c.pipeline.contextLessons(result.Lessons))

	c.setPhase(models.PhaseSynthesizing)
	answer := c.synthesize(ctx, question, sanitized)

	c.complete(answer)
}

func (c *Conversation) retrieve(ctx context.Context, question string) models.RetrievalResult {
	ctx, span := c.pipeline.Observability.StartSpan(ctx, "conversation.retrieve")
	defer span.End()

	result := c.pipeline.Retriever.Search(ctx, question)
	span.SetAttributes(
		attribute.String("retrieval.source", string(result.Source)),
		attribute.Int("retrieval.count", len(result.Lessons)),
	)
	c.logger.Info("lessons retrieved", map[string]interface{}{
		"source": result.Source,
		"count":  len(result.Lessons),
		"total":  result.Total,
	})
	return result
}

func (c *Conversation) sanitize(ctx context.Context, records []models.LessonRecord) []models.SanitizedLesson {
	ctx, span := c.pipeline.Observability.StartSpan(ctx, "conversation.sanitize",
		attribute.Int("lessons", len(records)))
	defer span.End()

	return c.pipeline.Sanitizer.Sanitize(ctx, records)
}

func (c *Conversation) synthesize(ctx context.Context, question string, lessons []models.SanitizedLesson) models.Answer {
	ctx, span := c.pipeline.Observability.StartSpan(ctx, "conversation.synthesize")
	defer span.End()

	answer := c.pipeline.Synthesizer.Answer(ctx, question, lessons)
	span.SetAttributes(
		attribute.Bool("synthesis.fallback", answer.Fallback),
		attribute.Int("synthesis.citations", len(answer.CitedLessonIDs)),
	)
	return answer
}

func (c *Conversation) complete(answer models.Answer) {
	kind := "answer"
	if answer.Fallback {
		kind = "degraded"
	}
	metrics.TurnsTotal.WithLabelValues(kind).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.removePendingLocked()
	c.turns = append(c.turns, models.ConversationTurn{
		ID:             uuid.NewString(),
		Role:           models.RoleAssistant,
		Content:        answer.Text,
		Timestamp:      time.Now().UTC(),
		CitedLessonIDs: answer.CitedLessonIDs,
		Degraded:       answer.Fallback,
	})
	c.setPhaseLocked(models.PhaseDone)
	c.publishLocked()
}

func (c *Conversation) fail(err error) {
	metrics.TurnsTotal.WithLabelValues("error").Inc()
	c.logger.Warn("turn ended with error", map[string]interface{}{
		"errorCode": apperrors.CodeOf(err),
		"error":     err.Error(),
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	c.removePendingLocked()
	c.turns = append(c.turns, models.ConversationTurn{
		ID:        uuid.NewString(),
		Role:      models.RoleAssistant,
		Content:   apperrors.UserMessage(err),
		Timestamp: time.Now().UTC(),
		IsError:   true,
	})
	c.setPhaseLocked(models.PhaseError)
	c.publishLocked()
}

// removePendingLocked drops the placeholder turn. Turns are never edited in
// place.
func (c *Conversation) removePendingLocked() {
	if c.pendingID == "" {
		return
	}
	kept := c.turns[:0:0]
	for _, t := range c.turns {
		if t.ID != c.pendingID {
			kept = append(kept, t)
		}
	}
	c.turns = kept
	c.pendingID = ""
}

func (c *Conversation) setPhase(p models.TurnPhase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setPhaseLocked(p)
	c.publishLocked()
}

func (c *Conversation) setPhaseLocked(p models.TurnPhase) {
	c.logger.Debug("turn phase changed", map[string]interface{}{"from": c.phase, "to": p})
	c.phase = p
}

// Phase reports the state of the current or last turn.
func (c *Conversation) Phase() models.TurnPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// InFlight reports whether a turn is being processed.
func (c *Conversation) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingID != ""
}

// Turns returns a copy of the ordered turn list.
func (c *Conversation) Turns() []models.ConversationTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyTurnsLocked()
}

func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Conversation) snapshotLocked() Snapshot {
	return Snapshot{ID: c.id, Phase: c.phase, Turns: c.copyTurnsLocked()}
}

func (c *Conversation) copyTurnsLocked() []models.ConversationTurn {
	out := make([]models.ConversationTurn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Subscribe returns a channel receiving a snapshot after every change,
// starting with the current state. Slow subscribers only see the latest
// snapshot. Call cancel to stop receiving.
func (c *Conversation) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (c *Conversation) publishLocked() {
	if len(c.subscribers) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for _, ch := range c.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// LookupLesson resolves a cited lesson id against the local corpus.
func (c *Conversation) LookupLesson(id int) (models.LessonRecord, bool) {
	return c.pipeline.Lessons.ByID(id)
}

// ShowLesson appends an assistant turn describing the lesson.
func (c *Conversation) ShowLesson(id int) (models.LessonRecord, error) {
	lesson, ok := c.LookupLesson(id)
	if !ok {
		return models.LessonRecord{}, ErrLessonNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, models.ConversationTurn{
		ID:        uuid.NewString(),
		Role:      models.RoleAssistant,
		Content:   LessonDetail(lesson),
		Timestamp: time.Now().UTC(),
	})
	metrics.TurnsTotal.WithLabelValues("lesson_detail").Inc()
	c.publishLocked()
	return lesson, nil
}

// LessonDetail renders a lesson as a markdown message.
func LessonDetail(l models.LessonRecord) string {
	return fmt.Sprintf("**Lesson %d: %s**\n\n%s\n\n**Mission:** %s\n**Center:** %s",
		l.ID, l.Title, l.Abstract, orNA(l.Mission), orNA(l.Center))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// FollowUps suggests next questions from the answered exchanges so far.
func (c *Conversation) FollowUps(ctx context.Context) []string {
	if c.pipeline.FollowUps == nil {
		return []string{}
	}
	return c.pipeline.FollowUps.SuggestFollowUps(ctx, Exchanges(c.Turns()))
}

// Exchanges pairs each user turn with the answer that directly follows it.
// Error, pending and lesson detail turns are skipped.
func Exchanges(turns []models.ConversationTurn) []suggestfollowups.Exchange {
	var out []suggestfollowups.Exchange
	for i := 0; i+1 < len(turns); i++ {
		q, a := turns[i], turns[i+1]
		if q.Role != models.RoleUser || a.Role != models.RoleAssistant || a.IsPending || a.IsError {
			continue
		}
		out = append(out, suggestfollowups.Exchange{Question: q.Content, Answer: a.Content})
	}
	return out
}
