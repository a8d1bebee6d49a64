// internal/workers/ai-conversation/synthesize-answer/handler.go
package synthesizeanswer

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"astroscope/internal/common/camunda"
	apperrors "astroscope/internal/common/errors"
	"astroscope/internal/common/logger"
	"astroscope/internal/common/metrics"
	"astroscope/internal/common/validation"
	"astroscope/internal/generator"
	"astroscope/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "synthesize-answer"
)

var (
	inputValidator = validation.MustCompile(TaskType+"-input", inputSchema)

	citationRe = regexp.MustCompile(`(?i)(?:Lesson\s+)?ID:\s*(\d+)`)
)

type Handler struct {
	config       *Config
	generator    generator.Generator
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, gen generator.Generator, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		generator:    gen,
		errorHandler: apperrors.NewErrorHandler(l),
		logger:       l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx := context.Background()

	var input Input
	if err := camunda.DecodeVariables(job, &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewInvalidInputError(err.Error()))
		return
	}
	if err := h.validateInput(&input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	answer := h.Answer(ctx, input.Question, input.Lessons)
	output := &Output{
		Answer:         answer.Text,
		CitedLessonIDs: answer.CitedLessonIDs,
		Fallback:       answer.Fallback,
	}
	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.Key, "error": err})
	}
}

func (h *Handler) validateInput(input *Input) error {
	if input.Lessons == nil {
		input.Lessons = []models.SanitizedLesson{}
	}
	res, err := inputValidator.Validate(input)
	if err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}
	if verr := res.Err(); verr != nil {
		return apperrors.NewInvalidInputError(verr.Error())
	}
	if strings.TrimSpace(input.Question) == "" {
		return apperrors.NewInvalidInputError("question is required")
	}
	return nil
}

// Answer produces a cited answer grounded in lessons. It never fails: a
// provider error, timeout or blank reply yields the templated fallback.
func (h *Handler) Answer(ctx context.Context, question string, lessons []models.SanitizedLesson) models.Answer {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("synthesize").Observe(time.Since(start).Seconds())
	}()

	text, err := generator.GenerateWithin(ctx, h.generator, BuildPrompt(question, lessons), h.config.Timeout)
	if err != nil {
		reason := string(apperrors.CodeOf(err))
		metrics.StageFallbacksTotal.WithLabelValues("synthesize", reason).Inc()
		h.logger.Warn("synthesis fell back to templated answer", map[string]interface{}{
			"reason":      reason,
			"error":       err.Error(),
			"lessonCount": len(lessons),
		})
		return Fallback(lessons, h.config.MaxFallbackCitations)
	}

	text = strings.TrimSpace(text)
	cited := ExtractCitations(text, models.LessonIDs(lessons))

	h.logger.Info("answer synthesized", map[string]interface{}{
		"citations":  len(cited),
		"length":     len(text),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return models.Answer{Text: text, CitedLessonIDs: cited}
}

// ExtractCitations returns the lesson ids referenced in text as "ID: n" or
// "Lesson ID: n", deduplicated in first-seen order and restricted to allowed.
func ExtractCitations(text string, allowed []int) []int {
	known := make(map[int]bool, len(allowed))
	for _, id := range allowed {
		known[id] = true
	}

	cited := []int{}
	seen := make(map[int]bool)
	for _, m := range citationRe.FindAllStringSubmatch(text, -1) {
		id, err := strconv.Atoi(m[1])
		if err != nil || !known[id] || seen[id] {
			continue
		}
		seen[id] = true
		cited = append(cited, id)
	}
	return cited
}

// Fallback renders the templated answer used when generation fails.
func Fallback(lessons []models.SanitizedLesson, maxCitations int) models.Answer {
	var b strings.Builder
	fmt.Fprintf(&b, "I found %d relevant NASA lessons for your query.", len(lessons))
	if len(lessons) > 0 {
		top := lessons[0]
		mission := top.Metadata.Mission
		if mission == "" {
			mission = "a NASA mission"
		}
		fmt.Fprintf(&b, " The most relevant is \"%s\" from %s.", top.Title, mission)
	}
	b.WriteString(" However, I'm currently unable to provide a detailed analysis. Please try again or rephrase your question.")

	ids := models.LessonIDs(lessons)
	if len(ids) > maxCitations {
		ids = ids[:maxCitations]
	}
	return models.Answer{Text: b.String(), CitedLessonIDs: ids, Fallback: true}
}

// BuildPrompt renders the synthesis prompt: a context block of lessons tagged
// by id followed by the user's question and answering instructions.
func BuildPrompt(question string, lessons []models.SanitizedLesson) string {
	var b strings.Builder

	b.WriteString("You are AstroScope, an elite NASA mission intelligence AI assistant. You help engineers and mission planners learn from past NASA missions.\n\n")
	b.WriteString("CONTEXT - NASA Lessons Learned:\n")
	for i, l := range lessons {
		mission := l.Metadata.Mission
		if mission == "" {
			mission = "Unknown"
		}
		fmt.Fprintf(&b, "\nLESSON %d [ID: %d]\n", i+1, l.LessonID)
		fmt.Fprintf(&b, "Mission: %s\n", mission)
		fmt.Fprintf(&b, "Title: %s\n", l.Title)
		fmt.Fprintf(&b, "What Happened: %s\n", l.DrivingEvent)
		fmt.Fprintf(&b, "Root Cause: %s\n", l.RootCause)
		fmt.Fprintf(&b, "Recommendation: %s\n", l.Recommendation)
		b.WriteString("---\n")
	}

	fmt.Fprintf(&b, "\nUSER QUESTION: %s\n\n", question)
	b.WriteString(`INSTRUCTIONS:
1. Answer the question using ONLY the lessons provided above.
2. When you use a lesson, mention it as "Lesson ID: <lesson_id>".
3. Keep the answer to 2-4 paragraphs.
4. Focus on actionable insights and recommendations.
5. Use a professional, aerospace-engineering tone.
6. If the lessons do not fully answer the question, say so.

Your response:`)

	return b.String()
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := h.validateInput(input); err != nil {
		return nil, err
	}
	answer := h.Answer(ctx, input.Question, input.Lessons)
	return &Output{
		Answer:         answer.Text,
		CitedLessonIDs: answer.CitedLessonIDs,
		Fallback:       answer.Fallback,
	}, nil
}
