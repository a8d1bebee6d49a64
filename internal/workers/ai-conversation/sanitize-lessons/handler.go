// internal/workers/ai-conversation/sanitize-lessons/handler.go
package sanitizelessons

import (
	"context"
	"encoding/json"
	"fmt"
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
	TaskType = "sanitize-lessons"
)

var (
	inputValidator  = validation.MustCompile(TaskType+"-input", inputSchema)
	outputValidator = validation.MustCompile(TaskType+"-output", outputSchema)
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
	if res, err := inputValidator.Validate(input); err != nil || !res.Valid {
		details := "invalid lessons"
		if err != nil {
			details = err.Error()
		} else if verr := res.Err(); verr != nil {
			details = verr.Error()
		}
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewInvalidInputError(details))
		return
	}

	output := h.execute(ctx, &input)
	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.Key, "error": err})
	}
}

// Sanitize returns exactly one SanitizedLesson per record, in order, with the
// record's id. It never fails.
func (h *Handler) Sanitize(ctx context.Context, records []models.LessonRecord) []models.SanitizedLesson {
	return h.execute(ctx, &Input{Lessons: records}).Lessons
}

func (h *Handler) execute(ctx context.Context, input *Input) *Output {
	records := input.Lessons
	if len(records) == 0 {
		return &Output{Lessons: []models.SanitizedLesson{}}
	}

	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("sanitize").Observe(time.Since(start).Seconds())
	}()

	text, err := generator.GenerateWithin(ctx, h.generator, BuildPrompt(records), h.config.Timeout)
	if err != nil {
		return h.fallback(records, err)
	}

	parsed, err := parse(text)
	if err != nil {
		return h.fallback(records, err)
	}

	lessons, fromProvider := merge(records, parsed)
	if fromProvider == 0 {
		return h.fallback(records, apperrors.NewGenerationMalformedOutputError(fmt.Errorf("no entry matched an input lesson id")))
	}

	h.logger.Info("lessons sanitized", map[string]interface{}{
		"count":        len(lessons),
		"fromProvider": fromProvider,
		"durationMs":   time.Since(start).Milliseconds(),
	})
	return &Output{Lessons: lessons}
}

func (h *Handler) fallback(records []models.LessonRecord, cause error) *Output {
	reason := string(apperrors.CodeOf(cause))
	if reason == "" {
		reason = string(apperrors.ErrCodeGenerationFailed)
	}
	metrics.StageFallbacksTotal.WithLabelValues("sanitize", reason).Inc()
	h.logger.Warn("sanitization fell back to deterministic mapping", map[string]interface{}{
		"reason": reason,
		"error":  cause.Error(),
		"count":  len(records),
	})

	out := make([]models.SanitizedLesson, len(records))
	for i, r := range records {
		out[i] = MapDeterministic(r)
	}
	return &Output{Lessons: out, Fallback: true}
}

// parse strips code fences and decodes the provider's JSON array.
func parse(text string) ([]models.SanitizedLesson, error) {
	raw := []byte(generator.StripCodeFences(text))

	res, err := outputValidator.ValidateJSON(raw)
	if err != nil {
		return nil, apperrors.NewGenerationMalformedOutputError(err)
	}
	if err := res.Err(); err != nil {
		return nil, apperrors.NewGenerationMalformedOutputError(err)
	}

	var lessons []models.SanitizedLesson
	if err := json.Unmarshal(raw, &lessons); err != nil {
		return nil, apperrors.NewGenerationMalformedOutputError(err)
	}
	return lessons, nil
}

// merge pairs provider output with the inputs by lesson id. Inputs the
// provider skipped get the deterministic mapping; ids the provider invented
// are dropped.
func merge(records []models.LessonRecord, parsed []models.SanitizedLesson) ([]models.SanitizedLesson, int) {
	byID := make(map[int]models.SanitizedLesson, len(parsed))
	for _, p := range parsed {
		if _, seen := byID[p.LessonID]; !seen {
			byID[p.LessonID] = p
		}
	}

	out := make([]models.SanitizedLesson, len(records))
	fromProvider := 0
	for i, r := range records {
		p, ok := byID[r.ID]
		if !ok {
			out[i] = MapDeterministic(r)
			continue
		}
		fromProvider++
		if strings.TrimSpace(p.Title) == "" {
			p.Title = r.Title
		}
		out[i] = p
	}
	return out, fromProvider
}

// MapDeterministic converts a record field for field, without the provider.
func MapDeterministic(r models.LessonRecord) models.SanitizedLesson {
	return models.SanitizedLesson{
		LessonID:       r.ID,
		Title:          r.Title,
		Abstract:       r.Abstract,
		DrivingEvent:   r.DrivingEvent,
		RootCause:      r.Lesson,
		Recommendation: r.Recommendation,
		Metadata: models.LessonMetadata{
			Mission:  r.Mission,
			Center:   r.Center,
			Date:     r.LessonDate,
			Subjects: r.Subjects(),
		},
	}
}

// BuildPrompt renders the sanitization prompt for all records at once.
func BuildPrompt(records []models.LessonRecord) string {
	var parts []string

	parts = append(parts, "You are a NASA mission intelligence data processor. Extract key information from these NASA Lessons Learned reports.")
	parts = append(parts, "\nINPUT DATA:")
	for i, r := range records {
		parts = append(parts, fmt.Sprintf("\nLESSON %d (ID: %d):", i+1, r.ID))
		parts = append(parts, "Title: "+r.Title)
		parts = append(parts, "Abstract: "+r.Abstract)
		parts = append(parts, "Driving Event: "+orNA(r.DrivingEvent))
		parts = append(parts, "Lesson: "+orNA(r.Lesson))
		parts = append(parts, "Recommendation: "+orNA(r.Recommendation))
		parts = append(parts, "---")
	}

	parts = append(parts, "\nTASK: For each lesson, return clean, minimal JSON with this exact structure:")
	parts = append(parts, `[
  {
    "lesson_id": <number>,
    "title": "<clean title>",
    "abstract": "<concise abstract, remove HTML>",
    "driving_event": "<what happened, 1-2 sentences>",
    "root_cause": "<why it happened, 1-2 sentences>",
    "recommendation": "<key recommendation, 1-2 sentences>",
    "metadata": {
      "mission": "<mission name if mentioned>",
      "center": "<NASA center if mentioned>",
      "subjects": [<relevant subject tags>]
    }
  }
]`)
	parts = append(parts, "\nKeep every lesson_id exactly as given. Return ONLY the JSON array, no markdown, no explanation.")

	return strings.Join(parts, "\n")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input), nil
}
