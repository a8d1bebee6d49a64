// internal/workers/ai-conversation/suggest-followups/handler.go
package suggestfollowups

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"astroscope/internal/common/camunda"
	apperrors "astroscope/internal/common/errors"
	"astroscope/internal/common/logger"
	"astroscope/internal/common/metrics"
	"astroscope/internal/common/validation"
	"astroscope/internal/generator"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "suggest-followups"
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
	if input.Exchanges == nil {
		input.Exchanges = []Exchange{}
	}
	if res, err := inputValidator.Validate(input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewInvalidInputError(err.Error()))
		return
	} else if verr := res.Err(); verr != nil {
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewInvalidInputError(verr.Error()))
		return
	}

	output := &Output{Questions: h.SuggestFollowUps(ctx, input.Exchanges)}
	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.Key, "error": err})
	}
}

// SuggestFollowUps asks the provider for follow-up questions based on the
// most recent exchanges. Any failure yields an empty list.
func (h *Handler) SuggestFollowUps(ctx context.Context, exchanges []Exchange) []string {
	if len(exchanges) == 0 {
		return []string{}
	}

	text, err := generator.GenerateWithin(ctx, h.generator, h.BuildPrompt(exchanges), h.config.Timeout)
	if err != nil {
		return h.none(err)
	}

	raw := []byte(generator.StripCodeFences(text))
	res, err := outputValidator.ValidateJSON(raw)
	if err == nil {
		err = res.Err()
	}
	if err != nil {
		return h.none(apperrors.NewGenerationMalformedOutputError(err))
	}

	var questions []string
	if err := json.Unmarshal(raw, &questions); err != nil {
		return h.none(apperrors.NewGenerationMalformedOutputError(err))
	}

	out := make([]string, 0, h.config.MaxQuestions)
	for _, q := range questions {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		out = append(out, q)
		if len(out) == h.config.MaxQuestions {
			break
		}
	}
	return out
}

func (h *Handler) none(err error) []string {
	reason := string(apperrors.CodeOf(err))
	metrics.StageFallbacksTotal.WithLabelValues("followups", reason).Inc()
	h.logger.Debug("no follow-up suggestions", map[string]interface{}{"reason": reason, "error": err.Error()})
	return []string{}
}

// BuildPrompt quotes the last few exchanges, truncating each answer.
func (h *Handler) BuildPrompt(exchanges []Exchange) string {
	if len(exchanges) > h.config.MaxExchanges {
		exchanges = exchanges[len(exchanges)-h.config.MaxExchanges:]
	}

	var b strings.Builder
	b.WriteString("Based on this NASA mission intelligence conversation, suggest 3 insightful follow-up questions a user might ask:\n\n")
	for i, ex := range exchanges {
		fmt.Fprintf(&b, "Q%d: %s\n", i+1, ex.Question)
		fmt.Fprintf(&b, "A%d: %s...\n\n", i+1, preview(ex.Answer, h.config.AnswerPreview))
	}
	b.WriteString(`Return 3 questions as a JSON array: ["question 1", "question 2", "question 3"]`)
	return b.String()
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return &Output{Questions: h.SuggestFollowUps(ctx, input.Exchanges)}, nil
}
