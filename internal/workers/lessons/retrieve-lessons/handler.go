// internal/workers/lessons/retrieve-lessons/handler.go
package retrievelessons

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"astroscope/internal/common/camunda"
	apperrors "astroscope/internal/common/errors"
	"astroscope/internal/common/logger"
	"astroscope/internal/common/metrics"
	"astroscope/internal/common/validation"
	"astroscope/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "retrieve-lessons"
)

var (
	ErrLivePanicked = errors.New("LIVE_SEARCH_PANIC")
)

var schema = validation.MustCompile(TaskType, inputSchema)

// LiveSearcher is the live lesson search provider.
type LiveSearcher interface {
	Search(ctx context.Context, query string) ([]models.LessonRecord, error)
}

// LocalSearcher is the bundled corpus.
type LocalSearcher interface {
	Search(query string) ([]models.LessonRecord, int)
}

// Handler prefers the live search and falls back to the local corpus.
type Handler struct {
	config       *Config
	live         LiveSearcher
	local        LocalSearcher
	cache        redis.Cmdable
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

// NewHandler builds the retrieval stage. live and cache may be nil.
func NewHandler(config *Config, live LiveSearcher, local LocalSearcher, cache redis.Cmdable, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		live:         live,
		local:        local,
		cache:        cache,
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
	if err := h.decode(job, &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output := h.execute(ctx, &input)
	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.Key, "error": err})
	}
}

func (h *Handler) decode(job entities.Job, input *Input) error {
	if err := camunda.DecodeVariables(job, input); err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}
	res, err := schema.Validate(input)
	if err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}
	if err := res.Err(); err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}
	return nil
}

func (h *Handler) execute(ctx context.Context, input *Input) *Output {
	result := h.Search(ctx, input.Query)
	return &Output{Lessons: result.Lessons, Source: result.Source, Total: result.Total}
}

// Search never fails: any live-path problem (timeout, HTTP error, transport
// error, empty result) falls back to the local corpus.
func (h *Handler) Search(ctx context.Context, query string) models.RetrievalResult {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("retrieve").Observe(time.Since(start).Seconds())
	}()

	key := h.cacheKey(query)
	if cached, ok := h.readCache(ctx, key); ok {
		metrics.RetrievalsTotal.WithLabelValues(string(models.SourceLive)).Inc()
		return cached
	}

	records, err := h.searchLive(ctx, query)
	if err == nil {
		result := h.truncate(records)
		h.writeCache(ctx, key, result)
		metrics.RetrievalsTotal.WithLabelValues(string(models.SourceLive)).Inc()
		h.logger.Info("live search succeeded", map[string]interface{}{
			"count":      len(result.Lessons),
			"total":      result.Total,
			"durationMs": time.Since(start).Milliseconds(),
		})
		return result
	}

	reason := string(apperrors.CodeOf(err))
	if reason == "" {
		reason = string(apperrors.ErrCodeLLISRequestFailed)
	}
	metrics.StageFallbacksTotal.WithLabelValues("retrieve", reason).Inc()
	h.logger.Warn("live search failed, using local corpus", map[string]interface{}{
		"reason": reason,
		"error":  err.Error(),
	})

	lessons, total := h.local.Search(query)
	metrics.RetrievalsTotal.WithLabelValues(string(models.SourceLocal)).Inc()
	return models.RetrievalResult{
		Lessons: nonNil(lessons),
		Source:  models.SourceLocal,
		Total:   total,
	}
}

type liveResult struct {
	records []models.LessonRecord
	err     error
}

// searchLive bounds the live call by LiveTimeout and returns as soon as the
// budget expires; the call's context is cancelled to abort the request.
func (h *Handler) searchLive(ctx context.Context, query string) ([]models.LessonRecord, error) {
	if h.live == nil {
		return nil, apperrors.NewLLISRequestFailedError(errors.New("live search not configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.LiveTimeout)
	defer cancel()

	done := make(chan liveResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- liveResult{err: apperrors.NewLLISRequestFailedError(fmt.Errorf("%w: %v", ErrLivePanicked, r))}
			}
		}()
		records, err := h.live.Search(ctx, query)
		done <- liveResult{records: records, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, apperrors.NewLLISTimeoutError(ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		if len(r.records) == 0 {
			return nil, apperrors.NewLLISEmptyResultError()
		}
		return r.records, nil
	}
}

func (h *Handler) truncate(records []models.LessonRecord) models.RetrievalResult {
	total := len(records)
	if h.config.MaxResults > 0 && len(records) > h.config.MaxResults {
		records = records[:h.config.MaxResults]
	}
	return models.RetrievalResult{Lessons: records, Source: models.SourceLive, Total: total}
}

func (h *Handler) cacheKey(query string) string {
	return h.config.CachePrefix + strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

func (h *Handler) readCache(ctx context.Context, key string) (models.RetrievalResult, bool) {
	if h.cache == nil || h.config.CacheTTL <= 0 {
		return models.RetrievalResult{}, false
	}

	val, err := h.cache.Get(ctx, key).Result()
	if err != nil {
		outcome := "miss"
		if !errors.Is(err, redis.Nil) {
			outcome = "error"
			h.logger.Warn("cache read failed", map[string]interface{}{"error": err.Error()})
		}
		metrics.CacheLookupsTotal.WithLabelValues(outcome).Inc()
		return models.RetrievalResult{}, false
	}

	var result models.RetrievalResult
	if err := json.Unmarshal([]byte(val), &result); err != nil || len(result.Lessons) == 0 {
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		return models.RetrievalResult{}, false
	}
	result.Source = models.SourceLive
	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	h.logger.Debug("cache hit", map[string]interface{}{"key": key, "count": len(result.Lessons)})
	return result, true
}

func (h *Handler) writeCache(ctx context.Context, key string, result models.RetrievalResult) {
	if h.cache == nil || h.config.CacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := h.cache.Set(ctx, key, data, h.config.CacheTTL).Err(); err != nil {
		h.logger.Warn("cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

func nonNil(lessons []models.LessonRecord) []models.LessonRecord {
	if lessons == nil {
		return []models.LessonRecord{}
	}
	return lessons
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, apperrors.NewInvalidInputError("query is required")
	}
	return h.execute(ctx, input), nil
}
