// internal/llis/client.go
package llis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"astroscope/internal/common/config"
	apperrors "astroscope/internal/common/errors"
	"astroscope/internal/common/logger"
	"astroscope/internal/models"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Client queries the live Lessons Learned search endpoint.
type Client struct {
	transport  esapi.Transport
	index      string
	maxResults int
	excludes   []string
	logger     logger.Logger
}

func NewClient(cfg config.LLISConfig, transport esapi.Transport, log logger.Logger) *Client {
	return &Client{
		transport:  transport,
		index:      cfg.Index,
		maxResults: cfg.MaxResults,
		excludes:   cfg.ExcludedFields,
		logger:     log.WithFields(map[string]interface{}{"component": "llis"}),
	}
}

// BuildQuery renders the search request body.
func BuildQuery(query string, size int, excludes []string) ([]byte, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"query_string": map[string]interface{}{"query": query},
		},
		"size": size,
		"from": 0,
	}
	if len(excludes) > 0 {
		body["_source"] = map[string]interface{}{"excludes": excludes}
	}
	return json.Marshal(body)
}

// Search issues one search request and returns the normalized hits. Errors
// are StandardErrors carrying LLIS_TIMEOUT, LLIS_REQUEST_FAILED or
// LLIS_EMPTY_RESULT. The request is aborted when ctx ends.
func (c *Client) Search(ctx context.Context, query string) ([]models.LessonRecord, error) {
	body, err := BuildQuery(query, c.maxResults, c.excludes)
	if err != nil {
		return nil, apperrors.NewLLISRequestFailedError(err)
	}

	start := time.Now()
	req := esapi.SearchRequest{
		Index: []string{c.index},
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, c.transport)
	if err != nil {
		return nil, c.classify(ctx, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewLLISRequestFailedError(fmt.Errorf("search returned status %d", res.StatusCode))
	}

	var doc Document
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, c.classify(ctx, fmt.Errorf("decode search response: %w", err))
	}

	records := NormalizeHits(doc)
	c.logger.Debug("live search completed", map[string]interface{}{
		"status":     res.StatusCode,
		"count":      len(records),
		"durationMs": time.Since(start).Milliseconds(),
	})

	if len(records) == 0 {
		return nil, apperrors.NewLLISEmptyResultError()
	}
	return records, nil
}

func (c *Client) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return apperrors.NewLLISTimeoutError(err)
	}
	return apperrors.ClassifyTimeout(err, apperrors.NewLLISTimeoutError, apperrors.NewLLISRequestFailedError)
}
