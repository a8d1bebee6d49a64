// cmd/tools/seed-refresh/fetch_test.go
package main

import (
	"context"
	"errors"
	"testing"

	"astroscope/internal/common/logger"
	"astroscope/internal/models"

	"github.com/stretchr/testify/assert"
)

type topicSearcher map[string][]models.LessonRecord

func (t topicSearcher) Search(ctx context.Context, query string) ([]models.LessonRecord, error) {
	if query == "broken" {
		return nil, errors.New("LLIS_REQUEST_FAILED")
	}
	return t[query], nil
}

func TestCollect_DedupesAndSkipsFailures(t *testing.T) {
	s := topicSearcher{
		"Apollo":  {{ID: 1, Title: "A"}, {ID: 2, Title: "B"}},
		"Thermal": {{ID: 2, Title: "B again"}, {ID: 3, Title: "C"}},
	}

	got := collect(context.Background(), s, []string{"Apollo", "broken", "Thermal", "Nothing"}, 0, logger.NewNoOpLogger())

	assert.Len(t, got, 3)
	assert.Equal(t, "B", got[1].Title)
	assert.Equal(t, 3, got[2].ID)
}

func TestCollect_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := topicSearcher{"Apollo": {{ID: 1}}, "Thermal": {{ID: 2}}}

	got := collect(ctx, s, []string{"Apollo", "Thermal"}, 1e9, logger.NewNoOpLogger())

	assert.Len(t, got, 1)
}

func TestDefaultTopics(t *testing.T) {
	assert.Len(t, DefaultTopics, 10)
	assert.Contains(t, DefaultTopics, "Cryogenic Valve Failures")
}
