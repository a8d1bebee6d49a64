// internal/workers/lessons/retrieve-lessons/handler_test.go
package retrievelessons

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"astroscope/internal/common/config"
	"astroscope/internal/common/database"
	apperrors "astroscope/internal/common/errors"
	"astroscope/internal/common/logger"
	"astroscope/internal/lessonstore"
	"astroscope/internal/llis"
	"astroscope/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Doubles
// ==========================

type fakeLive struct {
	records []models.LessonRecord
	err     error
	delay   time.Duration
	panics  bool
	calls   int
}

func (f *fakeLive) Search(ctx context.Context, query string) ([]models.LessonRecord, error) {
	f.calls++
	if f.panics {
		panic("unexpected document shape")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.records, f.err
}

func testConfig() *Config {
	return &Config{
		LiveTimeout: 200 * time.Millisecond,
		MaxResults:  10,
		CacheTTL:    time.Minute,
		CachePrefix: "astroscope:lessons:",
	}
}

func seedStore(t *testing.T) *lessonstore.Store {
	t.Helper()
	s, err := lessonstore.LoadEmbedded()
	require.NoError(t, err)
	return s
}

var liveRecords = []models.LessonRecord{
	{ID: 9001, Title: "Cryogenic Umbilical Leak", Mission: "Artemis"},
	{ID: 9002, Title: "Valve Icing on Pad 39B", Mission: "SLS"},
}

// ==========================
// Live / Fallback
// ==========================

func TestSearch_LiveSuccess(t *testing.T) {
	live := &fakeLive{records: liveRecords}
	h := NewHandler(testConfig(), live, seedStore(t), nil, logger.NewTestLogger(t))

	res := h.Search(context.Background(), "cryogenic valve")
	assert.Equal(t, models.SourceLive, res.Source)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 9001, res.Lessons[0].ID)
}

func TestSearch_TruncatesLiveResults(t *testing.T) {
	var many []models.LessonRecord
	for i := 1; i <= 15; i++ {
		many = append(many, models.LessonRecord{ID: i, Title: "x"})
	}
	h := NewHandler(testConfig(), &fakeLive{records: many}, seedStore(t), nil, logger.NewNoOpLogger())

	res := h.Search(context.Background(), "x")
	assert.Len(t, res.Lessons, 10)
	assert.Equal(t, 15, res.Total)
}

func TestSearch_FallsBackToLocal(t *testing.T) {
	tests := []struct {
		name string
		live LiveSearcher
	}{
		{"live error", &fakeLive{err: apperrors.NewLLISRequestFailedError(errors.New("502"))}},
		{"plain error", &fakeLive{err: errors.New("dns failure")}},
		{"empty result", &fakeLive{records: nil}},
		{"slow live", &fakeLive{records: liveRecords, delay: 2 * time.Second}},
		{"panicking live", &fakeLive{panics: true}},
		{"no live configured", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(testConfig(), tt.live, seedStore(t), nil, logger.NewTestLogger(t))

			start := time.Now()
			res := h.Search(context.Background(), "Tell me about cryogenic valve failures")
			assert.Less(t, time.Since(start), time.Second)

			assert.Equal(t, models.SourceLocal, res.Source)
			require.Len(t, res.Lessons, 1)
			assert.Equal(t, 3002, res.Lessons[0].ID)
			assert.Equal(t, 1, res.Total)
		})
	}
}

func TestSearch_LocalMissIsEmptyNotError(t *testing.T) {
	h := NewHandler(testConfig(), &fakeLive{err: errors.New("down")}, seedStore(t), nil, logger.NewNoOpLogger())

	res := h.Search(context.Background(), "quasar plumbing")
	assert.Equal(t, models.SourceLocal, res.Source)
	assert.NotNil(t, res.Lessons)
	assert.Empty(t, res.Lessons)
	assert.Equal(t, 0, res.Total)
}

func TestSearch_RealClientAgainstBrokenEndpoints(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"500", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"hits":`)) }},
		{"hangs", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(3 * time.Second):
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			llisCfg := config.LLISConfig{URL: server.URL + "/llis", Index: "lesson", MaxResults: 10}
			tp, err := database.NewLLISTransport(llisCfg, nil)
			require.NoError(t, err)
			client := llis.NewClient(llisCfg, tp, logger.NewNoOpLogger())

			h := NewHandler(testConfig(), client, seedStore(t), nil, logger.NewTestLogger(t))
			res := h.Search(context.Background(), "asteroid")
			assert.Equal(t, models.SourceLocal, res.Source)
			require.Len(t, res.Lessons, 1)
			assert.Equal(t, 5001, res.Lessons[0].ID)
		})
	}
}

// ==========================
// Cache
// ==========================

func TestSearch_CachesLiveResults(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	live := &fakeLive{records: liveRecords}
	h := NewHandler(testConfig(), live, seedStore(t), rdb, logger.NewTestLogger(t))

	first := h.Search(context.Background(), "Cryogenic  Valve")
	second := h.Search(context.Background(), "cryogenic valve")

	assert.Equal(t, 1, live.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, models.SourceLive, second.Source)

	raw, err := mr.Get("astroscope:lessons:cryogenic valve")
	require.NoError(t, err)
	var cached models.RetrievalResult
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Len(t, cached.Lessons, 2)
	assert.Greater(t, mr.TTL("astroscope:lessons:cryogenic valve"), time.Duration(0))
}

func TestSearch_DoesNotCacheLocalResults(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	h := NewHandler(testConfig(), &fakeLive{err: errors.New("down")}, seedStore(t), rdb, logger.NewNoOpLogger())
	res := h.Search(context.Background(), "asteroid")

	assert.Equal(t, models.SourceLocal, res.Source)
	assert.Empty(t, mr.Keys())
}

func TestSearch_CacheErrorsAreIgnored(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("astroscope:lessons:cryogenic").SetErr(errors.New("READONLY"))

	live := &fakeLive{records: liveRecords}
	h := NewHandler(testConfig(), live, seedStore(t), rdb, logger.NewTestLogger(t))

	res := h.Search(context.Background(), "cryogenic")
	assert.Equal(t, models.SourceLive, res.Source)
	assert.Equal(t, 1, live.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Execute
// ==========================

func TestExecute_RejectsBlankQuery(t *testing.T) {
	h := NewHandler(testConfig(), nil, seedStore(t), nil, logger.NewNoOpLogger())

	_, err := h.Execute(context.Background(), &Input{Query: "   "})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))

	out, err := h.Execute(context.Background(), &Input{Query: "asteroid"})
	require.NoError(t, err)
	assert.Equal(t, models.SourceLocal, out.Source)
}

func TestLoadConfig(t *testing.T) {
	cfg := LoadConfig(&config.Config{
		LLIS:     config.LLISConfig{Timeout: 3000, MaxResults: 10},
		Pipeline: config.PipelineConfig{CacheTTL: 600000},
	})
	assert.Equal(t, 3*time.Second, cfg.LiveTimeout)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
}
