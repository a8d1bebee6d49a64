// internal/workers/ai-conversation/suggest-followups/handler_test.go
package suggestfollowups

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"astroscope/internal/common/logger"
	"astroscope/internal/generator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(gen generator.Generator) *Handler {
	return NewHandler(&Config{
		Timeout:       200 * time.Millisecond,
		MaxExchanges:  3,
		MaxQuestions:  3,
		AnswerPreview: 200,
	}, gen, logger.NewNoOpLogger())
}

func returning(text string) generator.Generator {
	return generator.Func(func(ctx context.Context, prompt string) (string, error) {
		return text, nil
	})
}

var exchanges = []Exchange{
	{Question: "What went wrong with Mars Climate Orbiter?", Answer: "A unit mismatch. Lesson ID: 1002."},
}

func TestSuggestFollowUps(t *testing.T) {
	tests := []struct {
		name string
		gen  generator.Generator
		want []string
	}{
		{
			name: "plain array",
			gen:  returning(`["How are units verified now?", "Which missions adopted SI-only?", "What reviews caught it?"]`),
			want: []string{"How are units verified now?", "Which missions adopted SI-only?", "What reviews caught it?"},
		},
		{
			name: "fenced and too many",
			gen:  returning("```json\n[\"a\", \"b\", \" \", \"c\", \"d\"]\n```"),
			want: []string{"a", "b", "c"},
		},
		{
			name: "not json",
			gen:  returning("1. Ask about units"),
			want: []string{},
		},
		{
			name: "array of objects",
			gen:  returning(`[{"q": "a"}]`),
			want: []string{},
		},
		{
			name: "provider error",
			gen: generator.Func(func(ctx context.Context, prompt string) (string, error) {
				return "", errors.New("boom")
			}),
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newHandler(tt.gen).SuggestFollowUps(context.Background(), exchanges)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSuggestFollowUps_NoExchangesSkipsProvider(t *testing.T) {
	called := false
	gen := generator.Func(func(ctx context.Context, prompt string) (string, error) {
		called = true
		return `["x"]`, nil
	})

	out, err := newHandler(gen).Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.Empty(t, out.Questions)
	assert.False(t, called)
}

func TestBuildPrompt_LastThreeExchangesTruncated(t *testing.T) {
	h := newHandler(generator.Unavailable{})
	long := strings.Repeat("x", 250)
	prompt := h.BuildPrompt([]Exchange{
		{Question: "first", Answer: "dropped"},
		{Question: "second", Answer: long},
		{Question: "third", Answer: "short"},
		{Question: "fourth", Answer: "short"},
	})

	assert.NotContains(t, prompt, "first")
	assert.Contains(t, prompt, "Q1: second")
	assert.Contains(t, prompt, "A1: "+strings.Repeat("x", 200)+"...\n")
	assert.NotContains(t, prompt, strings.Repeat("x", 201))
	assert.Contains(t, prompt, "Q3: fourth")
	assert.Contains(t, prompt, "JSON array")
}
