// internal/workers/ai-conversation/sanitize-lessons/handler_test.go
package sanitizelessons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"astroscope/internal/common/config"
	"astroscope/internal/common/logger"
	"astroscope/internal/generator"
	"astroscope/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fixtures
// ==========================

var records = []models.LessonRecord{
	{
		ID:             1001,
		Title:          "Cryogenic Valve Failure During Ground Test",
		Abstract:       "<p>Valve stuck closed at 20 K.</p>",
		DrivingEvent:   "Valve failed to open during chill-down.",
		Lesson:         "Seat material contracted more than predicted.",
		Recommendation: "Qualify seat materials at operating temperature.",
		Mission:        "Space Shuttle",
		Center:         "KSC",
		SubjectPrimary: "Cryogenics",
		LessonDate:     "2004-03-01",
	},
	{
		ID:       1002,
		Title:    "Mars Lander Leg Deployment",
		Abstract: "Premature shutdown from a touchdown sensor transient.",
	},
}

func newHandler(gen generator.Generator) *Handler {
	return NewHandler(&Config{Timeout: 200 * time.Millisecond}, gen, logger.NewNoOpLogger())
}

func returning(text string) generator.Generator {
	return generator.Func(func(ctx context.Context, prompt string) (string, error) {
		return text, nil
	})
}

// ==========================
// Provider Output
// ==========================

func TestSanitize_UsesProviderOutput(t *testing.T) {
	gen := returning("```json\n" + `[
		{"lesson_id": 1001, "title": "Cryogenic Valve Failure", "abstract": "Valve stuck closed at 20 K.",
		 "driving_event": "Valve did not open.", "root_cause": "Seat shrinkage.", "recommendation": "Test cold.",
		 "metadata": {"mission": "Space Shuttle", "center": "KSC", "subjects": ["Cryogenics"]}},
		{"lesson_id": 1002, "title": "Mars Lander Legs", "abstract": "Sensor transient.",
		 "driving_event": "", "root_cause": "Spurious signal.", "recommendation": "Filter sensor input.",
		 "metadata": {}}
	]` + "\n```")

	out, err := newHandler(gen).Execute(context.Background(), &Input{Lessons: records})
	require.NoError(t, err)

	assert.False(t, out.Fallback)
	require.Len(t, out.Lessons, 2)
	assert.Equal(t, []int{1001, 1002}, models.LessonIDs(out.Lessons))
	assert.Equal(t, "Seat shrinkage.", out.Lessons[0].RootCause)
	assert.Equal(t, "Filter sensor input.", out.Lessons[1].Recommendation)
}

func TestSanitize_MergesByLessonID(t *testing.T) {
	// provider reorders, skips 1001 and invents 4242
	gen := returning(`[
		{"lesson_id": 4242, "title": "Invented"},
		{"lesson_id": 1002, "title": "Mars Lander Legs", "root_cause": "Spurious signal."}
	]`)

	lessons := newHandler(gen).Sanitize(context.Background(), records)

	require.Len(t, lessons, 2)
	assert.Equal(t, []int{1001, 1002}, models.LessonIDs(lessons))
	assert.Equal(t, MapDeterministic(records[0]), lessons[0])
	assert.Equal(t, "Spurious signal.", lessons[1].RootCause)
}

func TestSanitize_BlankTitleKeepsRecordTitle(t *testing.T) {
	gen := returning(`[{"lesson_id": 1002, "title": "  "}]`)

	lessons := newHandler(gen).Sanitize(context.Background(), records[1:])

	require.Len(t, lessons, 1)
	assert.Equal(t, "Mars Lander Leg Deployment", lessons[0].Title)
}

// ==========================
// Fallback
// ==========================

func TestSanitize_FallsBackToDeterministicMapping(t *testing.T) {
	tests := []struct {
		name string
		gen  generator.Generator
	}{
		{"provider error", generator.Func(func(ctx context.Context, prompt string) (string, error) {
			return "", errors.New("503 service unavailable")
		})},
		{"unavailable", generator.Unavailable{Reason: "no api key"}},
		{"provider panics", generator.Func(func(ctx context.Context, prompt string) (string, error) {
			var m map[string]int
			m["x"]++
			return "", nil
		})},
		{"prose instead of json", returning("Here are your lessons, nicely cleaned!")},
		{"json object not array", returning(`{"lesson_id": 1001}`)},
		{"wrong field type", returning(`[{"lesson_id": "1001"}]`)},
		{"no matching ids", returning(`[{"lesson_id": 7}]`)},
		{"blank output", returning("   ")},
		{"timeout", generator.Func(func(ctx context.Context, prompt string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := newHandler(tt.gen).Execute(context.Background(), &Input{Lessons: records})
			require.NoError(t, err)

			assert.True(t, out.Fallback)
			require.Len(t, out.Lessons, len(records))
			for i, r := range records {
				assert.Equal(t, MapDeterministic(r), out.Lessons[i])
			}
		})
	}
}

func TestSanitize_TimeoutReturnsPromptly(t *testing.T) {
	gen := generator.Func(func(ctx context.Context, prompt string) (string, error) {
		time.Sleep(2 * time.Second)
		return "[]", nil
	})

	start := time.Now()
	lessons := newHandler(gen).Sanitize(context.Background(), records)

	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, lessons, 2)
}

func TestSanitize_EmptyInputSkipsProvider(t *testing.T) {
	called := false
	gen := generator.Func(func(ctx context.Context, prompt string) (string, error) {
		called = true
		return "[]", nil
	})

	lessons := newHandler(gen).Sanitize(context.Background(), nil)

	assert.False(t, called)
	assert.NotNil(t, lessons)
	assert.Empty(t, lessons)
}

func TestMapDeterministic(t *testing.T) {
	r := records[0]
	r.SubjectSecondary = []string{"Valves", ""}

	got := MapDeterministic(r)

	assert.Equal(t, 1001, got.LessonID)
	assert.Equal(t, r.DrivingEvent, got.DrivingEvent)
	assert.Equal(t, r.Lesson, got.RootCause)
	assert.Equal(t, r.Recommendation, got.Recommendation)
	assert.Equal(t, models.LessonMetadata{
		Mission:  "Space Shuttle",
		Center:   "KSC",
		Date:     "2004-03-01",
		Subjects: []string{"Cryogenics", "Valves"},
	}, got.Metadata)

	sparse := MapDeterministic(records[1])
	assert.Equal(t, "", sparse.DrivingEvent)
	assert.Equal(t, "", sparse.Metadata.Mission)
}

// ==========================
// Prompt
// ==========================

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(records)

	assert.True(t, strings.HasPrefix(prompt, "You are a NASA mission intelligence data processor"))
	assert.Contains(t, prompt, "LESSON 1 (ID: 1001):")
	assert.Contains(t, prompt, "LESSON 2 (ID: 1002):")
	assert.Contains(t, prompt, "Driving Event: N/A")
	assert.Contains(t, prompt, "Return ONLY the JSON array, no markdown, no explanation.")
	assert.Equal(t, 2, strings.Count(prompt, "---"))
}

func TestLoadConfig(t *testing.T) {
	cfg := LoadConfig(&config.Config{GenAI: config.GenAIConfig{Timeout: 5000}})
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func ExampleMapDeterministic() {
	l := MapDeterministic(models.LessonRecord{ID: 7, Title: "Tin Whiskers", Lesson: "Pure tin plating grows whiskers."})
	fmt.Println(l.LessonID, l.RootCause)
	// Output: 7 Pure tin plating grows whiskers.
}
