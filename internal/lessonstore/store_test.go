// internal/lessonstore/store_test.go
package lessonstore

import (
	"fmt"
	"testing"

	"astroscope/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T) *Store {
	t.Helper()
	s, err := LoadEmbedded()
	require.NoError(t, err)
	require.Equal(t, 6, s.Len())
	return s
}

func ids(records []models.LessonRecord) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

// ==========================
// Search
// ==========================

func TestSearch(t *testing.T) {
	s := seedStore(t)

	tests := []struct {
		name     string
		query    string
		contains []int
		exact    []int
	}{
		{name: "mission name", query: "Mars Climate Orbiter", contains: []int{1002}},
		{name: "single keyword", query: "asteroid", exact: []int{5001}},
		{name: "stop words stripped", query: "What are the risks for an asteroid lander?", contains: []int{5001}},
		{name: "case insensitive", query: "APOLLO", exact: []int{1001}},
		{name: "center field", query: "KSC", exact: []int{3002}},
		{name: "topic question", query: "Tell me about cryogenic valve failures", exact: []int{3002}},
		{name: "no match", query: "quasar plumbing", exact: nil},
		{name: "only stop words", query: "what is the", exact: nil},
		{name: "blank", query: "   ", exact: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total := s.Search(tt.query)
			assert.Equal(t, len(got), total)
			if tt.contains != nil {
				assert.Subset(t, ids(got), tt.contains)
				return
			}
			assert.Equal(t, tt.exact, nilIfEmpty(ids(got)))
		})
	}
}

func nilIfEmpty(in []int) []int {
	if len(in) == 0 {
		return nil
	}
	return in
}

func TestSearch_TruncatesButReportsTotal(t *testing.T) {
	var records []models.LessonRecord
	for i := 1; i <= 14; i++ {
		records = append(records, models.LessonRecord{ID: i, Title: fmt.Sprintf("Thermal anomaly %d", i)})
	}
	s := New(records)

	got, total := s.Search("thermal")
	assert.Len(t, got, MaxSearchResults)
	assert.Equal(t, 14, total)
	assert.Equal(t, 1, got[0].ID)
}

func TestNew_DropsDuplicateIDs(t *testing.T) {
	s := New([]models.LessonRecord{{ID: 7, Title: "first"}, {ID: 7, Title: "second"}})
	assert.Equal(t, 1, s.Len())
	l, ok := s.ByID(7)
	require.True(t, ok)
	assert.Equal(t, "first", l.Title)
}

// ==========================
// ByID / ByCategory
// ==========================

func TestByID(t *testing.T) {
	s := seedStore(t)

	l, ok := s.ByID(3002)
	require.True(t, ok)
	assert.Equal(t, "Cryogenic Valve Failures", l.Title)
	assert.Equal(t, "Ares I-X", l.Mission)

	_, ok = s.ByID(9999)
	assert.False(t, ok)
}

func TestByCategory(t *testing.T) {
	s := seedStore(t)

	tests := []struct {
		category string
		want     []int
	}{
		{"Apollo", []int{1001}},
		{"Mars Lander", []int{1002, 5002}},
		{"Thermal", []int{5001}},
		{"Communications Failure", []int{4001}},
		{"Propulsion", []int{3002}},
		{"Cryogenic Valve Failures", []int{1001, 3002}},
		{"Software", []int{1002}},
		{"Basket Weaving", nil},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			assert.Equal(t, tt.want, nilIfEmpty(ids(s.ByCategory(tt.category))))
		})
	}
}

func TestByCategory_CapsResults(t *testing.T) {
	var records []models.LessonRecord
	for i := 1; i <= 8; i++ {
		records = append(records, models.LessonRecord{ID: i, Title: "Engine test", SubjectPrimary: "Propulsion"})
	}
	assert.Len(t, New(records).ByCategory("Propulsion"), MaxCategoryResults)
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"risks", "asteroid", "lander?"}, Keywords("what are the risks for an asteroid lander?"))
	assert.Empty(t, Keywords("is it on"))
}
