// internal/lessonstore/store.go
package lessonstore

import (
	"strings"

	"astroscope/internal/models"
)

const (
	// MaxSearchResults caps Search; the untruncated count is reported separately.
	MaxSearchResults = 10
	// MaxCategoryResults caps ByCategory.
	MaxCategoryResults = 5
)

var stopWords = map[string]struct{}{
	"what": {}, "are": {}, "the": {}, "for": {}, "a": {}, "an": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "is": {}, "of": {}, "and": {}, "or": {},
}

// categoryKeywords maps the trending categories to the keywords they match.
var categoryKeywords = map[string][]string{
	"Apollo":                   {"apollo", "1001"},
	"Mars Lander":              {"mars", "rover", "curiosity"},
	"Thermal":                  {"thermal", "temperature", "cooling"},
	"Communications Failure":   {"communications", "comms", "antenna"},
	"Propulsion":               {"propulsion", "engine", "fuel", "cryogenic"},
	"Cryogenic Valve Failures": {"cryogenic", "valve", "hydrogen", "oxygen"},
}

// TrendingCategories lists the categories with a dedicated keyword mapping.
var TrendingCategories = []string{
	"Apollo", "Mars Lander", "Thermal", "Communications Failure", "Propulsion", "Cryogenic Valve Failures",
}

// Store is the immutable local lesson corpus. It is safe for concurrent use.
type Store struct {
	lessons    []models.LessonRecord
	searchText []string
	byID       map[int]int
}

// New builds a Store over records. Records sharing an id keep the first one.
func New(records []models.LessonRecord) *Store {
	s := &Store{
		lessons:    make([]models.LessonRecord, 0, len(records)),
		searchText: make([]string, 0, len(records)),
		byID:       make(map[int]int, len(records)),
	}
	for _, r := range records {
		if _, dup := s.byID[r.ID]; dup {
			continue
		}
		s.byID[r.ID] = len(s.lessons)
		s.lessons = append(s.lessons, r)
		s.searchText = append(s.searchText, searchableText(r))
	}
	return s
}

// Len returns the number of lessons in the corpus.
func (s *Store) Len() int {
	return len(s.lessons)
}

// All returns a copy of the corpus in load order.
func (s *Store) All() []models.LessonRecord {
	out := make([]models.LessonRecord, len(s.lessons))
	copy(out, s.lessons)
	return out
}

// Search returns at most MaxSearchResults lessons whose searchable text
// contains the whole query or any of its keywords, plus the total number of
// matches. A blank query matches nothing.
func (s *Store) Search(query string) ([]models.LessonRecord, int) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, 0
	}
	keywords := Keywords(q)

	var matches []models.LessonRecord
	total := 0
	for i, text := range s.searchText {
		if !strings.Contains(text, q) && !containsAny(text, keywords) {
			continue
		}
		total++
		if len(matches) < MaxSearchResults {
			matches = append(matches, s.lessons[i])
		}
	}
	return matches, total
}

// ByID returns the lesson with the given id.
func (s *Store) ByID(id int) (models.LessonRecord, bool) {
	i, ok := s.byID[id]
	if !ok {
		return models.LessonRecord{}, false
	}
	return s.lessons[i], true
}

// ByCategory returns up to MaxCategoryResults lessons for a trending category.
// Unknown categories match on their lowercased name.
func (s *Store) ByCategory(category string) []models.LessonRecord {
	keywords, ok := categoryKeywords[category]
	if !ok {
		name := strings.ToLower(strings.TrimSpace(category))
		if name == "" {
			return nil
		}
		keywords = []string{name}
	}

	var out []models.LessonRecord
	for _, l := range s.lessons {
		text := strings.ToLower(l.Title + " " + l.Mission + " " + l.SubjectPrimary)
		if containsAny(text, keywords) {
			out = append(out, l)
			if len(out) == MaxCategoryResults {
				break
			}
		}
	}
	return out
}

// Keywords splits a lowercased query on whitespace and drops short tokens and
// stop words.
func Keywords(q string) []string {
	var out []string
	for _, tok := range strings.Fields(q) {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func searchableText(l models.LessonRecord) string {
	return strings.ToLower(strings.Join([]string{
		l.Title, l.Abstract, l.Lesson, l.DrivingEvent, l.Mission,
		l.SubjectPrimary, l.Recommendation, l.Center,
	}, " "))
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
