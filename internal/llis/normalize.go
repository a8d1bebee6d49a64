// internal/llis/normalize.go
package llis

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"astroscope/internal/models"
)

// Document is an untyped JSON object as decoded from the search endpoint.
// The endpoint is untrusted for shape: every accessor tolerates absence and
// wrong types.
type Document = map[string]interface{}

var missionPatterns = []struct {
	re   *regexp.Regexp
	name string
}{
	{regexp.MustCompile(`(?i)\bartemis\b`), "Artemis"},
	{regexp.MustCompile(`(?i)\bapollo\b`), "Apollo"},
	{regexp.MustCompile(`(?i)\biss\b|international\s*space\s*station`), "ISS"},
	{regexp.MustCompile(`(?i)\bmars\s*(2020|rover|perseverance|curiosity|opportunity|spirit)`), "Mars Mission"},
	{regexp.MustCompile(`(?i)\bshuttle\b`), "Space Shuttle"},
	{regexp.MustCompile(`(?i)\bhubble\b`), "Hubble"},
	{regexp.MustCompile(`(?i)\bjwst\b|james\s*webb`), "James Webb"},
	{regexp.MustCompile(`(?i)\bvoyager\b`), "Voyager"},
	{regexp.MustCompile(`(?i)\bcassini\b`), "Cassini"},
	{regexp.MustCompile(`(?i)\bjuno\b`), "Juno"},
	{regexp.MustCompile(`(?i)new\s*horizons`), "New Horizons"},
	{regexp.MustCompile(`(?i)parker\s*solar`), "Parker Solar Probe"},
	{regexp.MustCompile(`(?i)\borion\b`), "Orion"},
	{regexp.MustCompile(`(?i)\bsls\b|space\s*launch\s*system`), "SLS"},
}

// InferMission derives a mission name from a lesson title, or "" when no
// known mission is mentioned.
func InferMission(title string) string {
	for _, p := range missionPatterns {
		if p.re.MatchString(title) {
			return p.name
		}
	}
	return ""
}

// NormalizeHits walks hits.hits of a search response and converts every hit
// that carries a usable id.
func NormalizeHits(doc Document) []models.LessonRecord {
	hitsObj, _ := doc["hits"].(Document)
	rawHits, _ := hitsObj["hits"].([]interface{})

	records := make([]models.LessonRecord, 0, len(rawHits))
	for _, raw := range rawHits {
		hit, ok := raw.(Document)
		if !ok {
			continue
		}
		if rec, ok := NormalizeHit(hit); ok {
			records = append(records, rec)
		}
	}
	return records
}

// NormalizeHit converts one search hit into a LessonRecord. The canonical
// field name wins, then known synonyms, then the empty string.
func NormalizeHit(hit Document) (models.LessonRecord, bool) {
	src, _ := hit["_source"].(Document)

	id, ok := parseID(hit["_id"])
	if !ok {
		id, ok = parseID(src["lesson_id"])
	}
	if !ok {
		return models.LessonRecord{}, false
	}

	title := firstString(src, "title")
	if title == "" {
		title = "Untitled"
	}

	mission := firstString(src, "mission", "mission_directorate")
	if mission == "" {
		mission = InferMission(title)
	}

	center := firstString(src, "center")
	if center == "" {
		if submitted, ok := src["submitted_by"].(Document); ok {
			center = firstString(submitted, "center")
		}
	}

	categories := stringList(src["category"])
	subjectPrimary := firstString(src, "subject_primary")
	if subjectPrimary == "" && len(categories) > 0 {
		subjectPrimary = categories[0]
	}
	subjectSecondary := stringList(src["subject_secondary"])
	if len(subjectSecondary) == 0 {
		subjectSecondary = categories
	}

	organization := firstString(src, "organization")
	if organization == "" {
		organization = "NASA"
	}

	return models.LessonRecord{
		ID:               id,
		Title:            title,
		Abstract:         firstString(src, "abstract", "lesson_abstract"),
		DrivingEvent:     firstString(src, "driving_event", "drivingEvent"),
		Lesson:           firstString(src, "lesson", "lessonsLearned"),
		Recommendation:   firstString(src, "recommendation"),
		Mission:          mission,
		Center:           center,
		SubjectPrimary:   subjectPrimary,
		SubjectSecondary: subjectSecondary,
		Organization:     organization,
		LessonDate:       firstString(src, "lesson_date", "date"),
	}, true
}

func parseID(v interface{}) (int, bool) {
	var (
		n   int64
		err error
	)
	switch t := v.(type) {
	case json.Number:
		n, err = t.Int64()
	case float64:
		if t != float64(int64(t)) {
			return 0, false
		}
		n = int64(t)
	case string:
		n, err = strconv.ParseInt(strings.TrimSpace(t), 10, 64)
	default:
		return 0, false
	}
	if err != nil || n <= 0 {
		return 0, false
	}
	return int(n), true
}

func firstString(doc Document, keys ...string) string {
	for _, k := range keys {
		if s, ok := doc[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// stringList accepts either a JSON array of strings or a single string.
func stringList(v interface{}) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}
