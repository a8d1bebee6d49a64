// internal/models/lesson.go
package models

// LessonRecord is one lesson as retrieved from the live LLIS or the local
// corpus. ID is the only required field; string fields are never nil and hold
// an empty string when the source did not provide them.
type LessonRecord struct {
	ID               int      `json:"lesson_id" db:"lesson_id"`
	Title            string   `json:"title" db:"title"`
	Abstract         string   `json:"abstract" db:"abstract"`
	DrivingEvent     string   `json:"driving_event,omitempty" db:"driving_event"`
	Lesson           string   `json:"lesson,omitempty" db:"lesson"`
	Recommendation   string   `json:"recommendation,omitempty" db:"recommendation"`
	Mission          string   `json:"mission,omitempty" db:"mission"`
	Center           string   `json:"center,omitempty" db:"center"`
	SubjectPrimary   string   `json:"subject_primary,omitempty" db:"subject_primary"`
	SubjectSecondary []string `json:"subject_secondary,omitempty" db:"subject_secondary"`
	Organization     string   `json:"organization,omitempty" db:"organization"`
	LessonDate       string   `json:"lesson_date,omitempty" db:"lesson_date"`
}

// Subjects returns the primary subject followed by the secondary subjects,
// skipping blanks.
func (l LessonRecord) Subjects() []string {
	subjects := make([]string, 0, 1+len(l.SubjectSecondary))
	if l.SubjectPrimary != "" {
		subjects = append(subjects, l.SubjectPrimary)
	}
	for _, s := range l.SubjectSecondary {
		if s != "" {
			subjects = append(subjects, s)
		}
	}
	return subjects
}

// LessonMetadata carries the optional descriptive fields of a sanitized lesson.
type LessonMetadata struct {
	Mission  string   `json:"mission,omitempty"`
	Center   string   `json:"center,omitempty"`
	Date     string   `json:"date,omitempty"`
	Subjects []string `json:"subjects,omitempty"`
}

// SanitizedLesson is the strict, minimal shape produced by sanitization. It is
// one-to-one with the LessonRecord it was derived from.
type SanitizedLesson struct {
	LessonID       int            `json:"lesson_id"`
	Title          string         `json:"title"`
	Abstract       string         `json:"abstract"`
	DrivingEvent   string         `json:"driving_event"`
	RootCause      string         `json:"root_cause"`
	Recommendation string         `json:"recommendation"`
	Metadata       LessonMetadata `json:"metadata"`
}

// LessonIDs returns the ids of the given lessons in order.
func LessonIDs(lessons []SanitizedLesson) []int {
	ids := make([]int, len(lessons))
	for i, l := range lessons {
		ids[i] = l.LessonID
	}
	return ids
}
