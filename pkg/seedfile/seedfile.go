// pkg/seedfile/seedfile.go
package seedfile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"astroscope/internal/models"
)

// SeedFile is the on-disk layout of the local lesson corpus.
type SeedFile struct {
	GeneratedAt  string                `json:"generated_at"`
	TotalLessons int                   `json:"total_lessons"`
	Lessons      []models.LessonRecord `json:"lessons"`
}

// Load reads a seed file from path.
func Load(path string) (*SeedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a seed document and checks it.
func Decode(r io.Reader) (*SeedFile, error) {
	var sf SeedFile
	if err := json.NewDecoder(r).Decode(&sf); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	if err := sf.Validate(); err != nil {
		return nil, err
	}
	return &sf, nil
}

// Validate checks that every lesson has a positive id and ids are unique.
func (sf *SeedFile) Validate() error {
	seen := make(map[int]struct{}, len(sf.Lessons))
	for i, l := range sf.Lessons {
		if l.ID <= 0 {
			return fmt.Errorf("lesson at index %d has no lesson_id", i)
		}
		if _, dup := seen[l.ID]; dup {
			return fmt.Errorf("duplicate lesson_id %d", l.ID)
		}
		seen[l.ID] = struct{}{}
	}
	return nil
}

// Save writes sf to path, creating parent directories. TotalLessons is
// recomputed from the lesson list.
func Save(path string, sf *SeedFile) error {
	sf.TotalLessons = len(sf.Lessons)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create seed directory: %w", err)
	}
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("encode seed file: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
