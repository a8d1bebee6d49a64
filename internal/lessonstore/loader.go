// internal/lessonstore/loader.go
package lessonstore

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"astroscope/internal/common/config"
	"astroscope/internal/models"
	"astroscope/pkg/seedfile"

	"github.com/lib/pq"
)

//go:embed seed/lessons_seed.json
var embeddedSeed []byte

const selectLessonsQuery = `
SELECT lesson_id, title, abstract, driving_event, lesson, recommendation,
       mission, center, subject_primary, subject_secondary, organization, lesson_date
FROM lessons
ORDER BY lesson_id`

const upsertLessonQuery = `
INSERT INTO lessons (lesson_id, title, abstract, driving_event, lesson, recommendation,
                     mission, center, subject_primary, subject_secondary, organization, lesson_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (lesson_id) DO UPDATE SET
	title = EXCLUDED.title,
	abstract = EXCLUDED.abstract,
	driving_event = EXCLUDED.driving_event,
	lesson = EXCLUDED.lesson,
	recommendation = EXCLUDED.recommendation,
	mission = EXCLUDED.mission,
	center = EXCLUDED.center,
	subject_primary = EXCLUDED.subject_primary,
	subject_secondary = EXCLUDED.subject_secondary,
	organization = EXCLUDED.organization,
	lesson_date = EXCLUDED.lesson_date`

// LoadEmbedded builds a Store from the seed corpus compiled into the binary.
func LoadEmbedded() (*Store, error) {
	sf, err := seedfile.Decode(bytes.NewReader(embeddedSeed))
	if err != nil {
		return nil, fmt.Errorf("embedded seed: %w", err)
	}
	return New(sf.Lessons), nil
}

// LoadFile builds a Store from a seed file on disk.
func LoadFile(path string) (*Store, error) {
	sf, err := seedfile.Load(path)
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return New(sf.Lessons), nil
}

// LoadFromPostgres builds a Store from the lessons table.
func LoadFromPostgres(ctx context.Context, db *sql.DB) (*Store, error) {
	rows, err := db.QueryContext(ctx, selectLessonsQuery)
	if err != nil {
		return nil, fmt.Errorf("query lessons: %w", err)
	}
	defer rows.Close()

	var records []models.LessonRecord
	for rows.Next() {
		var r models.LessonRecord
		if err := rows.Scan(
			&r.ID, &r.Title, &r.Abstract, &r.DrivingEvent, &r.Lesson, &r.Recommendation,
			&r.Mission, &r.Center, &r.SubjectPrimary, pq.Array(&r.SubjectSecondary),
			&r.Organization, &r.LessonDate,
		); err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lessons: %w", err)
	}
	return New(records), nil
}

// SaveToPostgres upserts records into the lessons table in one transaction.
// Used by the offline refresh tool only.
func SaveToPostgres(ctx context.Context, db *sql.DB, records []models.LessonRecord) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertLessonQuery)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		org := r.Organization
		if org == "" {
			org = "NASA"
		}
		// subject_secondary is NOT NULL; pq.Array(nil) would send NULL
		secondary := r.SubjectSecondary
		if secondary == nil {
			secondary = []string{}
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Title, r.Abstract, r.DrivingEvent, r.Lesson, r.Recommendation,
			r.Mission, r.Center, r.SubjectPrimary, pq.Array(secondary),
			org, r.LessonDate,
		); err != nil {
			return fmt.Errorf("upsert lesson %d: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// Open builds the Store selected by the pipeline configuration. db is only
// consulted for the postgres source.
func Open(ctx context.Context, cfg config.PipelineConfig, db *sql.DB) (*Store, error) {
	switch cfg.CorpusSource {
	case "", config.CorpusEmbedded:
		return LoadEmbedded()
	case config.CorpusFile:
		return LoadFile(cfg.CorpusPath)
	case config.CorpusPostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres corpus selected without a database connection")
		}
		return LoadFromPostgres(ctx, db)
	default:
		return nil, fmt.Errorf("unknown corpus source %q", cfg.CorpusSource)
	}
}
