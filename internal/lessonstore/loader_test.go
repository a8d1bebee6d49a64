// internal/lessonstore/loader_test.go
package lessonstore

import (
	"context"
	"database/sql/driver"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"astroscope/internal/common/config"
	"astroscope/internal/models"
	"astroscope/pkg/seedfile"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lessonColumns = []string{
	"lesson_id", "title", "abstract", "driving_event", "lesson", "recommendation",
	"mission", "center", "subject_primary", "subject_secondary", "organization", "lesson_date",
}

func TestLoadFromPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(lessonColumns).
		AddRow(1001, "Apollo 13 Oxygen Tank Explosion", "Tank explosion", "Oxygen tank exploded", "Contingency planning",
			"Redundant systems", "Apollo 13", "JSC", "Safety", []byte("{Crew,Wiring}"), "NASA", "1970-04-17").
		AddRow(3002, "Cryogenic Valve Failures", "Valve sealing issues", "", "", "", "Ares I-X", "KSC", "Propulsion",
			[]byte("{}"), "NASA", "")
	mock.ExpectQuery(regexp.QuoteMeta("FROM lessons")).WillReturnRows(rows)

	s, err := LoadFromPostgres(context.Background(), db)
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	apollo, ok := s.ByID(1001)
	require.True(t, ok)
	assert.Equal(t, []string{"Crew", "Wiring"}, apollo.SubjectSecondary)
	assert.Equal(t, []string{"Safety", "Crew", "Wiring"}, apollo.Subjects())
	assert.Equal(t, "1970-04-17", apollo.LessonDate)

	got, _ := s.Search("valve")
	require.Len(t, got, 1)
	assert.Equal(t, 3002, got[0].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadFromPostgres_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM lessons")).WillReturnError(errors.New("relation \"lessons\" does not exist"))

	_, err = LoadFromPostgres(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query lessons")
}

func TestSaveToPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	records := []models.LessonRecord{
		{ID: 1001, Title: "Apollo 13 Oxygen Tank Explosion", SubjectSecondary: []string{"Crew"}},
		{ID: 1002, Title: "Mars Climate Orbiter Unit Error", Organization: "JPL"},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO lessons"))
	prep.ExpectExec().
		WithArgs(1001, "Apollo 13 Oxygen Tank Explosion", "", "", "", "", "", "", "", `{"Crew"}`, "NASA", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs(1002, "Mars Climate Orbiter Unit Error", "", "", "", "", "", "", "", "{}", "JPL", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, SaveToPostgres(context.Background(), db, records))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// notNull matches any non-NULL driver value.
type notNull struct{}

func (notNull) Match(v driver.Value) bool { return v != nil }

func TestSaveToPostgres_EmbeddedSeedHasNoNullSubjects(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store, err := LoadEmbedded()
	require.NoError(t, err)
	records := store.All()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO lessons"))
	for range records {
		prep.ExpectExec().
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), notNull{}, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, SaveToPostgres(context.Background(), db, records))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveToPostgres_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO lessons"))
	prep.ExpectExec().WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err = SaveToPostgres(context.Background(), db, []models.LessonRecord{{ID: 1, Title: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert lesson 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, seedfile.Save(path, &seedfile.SeedFile{
		Lessons: []models.LessonRecord{{ID: 42, Title: "Hubble Mirror Flaw"}},
	}))

	s, err := Open(context.Background(), config.PipelineConfig{CorpusSource: config.CorpusFile, CorpusPath: path}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	s, err = Open(context.Background(), config.PipelineConfig{CorpusSource: config.CorpusEmbedded}, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, s.Len())

	_, err = Open(context.Background(), config.PipelineConfig{CorpusSource: config.CorpusPostgres}, nil)
	assert.Error(t, err)

	_, err = Open(context.Background(), config.PipelineConfig{CorpusSource: "s3"}, nil)
	assert.Error(t, err)
}
