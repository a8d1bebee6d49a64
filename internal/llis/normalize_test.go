// internal/llis/normalize_test.go
package llis

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) Document {
	t.Helper()
	var doc Document
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&doc))
	return doc
}

func TestNormalizeHit_CanonicalFields(t *testing.T) {
	hit := decode(t, `{
		"_id": "3002",
		"_source": {
			"title": "Cryogenic Valve Failures",
			"abstract": "Valve sealing issues during operations",
			"driving_event": "Sealing problems with LO2 and LH2",
			"lesson": "Cryogenic systems need conditioning",
			"recommendation": "Proper seal materials needed",
			"mission": "Ares I-X",
			"center": "KSC",
			"subject_primary": "Propulsion",
			"subject_secondary": ["Valves", "Seals"],
			"organization": "NASA KSC",
			"lesson_date": "2010-02-01"
		}
	}`)

	rec, ok := NormalizeHit(hit)
	require.True(t, ok)
	assert.Equal(t, 3002, rec.ID)
	assert.Equal(t, "Cryogenic Valve Failures", rec.Title)
	assert.Equal(t, "Sealing problems with LO2 and LH2", rec.DrivingEvent)
	assert.Equal(t, "Ares I-X", rec.Mission)
	assert.Equal(t, []string{"Valves", "Seals"}, rec.SubjectSecondary)
	assert.Equal(t, "NASA KSC", rec.Organization)
	assert.Equal(t, "2010-02-01", rec.LessonDate)
}

func TestNormalizeHit_Synonyms(t *testing.T) {
	hit := decode(t, `{
		"_source": {
			"lesson_id": 1234,
			"title": "Hubble Gyroscope Anomalies",
			"lesson_abstract": "Gyros degraded early",
			"drivingEvent": "Gyro wire corrosion",
			"lessonsLearned": "Qualify flex leads",
			"submitted_by": {"center": "GSFC"},
			"category": ["Guidance", "Materials"],
			"date": "2004-06-10"
		}
	}`)

	rec, ok := NormalizeHit(hit)
	require.True(t, ok)
	assert.Equal(t, 1234, rec.ID)
	assert.Equal(t, "Gyros degraded early", rec.Abstract)
	assert.Equal(t, "Gyro wire corrosion", rec.DrivingEvent)
	assert.Equal(t, "Qualify flex leads", rec.Lesson)
	assert.Equal(t, "", rec.Recommendation)
	assert.Equal(t, "Hubble", rec.Mission)
	assert.Equal(t, "GSFC", rec.Center)
	assert.Equal(t, "Guidance", rec.SubjectPrimary)
	assert.Equal(t, []string{"Guidance", "Materials"}, rec.SubjectSecondary)
	assert.Equal(t, "NASA", rec.Organization)
	assert.Equal(t, "2004-06-10", rec.LessonDate)
}

func TestNormalizeHit_Defaults(t *testing.T) {
	rec, ok := NormalizeHit(decode(t, `{"_id": 77, "_source": {"mission_directorate": "SMD", "title": 12}}`))
	require.True(t, ok)
	assert.Equal(t, 77, rec.ID)
	assert.Equal(t, "Untitled", rec.Title)
	assert.Equal(t, "SMD", rec.Mission)
	assert.Equal(t, "", rec.Abstract)
	assert.Nil(t, rec.SubjectSecondary)
}

func TestNormalizeHit_RejectsMissingID(t *testing.T) {
	tests := []string{
		`{"_source": {"title": "No id"}}`,
		`{"_id": "LLIS-abc", "_source": {"title": "Bad id"}}`,
		`{"_id": -4}`,
		`{"_id": 1.5}`,
	}
	for _, raw := range tests {
		_, ok := NormalizeHit(decode(t, raw))
		assert.False(t, ok, raw)
	}
}

func TestNormalizeHits_SkipsJunk(t *testing.T) {
	doc := decode(t, `{"hits": {"hits": [
		{"_id": "1", "_source": {"title": "Apollo 1 Fire"}},
		"not an object",
		{"_source": {}},
		{"_id": "2"}
	]}}`)

	recs := NormalizeHits(doc)
	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[0].ID)
	assert.Equal(t, "Apollo", recs[0].Mission)
	assert.Equal(t, "Untitled", recs[1].Title)

	assert.Empty(t, NormalizeHits(decode(t, `{"took": 3}`)))
	assert.Empty(t, NormalizeHits(decode(t, `{"hits": "nope"}`)))
}

func TestInferMission(t *testing.T) {
	tests := map[string]string{
		"Artemis I Launch Pad Damage":          "Artemis",
		"ISS Ammonia Leak":                     "ISS",
		"International Space Station Power":    "ISS",
		"Mission Assurance Reviews":            "",
		"Mars Perseverance Sample Caching":     "Mars Mission",
		"Space Shuttle Foam Shedding":          "Space Shuttle",
		"JWST Sunshield Deployment":            "James Webb",
		"New Horizons Pluto Flyby Safe Mode":   "New Horizons",
		"Parker Solar Probe Heat Shield":       "Parker Solar Probe",
		"SLS Core Stage Green Run":             "SLS",
		"Orion Heat Shield Char Loss":          "Orion",
		"Ground Support Equipment Calibration": "",
	}
	for title, want := range tests {
		t.Run(title, func(t *testing.T) {
			assert.Equal(t, want, InferMission(title))
		})
	}
}
